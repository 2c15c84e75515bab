package analyzer

// SplitBots partitions the cohort by transaction count. Addresses above the
// threshold are likely automated traders: they skip native-flow valuation
// entirely but stay in the final report flagged as bots. Addresses without
// any recorded transaction stay valid with nothing to look up.
func SplitBots(cohort map[string]bool, txRecords map[string][]TxRecord, threshold int) (valid map[string][]TxRecord, bots map[string]bool) {
	valid = make(map[string][]TxRecord, len(cohort))
	bots = make(map[string]bool)

	for addr := range cohort {
		txs := txRecords[addr]
		if len(txs) > threshold {
			bots[addr] = true
			continue
		}
		valid[addr] = txs
	}
	return valid, bots
}
