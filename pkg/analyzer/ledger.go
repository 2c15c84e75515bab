package analyzer

import (
	"sort"

	"github.com/memescan/pkg/config"
)

// BuildLedger replays the transfer history and produces the per-address
// position ledger plus the early-buyer cohort for the window
// [creation+startOffset, creation+endOffset]. Pure function: the input slice
// is not modified and the same input always yields the same ledger.
//
// Events are stable-sorted by timestamp before the pass, so cohort "first
// buy" semantics hold even if the upstream pagination ever returns pages out
// of order.
func BuildLedger(events []TransferEvent, startOffset, endOffset int64) *Ledger {
	l := &Ledger{
		Entries:   make(map[string]*LedgerEntry),
		Cohort:    make(map[string]bool),
		TxRecords: make(map[string][]TxRecord),
	}
	if len(events) == 0 {
		return l
	}

	ordered := make([]TransferEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	l.CreationTime = ordered[0].Timestamp
	windowStart := l.CreationTime + startOffset
	windowEnd := l.CreationTime + endOffset

	for _, ev := range ordered {
		if config.ExcludedAddresses[ev.From] || config.ExcludedAddresses[ev.To] {
			continue
		}

		amount := ev.Amount()

		// Recipient side: create the entry on first sight, credit the buy.
		entry, seen := l.Entries[ev.To]
		if !seen {
			entry = &LedgerEntry{FirstBuyTime: ev.Timestamp}
			l.Entries[ev.To] = entry

			// Cohort membership is fixed at the first buy; later activity
			// never adds or removes an address.
			if ev.Timestamp >= windowStart && ev.Timestamp <= windowEnd {
				l.Cohort[ev.To] = true
			}
		}
		entry.BuyAmount = entry.BuyAmount.Add(amount)
		entry.BuyCount++
		if ev.TxHash != "" {
			l.TxRecords[ev.To] = append(l.TxRecords[ev.To], TxRecord{
				Hash: ev.TxHash, Direction: DirectionBuy, Timestamp: ev.Timestamp,
			})
		}

		// Sender side: only addresses already tracked as buyers get a sell
		// debit; a sender never seen as a recipient is not accounted.
		if seller, ok := l.Entries[ev.From]; ok {
			seller.SellAmount = seller.SellAmount.Add(amount)
			seller.SellCount++
			seller.LastSellTime = ev.Timestamp
			if ev.TxHash != "" {
				l.TxRecords[ev.From] = append(l.TxRecords[ev.From], TxRecord{
					Hash: ev.TxHash, Direction: DirectionSell, Timestamp: ev.Timestamp,
				})
			}
		}
	}

	return l
}
