package analyzer

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/memescan/pkg/config"
	"github.com/memescan/pkg/explorer"
)

// NormalizeTransfers coerces raw explorer records into typed events. Records
// with an unparsable timestamp or value are dropped and counted; optional
// fields degrade silently (block number 0, decimals falling back to the
// token-level default).
func NormalizeTransfers(raw []explorer.TokenTransfer, fallbackDecimals int32) ([]TransferEvent, int) {
	events := make([]TransferEvent, 0, len(raw))
	skipped := 0

	for _, t := range raw {
		ts, ok := parseInt(t.TimeStamp)
		if !ok {
			skipped++
			continue
		}
		value, ok := parseAmount(t.Value)
		if !ok {
			skipped++
			continue
		}

		decimals := fallbackDecimals
		if d, ok := parseInt(t.TokenDecimal); ok && d >= 0 && d <= 77 {
			decimals = int32(d)
		}

		ev := TransferEvent{
			From:      config.NormalizeAddress(t.From),
			To:        config.NormalizeAddress(t.To),
			Value:     value,
			Decimals:  decimals,
			Timestamp: ts,
			TxHash:    t.Hash,
		}
		if bn, ok := parseInt(t.BlockNumber); ok {
			ev.BlockNumber = bn
		}
		events = append(events, ev)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("dropped malformed transfer records")
	}
	return events, skipped
}

// parseInt accepts decimal and 0x-prefixed hex encodings, both of which the
// explorer emits depending on the endpoint.
func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 64)
		return v, err == nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

// parseAmount parses an integer token amount that may exceed int64 range.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok || n.Sign() < 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromBigInt(n, 0), true
}
