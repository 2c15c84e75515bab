package analyzer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeReport combines one ledger entry with its resolved native flows and
// the available prices into the final per-buyer report. The valuation mode is
// selected once; the three paths never mix.
func ComputeReport(addr string, entry *LedgerEntry, txs []TxRecord, cache *FlowCache, isBot bool, prices PriceInfo, now int64) BuyerReport {
	buy := entry.BuyAmount
	sell := entry.SellAmount
	holding := buy.Sub(sell)
	isHolding := holding.IsPositive()

	r := BuyerReport{
		Address:      addr,
		FirstBuyTime: entry.FirstBuyTime,
		BuyAmount:    buy.InexactFloat64(),
		SellAmount:   sell.InexactFloat64(),
		Holding:      holding.InexactFloat64(),
		BuyCount:     entry.BuyCount,
		SellCount:    entry.SellCount,
		IsHolding:    isHolding,
		IsBot:        isBot,
	}
	if buy.IsPositive() {
		r.SellRatio = sell.Div(buy).InexactFloat64() * 100
	}

	// Holding duration runs to now while the position is open, to the last
	// sell once cleared.
	if isHolding {
		r.HoldingDurationSeconds = now - entry.FirstBuyTime
	} else {
		r.HoldingDurationSeconds = entry.LastSellTime - entry.FirstBuyTime
	}
	r.HoldingTime = FormatDuration(r.HoldingDurationSeconds)

	var spent, received decimal.Decimal
	if cache != nil {
		spent, received = sumFlows(addr, txs, cache)
	}

	r.Mode = selectMode(isBot, spent, received, prices)
	switch r.Mode {
	case ModeNativeFlow:
		applyNativeFlow(&r, holding, buy, sell, spent, received, prices.BNBUSD)
	case ModeFlatPrice:
		applyFlatPrice(&r, holding, buy, sell, prices.FlatUSD)
	}
	return r
}

// sumFlows totals the buyer's native spend (outflow on buys) and proceeds
// (inflow on sells) from the cache. Unresolved pairs contribute zero.
func sumFlows(addr string, txs []TxRecord, cache *FlowCache) (spent, received decimal.Decimal) {
	for _, tx := range txs {
		flow, ok := cache.Get(addr, tx.Hash)
		if !ok {
			continue
		}
		switch tx.Direction {
		case DirectionBuy:
			spent = spent.Add(flow.Out)
		case DirectionSell:
			received = received.Add(flow.In)
		}
	}
	return spent, received
}

// selectMode picks the valuation path. Bots are always quantity-only so their
// monetary fields stay zero whatever price data exists.
func selectMode(isBot bool, spent, received decimal.Decimal, prices PriceInfo) ValuationMode {
	if isBot {
		return ModeQuantityOnly
	}
	if (spent.IsPositive() || received.IsPositive()) && prices.BNBUSD > 0 {
		return ModeNativeFlow
	}
	if prices.FlatUSD > 0 {
		return ModeFlatPrice
	}
	return ModeQuantityOnly
}

// applyNativeFlow values the position from actual BNB moved. The remaining
// holding is priced at the average sell price when any sale happened, else
// the average buy price. A heuristic, not exact on-chain accounting.
func applyNativeFlow(r *BuyerReport, holding, buy, sell, spent, received decimal.Decimal, bnbUSD float64) {
	var holdingValue decimal.Decimal
	switch {
	case sell.IsPositive() && received.IsPositive():
		holdingValue = holding.Mul(received.Div(sell))
	case buy.IsPositive() && spent.IsPositive():
		holdingValue = holding.Mul(spent.Div(buy))
	}

	totalValue := received.Add(holdingValue)

	if spent.IsPositive() {
		r.ProfitMultiple = totalValue.Div(spent).InexactFloat64()
	} else if received.IsPositive() {
		// BNB came in with nothing spent (airdrop-like acquisition); the
		// multiple is unbounded so it is flagged instead of computed.
		r.NoCostBasis = true
	}

	usd := decimal.NewFromFloat(bnbUSD)
	r.BNBSpent = spent.InexactFloat64()
	r.BNBReceived = received.InexactFloat64()
	r.BNBProfit = received.Sub(spent).InexactFloat64()
	r.BuyValueUSD = spent.Mul(usd).InexactFloat64()
	r.SellValueUSD = received.Mul(usd).InexactFloat64()
	r.HoldingValueUSD = holdingValue.Mul(usd).InexactFloat64()
	r.TotalProfitUSD = totalValue.Sub(spent).Mul(usd).InexactFloat64()
}

// applyFlatPrice falls back to valuing quantities at a flat per-token price.
func applyFlatPrice(r *BuyerReport, holding, buy, sell decimal.Decimal, flatUSD float64) {
	price := decimal.NewFromFloat(flatUSD)
	buyValue := buy.Mul(price)
	sellValue := sell.Mul(price)
	holdingValue := holding.Mul(price)

	r.BuyValueUSD = buyValue.InexactFloat64()
	r.SellValueUSD = sellValue.InexactFloat64()
	r.HoldingValueUSD = holdingValue.InexactFloat64()
	r.TotalProfitUSD = sellValue.Add(holdingValue).Sub(buyValue).InexactFloat64()
	if buyValue.IsPositive() {
		r.ProfitMultiple = sellValue.Add(holdingValue).Div(buyValue).InexactFloat64()
	}
}

// ComputeStats aggregates the final reports.
func ComputeStats(buyers []BuyerReport) Stats {
	s := Stats{TotalBuyers: len(buyers)}
	for _, b := range buyers {
		s.TotalBought += b.BuyAmount
		if b.Holding > 0 {
			s.HoldingBuyers++
		} else {
			s.ClearedBuyers++
		}
		if b.IsBot {
			s.Bots++
		}
	}
	if s.TotalBuyers > 0 {
		s.ClearedRatio = float64(s.ClearedBuyers) / float64(s.TotalBuyers) * 100
		s.HoldingRatio = float64(s.HoldingBuyers) / float64(s.TotalBuyers) * 100
	}
	return s
}

// FormatDuration renders a holding duration for display: "3d2h", "5h12m",
// "42m". The seconds value stays on the report for anything that computes.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	switch {
	case hours > 24:
		return fmt.Sprintf("%dd%dh", hours/24, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
