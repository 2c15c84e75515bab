package analyzer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// entryWith builds a ledger entry with whole-token amounts.
func entryWith(buy, sell string, firstBuy, lastSell int64) *LedgerEntry {
	return &LedgerEntry{
		FirstBuyTime: firstBuy,
		LastSellTime: lastSell,
		BuyAmount:    dec(buy),
		SellAmount:   dec(sell),
		BuyCount:     1,
		SellCount:    1,
	}
}

// cacheWith preloads one buy and one sell flow for addr.
func cacheWith(addr string, spent, received string) (*FlowCache, []TxRecord) {
	cache := NewFlowCache()
	cache.Put(addr, "0xbuy", NativeFlow{Out: dec(spent)})
	cache.Put(addr, "0xsell", NativeFlow{In: dec(received)})
	txs := []TxRecord{
		{Hash: "0xbuy", Direction: DirectionBuy},
		{Hash: "0xsell", Direction: DirectionSell},
	}
	return cache, txs
}

func TestComputeReport_NativeFlowMode(t *testing.T) {
	// spent 1.0 BNB buying 1.0 token, sold half for 0.8 BNB:
	// holding 0.5 valued at avg sell price 1.6 → 0.8
	// total value 0.8 + 0.8 = 1.6 → multiple 1.6
	entry := entryWith("1.0", "0.5", 1000, 2000)
	cache, txs := cacheWith(addrA, "1.0", "0.8")

	r := ComputeReport(addrA, entry, txs, cache, false, PriceInfo{BNBUSD: 600}, 5000)

	assert.Equal(t, ModeNativeFlow, r.Mode)
	assert.InDelta(t, 1.0, r.BNBSpent, 1e-9)
	assert.InDelta(t, 0.8, r.BNBReceived, 1e-9)
	assert.InDelta(t, 0.8, r.HoldingValueUSD/600, 1e-9)
	assert.InDelta(t, 1.6, r.ProfitMultiple, 1e-9)
	assert.InDelta(t, (1.6-1.0)*600, r.TotalProfitUSD, 1e-6)
	assert.True(t, r.IsHolding)
	assert.Equal(t, int64(4000), r.HoldingDurationSeconds) // now - first buy
}

func TestComputeReport_NativeFlowNoSales(t *testing.T) {
	// never sold: holding valued at the average buy price
	entry := entryWith("2.0", "0", 1000, 0)
	cache := NewFlowCache()
	cache.Put(addrA, "0xbuy", NativeFlow{Out: dec("0.5")})
	txs := []TxRecord{{Hash: "0xbuy", Direction: DirectionBuy}}

	r := ComputeReport(addrA, entry, txs, cache, false, PriceInfo{BNBUSD: 100}, 9000)

	assert.Equal(t, ModeNativeFlow, r.Mode)
	// holding 2.0 × avg buy 0.25 = 0.5 BNB → $50
	assert.InDelta(t, 50, r.HoldingValueUSD, 1e-9)
	// total value == spent → break-even
	assert.InDelta(t, 1.0, r.ProfitMultiple, 1e-9)
	assert.InDelta(t, 0, r.TotalProfitUSD, 1e-9)
}

func TestComputeReport_NoCostAcquisition(t *testing.T) {
	// received BNB without spending any: flagged, never divided
	entry := entryWith("1.0", "1.0", 1000, 2000)
	cache := NewFlowCache()
	cache.Put(addrA, "0xsell", NativeFlow{In: dec("0.3")})
	txs := []TxRecord{{Hash: "0xsell", Direction: DirectionSell}}

	r := ComputeReport(addrA, entry, txs, cache, false, PriceInfo{BNBUSD: 600}, 5000)

	assert.Equal(t, ModeNativeFlow, r.Mode)
	assert.True(t, r.NoCostBasis)
	assert.Zero(t, r.ProfitMultiple)
	assert.InDelta(t, 0.3, r.BNBReceived, 1e-9)
}

func TestComputeReport_FlatPriceMode(t *testing.T) {
	entry := entryWith("100", "40", 1000, 2000)

	r := ComputeReport(addrA, entry, nil, NewFlowCache(), false, PriceInfo{FlatUSD: 2}, 5000)

	assert.Equal(t, ModeFlatPrice, r.Mode)
	// buy $200, sell $80, holding 60 × $2 = $120 → profit 0, multiple 1.0
	assert.InDelta(t, 200, r.BuyValueUSD, 1e-9)
	assert.InDelta(t, 80, r.SellValueUSD, 1e-9)
	assert.InDelta(t, 120, r.HoldingValueUSD, 1e-9)
	assert.InDelta(t, 0, r.TotalProfitUSD, 1e-9)
	assert.InDelta(t, 1.0, r.ProfitMultiple, 1e-9)
	assert.Zero(t, r.BNBSpent)
}

func TestComputeReport_QuantityOnlyMode(t *testing.T) {
	entry := entryWith("100", "100", 1000, 2000)

	r := ComputeReport(addrA, entry, nil, NewFlowCache(), false, PriceInfo{}, 5000)

	assert.Equal(t, ModeQuantityOnly, r.Mode)
	assert.Zero(t, r.TotalProfitUSD)
	assert.Zero(t, r.ProfitMultiple)
	assert.InDelta(t, 100, r.BuyAmount, 1e-9)
	assert.False(t, r.IsHolding)
	// cleared: duration runs to the last sell
	assert.Equal(t, int64(1000), r.HoldingDurationSeconds)
}

func TestComputeReport_BotAlwaysQuantityOnly(t *testing.T) {
	entry := entryWith("10", "0", 1000, 0)
	cache, txs := cacheWith(addrA, "1.0", "0.8")

	// both native flows and USD price available, yet the bot stays zeroed
	r := ComputeReport(addrA, entry, txs, cache, true, PriceInfo{BNBUSD: 600, FlatUSD: 2}, 5000)

	assert.True(t, r.IsBot)
	assert.Equal(t, ModeQuantityOnly, r.Mode)
	assert.Zero(t, r.BNBSpent)
	assert.Zero(t, r.BuyValueUSD)
	assert.Zero(t, r.TotalProfitUSD)
	assert.Zero(t, r.ProfitMultiple)
}

func TestComputeReport_HoldingInvariant(t *testing.T) {
	tests := []struct {
		buy, sell string
		holding   bool
	}{
		{"10", "4", true},
		{"10", "10", false},
		{"10", "12", false},
	}
	for _, tt := range tests {
		entry := entryWith(tt.buy, tt.sell, 1000, 2000)
		r := ComputeReport(addrA, entry, nil, NewFlowCache(), false, PriceInfo{}, 5000)
		assert.InDelta(t, r.BuyAmount-r.SellAmount, r.Holding, 1e-9)
		assert.Equal(t, tt.holding, r.IsHolding)
	}
}

func TestComputeStats(t *testing.T) {
	buyers := []BuyerReport{
		{BuyAmount: 100, Holding: 50},
		{BuyAmount: 30, Holding: 0},
		{BuyAmount: 20, Holding: -1, IsBot: true},
	}

	s := ComputeStats(buyers)

	assert.Equal(t, 3, s.TotalBuyers)
	assert.Equal(t, s.TotalBuyers, s.ClearedBuyers+s.HoldingBuyers)
	assert.Equal(t, 1, s.HoldingBuyers)
	assert.Equal(t, 2, s.ClearedBuyers)
	assert.Equal(t, 1, s.Bots)
	assert.InDelta(t, 150, s.TotalBought, 1e-9)
	assert.InDelta(t, 100.0, s.ClearedRatio+s.HoldingRatio, 1e-9)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{120, "2m"},
		{3720, "1h2m"},
		{26 * 3600, "1d2h"},
		{-5, "0m"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FormatDuration(tt.seconds))
	}
}
