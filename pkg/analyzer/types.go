package analyzer

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/memescan/pkg/explorer"
)

// Direction of a transfer relative to the tracked address.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// TransferEvent is a normalized token transfer. Value is in raw token units;
// dividing by 10^Decimals yields the whole-token quantity. Addresses are
// lowercased. Immutable once built.
type TransferEvent struct {
	From        string
	To          string
	Value       decimal.Decimal
	Decimals    int32
	Timestamp   int64
	BlockNumber int64
	TxHash      string
}

// Amount is the whole-token quantity of the transfer.
func (e TransferEvent) Amount() decimal.Decimal {
	return e.Value.Shift(-e.Decimals)
}

// LedgerEntry accumulates the lifetime trading activity of one address.
// Amounts are whole-token quantities, never negative. An entry exists only
// for addresses that first appeared as a transfer recipient.
type LedgerEntry struct {
	FirstBuyTime int64
	LastSellTime int64
	BuyAmount    decimal.Decimal
	SellAmount   decimal.Decimal
	BuyCount     int
	SellCount    int
}

// TxRecord is one transaction an address took part in, in scan order.
// These are the transactions the native-flow engine has to resolve.
type TxRecord struct {
	Hash      string
	Direction Direction
	Timestamp int64
}

// Ledger is the output of a full replay of the transfer history.
type Ledger struct {
	// CreationTime is the minimum transfer timestamp, taken as token launch.
	CreationTime int64
	// Entries covers every non-excluded address ever seen as a recipient.
	Entries map[string]*LedgerEntry
	// Cohort is the early-buyer set: first buy inside the window.
	Cohort map[string]bool
	// TxRecords lists, per tracked address, the transactions to value.
	TxRecords map[string][]TxRecord
}

// TokenInfo is derived from the first transfer record; the tokeninfo endpoint
// needs API Pro so the cheap route is used instead.
type TokenInfo struct {
	Address     string  `json:"address"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Decimals    int32   `json:"decimals"`
	BNBPriceUSD float64 `json:"bnb_price_usd"`
	// FlatPriceUSD is a flat per-token USD price used only when native-flow
	// accounting is unavailable. 0 means unknown.
	FlatPriceUSD float64 `json:"price_usd"`
}

// TokenInfoFromTransfer extracts token metadata from a raw transfer record.
func TokenInfoFromTransfer(t explorer.TokenTransfer, contract string) TokenInfo {
	info := TokenInfo{
		Address:  strings.ToLower(contract),
		Name:     t.TokenName,
		Symbol:   t.TokenSymbol,
		Decimals: 18,
	}
	if info.Name == "" {
		info.Name = "Unknown"
	}
	if info.Symbol == "" {
		info.Symbol = "Unknown"
	}
	if d, err := strconv.ParseInt(t.TokenDecimal, 10, 32); err == nil && d >= 0 {
		info.Decimals = int32(d)
	}
	return info
}

// ValuationMode names the mutually exclusive profit computation paths.
type ValuationMode string

const (
	ModeNativeFlow   ValuationMode = "native_flow"
	ModeFlatPrice    ValuationMode = "flat_price"
	ModeQuantityOnly ValuationMode = "quantity_only"
)

// PriceInfo carries the optional price inputs of the profit calculator.
type PriceInfo struct {
	BNBUSD  float64
	FlatUSD float64
}

// BuyerReport is the final per-buyer view. Monetary fields are zero unless
// the selected valuation mode can populate them.
type BuyerReport struct {
	Address      string `json:"address"`
	FirstBuyTime int64  `json:"first_buy_time"`

	BuyAmount  float64 `json:"buy_amount"`
	SellAmount float64 `json:"sell_amount"`
	Holding    float64 `json:"holding"`
	SellRatio  float64 `json:"sell_ratio"`
	BuyCount   int     `json:"buy_count"`
	SellCount  int     `json:"sell_count"`

	IsHolding              bool   `json:"is_holding"`
	HoldingDurationSeconds int64  `json:"holding_duration_seconds"`
	HoldingTime            string `json:"holding_time"`

	BNBSpent    float64 `json:"bnb_spent"`
	BNBReceived float64 `json:"bnb_received"`
	BNBProfit   float64 `json:"bnb_profit"`

	BuyValueUSD     float64 `json:"buy_value_usd"`
	SellValueUSD    float64 `json:"sell_value_usd"`
	HoldingValueUSD float64 `json:"holding_value_usd"`
	TotalProfitUSD  float64 `json:"total_profit_usd"`
	ProfitMultiple  float64 `json:"profit_multiple"`

	// NoCostBasis marks the unbounded-return case: native received with zero
	// native spent. ProfitMultiple stays 0 instead of dividing by zero.
	NoCostBasis bool          `json:"no_cost_basis,omitempty"`
	IsBot       bool          `json:"is_bot"`
	Mode        ValuationMode `json:"valuation_mode"`
}

// Stats aggregates the cohort.
type Stats struct {
	TotalBuyers   int     `json:"total_buyers"`
	TotalBought   float64 `json:"total_buy"`
	ClearedBuyers int     `json:"cleared_buyers"`
	HoldingBuyers int     `json:"holding_buyers"`
	ClearedRatio  float64 `json:"cleared_ratio"`
	HoldingRatio  float64 `json:"holding_ratio"`
	Bots          int     `json:"bots"`
}

// Result is the complete outcome of one analysis run, the schema the export
// and storage layers serialize.
type Result struct {
	Token        TokenInfo     `json:"token_info"`
	WindowStart  int64         `json:"window_start_seconds"`
	WindowEnd    int64         `json:"window_end_seconds"`
	CreationTime int64         `json:"creation_time"`
	Stats        Stats         `json:"stats"`
	Buyers       []BuyerReport `json:"buyers"`

	// Partial-failure visibility, surfaced as metadata rather than errors.
	SkippedRecords int `json:"skipped_records"`
	SkippedTx      int `json:"skipped_tx"`
}
