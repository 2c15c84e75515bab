package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/memescan/pkg/config"
	"github.com/memescan/pkg/explorer"
)

// ErrNoTransfers is the only fatal data outcome: a token with no transfer
// history at all. Everything else degrades locally.
var ErrNoTransfers = errors.New("no transfer records found")

// TransferSource fetches the complete transfer history of a token contract.
type TransferSource interface {
	TokenTransfers(ctx context.Context, contract string) ([]explorer.TokenTransfer, error)
}

// PriceSource fetches the current BNB/USD price; 0 means unavailable.
type PriceSource interface {
	BNBPriceUSD(ctx context.Context) float64
}

// Analyzer runs the full early-buyer pipeline for one token. All mutable
// state (ledger, flow cache) is scoped to a single AnalyzeToken call, so one
// Analyzer can serve concurrent runs.
type Analyzer struct {
	cfg       *config.Config
	transfers TransferSource
	flows     FlowSource
	prices    PriceSource
	progress  ProgressSink
	now       func() int64
}

func New(cfg *config.Config, client *explorer.Client) *Analyzer {
	return NewWithSources(cfg, client, client, client)
}

// NewWithSources wires the collaborators separately, mainly for tests.
func NewWithSources(cfg *config.Config, transfers TransferSource, flows FlowSource, prices PriceSource) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		transfers: transfers,
		flows:     flows,
		prices:    prices,
		progress:  NopProgress{},
		now:       func() int64 { return time.Now().Unix() },
	}
}

// SetProgress installs a progress sink. Must be called before AnalyzeToken.
func (a *Analyzer) SetProgress(sink ProgressSink) {
	if sink != nil {
		a.progress = sink
	}
}

// AnalyzeToken reconstructs the buyer ledger of the given token contract and
// values its early-buyer cohort.
func (a *Analyzer) AnalyzeToken(ctx context.Context, tokenAddress string) (*Result, error) {
	token := config.NormalizeAddress(tokenAddress)
	log.Info().Str("token", token).
		Int64("window_start", a.cfg.WindowStartSeconds).
		Int64("window_end", a.cfg.WindowEndSeconds).
		Msg("🔎 analyzing token")

	a.progress.Report("fetch", 0, "fetching transfer history")
	raw, err := a.transfers.TokenTransfers(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch transfers: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoTransfers
	}

	info := TokenInfoFromTransfer(raw[0], token)
	log.Info().Str("name", info.Name).Str("symbol", info.Symbol).
		Int32("decimals", info.Decimals).Int("transfers", len(raw)).Msg("token")

	events, skippedRecords := NormalizeTransfers(raw, info.Decimals)
	if len(events) == 0 {
		return nil, ErrNoTransfers
	}

	info.BNBPriceUSD = a.prices.BNBPriceUSD(ctx)
	info.FlatPriceUSD = a.cfg.FlatPriceUSD

	a.progress.Report("ledger", 20, "replaying transfers")
	ledger := BuildLedger(events, a.cfg.WindowStartSeconds, a.cfg.WindowEndSeconds)
	log.Info().Int("addresses", len(ledger.Entries)).Int("cohort", len(ledger.Cohort)).
		Time("creation", time.Unix(ledger.CreationTime, 0)).Msg("ledger built")

	valid, bots := SplitBots(ledger.Cohort, ledger.TxRecords, a.cfg.BotTxThreshold)
	if len(bots) > 0 {
		log.Info().Int("bots", len(bots)).Int("threshold", a.cfg.BotTxThreshold).Msg("🤖 excluded from valuation")
	}

	cache := NewFlowCache()
	skippedTx := 0
	if info.BNBPriceUSD > 0 {
		a.progress.Report("flows", 40, fmt.Sprintf("resolving BNB flows for %d buyers", len(valid)))
		valuer := NewValuer(a.flows, a.cfg.FlowWorkers)
		skippedTx, err = valuer.ResolveAll(ctx, valid, cache, func(done, total int) {
			if total > 0 && done%50 == 0 {
				a.progress.Report("flows", 40+40*done/total, fmt.Sprintf("resolved %d/%d transactions", done, total))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("resolve native flows: %w", err)
		}
	}

	a.progress.Report("profit", 80, "computing positions")
	prices := PriceInfo{BNBUSD: info.BNBPriceUSD, FlatUSD: info.FlatPriceUSD}
	now := a.now()

	buyers := make([]BuyerReport, 0, len(ledger.Cohort))
	for addr := range ledger.Cohort {
		entry := ledger.Entries[addr]
		buyers = append(buyers, ComputeReport(addr, entry, ledger.TxRecords[addr], cache, bots[addr], prices, now))
	}
	sort.Slice(buyers, func(i, j int) bool {
		if buyers[i].FirstBuyTime != buyers[j].FirstBuyTime {
			return buyers[i].FirstBuyTime < buyers[j].FirstBuyTime
		}
		return buyers[i].Address < buyers[j].Address
	})

	stats := ComputeStats(buyers)
	a.progress.Report("done", 100, "analysis complete")
	log.Info().Int("buyers", stats.TotalBuyers).Int("holding", stats.HoldingBuyers).
		Int("cleared", stats.ClearedBuyers).Int("skipped_tx", skippedTx).Msg("✅ analysis complete")

	return &Result{
		Token:          info,
		WindowStart:    a.cfg.WindowStartSeconds,
		WindowEnd:      a.cfg.WindowEndSeconds,
		CreationTime:   ledger.CreationTime,
		Stats:          stats,
		Buyers:         buyers,
		SkippedRecords: skippedRecords,
		SkippedTx:      skippedTx,
	}, nil
}
