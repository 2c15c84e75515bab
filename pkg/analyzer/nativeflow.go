package analyzer

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/memescan/pkg/explorer"
)

// NativeFlow is the BNB moved in and out of one transaction, attributed to a
// single observing address. The same hash resolved for a different address
// can carry a different attribution.
type NativeFlow struct {
	In  decimal.Decimal
	Out decimal.Decimal
}

// FlowSource resolves native-value data for a transaction hash. Implemented
// by the explorer client; faked in tests.
type FlowSource interface {
	TransactionByHash(ctx context.Context, hash string) (*explorer.ProxyTransaction, error)
	InternalTransfersByHash(ctx context.Context, hash string) ([]explorer.InternalTransfer, error)
}

// FlowCache maps address → txHash → resolved flow. An absent pair means "not
// yet resolved"; a present zero-valued flow means "resolved to zero". Writes
// are idempotent (first write wins) so duplicate concurrent lookups can race
// safely.
type FlowCache struct {
	mu    sync.RWMutex
	flows map[string]map[string]NativeFlow
}

func NewFlowCache() *FlowCache {
	return &FlowCache{flows: make(map[string]map[string]NativeFlow)}
}

func (c *FlowCache) Get(addr, hash string) (NativeFlow, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.flows[addr][hash]
	return f, ok
}

func (c *FlowCache) Put(addr, hash string, f NativeFlow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byHash, ok := c.flows[addr]
	if !ok {
		byHash = make(map[string]NativeFlow)
		c.flows[addr] = byHash
	}
	if _, done := byHash[hash]; !done {
		byHash[hash] = f
	}
}

func (c *FlowCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, byHash := range c.flows {
		n += len(byHash)
	}
	return n
}

// Valuer resolves native flows for a set of buyers with bounded fan-out.
// Rate limiting toward the explorer is the source's job and is global, not
// per worker.
type Valuer struct {
	source  FlowSource
	workers int
}

func NewValuer(source FlowSource, workers int) *Valuer {
	if workers < 1 {
		workers = 1
	}
	return &Valuer{source: source, workers: workers}
}

// ResolveAll looks up every (address, txHash) pair of the given buyers once,
// filling cache. Individual lookup failures degrade to a zero flow and are
// counted; only context cancellation aborts the whole pass. onProgress, if
// non-nil, is called after each resolved pair.
func (v *Valuer) ResolveAll(ctx context.Context, buyers map[string][]TxRecord, cache *FlowCache, onProgress func(done, total int)) (failed int, err error) {
	type pair struct{ addr, hash string }

	var pairs []pair
	for addr, txs := range buyers {
		seen := make(map[string]bool, len(txs))
		for _, tx := range txs {
			if tx.Hash == "" || seen[tx.Hash] {
				continue
			}
			seen[tx.Hash] = true
			if _, ok := cache.Get(addr, tx.Hash); ok {
				continue
			}
			pairs = append(pairs, pair{addr, tx.Hash})
		}
	}
	total := len(pairs)
	log.Info().Int("buyers", len(buyers)).Int("lookups", total).Msg("resolving native flows")

	var done, failures atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)

	for _, p := range pairs {
		p := p
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			flow, ok := v.resolve(ctx, p.addr, p.hash)
			if !ok {
				failures.Add(1)
			}
			cache.Put(p.addr, p.hash, flow)
			if onProgress != nil {
				onProgress(int(done.Add(1)), total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(failures.Load()), err
	}
	return int(failures.Load()), nil
}

// resolve combines the direct transaction value and the internal transfers of
// one hash into a single flow for the observing address. Either lookup
// failing degrades that contribution to zero.
func (v *Valuer) resolve(ctx context.Context, addr, hash string) (NativeFlow, bool) {
	var flow NativeFlow
	healthy := true

	tx, err := v.source.TransactionByHash(ctx, hash)
	if err != nil {
		log.Debug().Err(err).Str("hash", hash).Msg("transaction lookup failed")
		healthy = false
	} else if tx != nil {
		value := parseWei(tx.Value)
		if value.IsPositive() {
			switch {
			case strings.EqualFold(tx.From, addr):
				flow.Out = flow.Out.Add(value)
			case strings.EqualFold(tx.To, addr):
				flow.In = flow.In.Add(value)
			}
		}
	}

	internal, err := v.source.InternalTransfersByHash(ctx, hash)
	if err != nil {
		log.Debug().Err(err).Str("hash", hash).Msg("internal transfer lookup failed")
		healthy = false
	}
	for _, itx := range internal {
		value := parseWei(itx.Value)
		if !value.IsPositive() {
			continue
		}
		if strings.EqualFold(itx.To, addr) {
			flow.In = flow.In.Add(value)
		}
		if strings.EqualFold(itx.From, addr) {
			flow.Out = flow.Out.Add(value)
		}
	}

	return flow, healthy
}

// parseWei converts a wei amount (decimal or hex string) to BNB.
func parseWei(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" || s == "0x0" {
		return decimal.Zero
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n, -18)
}
