package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memescan/pkg/analyzer"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult() *analyzer.Result {
	return &analyzer.Result{
		Token: analyzer.TokenInfo{Address: "0xtoken", Symbol: "TEST", Decimals: 18},
		Stats: analyzer.Stats{TotalBuyers: 2, HoldingBuyers: 1, ClearedBuyers: 1},
		Buyers: []analyzer.BuyerReport{
			{Address: "0xaaaa", FirstBuyTime: 1700000000, IsHolding: true},
			{Address: "0xbbbb", FirstBuyTime: 1700000060},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := testStore(t)

	id, err := store.SaveRun(sampleResult())
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := store.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "TEST", got.Token.Symbol)
	require.Len(t, got.Buyers, 2)
	assert.Equal(t, "0xaaaa", got.Buyers[0].Address)
	assert.True(t, got.Buyers[0].IsHolding)
}

func TestListRuns(t *testing.T) {
	store := testStore(t)

	_, err := store.SaveRun(sampleResult())
	require.NoError(t, err)
	_, err = store.SaveRun(sampleResult())
	require.NoError(t, err)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "0xtoken", runs[0].TokenAddress)
	assert.Equal(t, 2, runs[0].TotalBuyers)
}

func TestPruneOlderThan(t *testing.T) {
	store := testStore(t)

	_, err := store.SaveRun(sampleResult())
	require.NoError(t, err)

	// nothing is old enough yet
	pruned, err := store.PruneOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, pruned)

	// everything is older than a zero-width window
	pruned, err = store.PruneOlderThan(-time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
