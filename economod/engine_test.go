package economod

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldvein/economod/economod/economy"
	"github.com/goldvein/economod/economod/snapshot"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Market.SeedStocks = false
	return NewEngine(cfg, nil)
}

func TestEngineWiring(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Ledger.Credit("buyer", 1000))
	require.NoError(t, e.Market.AddStock("ACME", "Acme Industrial", "Manufacturing", 100, 1000))

	// A trade flows through the shared ledger.
	_, err := e.Market.Buy("buyer", "ACME", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(499), e.Ledger.Balance("buyer"))

	// So does an auction settlement.
	e.Ledger.InitializePlayer("seller")
	a, err := e.Auctions.Open("seller", "enchanted pickaxe", 100, time.Hour)
	require.NoError(t, err)
	require.NoError(t, e.Auctions.Bid(a.ID, "buyer", 150))
	outcome, err := e.Auctions.Settle(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "buyer", outcome.Winner)
	assert.Equal(t, int64(349), e.Ledger.Balance("buyer"))
	assert.Equal(t, int64(250), e.Ledger.Balance("seller"))
	assert.Equal(t, int64(1), e.Ledger.Stats().AuctionsCompleted)
}

func TestSeedDefaultStocks(t *testing.T) {
	e := newTestEngine(t)
	e.SeedDefaultStocks()

	stocks := e.Market.ListStocks()
	assert.Len(t, stocks, len(defaultStocks))
	assert.Len(t, e.Market.Industries(), 7)

	// Reseeding does not duplicate listings.
	e.SeedDefaultStocks()
	assert.Len(t, e.Market.ListStocks(), len(defaultStocks))
}

func TestEngineStateRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Ledger.Credit("alice", 2000))
	require.NoError(t, e.Market.AddStock("ACME", "Acme Industrial", "Manufacturing", 100, 1000))
	_, err := e.Market.Buy("alice", "ACME", 10)
	require.NoError(t, err)
	_, err = e.Auctions.Open("alice", "golden apple", 50, time.Hour)
	require.NoError(t, err)

	state := e.ExportState()

	restored := newTestEngine(t)
	restored.ImportState(state)

	assert.Equal(t, e.Ledger.Balance("alice"), restored.Ledger.Balance("alice"))
	assert.Len(t, restored.Market.ListStocks(), 1)
	assert.Len(t, restored.Auctions.Active(), 1)
	assert.Equal(t, int64(10), restored.Market.Portfolio("alice").Holdings[0].Shares)
}

func TestEngineRestoreFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	store := snapshot.NewFileStore(path)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.Market.SeedStocks = false

	e := NewEngine(cfg, store)
	require.NoError(t, e.Ledger.Credit("alice", 500))
	require.NoError(t, e.Save(ctx))

	fresh := NewEngine(cfg, store)
	require.NoError(t, fresh.Restore(ctx))
	assert.Equal(t, int64(500), fresh.Ledger.Balance("alice"))
}

func TestEngineRestoreMissingSnapshotSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	cfg := DefaultConfig()

	e := NewEngine(cfg, snapshot.NewFileStore(path))
	require.NoError(t, e.Restore(context.Background()))
	assert.Len(t, e.Market.ListStocks(), len(defaultStocks))
}

func TestConfigMapping(t *testing.T) {
	cfg := DefaultConfig()
	ledgerCfg := cfg.Economy.toLedgerConfig()
	assert.Equal(t, economy.DefaultConfig(), ledgerCfg)

	marketCfg := cfg.Market.toMarketConfig()
	assert.Equal(t, int64(1000), marketCfg.CommissionDivisor)
	assert.Equal(t, 500*time.Millisecond, marketCfg.QuoteCacheTTL)
}
