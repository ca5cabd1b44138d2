package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldvein/economod/economod/economy"
)

func newTestMarket(t *testing.T) (*Market, *economy.Ledger) {
	t.Helper()
	ledger := economy.NewLedger(economy.DefaultConfig())
	m := NewMarket(DefaultConfig(), ledger)
	require.NoError(t, m.AddStock("ACME", "Acme Industrial", "Manufacturing", 100, 1000))
	return m, ledger
}

func TestAddStock(t *testing.T) {
	m, _ := newTestMarket(t)

	assert.ErrorIs(t, m.AddStock("ACME", "Duplicate", "Manufacturing", 50, 100), ErrSymbolExists)
	assert.ErrorIs(t, m.AddStock("ZERO", "Zero Price", "Manufacturing", 0, 100), ErrInvalidListing)
	assert.ErrorIs(t, m.AddStock("", "No Symbol", "Manufacturing", 10, 100), ErrInvalidListing)

	// Lookup is case-insensitive through canonicalization.
	require.NoError(t, m.AddStock("beta", "Beta Corp", "Technology", 10, 100))
	q, err := m.Quote("BETA")
	require.NoError(t, err)
	assert.Equal(t, "BETA", q.Symbol)
}

func TestBuy(t *testing.T) {
	m, ledger := newTestMarket(t)
	require.NoError(t, ledger.Credit("alice", 2000))

	receipt, err := m.Buy("alice", "acme", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), receipt.Gross)
	assert.Equal(t, int64(1), receipt.Fee) // max(1, 1000/1000)
	assert.Equal(t, int64(1001), receipt.Net)
	assert.Equal(t, int64(100), receipt.Price)

	assert.Equal(t, int64(999), ledger.Balance("alice"))

	s := m.stock("ACME")
	assert.Equal(t, int64(990), s.AvailableShares)
	assert.Equal(t, int64(101), s.CurrentPrice) // +1 buy impact

	view := m.Portfolio("alice")
	require.Len(t, view.Holdings, 1)
	assert.Equal(t, int64(10), view.Holdings[0].Shares)
	assert.Equal(t, int64(100), view.Holdings[0].AveragePrice)
}

func TestBuyRejections(t *testing.T) {
	m, ledger := newTestMarket(t)
	require.NoError(t, ledger.Credit("alice", 500))

	_, err := m.Buy("alice", "ACME", 0)
	assert.ErrorIs(t, err, ErrInvalidShares)
	_, err = m.Buy("alice", "NOPE", 1)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = m.Buy("alice", "ACME", 10)
	assert.ErrorIs(t, err, economy.ErrInsufficientFunds)
	_, err = m.Buy("alice", "ACME", 2000)
	assert.ErrorIs(t, err, ErrSharesUnavailable)

	m.CloseMarket()
	_, err = m.Buy("alice", "ACME", 1)
	assert.ErrorIs(t, err, ErrMarketClosed)

	// Nothing moved on any failure.
	assert.Equal(t, int64(500), ledger.Balance("alice"))
	assert.Equal(t, int64(1000), m.stock("ACME").AvailableShares)
}

func TestSell(t *testing.T) {
	m, ledger := newTestMarket(t)
	require.NoError(t, ledger.Credit("alice", 2000))

	_, err := m.Buy("alice", "ACME", 10)
	require.NoError(t, err)

	// Current price moved to 101 after the buy.
	receipt, err := m.Sell("alice", "ACME", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(505), receipt.Gross)
	assert.Equal(t, int64(1), receipt.Fee) // commission floor, no stamp tax below 2000
	assert.Equal(t, int64(504), receipt.Net)

	assert.Equal(t, int64(999+504), ledger.Balance("alice"))

	s := m.stock("ACME")
	assert.Equal(t, int64(995), s.AvailableShares)
	assert.Equal(t, int64(100), s.CurrentPrice) // -1 sell impact

	view := m.Portfolio("alice")
	require.Len(t, view.Holdings, 1)
	assert.Equal(t, int64(5), view.Holdings[0].Shares)
	// Cost basis shrinks proportionally.
	assert.Equal(t, int64(500), view.Holdings[0].TotalCost)
}

func TestSellRejections(t *testing.T) {
	m, ledger := newTestMarket(t)
	require.NoError(t, ledger.Credit("alice", 2000))

	_, err := m.Sell("alice", "ACME", 5)
	assert.ErrorIs(t, err, ErrInsufficientHoldings)

	_, err = m.Buy("alice", "ACME", 5)
	require.NoError(t, err)
	_, err = m.Sell("alice", "ACME", 10)
	assert.ErrorIs(t, err, ErrInsufficientHoldings)

	m.CloseMarket()
	_, err = m.Sell("alice", "ACME", 1)
	assert.ErrorIs(t, err, ErrMarketClosed)
}

func TestSellStampTax(t *testing.T) {
	m, ledger := newTestMarket(t)
	require.NoError(t, m.AddStock("BIGG", "Big Corp", "Finance", 1000, 1000))
	require.NoError(t, ledger.Credit("alice", 20000))

	_, err := m.Buy("alice", "BIGG", 10)
	require.NoError(t, err)

	// Price is 1001 after the buy: proceeds 10010, commission 10, stamp 5.
	receipt, err := m.Sell("alice", "BIGG", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10010), receipt.Gross)
	assert.Equal(t, int64(15), receipt.Fee)
	assert.Equal(t, int64(9995), receipt.Net)
}

func TestCollectDividends(t *testing.T) {
	m, ledger := newTestMarket(t)
	require.NoError(t, ledger.Credit("alice", 2000))

	_, err := m.Buy("alice", "ACME", 10)
	require.NoError(t, err)
	balanceBefore := ledger.Balance("alice")

	// Price 101, default yield 1%: floor(10*101*0.01) = 10.
	paid := m.CollectDividends("alice")
	assert.Equal(t, int64(10), paid)
	assert.Equal(t, balanceBefore+10, ledger.Balance("alice"))

	view := m.Portfolio("alice")
	assert.Equal(t, int64(10), view.TotalDividends)
}

func TestDistributeDividends(t *testing.T) {
	m, ledger := newTestMarket(t)
	require.NoError(t, ledger.Credit("alice", 2000))
	require.NoError(t, ledger.Credit("bob", 2000))
	_, err := m.Buy("alice", "ACME", 10)
	require.NoError(t, err)
	_, err = m.Buy("bob", "ACME", 10)
	require.NoError(t, err)

	// Closure stops trading, not dividends.
	m.CloseMarket()
	require.NoError(t, m.DistributeDividends(context.Background()))

	assert.Positive(t, m.Portfolio("alice").TotalDividends)
	assert.Positive(t, m.Portfolio("bob").TotalDividends)
}

func TestUpdateAllPricesSkipsWhenClosed(t *testing.T) {
	m, _ := newTestMarket(t)
	s := m.stock("ACME")
	before := s.CurrentPrice
	samples := len(s.History)

	m.CloseMarket()
	require.NoError(t, m.UpdateAllPrices(context.Background()))
	assert.Equal(t, before, s.CurrentPrice)
	assert.Len(t, s.History, samples)

	m.OpenMarket()
	require.NoError(t, m.UpdateAllPrices(context.Background()))
	assert.Len(t, s.History, samples+1)
}

func TestQuoteCache(t *testing.T) {
	m, _ := newTestMarket(t)

	q1, err := m.Quote("ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(100), q1.Price)

	// A direct mutation is invisible while the cache entry is fresh.
	s := m.stock("ACME")
	s.mu.Lock()
	s.CurrentPrice = 200
	s.mu.Unlock()

	q2, err := m.Quote("ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(100), q2.Price)

	m.quotes.Remove("ACME")
	q3, err := m.Quote("ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(200), q3.Price)

	_, err = m.Quote("NOPE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func setChange(t *testing.T, m *Market, symbol string, prevClose, price int64) {
	t.Helper()
	s := m.stock(symbol)
	require.NotNil(t, s)
	s.mu.Lock()
	s.PreviousClose = prevClose
	s.CurrentPrice = price
	s.mu.Unlock()
	m.quotes.Remove(symbol)
}

func TestTopGainersAndLosers(t *testing.T) {
	m, _ := newTestMarket(t)
	require.NoError(t, m.AddStock("UPUP", "Up Corp", "Technology", 100, 1000))
	require.NoError(t, m.AddStock("DOWN", "Down Corp", "Technology", 100, 1000))
	require.NoError(t, m.AddStock("ALSO", "Also Up Corp", "Technology", 100, 1000))

	setChange(t, m, "ACME", 100, 100) // flat
	setChange(t, m, "UPUP", 100, 110) // +10%
	setChange(t, m, "ALSO", 100, 110) // +10%, tie with UPUP
	setChange(t, m, "DOWN", 100, 80)  // -20%

	gainers := m.TopGainers(2)
	require.Len(t, gainers, 2)
	// Equal change breaks ties by symbol.
	assert.Equal(t, "ALSO", gainers[0].Symbol)
	assert.Equal(t, "UPUP", gainers[1].Symbol)

	losers := m.TopLosers(1)
	require.Len(t, losers, 1)
	assert.Equal(t, "DOWN", losers[0].Symbol)
}

func TestMarketIndexAndCap(t *testing.T) {
	ledger := economy.NewLedger(economy.DefaultConfig())
	m := NewMarket(DefaultConfig(), ledger)
	assert.Equal(t, int64(1000), m.MarketIndex())
	assert.Equal(t, int64(0), m.TotalMarketCap())

	require.NoError(t, m.AddStock("AAAA", "A Corp", "Technology", 100, 1000))
	require.NoError(t, m.AddStock("BBBB", "B Corp", "Technology", 200, 500))

	// Mean of 100*100 and 200*100.
	assert.Equal(t, int64(15000), m.MarketIndex())
	assert.Equal(t, int64(100*1000+200*500), m.TotalMarketCap())

	summary := m.MarketSummary()
	assert.Equal(t, 2, summary.Flat)
	assert.Equal(t, int64(200000), summary.MarketCap)
}

func TestIndustries(t *testing.T) {
	m, _ := newTestMarket(t)
	require.NoError(t, m.AddStock("BYTE", "ByteStream Systems", "Technology", 100, 1000))

	assert.Equal(t, []string{"Manufacturing", "Technology"}, m.Industries())

	tech := m.StocksByIndustry("technology")
	require.Len(t, tech, 1)
	assert.Equal(t, "BYTE", tech[0].Symbol)
}

func TestSplitAdjustsHoldings(t *testing.T) {
	m, ledger := newTestMarket(t)
	require.NoError(t, ledger.Credit("alice", 2000))
	_, err := m.Buy("alice", "ACME", 10)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Split("ACME", 1), ErrInvalidRatio)
	assert.ErrorIs(t, m.Split("NOPE", 2), ErrUnknownSymbol)
	require.NoError(t, m.Split("ACME", 2))

	view := m.Portfolio("alice")
	require.Len(t, view.Holdings, 1)
	assert.Equal(t, int64(20), view.Holdings[0].Shares)
	// The cost basis is untouched by a split.
	assert.Equal(t, int64(1000), view.Holdings[0].TotalCost)
}

func TestPortfolioValuation(t *testing.T) {
	m, ledger := newTestMarket(t)
	require.NoError(t, m.AddStock("BYTE", "ByteStream Systems", "Technology", 100, 1000))
	require.NoError(t, ledger.Credit("alice", 5000))

	_, err := m.Buy("alice", "ACME", 10)
	require.NoError(t, err)
	_, err = m.Buy("alice", "BYTE", 10)
	require.NoError(t, err)

	view := m.Portfolio("alice")
	require.Len(t, view.Holdings, 2)
	assert.Equal(t, int64(2000), view.TotalCost)
	// Both prices ticked to 101 after the buys.
	assert.Equal(t, int64(2020), view.TotalValue)
	assert.Equal(t, int64(20), view.ProfitLoss)
	assert.InDelta(t, 1.0, view.ReturnRate, 0.001)
	// Two equal positions: HHI diversification is 1 - 2*(0.5^2).
	assert.InDelta(t, 0.5, view.Diversification, 0.001)
}

func TestSearch(t *testing.T) {
	m, _ := newTestMarket(t)
	require.NoError(t, m.AddStock("BYTE", "ByteStream Systems", "Technology", 100, 1000))
	require.NoError(t, m.AddStock("NOVA", "Nova Computing", "Technology", 100, 1000))

	// Exact symbol first.
	results := m.Search("byte", 0)
	require.NotEmpty(t, results)
	assert.Equal(t, "BYTE", results[0].Symbol)

	// Substring over company names.
	results = m.Search("computing", 0)
	require.NotEmpty(t, results)
	assert.Equal(t, "NOVA", results[0].Symbol)

	// Industry matches catch both tech stocks.
	results = m.Search("Technology", 0)
	assert.GreaterOrEqual(t, len(results), 2)

	assert.Empty(t, m.Search("  ", 5))
}

func TestMarketSnapshotRoundTrip(t *testing.T) {
	m, ledger := newTestMarket(t)
	require.NoError(t, ledger.Credit("alice", 2000))
	_, err := m.Buy("alice", "ACME", 10)
	require.NoError(t, err)
	m.CloseMarket()

	snap := m.Export()

	restored := NewMarket(DefaultConfig(), ledger)
	restored.Import(snap)

	assert.False(t, restored.IsOpen())
	s := restored.stock("ACME")
	require.NotNil(t, s)
	assert.Equal(t, int64(101), s.CurrentPrice)
	assert.Equal(t, int64(990), s.AvailableShares)

	view := restored.Portfolio("alice")
	require.Len(t, view.Holdings, 1)
	assert.Equal(t, int64(10), view.Holdings[0].Shares)
	assert.Len(t, restored.Trades("alice"), 1)
}
