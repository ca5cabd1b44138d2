package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/goldvein/economod/economod/economy"
)

var (
	ErrUnknownSymbol        = errors.New("unknown stock symbol")
	ErrSymbolExists         = errors.New("stock symbol already listed")
	ErrMarketClosed         = errors.New("market is closed")
	ErrSharesUnavailable    = errors.New("not enough shares available")
	ErrInsufficientHoldings = errors.New("not enough shares held")
	ErrInvalidShares        = errors.New("share count must be positive")
	ErrInvalidListing       = errors.New("listing price and share count must be positive")
	ErrInvalidRatio         = errors.New("split ratio must be greater than one")
)

const sweepConcurrency = 4

// Funds is the slice of the ledger the market needs; it never mutates
// account balances directly.
type Funds interface {
	Award(playerID string, amount int64, kind economy.TransactionKind, description string) error
	Charge(playerID string, amount int64, kind economy.TransactionKind, description string) error
}

// Config is the static market tuning, consumed at construction.
type Config struct {
	CommissionDivisor int64
	StampTaxDivisor   int64
	QuoteCacheSize    int
	QuoteCacheTTL     time.Duration
}

// DefaultConfig mirrors the reference fee schedule: 0.1% commission with a
// one-coin floor, 0.05% stamp tax on sells.
func DefaultConfig() Config {
	return Config{
		CommissionDivisor: 1000,
		StampTaxDivisor:   2000,
		QuoteCacheSize:    1024,
		QuoteCacheTTL:     500 * time.Millisecond,
	}
}

// Quote is a read-only view of one stock.
type Quote struct {
	Symbol          string  `json:"symbol"`
	Company         string  `json:"company"`
	Industry        string  `json:"industry"`
	Price           int64   `json:"price"`
	Open            int64   `json:"open"`
	High            int64   `json:"high"`
	Low             int64   `json:"low"`
	PreviousClose   int64   `json:"previous_close"`
	ChangePercent   float64 `json:"change_percent"`
	Volatility      float64 `json:"volatility"`
	DividendYield   float64 `json:"dividend_yield"`
	TotalShares     int64   `json:"total_shares"`
	AvailableShares int64   `json:"available_shares"`
	MarketCap       int64   `json:"market_cap"`
	Active          bool    `json:"active"`
}

// TradeReceipt is the side-channel data of a fill, for the host to display.
type TradeReceipt struct {
	Symbol   string `json:"symbol"`
	Shares   int64  `json:"shares"`
	Price    int64  `json:"price"`
	Gross    int64  `json:"gross"`
	Fee      int64  `json:"fee"`
	Net      int64  `json:"net"`
	Dividend int64  `json:"dividend,omitempty"`
}

// Summary is the market-wide health readout.
type Summary struct {
	Up        int   `json:"up"`
	Down      int   `json:"down"`
	Flat      int   `json:"flat"`
	MarketCap int64 `json:"market_cap"`
}

type cachedQuote struct {
	quote     Quote
	timestamp time.Time
}

// Market owns the stock and portfolio tables. All currency moves through the
// ledger's public operations.
type Market struct {
	cfg    Config
	ledger Funds

	mu     sync.RWMutex
	stocks map[string]*Stock
	open   bool

	pmu        sync.RWMutex
	portfolios map[string]*portfolioState

	randMu sync.Mutex
	rng    *rand.Rand

	quotes *lru.Cache
	sem    *semaphore.Weighted
	clock  func() time.Time
}

func NewMarket(cfg Config, ledger Funds) *Market {
	if cfg.CommissionDivisor <= 0 {
		cfg.CommissionDivisor = 1000
	}
	if cfg.StampTaxDivisor <= 0 {
		cfg.StampTaxDivisor = 2000
	}
	if cfg.QuoteCacheSize <= 0 {
		cfg.QuoteCacheSize = 1024
	}
	cache, _ := lru.New(cfg.QuoteCacheSize)
	return &Market{
		cfg:        cfg,
		ledger:     ledger,
		stocks:     make(map[string]*Stock),
		open:       true,
		portfolios: make(map[string]*portfolioState),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		quotes:     cache,
		sem:        semaphore.NewWeighted(sweepConcurrency),
		clock:      time.Now,
	}
}

func canonSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (m *Market) stock(symbol string) *Stock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stocks[canonSymbol(symbol)]
}

func (m *Market) portfolio(playerID string) *portfolioState {
	m.pmu.RLock()
	ps, ok := m.portfolios[playerID]
	m.pmu.RUnlock()
	if ok {
		return ps
	}

	m.pmu.Lock()
	defer m.pmu.Unlock()
	if ps, ok = m.portfolios[playerID]; ok {
		return ps
	}
	ps = &portfolioState{p: newPortfolio()}
	m.portfolios[playerID] = ps
	return ps
}

// AddStock lists a new company. Symbols canonicalize to upper case.
func (m *Market) AddStock(symbol, company, industry string, initialPrice, totalShares int64) error {
	symbol = canonSymbol(symbol)
	if symbol == "" || initialPrice < 1 || totalShares <= 0 {
		return ErrInvalidListing
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stocks[symbol]; exists {
		return ErrSymbolExists
	}
	m.stocks[symbol] = newStock(symbol, company, industry, initialPrice, totalShares, m.clock())

	slog.Info("Stock listed",
		slog.String("type", "market"),
		slog.String("symbol", symbol),
		slog.String("company", company),
		slog.Int64("price", initialPrice))
	return nil
}

// OpenMarket enables trading. Price evolution and dividends never depend on
// this flag.
func (m *Market) OpenMarket() {
	m.mu.Lock()
	m.open = true
	m.mu.Unlock()
	slog.Info("Market opened", slog.String("type", "market"))
}

// CloseMarket halts trading.
func (m *Market) CloseMarket() {
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
	slog.Info("Market closed", slog.String("type", "market"))
}

// IsOpen reports whether trading is enabled.
func (m *Market) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

func (m *Market) commission(amount int64) int64 {
	fee := amount / m.cfg.CommissionDivisor
	if fee < 1 {
		fee = 1
	}
	return fee
}

// Buy fills a market order at the current price. The player pays
// cost+commission through the ledger; the trade itself applies a +1 price
// impact on top of the periodic random walk.
func (m *Market) Buy(playerID, symbol string, shares int64) (TradeReceipt, error) {
	if shares <= 0 {
		return TradeReceipt{}, ErrInvalidShares
	}
	if !m.IsOpen() {
		return TradeReceipt{}, ErrMarketClosed
	}
	s := m.stock(symbol)
	if s == nil {
		return TradeReceipt{}, ErrUnknownSymbol
	}

	s.mu.Lock()
	if !s.Active {
		s.mu.Unlock()
		return TradeReceipt{}, ErrUnknownSymbol
	}
	price := s.CurrentPrice
	cost := shares * price
	fee := m.commission(cost)
	total := cost + fee

	if shares > s.AvailableShares {
		s.mu.Unlock()
		return TradeReceipt{}, ErrSharesUnavailable
	}

	desc := fmt.Sprintf("buy %d %s @ %d (fee %d)", shares, s.Symbol, price, fee)
	if err := m.ledger.Charge(playerID, total, economy.KindStockBuy, desc); err != nil {
		s.mu.Unlock()
		return TradeReceipt{}, err
	}

	s.reserveShares(shares)
	s.setPrice(price+1, shares, m.clock()) // buying pressure
	s.mu.Unlock()

	ps := m.portfolio(playerID)
	ps.mu.Lock()
	ps.p.buy(s.Symbol, shares, price, m.clock())
	ps.mu.Unlock()

	m.quotes.Remove(s.Symbol)
	return TradeReceipt{Symbol: s.Symbol, Shares: shares, Price: price, Gross: cost, Fee: fee, Net: total}, nil
}

// Sell fills a sale at the current price. Proceeds minus commission and
// stamp tax are credited through the ledger; the trade applies a -1 price
// impact with a floor of 1.
func (m *Market) Sell(playerID, symbol string, shares int64) (TradeReceipt, error) {
	if shares <= 0 {
		return TradeReceipt{}, ErrInvalidShares
	}
	if !m.IsOpen() {
		return TradeReceipt{}, ErrMarketClosed
	}
	s := m.stock(symbol)
	if s == nil {
		return TradeReceipt{}, ErrUnknownSymbol
	}

	s.mu.Lock()
	if !s.Active {
		s.mu.Unlock()
		return TradeReceipt{}, ErrUnknownSymbol
	}
	price := s.CurrentPrice
	s.mu.Unlock()

	proceeds := shares * price
	fee := m.commission(proceeds) + proceeds/m.cfg.StampTaxDivisor
	net := proceeds - fee

	ps := m.portfolio(playerID)
	ps.mu.Lock()
	if !ps.p.sell(s.Symbol, shares, price, m.clock()) {
		ps.mu.Unlock()
		return TradeReceipt{}, ErrInsufficientHoldings
	}
	ps.mu.Unlock()

	if net > 0 {
		desc := fmt.Sprintf("sell %d %s @ %d (fee %d)", shares, s.Symbol, price, fee)
		// Award only rejects non-positive amounts, which net > 0 rules out.
		_ = m.ledger.Award(playerID, net, economy.KindStockSell, desc)
	}

	s.mu.Lock()
	s.releaseShares(shares)
	newPrice := s.CurrentPrice - 1
	if newPrice < 1 {
		newPrice = 1
	}
	s.setPrice(newPrice, shares, m.clock()) // selling pressure
	s.mu.Unlock()

	m.quotes.Remove(s.Symbol)
	return TradeReceipt{Symbol: s.Symbol, Shares: shares, Price: price, Gross: proceeds, Fee: fee, Net: net}, nil
}

// CollectDividends pays out every holding at the stock's derived yield and
// credits the total through the ledger. Market closure does not affect it.
func (m *Market) CollectDividends(playerID string) int64 {
	ps := m.portfolio(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var total int64
	for symbol, h := range ps.p.Holdings {
		s := m.stock(symbol)
		if s == nil {
			continue
		}
		s.mu.Lock()
		dividend := int64(float64(h.Shares) * float64(s.CurrentPrice) * s.dividendYield())
		s.mu.Unlock()
		if dividend <= 0 {
			continue
		}
		ps.p.dividend(symbol, dividend, m.clock())
		total += dividend
	}

	if total > 0 {
		_ = m.ledger.Award(playerID, total, economy.KindDividend, "stock dividends")
	}
	return total
}

// DistributeDividends pays every portfolio. Each player's payout is atomic;
// the sweep as a whole tolerates interleaved trades.
func (m *Market) DistributeDividends(ctx context.Context) error {
	m.pmu.RLock()
	ids := make([]string, 0, len(m.portfolios))
	for id := range m.portfolios {
		ids = append(ids, id)
	}
	m.pmu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := m.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer m.sem.Release(1)
			m.CollectDividends(id)
			return nil
		})
	}
	return g.Wait()
}

// UpdateAllPrices advances every active stock one stochastic step. While the
// market is closed the sweep is a no-op: prices freeze along with trading,
// and only dividends keep flowing. Callers wanting closure-independent
// evolution must reopen the market first.
func (m *Market) UpdateAllPrices(ctx context.Context) error {
	if !m.IsOpen() {
		return nil
	}

	m.mu.RLock()
	stocks := make([]*Stock, 0, len(m.stocks))
	for _, s := range m.stocks {
		stocks = append(stocks, s)
	}
	m.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range stocks {
		s := s
		g.Go(func() error {
			if err := m.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer m.sem.Release(1)
			m.randMu.Lock()
			s.updatePrice(m.rng, m.clock())
			m.randMu.Unlock()
			m.quotes.Remove(s.Symbol)
			return nil
		})
	}
	return g.Wait()
}

// Quote returns a read-only view of one stock, served from a short-lived
// LRU cache on hot paths.
func (m *Market) Quote(symbol string) (Quote, error) {
	symbol = canonSymbol(symbol)
	if entry, ok := m.quotes.Get(symbol); ok {
		cached := entry.(cachedQuote)
		if m.clock().Sub(cached.timestamp) < m.cfg.QuoteCacheTTL {
			return cached.quote, nil
		}
		m.quotes.Remove(symbol)
	}

	s := m.stock(symbol)
	if s == nil {
		return Quote{}, ErrUnknownSymbol
	}
	q := m.quoteOf(s)
	m.quotes.Add(symbol, cachedQuote{quote: q, timestamp: m.clock()})
	return q, nil
}

func (m *Market) quoteOf(s *Stock) Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Quote{
		Symbol:          s.Symbol,
		Company:         s.Company,
		Industry:        s.Industry,
		Price:           s.CurrentPrice,
		Open:            s.OpenPrice,
		High:            s.HighPrice,
		Low:             s.LowPrice,
		PreviousClose:   s.PreviousClose,
		ChangePercent:   s.changePercent(),
		Volatility:      s.Volatility,
		DividendYield:   s.dividendYield(),
		TotalShares:     s.TotalShares,
		AvailableShares: s.AvailableShares,
		MarketCap:       s.marketCap(),
		Active:          s.Active,
	}
}

// activeQuotes snapshots all actively traded stocks.
func (m *Market) activeQuotes() []Quote {
	m.mu.RLock()
	stocks := make([]*Stock, 0, len(m.stocks))
	for _, s := range m.stocks {
		stocks = append(stocks, s)
	}
	m.mu.RUnlock()

	quotes := make([]Quote, 0, len(stocks))
	for _, s := range stocks {
		q := m.quoteOf(s)
		if q.Active {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// ListStocks returns all actively traded stocks, ordered by symbol.
func (m *Market) ListStocks() []Quote {
	quotes := m.activeQuotes()
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
	return quotes
}

// TopGainers returns up to limit stocks by percent change descending, ties
// broken by symbol ascending.
func (m *Market) TopGainers(limit int) []Quote {
	quotes := m.activeQuotes()
	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].ChangePercent != quotes[j].ChangePercent {
			return quotes[i].ChangePercent > quotes[j].ChangePercent
		}
		return quotes[i].Symbol < quotes[j].Symbol
	})
	return clampQuotes(quotes, limit)
}

// TopLosers returns up to limit stocks by percent change ascending, ties
// broken by symbol ascending.
func (m *Market) TopLosers(limit int) []Quote {
	quotes := m.activeQuotes()
	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].ChangePercent != quotes[j].ChangePercent {
			return quotes[i].ChangePercent < quotes[j].ChangePercent
		}
		return quotes[i].Symbol < quotes[j].Symbol
	})
	return clampQuotes(quotes, limit)
}

// TopByVolume ranks stocks by traded volume over the last 24 hours.
func (m *Market) TopByVolume(limit int) []Quote {
	m.mu.RLock()
	stocks := make([]*Stock, 0, len(m.stocks))
	for _, s := range m.stocks {
		stocks = append(stocks, s)
	}
	m.mu.RUnlock()

	cutoff := m.clock().Add(-24 * time.Hour)
	type ranked struct {
		quote  Quote
		volume int64
	}
	rankedQuotes := make([]ranked, 0, len(stocks))
	for _, s := range stocks {
		s.mu.Lock()
		volume := s.volumeSince(cutoff)
		s.mu.Unlock()
		q := m.quoteOf(s)
		if q.Active {
			rankedQuotes = append(rankedQuotes, ranked{quote: q, volume: volume})
		}
	}
	sort.Slice(rankedQuotes, func(i, j int) bool {
		if rankedQuotes[i].volume != rankedQuotes[j].volume {
			return rankedQuotes[i].volume > rankedQuotes[j].volume
		}
		return rankedQuotes[i].quote.Symbol < rankedQuotes[j].quote.Symbol
	})
	quotes := make([]Quote, 0, len(rankedQuotes))
	for _, r := range rankedQuotes {
		quotes = append(quotes, r.quote)
	}
	return clampQuotes(quotes, limit)
}

func clampQuotes(quotes []Quote, limit int) []Quote {
	if limit > 0 && len(quotes) > limit {
		return quotes[:limit]
	}
	return quotes
}

// MarketIndex is the mean of price*100 across all listed stocks, 1000 for an
// empty market.
func (m *Market) MarketIndex() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.stocks) == 0 {
		return 1000
	}
	var total int64
	for _, s := range m.stocks {
		s.mu.Lock()
		total += s.CurrentPrice * 100
		s.mu.Unlock()
	}
	return total / int64(len(m.stocks))
}

// TotalMarketCap sums price*totalShares across all listed stocks. It is
// recomputed on read rather than maintained eagerly; read-after-write
// consistency holds because reads take the same per-stock locks.
func (m *Market) TotalMarketCap() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, s := range m.stocks {
		s.mu.Lock()
		total += s.marketCap()
		s.mu.Unlock()
	}
	return total
}

// MarketSummary counts risers, fallers, and unchanged stocks.
func (m *Market) MarketSummary() Summary {
	summary := Summary{MarketCap: m.TotalMarketCap()}
	for _, q := range m.activeQuotes() {
		switch {
		case q.ChangePercent > 0:
			summary.Up++
		case q.ChangePercent < 0:
			summary.Down++
		default:
			summary.Flat++
		}
	}
	return summary
}

// Industries lists every industry tag in use, sorted.
func (m *Market) Industries() []string {
	seen := make(map[string]struct{})
	for _, q := range m.activeQuotes() {
		seen[q.Industry] = struct{}{}
	}
	industries := make([]string, 0, len(seen))
	for industry := range seen {
		industries = append(industries, industry)
	}
	sort.Strings(industries)
	return industries
}

// StocksByIndustry returns active stocks with a matching industry tag.
func (m *Market) StocksByIndustry(industry string) []Quote {
	var quotes []Quote
	for _, q := range m.ListStocks() {
		if strings.EqualFold(q.Industry, industry) {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// MovingAverage over the last n price samples of one stock.
func (m *Market) MovingAverage(symbol string, n int) (int64, error) {
	s := m.stock(symbol)
	if s == nil {
		return 0, ErrUnknownSymbol
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.movingAverage(n), nil
}

// Split performs a forward stock split, adjusting every holder's position.
func (m *Market) Split(symbol string, ratio int64) error {
	if ratio <= 1 {
		return ErrInvalidRatio
	}
	s := m.stock(symbol)
	if s == nil {
		return ErrUnknownSymbol
	}

	s.mu.Lock()
	s.split(ratio)
	s.mu.Unlock()

	m.pmu.RLock()
	states := make([]*portfolioState, 0, len(m.portfolios))
	for _, ps := range m.portfolios {
		states = append(states, ps)
	}
	m.pmu.RUnlock()

	for _, ps := range states {
		ps.mu.Lock()
		if h, ok := ps.p.Holdings[s.Symbol]; ok {
			h.Shares *= ratio
		}
		ps.mu.Unlock()
	}

	m.quotes.Remove(s.Symbol)
	slog.Info("Stock split",
		slog.String("type", "market"),
		slog.String("symbol", s.Symbol),
		slog.Int64("ratio", ratio))
	return nil
}

// Buyback retires shares from the float at a small price premium.
func (m *Market) Buyback(symbol string, shares int64) error {
	s := m.stock(symbol)
	if s == nil {
		return ErrUnknownSymbol
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.buyback(shares, m.clock()) {
		return ErrSharesUnavailable
	}
	m.quotes.Remove(s.Symbol)
	return nil
}

// Portfolio returns a valued snapshot of the player's positions.
func (m *Market) Portfolio(playerID string) PortfolioView {
	ps := m.portfolio(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()

	view := PortfolioView{
		TotalInvested:  ps.p.TotalInvested,
		TotalDividends: ps.p.TotalDividends,
	}

	for symbol, h := range ps.p.Holdings {
		s := m.stock(symbol)
		if s == nil {
			continue
		}
		q := m.quoteOf(s)
		value := h.Shares * q.Price
		profit := value - h.TotalCost
		row := HoldingView{
			Symbol:       symbol,
			Company:      q.Company,
			Shares:       h.Shares,
			AveragePrice: h.AveragePrice(),
			CurrentPrice: q.Price,
			TotalCost:    h.TotalCost,
			CurrentValue: value,
			ProfitLoss:   profit,
		}
		if h.TotalCost > 0 {
			row.ReturnRate = float64(profit) / float64(h.TotalCost) * 100
		}
		view.Holdings = append(view.Holdings, row)
		view.TotalCost += h.TotalCost
		view.TotalValue += value
	}

	sort.Slice(view.Holdings, func(i, j int) bool { return view.Holdings[i].Symbol < view.Holdings[j].Symbol })

	view.ProfitLoss = view.TotalValue - view.TotalCost
	if view.TotalCost > 0 {
		view.ReturnRate = float64(view.ProfitLoss) / float64(view.TotalCost) * 100
	}
	if view.TotalValue > 0 {
		var hhi float64
		for _, row := range view.Holdings {
			weight := float64(row.CurrentValue) / float64(view.TotalValue)
			hhi += weight * weight
		}
		view.Diversification = 1 - hhi
	}
	return view
}

// Trades returns the player's stock-transaction log, most recent last.
func (m *Market) Trades(playerID string) []StockTransaction {
	ps := m.portfolio(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := make([]StockTransaction, len(ps.p.Transactions))
	copy(out, ps.p.Transactions)
	return out
}
