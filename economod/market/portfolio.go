package market

import (
	"sync"
	"time"
)

// TradeKind tags entries in a portfolio's stock-transaction log.
type TradeKind string

const (
	TradeBuy      TradeKind = "buy"
	TradeSell     TradeKind = "sell"
	TradeDividend TradeKind = "dividend"
)

// StockTransaction is one entry in a portfolio's trade log. For dividends,
// Shares is zero and Price carries the paid amount.
type StockTransaction struct {
	Symbol    string    `json:"symbol"`
	Kind      TradeKind `json:"kind"`
	Shares    int64     `json:"shares"`
	Price     int64     `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Holding is a player's position in one stock: share count plus the cost
// basis those shares were acquired at.
type Holding struct {
	Symbol        string    `json:"symbol"`
	Shares        int64     `json:"shares"`
	TotalCost     int64     `json:"total_cost"`
	FirstPurchase time.Time `json:"first_purchase"`
}

// AveragePrice is the weighted-average cost per share.
func (h *Holding) AveragePrice() int64 {
	if h.Shares <= 0 {
		return 0
	}
	return h.TotalCost / h.Shares
}

// Portfolio is one player's market-side state.
type Portfolio struct {
	Holdings       map[string]*Holding `json:"holdings"`
	Transactions   []StockTransaction  `json:"transactions,omitempty"`
	TotalInvested  int64               `json:"total_invested"`
	TotalDividends int64               `json:"total_dividends"`
}

func newPortfolio() *Portfolio {
	return &Portfolio{Holdings: make(map[string]*Holding)}
}

// buy adds shares at the given price, growing the cost basis.
func (p *Portfolio) buy(symbol string, shares, price int64, now time.Time) {
	h, ok := p.Holdings[symbol]
	if !ok {
		h = &Holding{Symbol: symbol, FirstPurchase: now}
		p.Holdings[symbol] = h
	}
	h.Shares += shares
	h.TotalCost += shares * price
	p.TotalInvested += shares * price
	p.Transactions = append(p.Transactions, StockTransaction{
		Symbol: symbol, Kind: TradeBuy, Shares: shares, Price: price, Timestamp: now,
	})
}

// sell removes shares, reducing the cost basis proportionally. The holding
// disappears once empty. Returns false if the position is too small.
func (p *Portfolio) sell(symbol string, shares, price int64, now time.Time) bool {
	h, ok := p.Holdings[symbol]
	if !ok || h.Shares < shares {
		return false
	}
	if shares >= h.Shares {
		h.Shares = 0
		h.TotalCost = 0
	} else {
		costPerShare := float64(h.TotalCost) / float64(h.Shares)
		h.Shares -= shares
		h.TotalCost = int64(float64(h.Shares) * costPerShare)
	}
	if h.Shares == 0 {
		delete(p.Holdings, symbol)
	}
	p.Transactions = append(p.Transactions, StockTransaction{
		Symbol: symbol, Kind: TradeSell, Shares: shares, Price: price, Timestamp: now,
	})
	return true
}

// dividend records a payout against one holding.
func (p *Portfolio) dividend(symbol string, amount int64, now time.Time) {
	p.TotalDividends += amount
	p.Transactions = append(p.Transactions, StockTransaction{
		Symbol: symbol, Kind: TradeDividend, Price: amount, Timestamp: now,
	})
}

// portfolioState guards one player's portfolio, mirroring the ledger's
// per-player locking.
type portfolioState struct {
	mu sync.Mutex
	p  *Portfolio
}

// HoldingView is one row of a valued portfolio.
type HoldingView struct {
	Symbol       string  `json:"symbol"`
	Company      string  `json:"company"`
	Shares       int64   `json:"shares"`
	AveragePrice int64   `json:"average_price"`
	CurrentPrice int64   `json:"current_price"`
	TotalCost    int64   `json:"total_cost"`
	CurrentValue int64   `json:"current_value"`
	ProfitLoss   int64   `json:"profit_loss"`
	ReturnRate   float64 `json:"return_rate"`
}

// PortfolioView is a valued snapshot of a player's positions.
type PortfolioView struct {
	Holdings        []HoldingView `json:"holdings"`
	TotalCost       int64         `json:"total_cost"`
	TotalValue      int64         `json:"total_value"`
	ProfitLoss      int64         `json:"profit_loss"`
	ReturnRate      float64       `json:"return_rate"`
	TotalInvested   int64         `json:"total_invested"`
	TotalDividends  int64         `json:"total_dividends"`
	Diversification float64       `json:"diversification"`
}
