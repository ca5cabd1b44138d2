package market

import "time"

// StockState is the serializable form of a stock, free of lock state.
type StockState struct {
	Symbol          string       `json:"symbol"`
	Company         string       `json:"company"`
	Industry        string       `json:"industry"`
	CurrentPrice    int64        `json:"current_price"`
	OpenPrice       int64        `json:"open_price"`
	HighPrice       int64        `json:"high_price"`
	LowPrice        int64        `json:"low_price"`
	PreviousClose   int64        `json:"previous_close"`
	TotalShares     int64        `json:"total_shares"`
	AvailableShares int64        `json:"available_shares"`
	Volatility      float64      `json:"volatility"`
	History         []PricePoint `json:"history,omitempty"`
	LastUpdate      int64        `json:"last_update"`
	Active          bool         `json:"active"`
}

// Snapshot is the full serializable market state.
type Snapshot struct {
	Stocks     map[string]StockState `json:"stocks"`
	Portfolios map[string]Portfolio  `json:"portfolios"`
	Open       bool                  `json:"open"`
}

// Export deep-copies the market into a serializable snapshot.
func (m *Market) Export() Snapshot {
	m.mu.RLock()
	stocks := make([]*Stock, 0, len(m.stocks))
	for _, s := range m.stocks {
		stocks = append(stocks, s)
	}
	open := m.open
	m.mu.RUnlock()

	snap := Snapshot{
		Stocks:     make(map[string]StockState, len(stocks)),
		Portfolios: make(map[string]Portfolio),
		Open:       open,
	}

	for _, s := range stocks {
		s.mu.Lock()
		state := StockState{
			Symbol:          s.Symbol,
			Company:         s.Company,
			Industry:        s.Industry,
			CurrentPrice:    s.CurrentPrice,
			OpenPrice:       s.OpenPrice,
			HighPrice:       s.HighPrice,
			LowPrice:        s.LowPrice,
			PreviousClose:   s.PreviousClose,
			TotalShares:     s.TotalShares,
			AvailableShares: s.AvailableShares,
			Volatility:      s.Volatility,
			History:         append([]PricePoint(nil), s.History...),
			LastUpdate:      s.LastUpdate.UnixMilli(),
			Active:          s.Active,
		}
		s.mu.Unlock()
		snap.Stocks[state.Symbol] = state
	}

	m.pmu.RLock()
	for playerID, ps := range m.portfolios {
		ps.mu.Lock()
		snap.Portfolios[playerID] = copyPortfolio(ps.p)
		ps.mu.Unlock()
	}
	m.pmu.RUnlock()
	return snap
}

// Import replaces the market's state with the snapshot.
func (m *Market) Import(snap Snapshot) {
	stocks := make(map[string]*Stock, len(snap.Stocks))
	for symbol, state := range snap.Stocks {
		symbol = canonSymbol(symbol)
		stocks[symbol] = stockFromState(symbol, state)
	}

	portfolios := make(map[string]*portfolioState, len(snap.Portfolios))
	for playerID, p := range snap.Portfolios {
		restored := copyPortfolio(&p)
		if restored.Holdings == nil {
			restored.Holdings = make(map[string]*Holding)
		}
		portfolios[playerID] = &portfolioState{p: &restored}
	}

	m.mu.Lock()
	m.stocks = stocks
	m.open = snap.Open
	m.mu.Unlock()

	m.pmu.Lock()
	m.portfolios = portfolios
	m.pmu.Unlock()

	m.quotes.Purge()
}

func stockFromState(symbol string, state StockState) *Stock {
	return &Stock{
		Symbol:          symbol,
		Company:         state.Company,
		Industry:        state.Industry,
		CurrentPrice:    state.CurrentPrice,
		OpenPrice:       state.OpenPrice,
		HighPrice:       state.HighPrice,
		LowPrice:        state.LowPrice,
		PreviousClose:   state.PreviousClose,
		TotalShares:     state.TotalShares,
		AvailableShares: state.AvailableShares,
		Volatility:      state.Volatility,
		History:         append([]PricePoint(nil), state.History...),
		LastUpdate:      time.UnixMilli(state.LastUpdate),
		Active:          state.Active,
	}
}

func copyPortfolio(p *Portfolio) Portfolio {
	cp := Portfolio{
		Holdings:       make(map[string]*Holding, len(p.Holdings)),
		Transactions:   append([]StockTransaction(nil), p.Transactions...),
		TotalInvested:  p.TotalInvested,
		TotalDividends: p.TotalDividends,
	}
	for symbol, h := range p.Holdings {
		holding := *h
		cp.Holdings[symbol] = &holding
	}
	return cp
}
