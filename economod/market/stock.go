package market

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	priceHistoryCap = 1000
	maxPriceSwing   = 0.20 // per-step clamp on the fractional change
	trendWindow     = 10
	trendWeight     = 0.1
)

// PricePoint is one sample in a stock's bounded history.
type PricePoint struct {
	Price     int64     `json:"price"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Stock is one listed company. Each stock carries its own mutex so sweeps
// and trades on different symbols proceed in parallel.
type Stock struct {
	mu sync.Mutex

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
	LastUpdate      time.Time    `json:"last_update"`
	Active          bool         `json:"active"`
}

func newStock(symbol, company, industry string, initialPrice, totalShares int64, now time.Time) *Stock {
	s := &Stock{
		Symbol:          symbol,
		Company:         company,
		Industry:        industry,
		CurrentPrice:    initialPrice,
		OpenPrice:       initialPrice,
		HighPrice:       initialPrice,
		LowPrice:        initialPrice,
		PreviousClose:   initialPrice,
		TotalShares:     totalShares,
		AvailableShares: totalShares,
		Volatility:      0.05,
		LastUpdate:      now,
		Active:          true,
	}
	s.recordPrice(initialPrice, 0, now)
	return s
}

// updatePrice performs one stochastic step: a gaussian draw scaled by
// volatility, plus a momentum term from the last ten samples, clamped to
// +-20% per step. Prices never fall below 1.
func (s *Stock) updatePrice(rng *rand.Rand, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Active {
		return
	}

	change := rng.NormFloat64() * s.Volatility
	change += s.trendFactor()

	if change > maxPriceSwing {
		change = maxPriceSwing
	} else if change < -maxPriceSwing {
		change = -maxPriceSwing
	}

	newPrice := int64(math.Round(float64(s.CurrentPrice) * (1 + change)))
	if newPrice < 1 {
		newPrice = 1
	}
	volume := int64(math.Abs(rng.NormFloat64()*1000)) + 100

	s.setPrice(newPrice, volume, now)
}

// setPrice installs a new price, maintaining OHLC and the bounded history.
// Caller holds s.mu.
func (s *Stock) setPrice(newPrice, volume int64, now time.Time) {
	s.PreviousClose = s.CurrentPrice
	s.CurrentPrice = newPrice

	if s.newTradingDay(now) {
		s.OpenPrice = newPrice
		s.HighPrice = newPrice
		s.LowPrice = newPrice
	} else {
		if newPrice > s.HighPrice {
			s.HighPrice = newPrice
		}
		if newPrice < s.LowPrice {
			s.LowPrice = newPrice
		}
	}

	s.recordPrice(newPrice, volume, now)
	s.LastUpdate = now
}

func (s *Stock) recordPrice(price, volume int64, now time.Time) {
	s.History = append(s.History, PricePoint{Price: price, Volume: volume, Timestamp: now})
	if len(s.History) > priceHistoryCap {
		s.History = s.History[len(s.History)-priceHistoryCap:]
	}
}

// trendFactor is the mean fractional change across the last ten samples,
// scaled down so momentum nudges rather than dominates.
func (s *Stock) trendFactor() float64 {
	if len(s.History) < trendWindow {
		return 0
	}
	recent := s.History[len(s.History)-trendWindow:]
	var total float64
	for i := 1; i < len(recent); i++ {
		prev := recent[i-1].Price
		if prev == 0 {
			continue
		}
		total += float64(recent[i].Price-prev) / float64(prev)
	}
	return total / float64(len(recent)) * trendWeight
}

func (s *Stock) newTradingDay(now time.Time) bool {
	if len(s.History) == 0 {
		return true
	}
	last := s.History[len(s.History)-1].Timestamp
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	return ly != ny || lm != nm || ld != nd
}

// reserveShares removes shares from the float for a buy. Caller holds s.mu.
func (s *Stock) reserveShares(shares int64) bool {
	if shares <= 0 || shares > s.AvailableShares {
		return false
	}
	s.AvailableShares -= shares
	return true
}

// releaseShares returns shares to the float after a sell. Caller holds s.mu.
func (s *Stock) releaseShares(shares int64) {
	if shares > 0 {
		s.AvailableShares += shares
		if s.AvailableShares > s.TotalShares {
			s.AvailableShares = s.TotalShares
		}
	}
}

// marketCap is current price times total shares, recomputed on read.
// Caller holds s.mu.
func (s *Stock) marketCap() int64 {
	return s.CurrentPrice * s.TotalShares
}

// changePercent against the previous close. Caller holds s.mu.
func (s *Stock) changePercent() float64 {
	if s.PreviousClose == 0 {
		return 0
	}
	return float64(s.CurrentPrice-s.PreviousClose) / float64(s.PreviousClose) * 100
}

// dividendYield is derived from volatility: calmer stocks pay more, with a
// 1% floor. Caller holds s.mu.
func (s *Stock) dividendYield() float64 {
	return math.Max(0.01, 0.05-s.Volatility*10)
}

// movingAverage over the last n samples. Caller holds s.mu.
func (s *Stock) movingAverage(n int) int64 {
	if n <= 0 || len(s.History) < n {
		return s.CurrentPrice
	}
	recent := s.History[len(s.History)-n:]
	var sum int64
	for _, p := range recent {
		sum += p.Price
	}
	return sum / int64(len(recent))
}

// volumeSince sums traded volume over recent samples. Caller holds s.mu.
func (s *Stock) volumeSince(cutoff time.Time) int64 {
	var sum int64
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Timestamp.Before(cutoff) {
			break
		}
		sum += s.History[i].Volume
	}
	return sum
}

// split multiplies the share count and divides prices. Caller holds s.mu.
func (s *Stock) split(ratio int64) {
	if ratio <= 1 {
		return
	}
	s.TotalShares *= ratio
	s.AvailableShares *= ratio
	s.CurrentPrice /= ratio
	s.OpenPrice /= ratio
	s.HighPrice /= ratio
	s.LowPrice /= ratio
	s.PreviousClose /= ratio
	if s.CurrentPrice < 1 {
		s.CurrentPrice = 1
	}
	for i := range s.History {
		s.History[i].Price /= ratio
	}
}

// buyback retires shares and nudges the price up 2%. Caller holds s.mu.
func (s *Stock) buyback(shares int64, now time.Time) bool {
	if shares <= 0 || shares > s.AvailableShares {
		return false
	}
	s.TotalShares -= shares
	s.AvailableShares -= shares
	newPrice := int64(float64(s.CurrentPrice) * 1.02)
	if newPrice == s.CurrentPrice {
		newPrice++
	}
	s.setPrice(newPrice, shares, now)
	return true
}
