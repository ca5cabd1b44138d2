package economy

import "sync"

// EconomyStats is the process-wide aggregate. Counters are updated
// incrementally on the write path and never recomputed from history.
type EconomyStats struct {
	Transactions      int64 `json:"transactions"`
	TransactionValue  int64 `json:"transaction_value"`
	TaxCollected      int64 `json:"tax_collected"`
	LoansIssued       int64 `json:"loans_issued"`
	LoanValue         int64 `json:"loan_value"`
	InterestPaid      int64 `json:"interest_paid"`
	ShopsCreated      int64 `json:"shops_created"`
	AuctionsCompleted int64 `json:"auctions_completed"`
}

// AverageTransactionValue over all recorded transfers.
func (s EconomyStats) AverageTransactionValue() float64 {
	if s.Transactions == 0 {
		return 0
	}
	return float64(s.TransactionValue) / float64(s.Transactions)
}

// AverageLoanAmount over all issued loans.
func (s EconomyStats) AverageLoanAmount() float64 {
	if s.LoansIssued == 0 {
		return 0
	}
	return float64(s.LoanValue) / float64(s.LoansIssued)
}

// statsCounter guards the aggregate independently of per-player locks.
type statsCounter struct {
	mu sync.Mutex
	s  EconomyStats
}

func (c *statsCounter) addTransaction(value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Transactions++
	c.s.TransactionValue += value
}

func (c *statsCounter) addTax(tax int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.TaxCollected += tax
}

func (c *statsCounter) addLoan(amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.LoansIssued++
	c.s.LoanValue += amount
}

func (c *statsCounter) addInterest(interest int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.InterestPaid += interest
}

func (c *statsCounter) addShop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.ShopsCreated++
}

func (c *statsCounter) addAuction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.AuctionsCompleted++
}

func (c *statsCounter) snapshot() EconomyStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

func (c *statsCounter) restore(s EconomyStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s = s
}
