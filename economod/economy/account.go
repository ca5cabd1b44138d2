package economy

import "time"

const claimDateLayout = "2006-01-02"

// Account holds a player's liquid balance. Accounts are materialized lazily
// and never destroyed.
type Account struct {
	Balance      int64  `json:"balance"`
	TotalEarned  int64  `json:"total_earned"`
	TotalSpent   int64  `json:"total_spent"`
	LastClaim    string `json:"last_claim,omitempty"`
	DailyClaimed bool   `json:"daily_claimed"`
	Initialized  bool   `json:"initialized"`
}

func (a *Account) credit(amount int64) {
	if amount > 0 {
		a.Balance += amount
		a.TotalEarned += amount
	}
}

func (a *Account) debit(amount int64) bool {
	if amount > 0 && a.Balance >= amount {
		a.Balance -= amount
		a.TotalSpent += amount
		return true
	}
	return false
}

// NetWorth is lifetime earnings minus lifetime spending, not the current
// balance.
func (a *Account) NetWorth() int64 {
	return a.TotalEarned - a.TotalSpent
}

func (a *Account) claimedOn(day string) bool {
	return a.DailyClaimed && a.LastClaim == day
}

// BankAccount holds a player's savings, with an independent lifecycle from
// the liquid Account.
type BankAccount struct {
	Savings             int64     `json:"savings"`
	TotalDeposits       int64     `json:"total_deposits"`
	TotalWithdrawals    int64     `json:"total_withdrawals"`
	TotalInterestEarned int64     `json:"total_interest_earned"`
	LastInterestAt      time.Time `json:"last_interest_at"`
}

func (b *BankAccount) deposit(amount int64) {
	if amount > 0 {
		b.Savings += amount
		b.TotalDeposits += amount
	}
}

func (b *BankAccount) withdraw(amount int64) bool {
	if amount > 0 && b.Savings >= amount {
		b.Savings -= amount
		b.TotalWithdrawals += amount
		return true
	}
	return false
}

func (b *BankAccount) addInterest(interest int64, now time.Time) {
	if interest > 0 {
		b.Savings += interest
		b.TotalInterestEarned += interest
		b.LastInterestAt = now
	}
}

// AnnualReturnRate is interest earned over lifetime deposits.
func (b *BankAccount) AnnualReturnRate() float64 {
	if b.TotalDeposits == 0 {
		return 0
	}
	return float64(b.TotalInterestEarned) / float64(b.TotalDeposits)
}
