package economy

import "time"

const overduePenaltyRate = 0.001 // per day, on the principal

// Loan is a collateral-free loan. Owed is fixed at issue time as
// principal*(1+rate); the overdue penalty is derived on read and never
// folded back into Owed, so it cannot compound into the stored state.
type Loan struct {
	Borrower  string    `json:"borrower"`
	Principal int64     `json:"principal"`
	Rate      float64   `json:"rate"`
	Owed      int64     `json:"owed"`
	Repaid    int64     `json:"repaid"`
	IssuedAt  time.Time `json:"issued_at"`
	DueAt     time.Time `json:"due_at"`
}

func newLoan(borrower string, principal int64, rate float64, termDays int, now time.Time) *Loan {
	return &Loan{
		Borrower:  borrower,
		Principal: principal,
		Rate:      rate,
		Owed:      int64(float64(principal) * (1 + rate)),
		IssuedAt:  now,
		DueAt:     now.AddDate(0, 0, termDays),
	}
}

// outstanding is the stored debt, without the overdue penalty.
func (l *Loan) outstanding() int64 {
	return l.Owed - l.Repaid
}

func (l *Loan) fullyRepaid() bool {
	return l.outstanding() <= 0
}

// Overdue reports whether the due date has passed with debt outstanding.
func (l *Loan) Overdue(now time.Time) bool {
	return now.After(l.DueAt) && !l.fullyRepaid()
}

// OverdueDays is the number of whole days past the due date.
func (l *Loan) OverdueDays(now time.Time) int64 {
	if !l.Overdue(now) {
		return 0
	}
	return int64(now.Sub(l.DueAt).Hours() / 24)
}

// OverduePenalty accrues per day on the principal. It is computed, never
// stored, so repeated reads do not double-count it.
func (l *Loan) OverduePenalty(now time.Time) int64 {
	days := l.OverdueDays(now)
	if days <= 0 {
		return 0
	}
	return int64(float64(l.Principal) * overduePenaltyRate * float64(days))
}

// RemainingOwed is the outstanding debt plus any accrued overdue penalty.
func (l *Loan) RemainingOwed(now time.Time) int64 {
	return l.outstanding() + l.OverduePenalty(now)
}

// RemainingDays until the due date, zero once past due or repaid.
func (l *Loan) RemainingDays(now time.Time) int64 {
	if l.fullyRepaid() || now.After(l.DueAt) {
		return 0
	}
	return int64(l.DueAt.Sub(now).Hours() / 24)
}
