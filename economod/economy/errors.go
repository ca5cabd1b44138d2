package economy

import "errors"

// Business failures are classified values, never panics. Callers match with
// errors.Is and translate to whatever surface the host renders.
var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientSavings  = errors.New("insufficient savings")
	ErrSelfTransfer         = errors.New("cannot transfer to yourself")
	ErrLoanAlreadyActive    = errors.New("player already has an active loan")
	ErrLoanLimitExceeded    = errors.New("requested amount exceeds the loan ceiling")
	ErrNoActiveLoan         = errors.New("no active loan")
	ErrAlreadyClaimed       = errors.New("daily reward already claimed today")
	ErrDailyRewardsDisabled = errors.New("daily rewards are disabled")
)
