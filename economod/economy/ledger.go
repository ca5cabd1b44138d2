package economy

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Config is the static tuning the ledger consumes at construction. The host
// owns where the values come from.
type Config struct {
	StartingBalance     int64
	BankInterestRate    float64
	TransactionTax      float64
	MaxLoanAmount       int64
	LoanInterestRate    float64
	LoanTermDays        int
	DailyRewardAmount   int64
	DailyRewardsEnabled bool
	HistoryLimit        int
}

// DefaultConfig mirrors the reference configuration.
func DefaultConfig() Config {
	return Config{
		StartingBalance:     100,
		BankInterestRate:    0.01,
		TransactionTax:      0.05,
		MaxLoanAmount:       10000,
		LoanInterestRate:    0.10,
		LoanTermDays:        30,
		DailyRewardAmount:   50,
		DailyRewardsEnabled: true,
		HistoryLimit:        100,
	}
}

// playerState bundles everything the ledger owns for one player behind a
// single mutex, so per-player mutations serialize while different players
// proceed in parallel.
type playerState struct {
	mu      sync.Mutex
	account Account
	bank    BankAccount
	loan    *Loan
	history []Transaction
}

// Ledger is the mutable financial state machine: accounts, savings, loans,
// transaction history, and the economy-wide aggregate.
type Ledger struct {
	cfg Config

	mu      sync.RWMutex
	players map[string]*playerState

	stats statsCounter
	ids   idGenerator
	clock func() time.Time
}

func NewLedger(cfg Config) *Ledger {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	return &Ledger{
		cfg:     cfg,
		players: make(map[string]*playerState),
		clock:   time.Now,
	}
}

// state materializes the player's entry lazily.
func (l *Ledger) state(playerID string) *playerState {
	l.mu.RLock()
	ps, ok := l.players[playerID]
	l.mu.RUnlock()
	if ok {
		return ps
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if ps, ok = l.players[playerID]; ok {
		return ps
	}
	ps = &playerState{}
	l.players[playerID] = ps
	return ps
}

// record appends a history entry, evicting the oldest past the cap. Caller
// holds ps.mu. amount is a magnitude; the sign comes from the kind.
func (l *Ledger) record(ps *playerState, kind TransactionKind, amount int64, description string) {
	signed := amount
	if !kind.Income() {
		signed = -amount
	}
	ps.history = append(ps.history, Transaction{
		ID:          l.ids.next(l.clock()),
		Kind:        kind,
		Amount:      signed,
		Description: description,
		Timestamp:   l.clock(),
	})
	if len(ps.history) > l.cfg.HistoryLimit {
		ps.history = ps.history[len(ps.history)-l.cfg.HistoryLimit:]
	}
}

// Balance returns the player's liquid balance, creating a zeroed account if
// none exists. It never fails.
func (l *Ledger) Balance(playerID string) int64 {
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.account.Balance
}

// Savings returns the player's bank balance, never failing.
func (l *Ledger) Savings(playerID string) int64 {
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.bank.Savings
}

// Account returns a copy of the player's account.
func (l *Ledger) Account(playerID string) Account {
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.account
}

// BankAccount returns a copy of the player's bank account.
func (l *Ledger) BankAccount(playerID string) BankAccount {
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.bank
}

// InitializePlayer seeds a fresh account with the starting balance. Repeat
// calls are no-ops, so the host may invoke it on every join.
func (l *Ledger) InitializePlayer(playerID string) bool {
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.account.Initialized {
		return false
	}
	ps.account.Initialized = true
	if l.cfg.StartingBalance > 0 {
		ps.account.credit(l.cfg.StartingBalance)
		l.record(ps, KindInitial, l.cfg.StartingBalance, "starting funds for new player")
	}
	slog.Debug("Initialized player account",
		slog.String("type", "ledger"),
		slog.String("player_id", playerID),
		slog.Int64("balance", l.cfg.StartingBalance))
	return true
}

// Award credits amount to the player under a specific transaction kind. It is
// the entry point the market and auction engines use to move money in.
func (l *Ledger) Award(playerID string, amount int64, kind TransactionKind, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.account.credit(amount)
	l.record(ps, kind, amount, description)
	return nil
}

// Charge debits amount from the player under a specific transaction kind.
func (l *Ledger) Charge(playerID string, amount int64, kind TransactionKind, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if !ps.account.debit(amount) {
		return ErrInsufficientFunds
	}
	l.record(ps, kind, amount, description)
	return nil
}

// Credit adds amount to the player's liquid balance as generic income.
func (l *Ledger) Credit(playerID string, amount int64) error {
	return l.Award(playerID, amount, KindIncome, "system credit")
}

// Debit removes amount from the player's liquid balance as a generic expense.
func (l *Ledger) Debit(playerID string, amount int64) error {
	return l.Charge(playerID, amount, KindExpense, "system debit")
}

// Transfer moves amount from one player to another, withholding the
// configured transaction tax from the receiving side. The sender pays the
// full amount; a failed transfer changes nothing.
func (l *Ledger) Transfer(fromID, toID string, amount int64, memo string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromID == toID {
		return ErrSelfTransfer
	}

	from := l.state(fromID)
	to := l.state(toID)

	// Lock both parties in a stable order to avoid deadlock with the
	// reverse transfer.
	first, second := from, to
	if fromID > toID {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if from.account.Balance < amount {
		return ErrInsufficientFunds
	}

	tax := int64(float64(amount) * l.cfg.TransactionTax)
	net := amount - tax

	from.account.debit(amount)
	to.account.credit(net)

	l.record(from, KindTransferOut, amount, fmt.Sprintf("transfer to %s (tax: %d, memo: %s)", toID, tax, memo))
	l.record(to, KindTransferIn, net, fmt.Sprintf("transfer from %s (memo: %s)", fromID, memo))

	l.stats.addTransaction(amount)
	l.stats.addTax(tax)
	return nil
}

// Deposit moves amount from the liquid account into savings.
func (l *Ledger) Deposit(playerID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if !ps.account.debit(amount) {
		return ErrInsufficientFunds
	}
	ps.bank.deposit(amount)
	l.record(ps, KindBankDeposit, amount, "deposit to savings")
	return nil
}

// Withdraw moves amount from savings back into the liquid account.
func (l *Ledger) Withdraw(playerID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if !ps.bank.withdraw(amount) {
		return ErrInsufficientSavings
	}
	ps.account.credit(amount)
	l.record(ps, KindBankWithdrawal, amount, "withdrawal from savings")
	return nil
}

// RequestLoan opens a loan and credits the principal. At most one loan may be
// active per player; the total owed is fixed up front as principal*(1+rate).
func (l *Ledger) RequestLoan(playerID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > l.cfg.MaxLoanAmount {
		return ErrLoanLimitExceeded
	}
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.loan != nil {
		return ErrLoanAlreadyActive
	}
	ps.account.credit(amount)
	ps.loan = newLoan(playerID, amount, l.cfg.LoanInterestRate, l.cfg.LoanTermDays, l.clock())
	l.record(ps, KindLoan, amount, "bank loan")
	l.stats.addLoan(amount)
	slog.Debug("Loan issued",
		slog.String("type", "ledger"),
		slog.String("player_id", playerID),
		slog.Int64("principal", amount),
		slog.Int64("owed", ps.loan.Owed))
	return nil
}

// RepayLoan pays down the active loan. Repayment is capped at the remaining
// owed, so it can never drive the debt negative; the loan record disappears
// once fully repaid.
func (l *Ledger) RepayLoan(playerID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.loan == nil {
		return ErrNoActiveLoan
	}
	payment := amount
	if remaining := ps.loan.outstanding(); payment > remaining {
		payment = remaining
	}
	if !ps.account.debit(payment) {
		return ErrInsufficientFunds
	}
	ps.loan.Repaid += payment
	l.record(ps, KindLoanRepayment, payment, "loan repayment")
	if ps.loan.fullyRepaid() {
		ps.loan = nil
	}
	return nil
}

// ActiveLoan returns a copy of the player's open loan, if any.
func (l *Ledger) ActiveLoan(playerID string) (Loan, bool) {
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.loan == nil {
		return Loan{}, false
	}
	return *ps.loan, true
}

// ClaimDaily credits the daily reward at most once per calendar day.
func (l *Ledger) ClaimDaily(playerID string) error {
	if !l.cfg.DailyRewardsEnabled {
		return ErrDailyRewardsDisabled
	}
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	today := l.clock().Format(claimDateLayout)
	if ps.account.claimedOn(today) {
		return ErrAlreadyClaimed
	}
	ps.account.credit(l.cfg.DailyRewardAmount)
	ps.account.DailyClaimed = true
	ps.account.LastClaim = today
	l.record(ps, KindDailyReward, l.cfg.DailyRewardAmount, "daily login reward")
	return nil
}

// ResetDailyClaims clears every claim flag. The host invokes it once per
// simulated day.
func (l *Ledger) ResetDailyClaims() {
	for _, ps := range l.snapshotStates() {
		ps.mu.Lock()
		ps.account.DailyClaimed = false
		ps.mu.Unlock()
	}
}

// ApplyInterest credits floor(savings*rate) to every bank account with a
// positive balance. Each account update is atomic; the sweep as a whole is
// not a single transaction and tolerates interleaved operations.
func (l *Ledger) ApplyInterest() {
	credited := 0
	for _, ps := range l.snapshotStates() {
		ps.mu.Lock()
		if savings := ps.bank.Savings; savings > 0 {
			interest := int64(float64(savings) * l.cfg.BankInterestRate)
			if interest > 0 {
				ps.bank.addInterest(interest, l.clock())
				l.record(ps, KindInterest, interest, "savings interest")
				l.stats.addInterest(interest)
				credited++
			}
		}
		ps.mu.Unlock()
	}
	slog.Debug("Interest applied",
		slog.String("type", "ledger"),
		slog.Int("accounts", credited))
}

// History returns the player's transaction log, oldest first.
func (l *Ledger) History(playerID string) []Transaction {
	ps := l.state(playerID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := make([]Transaction, len(ps.history))
	copy(out, ps.history)
	return out
}

// Stats returns a read-only snapshot of the economy-wide aggregate.
func (l *Ledger) Stats() EconomyStats {
	return l.stats.snapshot()
}

// RecordShopCreated bumps the shops counter. Shop mechanics live in the
// host; only the aggregate is tracked here.
func (l *Ledger) RecordShopCreated() {
	l.stats.addShop()
}

// RecordAuctionCompleted bumps the completed-auctions counter.
func (l *Ledger) RecordAuctionCompleted() {
	l.stats.addAuction()
}

// snapshotStates copies the current player set so sweeps can iterate without
// holding the registry lock.
func (l *Ledger) snapshotStates() []*playerState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	states := make([]*playerState, 0, len(l.players))
	for _, ps := range l.players {
		states = append(states, ps)
	}
	return states
}
