package economy

import (
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// TransactionKind is a closed set of ledger entry tags. Display labels and
// income/expense signs live in kindTable, off the hot ledger path.
type TransactionKind string

const (
	KindInitial        TransactionKind = "initial"
	KindIncome         TransactionKind = "income"
	KindExpense        TransactionKind = "expense"
	KindTransferIn     TransactionKind = "transfer_in"
	KindTransferOut    TransactionKind = "transfer_out"
	KindBankDeposit    TransactionKind = "bank_deposit"
	KindBankWithdrawal TransactionKind = "bank_withdrawal"
	KindInterest       TransactionKind = "interest"
	KindLoan           TransactionKind = "loan"
	KindLoanRepayment  TransactionKind = "loan_repayment"
	KindDailyReward    TransactionKind = "daily_reward"
	KindDividend       TransactionKind = "dividend"
	KindStockBuy       TransactionKind = "stock_buy"
	KindStockSell      TransactionKind = "stock_sell"
	KindAuctionSale    TransactionKind = "auction_sale"
	KindAuctionWin     TransactionKind = "auction_win"
	KindAuctionRefund  TransactionKind = "auction_refund"
	KindTax            TransactionKind = "tax"
	KindFine           TransactionKind = "fine"
	KindBonus          TransactionKind = "bonus"
	KindRefund         TransactionKind = "refund"
	KindAdminGive      TransactionKind = "admin_give"
	KindAdminTake      TransactionKind = "admin_take"
	KindShopSale       TransactionKind = "shop_sale"
	KindShopPurchase   TransactionKind = "shop_purchase"
)

type kindInfo struct {
	Label  string
	Income bool
}

var kindTable = map[TransactionKind]kindInfo{
	KindInitial:        {"Starting Funds", true},
	KindIncome:         {"Income", true},
	KindExpense:        {"Expense", false},
	KindTransferIn:     {"Transfer In", true},
	KindTransferOut:    {"Transfer Out", false},
	KindBankDeposit:    {"Bank Deposit", false},
	KindBankWithdrawal: {"Bank Withdrawal", true},
	KindInterest:       {"Interest", true},
	KindLoan:           {"Loan", true},
	KindLoanRepayment:  {"Loan Repayment", false},
	KindDailyReward:    {"Daily Reward", true},
	KindDividend:       {"Dividend", true},
	KindStockBuy:       {"Stock Purchase", false},
	KindStockSell:      {"Stock Sale", true},
	KindAuctionSale:    {"Auction Sale", true},
	KindAuctionWin:     {"Auction Win", false},
	KindAuctionRefund:  {"Auction Refund", true},
	KindTax:            {"Tax", false},
	KindFine:           {"Fine", false},
	KindBonus:          {"Bonus", true},
	KindRefund:         {"Refund", true},
	KindAdminGive:      {"Admin Grant", true},
	KindAdminTake:      {"Admin Deduction", false},
	KindShopSale:       {"Shop Sale", true},
	KindShopPurchase:   {"Shop Purchase", false},
}

// Label returns the display name for the kind, falling back to the raw tag.
func (k TransactionKind) Label() string {
	if info, ok := kindTable[k]; ok {
		return info.Label
	}
	return string(k)
}

// Income reports whether entries of this kind add to a balance.
func (k TransactionKind) Income() bool {
	return kindTable[k].Income
}

// Transaction is an immutable ledger entry. Amount is signed: positive
// entries are income, negative entries are expenses.
type Transaction struct {
	ID          snowflake.ID    `json:"id"`
	Kind        TransactionKind `json:"kind"`
	Amount      int64           `json:"amount"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Income reports whether the entry added to the balance.
func (t Transaction) Income() bool {
	return t.Amount >= 0
}

// idGenerator hands out snowflake IDs, disambiguating same-millisecond
// entries through the increment bits.
type idGenerator struct {
	seq atomic.Uint64
}

func (g *idGenerator) next(now time.Time) snowflake.ID {
	return snowflake.ID(uint64(snowflake.New(now)) | (g.seq.Add(1) & 0x3FFFFF))
}
