package economy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoanOverduePenalty(t *testing.T) {
	issued := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	loan := newLoan("alice", 1000, 0.10, 30, issued)

	assert.Equal(t, int64(1100), loan.Owed)
	assert.Equal(t, issued.AddDate(0, 0, 30), loan.DueAt)

	onTime := issued.AddDate(0, 0, 20)
	assert.False(t, loan.Overdue(onTime))
	assert.Equal(t, int64(0), loan.OverduePenalty(onTime))
	assert.Equal(t, int64(10), loan.RemainingDays(onTime))
	assert.Equal(t, int64(1100), loan.RemainingOwed(onTime))

	late := issued.AddDate(0, 0, 40)
	assert.True(t, loan.Overdue(late))
	assert.Equal(t, int64(10), loan.OverdueDays(late))
	// 0.1% of the principal per overdue day.
	assert.Equal(t, int64(10), loan.OverduePenalty(late))
	assert.Equal(t, int64(1110), loan.RemainingOwed(late))
	assert.Equal(t, int64(0), loan.RemainingDays(late))
}

func TestLoanPenaltyNotCompounded(t *testing.T) {
	issued := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	loan := newLoan("alice", 1000, 0.10, 30, issued)

	late := issued.AddDate(0, 0, 35)
	first := loan.RemainingOwed(late)
	second := loan.RemainingOwed(late)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1100), loan.outstanding())
}

func TestLoanRepaidNotOverdue(t *testing.T) {
	issued := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	loan := newLoan("alice", 1000, 0.10, 30, issued)
	loan.Repaid = loan.Owed

	late := issued.AddDate(0, 0, 60)
	assert.False(t, loan.Overdue(late))
	assert.Equal(t, int64(0), loan.RemainingOwed(late))
	assert.True(t, loan.fullyRepaid())
}
