package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldvein/economod/economod/economy"
)

func newTestHouse(t *testing.T) (*House, *economy.Ledger, *time.Time) {
	t.Helper()
	ledger := economy.NewLedger(economy.DefaultConfig())
	h := NewHouse(ledger)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h.clock = func() time.Time { return now }
	return h, ledger, &now
}

func TestOpenValidation(t *testing.T) {
	h, _, _ := newTestHouse(t)

	_, err := h.Open("seller", "sword", 0, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidBid)
	_, err = h.Open("seller", "sword", 100, 0)
	assert.ErrorIs(t, err, ErrBadDuration)

	a, err := h.Open("seller", "sword", 100, time.Hour)
	require.NoError(t, err)
	assert.True(t, a.Active)
	assert.Equal(t, int64(100), a.CurrentBid)
	assert.Empty(t, a.CurrentBidder)
}

func TestBidRules(t *testing.T) {
	h, ledger, _ := newTestHouse(t)
	a, err := h.Open("seller", "sword", 100, time.Hour)
	require.NoError(t, err)
	ledger.InitializePlayer("buyer")

	assert.ErrorIs(t, h.Bid(a.ID+1, "buyer", 150), ErrNotFound)
	assert.ErrorIs(t, h.Bid(a.ID, "seller", 150), ErrSelfBid)
	assert.ErrorIs(t, h.Bid(a.ID, "buyer", 100), ErrBidTooLow)

	require.NoError(t, h.Bid(a.ID, "buyer", 150))
	got, err := h.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), got.CurrentBid)
	assert.Equal(t, "buyer", got.CurrentBidder)
	assert.Equal(t, 1, got.BidCount())

	assert.ErrorIs(t, h.Bid(a.ID, "rival", 150), ErrBidTooLow)
	require.NoError(t, h.Bid(a.ID, "rival", 200))
	got, _ = h.Get(a.ID)
	assert.Equal(t, "rival", got.CurrentBidder)
}

func TestBidAfterDeadline(t *testing.T) {
	h, ledger, now := newTestHouse(t)
	a, err := h.Open("seller", "sword", 100, time.Hour)
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	assert.ErrorIs(t, h.Bid(a.ID, "buyer", 150), ErrExpired)

	// The late bid settled the auction; further bids see it inactive.
	assert.ErrorIs(t, h.Bid(a.ID, "buyer", 200), ErrNotActive)

	// No bidder existed before the deadline, so it settled as a no-sale.
	got, err := h.Get(a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Outcome)
	assert.True(t, got.Outcome.NoSale)
	assert.Equal(t, int64(1), ledger.Stats().AuctionsCompleted)
}

func TestLateBidSettlesStandingWinner(t *testing.T) {
	h, ledger, now := newTestHouse(t)
	ledger.InitializePlayer("seller")
	require.NoError(t, ledger.Credit("buyer", 500))
	require.NoError(t, ledger.Credit("latecomer", 500))

	a, err := h.Open("seller", "sword", 100, time.Hour)
	require.NoError(t, err)
	require.NoError(t, h.Bid(a.ID, "buyer", 150))

	*now = now.Add(2 * time.Hour)
	assert.ErrorIs(t, h.Bid(a.ID, "latecomer", 200), ErrExpired)

	// The standing winner was paid out, not the latecomer.
	assert.Equal(t, int64(350), ledger.Balance("buyer"))
	assert.Equal(t, int64(500), ledger.Balance("latecomer"))
	assert.Equal(t, int64(250), ledger.Balance("seller"))
	assert.Equal(t, int64(1), ledger.Stats().AuctionsCompleted)

	// Settle returns the stored outcome without moving money again.
	outcome, err := h.Settle(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "buyer", outcome.Winner)
	assert.Equal(t, int64(150), outcome.Price)
	assert.False(t, outcome.NoSale)
	assert.Equal(t, int64(250), ledger.Balance("seller"))

	assert.Empty(t, h.SweepExpired())
}

func TestSettleMovesFunds(t *testing.T) {
	h, ledger, _ := newTestHouse(t)
	ledger.InitializePlayer("seller")
	require.NoError(t, ledger.Credit("buyer", 500))

	a, err := h.Open("seller", "sword", 100, time.Hour)
	require.NoError(t, err)
	require.NoError(t, h.Bid(a.ID, "buyer", 150))

	outcome, err := h.Settle(a.ID)
	require.NoError(t, err)
	assert.False(t, outcome.NoSale)
	assert.Equal(t, "buyer", outcome.Winner)
	assert.Equal(t, int64(150), outcome.Price)

	assert.Equal(t, int64(350), ledger.Balance("buyer"))
	assert.Equal(t, int64(250), ledger.Balance("seller"))
	assert.Equal(t, int64(1), ledger.Stats().AuctionsCompleted)
}

func TestSettleIdempotent(t *testing.T) {
	h, ledger, _ := newTestHouse(t)
	ledger.InitializePlayer("seller")
	require.NoError(t, ledger.Credit("buyer", 500))

	a, _ := h.Open("seller", "sword", 100, time.Hour)
	require.NoError(t, h.Bid(a.ID, "buyer", 150))

	first, err := h.Settle(a.ID)
	require.NoError(t, err)
	second, err := h.Settle(a.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Money moved exactly once.
	assert.Equal(t, int64(350), ledger.Balance("buyer"))
	assert.Equal(t, int64(250), ledger.Balance("seller"))
	assert.Equal(t, int64(1), ledger.Stats().AuctionsCompleted)
}

func TestSettleNoBids(t *testing.T) {
	h, ledger, _ := newTestHouse(t)
	ledger.InitializePlayer("seller")

	a, _ := h.Open("seller", "sword", 100, time.Hour)
	outcome, err := h.Settle(a.ID)
	require.NoError(t, err)
	assert.True(t, outcome.NoSale)
	assert.Empty(t, outcome.Winner)
	assert.Equal(t, int64(100), ledger.Balance("seller"))
}

func TestSettleBrokeWinner(t *testing.T) {
	h, ledger, _ := newTestHouse(t)
	ledger.InitializePlayer("seller")
	require.NoError(t, ledger.Credit("buyer", 200))

	a, _ := h.Open("seller", "sword", 100, time.Hour)
	require.NoError(t, h.Bid(a.ID, "buyer", 150))

	// The winner spends their money before settlement.
	require.NoError(t, ledger.Debit("buyer", 180))

	outcome, err := h.Settle(a.ID)
	require.NoError(t, err)
	assert.True(t, outcome.NoSale)
	assert.Equal(t, int64(20), ledger.Balance("buyer"))
	assert.Equal(t, int64(100), ledger.Balance("seller"))
}

func TestSweepExpired(t *testing.T) {
	h, ledger, now := newTestHouse(t)
	ledger.InitializePlayer("seller")
	require.NoError(t, ledger.Credit("buyer", 1000))

	short, _ := h.Open("seller", "sword", 100, time.Hour)
	long, _ := h.Open("seller", "shield", 100, 48*time.Hour)
	require.NoError(t, h.Bid(short.ID, "buyer", 150))

	*now = now.Add(2 * time.Hour)
	outcomes := h.SweepExpired()
	require.Len(t, outcomes, 1)
	assert.Equal(t, short.ID, outcomes[0].AuctionID)

	// The long auction is still live.
	active := h.Active()
	require.Len(t, active, 1)
	assert.Equal(t, long.ID, active[0].ID)

	// Repeat sweeps settle nothing new.
	assert.Empty(t, h.SweepExpired())
}

func TestActiveSortedNewestFirst(t *testing.T) {
	h, _, _ := newTestHouse(t)
	first, _ := h.Open("seller", "sword", 100, time.Hour)
	second, _ := h.Open("seller", "shield", 100, time.Hour)

	active := h.Active()
	require.Len(t, active, 2)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Equal(t, first.ID, active[1].ID)
}

func TestSnapshotRoundTrip(t *testing.T) {
	h, ledger, _ := newTestHouse(t)
	require.NoError(t, ledger.Credit("buyer", 500))
	a, _ := h.Open("seller", "sword", 100, time.Hour)
	require.NoError(t, h.Bid(a.ID, "buyer", 150))

	snap := h.Export()

	restored := NewHouse(ledger)
	restored.clock = h.clock
	restored.Import(snap)

	got, err := restored.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), got.CurrentBid)
	assert.Equal(t, "buyer", got.CurrentBidder)
	assert.Equal(t, map[string]int64{"buyer": 150}, got.Bids)
}
