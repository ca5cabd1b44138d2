package auction

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/goldvein/economod/economod/economy"
)

// Funds is the slice of the ledger the auction house needs. It never touches
// balances directly.
type Funds interface {
	Award(playerID string, amount int64, kind economy.TransactionKind, description string) error
	Charge(playerID string, amount int64, kind economy.TransactionKind, description string) error
	RecordAuctionCompleted()
}

// House owns the auction table. A single mutex serializes the table; the
// settlement money movement goes through the ledger's own locking.
type House struct {
	ledger Funds

	mu       sync.Mutex
	auctions map[snowflake.ID]*Auction

	ids   idGenerator
	clock func() time.Time
}

func NewHouse(ledger Funds) *House {
	return &House{
		ledger:   ledger,
		auctions: make(map[snowflake.ID]*Auction),
		clock:    time.Now,
	}
}

// Open lists an item. The current bid starts at the asking price; the first
// real bid must exceed it.
func (h *House) Open(seller, item string, startingBid int64, duration time.Duration) (Auction, error) {
	if startingBid <= 0 {
		return Auction{}, ErrInvalidBid
	}
	if duration <= 0 {
		return Auction{}, ErrBadDuration
	}

	now := h.clock()
	a := &Auction{
		ID:          h.ids.next(now),
		Seller:      seller,
		Item:        item,
		StartingBid: startingBid,
		CurrentBid:  startingBid,
		StartTime:   now,
		EndTime:     now.Add(duration),
		Active:      true,
		Bids:        make(map[string]int64),
	}

	h.mu.Lock()
	h.auctions[a.ID] = a
	h.mu.Unlock()

	slog.Info("Auction opened",
		slog.String("type", "auction"),
		slog.String("auction_id", a.ID.String()),
		slog.String("seller", seller),
		slog.String("item", item),
		slog.Int64("starting_bid", startingBid))
	return *a, nil
}

// Bid places a bid. A bid arriving after the deadline settles the auction,
// paying out any standing winner, and is rejected with ErrExpired.
func (h *House) Bid(id snowflake.ID, bidder string, amount int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	a, ok := h.auctions[id]
	if !ok {
		return ErrNotFound
	}
	if a.Completed || !a.Active {
		return ErrNotActive
	}
	if a.Expired(h.clock()) {
		h.settleLocked(a)
		return ErrExpired
	}
	if bidder == a.Seller {
		return ErrSelfBid
	}
	if amount <= a.CurrentBid {
		return ErrBidTooLow
	}

	a.CurrentBid = amount
	a.CurrentBidder = bidder
	a.Bids[bidder] = amount
	return nil
}

// Settle completes the auction and moves funds winner->seller through the
// ledger. It is idempotent: settling a completed auction returns the stored
// outcome without moving money again. A winner who can no longer cover the
// bid settles as a no-sale and the item goes back to the seller.
func (h *House) Settle(id snowflake.ID) (Outcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	a, ok := h.auctions[id]
	if !ok {
		return Outcome{}, ErrNotFound
	}
	if a.Completed {
		if a.Outcome != nil {
			return *a.Outcome, nil
		}
		// Restored from a snapshot taken mid-settlement.
		return Outcome{AuctionID: a.ID, Seller: a.Seller, Item: a.Item, NoSale: true}, nil
	}
	return h.settleLocked(a), nil
}

// settleLocked completes the auction, moves funds, and stores the outcome.
// Caller holds h.mu and has checked a.Completed.
func (h *House) settleLocked(a *Auction) Outcome {
	a.close()
	outcome := Outcome{
		AuctionID: a.ID,
		Seller:    a.Seller,
		Item:      a.Item,
		SettledAt: h.clock(),
	}

	if a.CurrentBidder == "" {
		outcome.NoSale = true
	} else {
		desc := fmt.Sprintf("auction %s: %s", a.ID, a.Item)
		if err := h.ledger.Charge(a.CurrentBidder, a.CurrentBid, economy.KindAuctionWin, desc); err != nil {
			slog.Warn("Winning bidder could not pay, settling as no-sale",
				slog.String("type", "auction"),
				slog.String("auction_id", a.ID.String()),
				slog.String("bidder", a.CurrentBidder),
				slog.Any("error", err))
			outcome.NoSale = true
		} else {
			// Award only fails on a non-positive amount, which the bid
			// validation already rules out.
			_ = h.ledger.Award(a.Seller, a.CurrentBid, economy.KindAuctionSale, desc)
			outcome.Winner = a.CurrentBidder
			outcome.Price = a.CurrentBid
		}
	}

	a.Outcome = &outcome
	h.ledger.RecordAuctionCompleted()

	slog.Info("Auction settled",
		slog.String("type", "auction"),
		slog.String("auction_id", a.ID.String()),
		slog.Bool("no_sale", outcome.NoSale),
		slog.Int64("price", outcome.Price))
	return outcome
}

// SweepExpired settles every active auction whose deadline has passed. Safe
// to invoke at-least-once from an external timer.
func (h *House) SweepExpired() []Outcome {
	h.mu.Lock()
	var expired []snowflake.ID
	now := h.clock()
	for id, a := range h.auctions {
		if a.Active && !a.Completed && a.Expired(now) {
			expired = append(expired, id)
		}
	}
	h.mu.Unlock()

	outcomes := make([]Outcome, 0, len(expired))
	for _, id := range expired {
		outcome, err := h.Settle(id)
		if err != nil {
			continue
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Get returns a copy of one auction.
func (h *House) Get(id snowflake.ID) (Auction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.auctions[id]
	if !ok {
		return Auction{}, ErrNotFound
	}
	return copyAuction(a), nil
}

// Active returns copies of all auctions still accepting bids, newest first.
func (h *House) Active() []Auction {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.clock()
	out := make([]Auction, 0, len(h.auctions))
	for _, a := range h.auctions {
		if a.Active && !a.Completed && !a.Expired(now) {
			out = append(out, copyAuction(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func copyAuction(a *Auction) Auction {
	cp := *a
	cp.Bids = make(map[string]int64, len(a.Bids))
	for bidder, bid := range a.Bids {
		cp.Bids[bidder] = bid
	}
	if a.Outcome != nil {
		outcome := *a.Outcome
		cp.Outcome = &outcome
	}
	return cp
}
