package auction

import (
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

var (
	ErrNotFound    = errors.New("auction not found")
	ErrNotActive   = errors.New("auction is not active")
	ErrExpired     = errors.New("auction has expired")
	ErrBidTooLow   = errors.New("bid must exceed the current bid")
	ErrSelfBid     = errors.New("seller cannot bid on their own auction")
	ErrInvalidBid  = errors.New("starting bid must be positive")
	ErrBadDuration = errors.New("auction duration must be positive")
)

// Outcome is the settled result of an auction. It is stored on first
// settlement so repeating the call returns the same result.
type Outcome struct {
	AuctionID snowflake.ID `json:"auction_id"`
	Seller    string       `json:"seller"`
	Item      string       `json:"item"`
	Winner    string       `json:"winner,omitempty"`
	Price     int64        `json:"price,omitempty"`
	NoSale    bool         `json:"no_sale"`
	SettledAt time.Time    `json:"settled_at"`
}

// Auction is one timed listing. Bids keeps each bidder's highest bid.
// Remaining time is always derived from EndTime, never counted down.
type Auction struct {
	ID            snowflake.ID     `json:"id"`
	Seller        string           `json:"seller"`
	Item          string           `json:"item"`
	StartingBid   int64            `json:"starting_bid"`
	CurrentBid    int64            `json:"current_bid"`
	CurrentBidder string           `json:"current_bidder,omitempty"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       time.Time        `json:"end_time"`
	Active        bool             `json:"active"`
	Completed     bool             `json:"completed"`
	Bids          map[string]int64 `json:"bids,omitempty"`
	Outcome       *Outcome         `json:"outcome,omitempty"`
}

// Expired reports whether the deadline has passed.
func (a *Auction) Expired(now time.Time) bool {
	return now.After(a.EndTime)
}

// Remaining is the time left before the deadline, zero once expired or
// completed.
func (a *Auction) Remaining(now time.Time) time.Duration {
	if a.Completed || a.Expired(now) {
		return 0
	}
	return a.EndTime.Sub(now)
}

// MinimumBid is the lowest amount the next bid may carry.
func (a *Auction) MinimumBid() int64 {
	return a.CurrentBid + 1
}

// HasWinner reports whether a completed auction found a buyer.
func (a *Auction) HasWinner() bool {
	return a.Completed && a.CurrentBidder != ""
}

// BidCount is the number of distinct bidders.
func (a *Auction) BidCount() int {
	return len(a.Bids)
}

func (a *Auction) close() {
	a.Active = false
	a.Completed = true
}
