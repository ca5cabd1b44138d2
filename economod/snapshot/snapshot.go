package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goldvein/economod/economod/economy"
	"github.com/goldvein/economod/economod/economy/auction"
	"github.com/goldvein/economod/economod/market"
)

const Version = 1

var (
	ErrNotFound = errors.New("snapshot not found")
	ErrCorrupt  = errors.New("snapshot corrupt")
)

// State is the complete serializable engine state. Persistence failures on
// load fall back to a fresh state rather than refusing to start.
type State struct {
	Version  int              `json:"version"`
	TakenAt  time.Time        `json:"taken_at"`
	Economy  economy.Snapshot `json:"economy"`
	Market   market.Snapshot  `json:"market"`
	Auctions auction.Snapshot `json:"auctions"`
}

// Encode renders the state as indented JSON so snapshots stay inspectable.
func Encode(state State) ([]byte, error) {
	state.Version = Version
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot, rejecting unknown versions as corrupt.
func Decode(data []byte) (State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if state.Version != Version {
		return State{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, state.Version)
	}
	return state, nil
}
