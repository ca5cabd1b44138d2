package auction

import "github.com/disgoorg/snowflake/v2"

// Snapshot is the serializable auction table, keyed by auction ID.
type Snapshot struct {
	Auctions map[string]Auction `json:"auctions"`
}

// Export copies the full auction table, completed auctions included.
func (h *House) Export() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap := Snapshot{Auctions: make(map[string]Auction, len(h.auctions))}
	for id, a := range h.auctions {
		snap.Auctions[id.String()] = copyAuction(a)
	}
	return snap
}

// Import replaces the auction table with the snapshot. Entries with
// unparseable IDs are dropped rather than failing the whole restore.
func (h *House) Import(snap Snapshot) {
	auctions := make(map[snowflake.ID]*Auction, len(snap.Auctions))
	for key, entry := range snap.Auctions {
		id, err := snowflake.Parse(key)
		if err != nil {
			continue
		}
		a := copyAuction(&entry)
		a.ID = id
		auctions[id] = &a
	}

	h.mu.Lock()
	h.auctions = auctions
	h.mu.Unlock()
}
