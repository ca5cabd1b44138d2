package economy

// PlayerSnapshot is the serializable state of one player.
type PlayerSnapshot struct {
	Account Account       `json:"account"`
	Bank    BankAccount   `json:"bank"`
	Loan    *Loan         `json:"loan,omitempty"`
	History []Transaction `json:"history,omitempty"`
}

// Snapshot is the serializable state of the whole ledger, keyed by player ID
// so it is order-independent.
type Snapshot struct {
	Players map[string]PlayerSnapshot `json:"players"`
	Stats   EconomyStats              `json:"stats"`
}

// Export copies the full ledger state.
func (l *Ledger) Export() Snapshot {
	snap := Snapshot{Players: make(map[string]PlayerSnapshot)}

	l.mu.RLock()
	ids := make([]string, 0, len(l.players))
	for id := range l.players {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	for _, id := range ids {
		ps := l.state(id)
		ps.mu.Lock()
		entry := PlayerSnapshot{
			Account: ps.account,
			Bank:    ps.bank,
			History: append([]Transaction(nil), ps.history...),
		}
		if ps.loan != nil {
			loan := *ps.loan
			entry.Loan = &loan
		}
		ps.mu.Unlock()
		snap.Players[id] = entry
	}

	snap.Stats = l.stats.snapshot()
	return snap
}

// Import replaces the full ledger state with the snapshot.
func (l *Ledger) Import(snap Snapshot) {
	players := make(map[string]*playerState, len(snap.Players))
	for id, entry := range snap.Players {
		ps := &playerState{
			account: entry.Account,
			bank:    entry.Bank,
			history: append([]Transaction(nil), entry.History...),
		}
		if entry.Loan != nil {
			loan := *entry.Loan
			ps.loan = &loan
		}
		players[id] = ps
	}

	l.mu.Lock()
	l.players = players
	l.mu.Unlock()
	l.stats.restore(snap.Stats)
}
