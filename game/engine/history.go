package engine

import "time"

// PushRoundEvent appends an entry to the round's event log. Events are
// append-only and exposed through the history view after resolution.
func (g *Game) PushRoundEvent(round int, event RoundEvent) {
	if g.RoundEvents == nil {
		g.RoundEvents = map[int][]RoundEvent{}
	}
	event.At = time.Now()
	event.Round = round
	g.RoundEvents[round] = append(g.RoundEvents[round], event)
}

// SnapshotRound records the round's current record for the history
// view. Existing snapshots are kept unless force is set; the terminal
// transitions (auto-award, played) always force so the snapshot matches
// the final admin entry.
func (g *Game) SnapshotRound(round int, snapshot RoundSnapshot, force bool) {
	if g.RoundHistory == nil {
		g.RoundHistory = map[int]*RoundSnapshot{}
	}
	if _, ok := g.RoundHistory[round]; ok && !force {
		return
	}
	snapshot.At = time.Now()
	snapshot.Round = round
	g.RoundHistory[round] = &snapshot
}
