package engine

// copyBids returns a defensive copy for snapshots and events.
func copyBids(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyPoints(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ApplyAutoAward resolves a round without play: every player scores
// their bid plus a tenth and every player's perfect count increments.
// The bids map must already be validated against the active roster.
func (g *Game) ApplyAutoAward(round int, bids map[string]int) {
	g.EnsurePerfectCounts()
	rec := g.Round(round)

	rec.Bids = map[string]int{}
	rec.Actuals = map[string]int{}
	rec.Points = map[string]float64{}

	for _, p := range g.Players {
		bid := bids[p.ID]
		rec.Bids[p.ID] = bid
		rec.Points[p.ID] = AutoAwardPoints(bid)
		g.PerfectCounts[p.ID]++
	}
	rec.Status = RoundAutoAwarded

	g.SnapshotRound(round, RoundSnapshot{
		Type:    EventAutoAwarded,
		Bids:    copyBids(rec.Bids),
		Actuals: map[string]int{},
		Points:  copyPoints(rec.Points),
		Status:  rec.Status,
	}, true)
	g.PushRoundEvent(round, RoundEvent{Type: EventAutoAwarded, Bids: copyBids(rec.Bids)})
}

// ScorePlayedRound computes points from the round's bid/actual pairs,
// marks it PLAYED, and increments perfect counts for exact matches.
// Bids and actuals must already be complete and validated.
func (g *Game) ScorePlayedRound(round int) {
	g.EnsurePerfectCounts()
	rec := g.Round(round)
	rec.Points = map[string]float64{}

	for _, p := range g.Players {
		bid := rec.Bids[p.ID]
		actual := rec.Actuals[p.ID]
		rec.Points[p.ID] = Points(bid, actual)
		if actual == bid {
			g.PerfectCounts[p.ID]++
		}
	}
	rec.Status = RoundPlayed

	g.SnapshotRound(round, RoundSnapshot{
		Type:    EventPlayed,
		Bids:    copyBids(rec.Bids),
		Actuals: copyBids(rec.Actuals),
		Points:  copyPoints(rec.Points),
		Status:  rec.Status,
	}, true)
	g.PushRoundEvent(round, RoundEvent{
		Type:    EventPlayed,
		Bids:    copyBids(rec.Bids),
		Actuals: copyBids(rec.Actuals),
	})
}
