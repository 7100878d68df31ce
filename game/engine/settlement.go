package engine

import (
	"math"
	"sort"
)

const pointEpsilon = 1e-6

// priorityFor derives the ranking override tag from a player's
// per-round point sequence. Priority 2: the sorted points are exactly
// {1,2,3,4,5}. Priority 1: all five points are equal. Anything else,
// including an incomplete sequence, is priority 0.
//
// This is a house rule, not a tie-break: a priority-2 player outranks a
// higher raw total outright. Do not "simplify" it into a total-points
// comparison.
func priorityFor(pointsByRound []float64, rounds int) int {
	if len(pointsByRound) != rounds {
		return 0
	}

	constant := true
	for _, p := range pointsByRound {
		if math.Abs(p-pointsByRound[0]) >= pointEpsilon {
			constant = false
			break
		}
	}

	if rounds == DefaultRounds {
		sorted := make([]float64, len(pointsByRound))
		copy(sorted, pointsByRound)
		sort.Float64s(sorted)
		sequence := true
		for i, p := range sorted {
			if math.Abs(p-float64(i+1)) >= pointEpsilon {
				sequence = false
				break
			}
		}
		if sequence {
			return 2
		}
	}

	if constant {
		return 1
	}
	return 0
}

// ComputeSettlement ranks the four players and derives the payout
// transfers. It is a pure preview: callers may recompute it any number
// of times; applying it to the ledger is the service layer's one-shot
// resolution step.
//
// Ranking is a stable sort by (priority desc, total desc); any further
// tie keeps seat order. Base units owed by each loser come from the
// configured weights (index 0 = 2nd place), doubled when the winner
// totals over 20, and doubled again for a loser whose own total is
// negative.
func (g *Game) ComputeSettlement() (*SettlementResult, error) {
	totals := g.TotalsPoints()

	ranked := make([]RankedPlayer, 0, len(g.Players))
	for _, p := range g.Players {
		entry := RankedPlayer{
			ID:            p.ID,
			Name:          p.Name,
			Total:         totals[p.ID],
			PointsByRound: []float64{},
			Active:        true,
		}

		complete := true
		pointsByRound := make([]float64, 0, g.Rounds)
		for round := 1; round <= g.Rounds; round++ {
			rec, ok := g.RoundData[round]
			if !ok {
				complete = false
				break
			}
			pts, ok := rec.Points[p.ID]
			if !ok {
				complete = false
				break
			}
			pointsByRound = append(pointsByRound, round1(pts))
		}
		if complete {
			entry.PointsByRound = pointsByRound
			entry.Priority = priorityFor(pointsByRound, g.Rounds)
		}
		ranked = append(ranked, entry)
	}

	if len(ranked) != 4 {
		return nil, Validationf("Invalid players")
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		return ranked[i].Total > ranked[j].Total
	})

	g.EnsurePerfectCounts()

	winner, second, third, fourth := ranked[0], ranked[1], ranked[2], ranked[3]
	weights := g.SettlementConfig.Weights
	if len(weights) != 3 {
		weights = []float64{1, 2, 3}
	}
	stake := g.SettlementConfig.Stake
	if stake <= 0 {
		stake = 1
	}
	winnerOver20 := winner.Total > 20

	base := map[string]float64{
		second.ID: weights[0],
		third.ID:  weights[1],
		fourth.ID: weights[2],
	}
	unitsFor := func(loser RankedPlayer) float64 {
		units := base[loser.ID]
		if winnerOver20 {
			units *= 2
		}
		if loser.Total < 0 {
			units *= 2
		}
		return units
	}

	payouts := make([]Payout, 0, 3)
	for _, loser := range []RankedPlayer{second, third, fourth} {
		units := unitsFor(loser)
		payouts = append(payouts, Payout{
			FromPlayerID: loser.ID,
			ToPlayerID:   winner.ID,
			Units:        units,
			Amount:       units * stake,
		})
	}

	delta := make(map[string]float64, len(g.Players))
	for _, p := range g.Players {
		delta[p.ID] = 0
	}
	for _, payout := range payouts {
		delta[payout.FromPlayerID] -= payout.Amount
		delta[payout.ToPlayerID] += payout.Amount
	}

	perfect := make(map[string]int, len(g.PerfectCounts))
	for id, count := range g.PerfectCounts {
		perfect[id] = count
	}

	return &SettlementResult{
		TotalsPoints:   totals,
		Ranking:        ranked,
		Weights:        weights,
		Stake:          stake,
		WinnerOver20:   winnerOver20,
		Payouts:        payouts,
		PerPlayerDelta: delta,
		PerfectCounts:  perfect,
	}, nil
}
