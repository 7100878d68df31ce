package engine

import "time"

// Clone returns a deep copy of the game. Read paths hand clones out so
// the stored record can never be mutated through a returned view, and
// marshaling a clone needs no lock. Nil maps and slices stay nil so the
// JSON form is unchanged.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g

	out.Players = clonePlayers(g.Players)
	out.InactivePlayers = clonePlayers(g.InactivePlayers)
	out.SettlementConfig.Weights = cloneFloats(g.SettlementConfig.Weights)
	out.PerfectCounts = cloneIntMap(g.PerfectCounts)
	out.PayoutLedger = cloneFloatMap(g.PayoutLedger)
	out.ResolvedAt = cloneTime(g.ResolvedAt)

	if g.RoundInfo != nil {
		out.RoundInfo = make(map[int]*RoundInfo, len(g.RoundInfo))
		for round, info := range g.RoundInfo {
			out.RoundInfo[round] = &RoundInfo{
				DealerID:    info.DealerID,
				BidderOrder: cloneStrings(info.BidderOrder),
			}
		}
	}
	if g.RoundData != nil {
		out.RoundData = make(map[int]*RoundRecord, len(g.RoundData))
		for round, rec := range g.RoundData {
			out.RoundData[round] = &RoundRecord{
				Bids:    cloneIntMap(rec.Bids),
				Actuals: cloneIntMap(rec.Actuals),
				Points:  cloneFloatMap(rec.Points),
				Status:  rec.Status,
			}
		}
	}
	if g.HighBid != nil {
		hb := *g.HighBid
		hb.BidderIDs = cloneStrings(g.HighBid.BidderIDs)
		out.HighBid = &hb
	}
	out.LastSettlementResult = g.LastSettlementResult.clone()

	if g.RoundHistory != nil {
		out.RoundHistory = make(map[int]*RoundSnapshot, len(g.RoundHistory))
		for round, snap := range g.RoundHistory {
			c := *snap
			c.Bids = cloneIntMap(snap.Bids)
			c.Actuals = cloneIntMap(snap.Actuals)
			c.Points = cloneFloatMap(snap.Points)
			out.RoundHistory[round] = &c
		}
	}
	if g.RoundEvents != nil {
		out.RoundEvents = make(map[int][]RoundEvent, len(g.RoundEvents))
		for round, events := range g.RoundEvents {
			copied := make([]RoundEvent, len(events))
			for i, ev := range events {
				copied[i] = ev
				copied[i].Bids = cloneIntMap(ev.Bids)
				copied[i].Actuals = cloneIntMap(ev.Actuals)
				copied[i].BidderIDs = cloneStrings(ev.BidderIDs)
				copied[i].OpponentIDs = cloneStrings(ev.OpponentIDs)
			}
			out.RoundEvents[round] = copied
		}
	}
	return &out
}

func (r *SettlementResult) clone() *SettlementResult {
	if r == nil {
		return nil
	}
	out := *r
	out.AppliedAt = cloneTime(r.AppliedAt)
	out.TotalsPoints = cloneFloatMap(r.TotalsPoints)
	out.Weights = cloneFloats(r.Weights)
	out.PerPlayerDelta = cloneFloatMap(r.PerPlayerDelta)
	out.PerfectCounts = cloneIntMap(r.PerfectCounts)
	if r.Ranking != nil {
		out.Ranking = make([]RankedPlayer, len(r.Ranking))
		for i, rp := range r.Ranking {
			out.Ranking[i] = rp
			out.Ranking[i].PointsByRound = cloneFloats(rp.PointsByRound)
		}
	}
	if r.Payouts != nil {
		out.Payouts = append([]Payout(nil), r.Payouts...)
	}
	return &out
}

func clonePlayers(s []Player) []Player {
	if s == nil {
		return nil
	}
	return append([]Player(nil), s...)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneFloats(s []float64) []float64 {
	if s == nil {
		return nil
	}
	return append([]float64(nil), s...)
}

func cloneIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
