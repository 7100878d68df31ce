package engine

import "math"

// round1 rounds to one decimal place. Scores are always multiples of
// 0.1, so a single stable rounding step is enough to keep float noise
// out of comparisons and JSON output.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Points computes a player's score for a played round. Falling short of
// the bid forfeits the full bid value; making it scores the bid plus a
// tenth of a point per overtrick.
//
//	Points(5, 5) == 5
//	Points(5, 7) == 5.2
//	Points(5, 3) == -5
//	Points(8, 13) == 8.5
func Points(bid, actual int) float64 {
	if actual < bid {
		return float64(-bid)
	}
	return round1(float64(bid) + float64(actual-bid)/10)
}

// AutoAwardPoints is the score granted to every player when a round is
// auto-awarded: the bid plus a tenth, as if each player made their bid
// with one overtrick.
func AutoAwardPoints(bid int) float64 {
	return round1(float64(bid) + 0.1)
}
