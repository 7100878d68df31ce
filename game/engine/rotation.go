package engine

// DealerRotation computes RoundInfo for rounds 1..rounds from the seat
// order and an optional starting dealer. Round r's dealer is
// baseOrder[(r-1) mod 4] where baseOrder is the roster rotated so the
// starting dealer sits at index 0. Bidding proceeds from the seat after
// the dealer, wrapping, with the dealer bidding last.
//
// The function is total and idempotent: the same inputs always produce
// the same rotation. It runs at game creation, after seat reorders and
// substitutions, and when a series continues into its next game.
func DealerRotation(players []Player, rounds int, startDealerID string) (map[int]*RoundInfo, error) {
	if len(players) != 4 {
		return nil, Validationf("Game requires exactly 4 players.")
	}

	base := make([]Player, len(players))
	copy(base, players)
	if startDealerID != "" {
		for i, p := range players {
			if p.ID == startDealerID {
				base = append(base[:0], players[i:]...)
				base = append(base, players[:i]...)
				break
			}
		}
	}

	info := make(map[int]*RoundInfo, rounds)
	for round := 1; round <= rounds; round++ {
		dealerIndex := (round - 1) % len(base)
		order := make([]string, 0, len(base))
		for _, p := range base[dealerIndex+1:] {
			order = append(order, p.ID)
		}
		for _, p := range base[:dealerIndex+1] {
			order = append(order, p.ID)
		}
		info[round] = &RoundInfo{DealerID: base[dealerIndex].ID, BidderOrder: order}
	}
	return info, nil
}
