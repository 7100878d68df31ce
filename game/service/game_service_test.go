package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/callbreaklive/server/game/engine"
	"github.com/callbreaklive/server/game/session"
)

// fakeIDs mints deterministic tokens so tests can address games and
// players by predictable ids.
type fakeIDs struct {
	games   int
	admins  int
	players int
	series  int
}

func (f *fakeIDs) GameID() string   { f.games++; return fmt.Sprintf("GAME%04d", f.games) }
func (f *fakeIDs) AdminKey() string { f.admins++; return fmt.Sprintf("ADMIN%04d", f.admins) }
func (f *fakeIDs) PlayerID() string { f.players++; return fmt.Sprintf("p%d", f.players) }
func (f *fakeIDs) SeriesID() string { f.series++; return fmt.Sprintf("SERIES%03d", f.series) }

func floatPtr(v float64) *float64 { return &v }

func newTestService(t *testing.T) (GameService, *CreateGameResult) {
	t.Helper()

	svc := NewGameService(session.NewMemoryStore(), &fakeIDs{})
	result, err := svc.CreateGame(context.Background(), CreateGameRequest{
		Name:    "Friday Night",
		Players: []string{"Asha", "Bikram", "Chand", "Devi"},
		Weights: []float64{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	return svc, result
}

// playAllRounds drives a fresh game through five played rounds. pa ends
// winner at 15.2; pb, pc, pd tie at 15.1 and rank in seat order.
func playAllRounds(t *testing.T, svc GameService, gameID, adminKey string) {
	t.Helper()
	ctx := context.Background()

	bids := map[string]int{"p1": 3, "p2": 3, "p3": 3, "p4": 3}
	actuals := map[int]map[string]int{
		1: {"p1": 4, "p2": 3, "p3": 3, "p4": 3},
		2: {"p1": 3, "p2": 4, "p3": 3, "p4": 3},
		3: {"p1": 3, "p2": 3, "p3": 4, "p4": 3},
		4: {"p1": 3, "p2": 3, "p3": 3, "p4": 4},
		5: {"p1": 4, "p2": 3, "p3": 3, "p4": 3},
	}

	for round := 1; round <= 5; round++ {
		if _, err := svc.SetBids(ctx, gameID, adminKey, round, bids); err != nil {
			t.Fatalf("SetBids round %d failed: %v", round, err)
		}
		if _, err := svc.SetActuals(ctx, gameID, adminKey, round, actuals[round]); err != nil {
			t.Fatalf("SetActuals round %d failed: %v", round, err)
		}
	}
}

func TestCreateGame(t *testing.T) {
	_, result := newTestService(t)

	if result.GameID != "GAME0001" {
		t.Errorf("GameID = %s, want GAME0001", result.GameID)
	}
	if result.GameIndex != 1 {
		t.Errorf("GameIndex = %d, want 1", result.GameIndex)
	}
	if len(result.Players) != 4 {
		t.Fatalf("Expected 4 players, got %d", len(result.Players))
	}
	if result.Players[0].Name != "Asha" || result.Players[0].ID != "p1" {
		t.Errorf("First player = %+v, want Asha/p1", result.Players[0])
	}
	if !result.Settings.AutoAwardEnabled {
		t.Error("Auto-award should default to enabled")
	}
	if !result.SettlementConfig.Locked {
		t.Error("Settlement config should be locked at creation")
	}
	if len(result.RoundInfo) != 5 {
		t.Errorf("Expected rotation for 5 rounds, got %d", len(result.RoundInfo))
	}
	if result.StartDealerID != "p1" {
		t.Errorf("Default start dealer = %s, want first seat p1", result.StartDealerID)
	}
	if result.SettlementConfig.Stake != 1 {
		t.Errorf("Omitted stake = %v, want default 1", result.SettlementConfig.Stake)
	}
}

func TestCreateGameStartDealerByName(t *testing.T) {
	svc := NewGameService(session.NewMemoryStore(), &fakeIDs{})
	result, err := svc.CreateGame(context.Background(), CreateGameRequest{
		Name:            "Friday Night",
		Players:         []string{"Asha", "Bikram", "Chand", "Devi"},
		Weights:         []float64{1, 2, 3},
		StartDealerName: "chand",
	})
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if result.StartDealerID != "p3" {
		t.Errorf("Start dealer = %s, want p3 (name match is case-insensitive)", result.StartDealerID)
	}
}

func TestCreateGameValidation(t *testing.T) {
	svc := NewGameService(session.NewMemoryStore(), &fakeIDs{})
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateGameRequest
	}{
		{"missing name", CreateGameRequest{Players: []string{"A", "B", "C", "D"}, Weights: []float64{1, 2, 3}}},
		{"three players", CreateGameRequest{Name: "G", Players: []string{"A", "B", "C"}, Weights: []float64{1, 2, 3}}},
		{"two weights", CreateGameRequest{Name: "G", Players: []string{"A", "B", "C", "D"}, Weights: []float64{1, 2}}},
		{"negative weight", CreateGameRequest{Name: "G", Players: []string{"A", "B", "C", "D"}, Weights: []float64{1, -2, 3}}},
		{"negative stake", CreateGameRequest{Name: "G", Players: []string{"A", "B", "C", "D"}, Weights: []float64{1, 2, 3}, Stake: floatPtr(-1)}},
		{"explicit zero stake", CreateGameRequest{Name: "G", Players: []string{"A", "B", "C", "D"}, Weights: []float64{1, 2, 3}, Stake: floatPtr(0)}},
		{"blank player name", CreateGameRequest{Name: "G", Players: []string{"A", " ", "C", "D"}, Weights: []float64{1, 2, 3}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateGame(ctx, tc.req)
			var e *engine.Error
			if !errors.As(err, &e) || e.Kind != engine.KindValidation {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestSetBidsRecordsRound(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	result, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 2, "p4": 1})
	if err != nil {
		t.Fatalf("SetBids failed: %v", err)
	}

	if result.AutoAwarded {
		t.Error("Sum 10 should not auto-award")
	}
	if result.RoundData.Status != engine.RoundBidsSet {
		t.Errorf("Status = %s, want %s", result.RoundData.Status, engine.RoundBidsSet)
	}
	if result.RoundData.Bids["p1"] != 4 {
		t.Errorf("Bid for p1 = %d, want 4", result.RoundData.Bids["p1"])
	}
	if len(result.RoundData.Actuals) != 0 || len(result.RoundData.Points) != 0 {
		t.Error("Re-entering bids must clear stale actuals and points")
	}
}

func TestSetBidsEventLogDetachedFromRound(t *testing.T) {
	store := session.NewMemoryStore()
	svc := NewGameService(store, &fakeIDs{})
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, CreateGameRequest{
		Name:    "Friday Night",
		Players: []string{"Asha", "Bikram", "Chand", "Devi"},
		Weights: []float64{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if _, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 2, "p4": 1}); err != nil {
		t.Fatalf("SetBids failed: %v", err)
	}

	// Mutating the stored round record must not rewrite the logged
	// event.
	live, ok := store.Get(game.GameID)
	if !ok {
		t.Fatal("Stored game not found")
	}
	live.RoundData[1].Bids["p1"] = 99

	events := live.RoundEvents[1]
	if len(events) == 0 {
		t.Fatal("Expected a logged event for round 1")
	}
	if events[0].Type != engine.EventBidsSet {
		t.Fatalf("Event type = %s, want %s", events[0].Type, engine.EventBidsSet)
	}
	if events[0].Bids["p1"] != 4 {
		t.Errorf("Logged bid for p1 = %d, want 4", events[0].Bids["p1"])
	}
}

func TestSetBidsValidation(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		bids map[string]int
	}{
		{"zero bid", map[string]int{"p1": 0, "p2": 3, "p3": 3, "p4": 3}},
		{"bid above 13", map[string]int{"p1": 14, "p2": 3, "p3": 3, "p4": 3}},
		{"missing player", map[string]int{"p1": 3, "p2": 3, "p3": 3}},
		{"unknown player", map[string]int{"p1": 3, "p2": 3, "p3": 3, "zz": 3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 1, tc.bids)
			var e *engine.Error
			if !errors.As(err, &e) || e.Kind != engine.KindValidation {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	if _, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 6,
		map[string]int{"p1": 3, "p2": 3, "p3": 3, "p4": 3}); err == nil {
		t.Error("Expected error for round 6")
	}
}

func TestSetBidsAutoAward(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	result, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 2, "p2": 3, "p3": 1, "p4": 2})
	if err != nil {
		t.Fatalf("SetBids failed: %v", err)
	}

	if !result.AutoAwarded {
		t.Fatal("Sum 8 should auto-award")
	}
	if result.RoundData.Status != engine.RoundAutoAwarded {
		t.Errorf("Status = %s, want %s", result.RoundData.Status, engine.RoundAutoAwarded)
	}
	if math.Abs(result.RoundData.Points["p2"]-3.1) > 1e-9 {
		t.Errorf("p2 auto-award points = %v, want 3.1", result.RoundData.Points["p2"])
	}
}

func TestSetBidsNoAutoAwardInFinalRound(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	result, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 5,
		map[string]int{"p1": 2, "p2": 3, "p3": 1, "p4": 2})
	if err != nil {
		t.Fatalf("SetBids failed: %v", err)
	}
	if result.AutoAwarded {
		t.Error("Round 5 never auto-awards")
	}
}

func TestSetBidsHighBid(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 2,
		map[string]int{"p1": 8, "p2": 3, "p3": 3, "p4": 3})

	var highBid *engine.HighBidError
	if !errors.As(err, &highBid) {
		t.Fatalf("Expected HighBidError, got %v", err)
	}
	if highBid.Round != 2 {
		t.Errorf("HighBidError round = %d, want 2", highBid.Round)
	}
	if len(highBid.BidderIDs) != 1 || highBid.BidderIDs[0] != "p1" {
		t.Errorf("BidderIDs = %v, want [p1]", highBid.BidderIDs)
	}

	// Nothing about the bids themselves is persisted.
	stored, err := svc.Game(ctx, game.GameID)
	if err != nil {
		t.Fatalf("Game failed: %v", err)
	}
	if rec, ok := stored.RoundData[2]; ok && len(rec.Bids) != 0 {
		t.Errorf("High bid must not persist bids, got %v", rec.Bids)
	}

	state, err := svc.HighBidState(ctx, game.GameID)
	if err != nil {
		t.Fatalf("HighBidState failed: %v", err)
	}
	if state == nil || !state.Active || state.Round != 2 {
		t.Errorf("High bid state = %+v, want active round 2", state)
	}
}

func TestSetBidsValidationBeatsHighBid(t *testing.T) {
	svc, game := newTestService(t)

	_, err := svc.SetBids(context.Background(), game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 8, "p2": 0, "p3": 3, "p4": 3})

	var highBid *engine.HighBidError
	if errors.As(err, &highBid) {
		t.Fatal("Malformed bids must fail validation before the high-bid check")
	}
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestSetBidsClearsStaleHighBid(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 8, "p2": 3, "p3": 3, "p4": 3})

	// Re-entering bids below the threshold clears the flag.
	if _, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 2, "p4": 1}); err != nil {
		t.Fatalf("SetBids failed: %v", err)
	}

	state, _ := svc.HighBidState(ctx, game.GameID)
	if state != nil {
		t.Errorf("High bid flag should clear on successful re-entry, got %+v", state)
	}
}

func TestResolveHighBid(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 8, "p2": 3, "p3": 3, "p4": 3})

	result, err := svc.ResolveHighBid(ctx, game.GameID, game.AdminKey, ResolveHighBidRequest{
		Round:    1,
		BidderID: "p1",
		WinnerID: "p1",
		Stake:    3,
	})
	if err != nil {
		t.Fatalf("ResolveHighBid failed: %v", err)
	}

	// Bidder wins the stake against each of three opponents.
	if result.PayoutLedger["p1"] != 9 {
		t.Errorf("Bidder ledger = %v, want 9", result.PayoutLedger["p1"])
	}
	for _, id := range []string{"p2", "p3", "p4"} {
		if result.PayoutLedger[id] != -3 {
			t.Errorf("Opponent %s ledger = %v, want -3", id, result.PayoutLedger[id])
		}
	}

	state, _ := svc.HighBidState(ctx, game.GameID)
	if state != nil {
		t.Error("High bid flag should clear after resolution")
	}
}

func TestResolveHighBidBidderLoses(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 9, "p2": 3, "p3": 3, "p4": 3})

	lost := false
	result, err := svc.ResolveHighBid(ctx, game.GameID, game.AdminKey, ResolveHighBidRequest{
		Round:     1,
		BidderID:  "p1",
		BidderWon: &lost,
		Stake:     2,
	})
	if err != nil {
		t.Fatalf("ResolveHighBid failed: %v", err)
	}

	if result.PayoutLedger["p1"] != -6 {
		t.Errorf("Bidder ledger = %v, want -6", result.PayoutLedger["p1"])
	}
	if result.PayoutLedger["p2"] != 2 {
		t.Errorf("Opponent ledger = %v, want 2", result.PayoutLedger["p2"])
	}
}

func TestResolveHighBidWithoutActiveFlag(t *testing.T) {
	svc, game := newTestService(t)

	_, err := svc.ResolveHighBid(context.Background(), game.GameID, game.AdminKey,
		ResolveHighBidRequest{Round: 1, BidderID: "p1", WinnerID: "p1"})
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindState {
		t.Errorf("Expected state error, got %v", err)
	}
}

func TestCancelHighBid(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	svc.SetBids(ctx, game.GameID, game.AdminKey, 3,
		map[string]int{"p1": 8, "p2": 3, "p3": 3, "p4": 3})

	result, err := svc.CancelHighBid(ctx, game.GameID, game.AdminKey, 3)
	if err != nil {
		t.Fatalf("CancelHighBid failed: %v", err)
	}

	if result.RoundData.Status != engine.RoundEmpty {
		t.Errorf("Status = %s, want empty", result.RoundData.Status)
	}
	if len(result.RoundData.Bids) != 0 {
		t.Errorf("Bids should be cleared, got %v", result.RoundData.Bids)
	}

	state, _ := svc.HighBidState(ctx, game.GameID)
	if state != nil {
		t.Error("High bid flag should clear on cancel")
	}

	// The cancel itself never moves money.
	summary, _ := svc.Summary(ctx, game.GameID)
	for id, balance := range summary.Payouts {
		if balance != 0 {
			t.Errorf("Ledger for %s = %v, want 0 after cancel", id, balance)
		}
	}
}

func TestSetActuals(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 2, "p4": 1})

	result, err := svc.SetActuals(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 6, "p2": 3, "p3": 1, "p4": 3})
	if err != nil {
		t.Fatalf("SetActuals failed: %v", err)
	}

	if result.RoundData.Status != engine.RoundPlayed {
		t.Errorf("Status = %s, want %s", result.RoundData.Status, engine.RoundPlayed)
	}

	want := map[string]float64{"p1": 4.2, "p2": 3, "p3": -2, "p4": 1.2}
	for id, points := range want {
		if math.Abs(result.RoundData.Points[id]-points) > 1e-9 {
			t.Errorf("Points[%s] = %v, want %v", id, result.RoundData.Points[id], points)
		}
	}
}

func TestSetActualsValidation(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	// Actuals before bids.
	_, err := svc.SetActuals(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 3, "p4": 3})
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindState {
		t.Errorf("Expected state error for actuals before bids, got %v", err)
	}

	svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 2, "p4": 1})

	// Sum must be exactly 13.
	_, err = svc.SetActuals(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 3, "p4": 4})
	if !errors.As(err, &e) || e.Kind != engine.KindValidation {
		t.Errorf("Expected validation error for sum 14, got %v", err)
	}

	// A failed submission writes nothing.
	stored, _ := svc.Game(ctx, game.GameID)
	if len(stored.RoundData[1].Actuals) != 0 {
		t.Errorf("Failed actuals must not persist, got %v", stored.RoundData[1].Actuals)
	}
}

func TestSetActualsRejectsAutoAwardedRound(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 2, "p2": 3, "p3": 1, "p4": 2})

	_, err := svc.SetActuals(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 3, "p4": 3})
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindState {
		t.Errorf("Expected state error for auto-awarded round, got %v", err)
	}
}

func TestResolveGame(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	// Not all rounds resolved yet.
	_, err := svc.ResolveGame(ctx, game.GameID, game.AdminKey)
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindState {
		t.Errorf("Expected state error before rounds complete, got %v", err)
	}

	playAllRounds(t, svc, game.GameID, game.AdminKey)

	result, err := svc.ResolveGame(ctx, game.GameID, game.AdminKey)
	if err != nil {
		t.Fatalf("ResolveGame failed: %v", err)
	}

	// pa wins 1+2+3 units at stake 1; losers pay their weight.
	want := map[string]float64{"p1": 6, "p2": -1, "p3": -2, "p4": -3}
	sum := 0.0
	for id, balance := range want {
		if math.Abs(result.PayoutLedger[id]-balance) > 1e-9 {
			t.Errorf("Ledger[%s] = %v, want %v", id, result.PayoutLedger[id], balance)
		}
		sum += result.PayoutLedger[id]
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("Ledger sums to %v, want 0", sum)
	}

	// One-shot: a second resolution is a state error.
	_, err = svc.ResolveGame(ctx, game.GameID, game.AdminKey)
	if !errors.As(err, &e) || e.Kind != engine.KindState {
		t.Errorf("Expected state error on repeat resolution, got %v", err)
	}

	stored, _ := svc.Game(ctx, game.GameID)
	if !stored.SettlementApplied || stored.LastSettlementResult == nil {
		t.Error("Resolution should freeze the settlement result")
	}
	if !stored.LastSettlementResult.Applied || stored.LastSettlementResult.AppliedAt == nil {
		t.Error("Frozen result should carry Applied and AppliedAt")
	}
}

func TestEditingLockedAfterResolution(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	playAllRounds(t, svc, game.GameID, game.AdminKey)
	if _, err := svc.ResolveGame(ctx, game.GameID, game.AdminKey); err != nil {
		t.Fatalf("ResolveGame failed: %v", err)
	}

	_, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 2, "p4": 1})
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindState {
		t.Errorf("Expected state error editing a settled game, got %v", err)
	}
}

func TestSummarySettlementPreview(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	summary, err := svc.Summary(ctx, game.GameID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Settlement != nil {
		t.Error("Fresh game should have no settlement preview")
	}

	playAllRounds(t, svc, game.GameID, game.AdminKey)

	summary, _ = svc.Summary(ctx, game.GameID)
	if summary.Settlement == nil {
		t.Fatal("All rounds resolved, expected a settlement preview")
	}
	if summary.Settlement.Applied {
		t.Error("Preview should not be marked applied")
	}
	if summary.Settlement.Ranking[0].ID != "p1" {
		t.Errorf("Preview winner = %s, want p1", summary.Settlement.Ranking[0].ID)
	}
}

func TestStartNextGame(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	// Continuation requires an applied settlement.
	_, err := svc.StartNextGame(ctx, game.GameID, game.AdminKey)
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindState {
		t.Errorf("Expected state error before resolution, got %v", err)
	}

	playAllRounds(t, svc, game.GameID, game.AdminKey)
	svc.ResolveGame(ctx, game.GameID, game.AdminKey)

	next, err := svc.StartNextGame(ctx, game.GameID, game.AdminKey)
	if err != nil {
		t.Fatalf("StartNextGame failed: %v", err)
	}

	if next.GameIndex != 2 {
		t.Errorf("GameIndex = %d, want 2", next.GameIndex)
	}
	if next.SeriesID != game.SeriesID {
		t.Errorf("SeriesID = %s, want %s", next.SeriesID, game.SeriesID)
	}
	if next.AdminKey == game.AdminKey {
		t.Error("Next game should mint a fresh admin key")
	}

	// The settlement loser deals first.
	if next.RoundInfo[1].DealerID != "p4" {
		t.Errorf("Next game round 1 dealer = %s, want loser p4", next.RoundInfo[1].DealerID)
	}

	// Ledger carries forward, perfect counts reset.
	stored, err := svc.Game(ctx, next.GameID)
	if err != nil {
		t.Fatalf("Game failed for next game: %v", err)
	}
	if stored.PayoutLedger["p1"] != 6 {
		t.Errorf("Carried ledger for p1 = %v, want 6", stored.PayoutLedger["p1"])
	}
	for id, count := range stored.PerfectCounts {
		if count != 0 {
			t.Errorf("Perfect count for %s = %d, want reset to 0", id, count)
		}
	}

	// The old game is archived and hidden from the public view, with a
	// redirect recorded for its viewers.
	if _, err := svc.Game(ctx, game.GameID); err == nil {
		t.Error("Archived game should be hidden from the public view")
	}
	target, ok := svc.Redirect(game.GameID)
	if !ok || target != next.GameID {
		t.Errorf("Redirect = %q, %v, want %s", target, ok, next.GameID)
	}
}

func TestHistoryLockedUntilResolved(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	_, err := svc.History(ctx, game.GameID)
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindLocked {
		t.Fatalf("Expected locked error, got %v", err)
	}
	if e.Code != "HISTORY_LOCKED_UNTIL_GAME_RESOLVED" {
		t.Errorf("Locked error code = %s", e.Code)
	}

	playAllRounds(t, svc, game.GameID, game.AdminKey)
	svc.ResolveGame(ctx, game.GameID, game.AdminKey)

	history, err := svc.History(ctx, game.GameID)
	if err != nil {
		t.Fatalf("History failed after resolution: %v", err)
	}
	if len(history.RoundHistory) != 5 {
		t.Errorf("Round history has %d entries, want 5", len(history.RoundHistory))
	}
	if history.ResolvedAt == nil {
		t.Error("History should carry the resolution time")
	}
}

func TestReorderPlayers(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	result, err := svc.ReorderPlayers(ctx, game.GameID, game.AdminKey,
		[]string{"p3", "p1", "p4", "p2"}, "p4")
	if err != nil {
		t.Fatalf("ReorderPlayers failed: %v", err)
	}

	if result.Players[0].ID != "p3" || result.Players[3].ID != "p2" {
		t.Errorf("Reordered roster = %v", result.Players)
	}
	if result.RoundInfo[1].DealerID != "p4" {
		t.Errorf("Round 1 dealer = %s, want p4", result.RoundInfo[1].DealerID)
	}

	_, err = svc.ReorderPlayers(ctx, game.GameID, game.AdminKey,
		[]string{"p1", "p1", "p2", "p3"}, "")
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindValidation {
		t.Errorf("Expected validation error for duplicate ids, got %v", err)
	}
}

func TestSubstitutePlayer(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	result, err := svc.SubstitutePlayer(ctx, game.GameID, game.AdminKey, SubstituteRequest{
		OutgoingPlayerID: "p2",
		IncomingName:     "Eshan",
	})
	if err != nil {
		t.Fatalf("SubstitutePlayer failed: %v", err)
	}

	if result.Players[1].Name != "Eshan" {
		t.Errorf("Seat 2 = %+v, want Eshan", result.Players[1])
	}
	if len(result.InactivePlayers) != 1 || result.InactivePlayers[0].ID != "p2" {
		t.Errorf("Bench = %v, want [p2]", result.InactivePlayers)
	}

	// The original round-1 dealer (p1) survives, so the rotation keeps
	// them dealing first.
	if result.RoundInfo[1].DealerID != "p1" {
		t.Errorf("Round 1 dealer = %s, want p1", result.RoundInfo[1].DealerID)
	}

	// Benched players keep their ledger entry.
	stored, _ := svc.Game(ctx, game.GameID)
	if _, ok := stored.PayoutLedger["p2"]; !ok {
		t.Error("Benched player should keep a ledger entry")
	}
}

func TestSubstituteRejectedAfterFirstRound(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 2, "p4": 1})

	_, err := svc.SubstitutePlayer(ctx, game.GameID, game.AdminKey, SubstituteRequest{
		OutgoingPlayerID: "p2",
		IncomingName:     "Eshan",
	})
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindState {
		t.Errorf("Expected state error substituting mid-game, got %v", err)
	}
}

func TestSetBidderOrder(t *testing.T) {
	svc, game := newTestService(t)

	info, err := svc.SetBidderOrder(context.Background(), game.GameID, game.AdminKey, 2,
		[]string{"p4", "p3", "p2", "p1"})
	if err != nil {
		t.Fatalf("SetBidderOrder failed: %v", err)
	}

	if info.DealerID != "p1" {
		t.Errorf("Dealer = %s, want last entry p1", info.DealerID)
	}
	if info.BidderOrder[0] != "p4" {
		t.Errorf("First bidder = %s, want p4", info.BidderOrder[0])
	}
}

func TestUpdateSettingsDisablesAutoAward(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	disabled := false
	settings, err := svc.UpdateSettings(ctx, game.GameID, game.AdminKey,
		SettingsUpdate{AutoAwardEnabled: &disabled})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if settings.AutoAwardEnabled {
		t.Error("Auto-award should be disabled")
	}

	// A low-sum bid set now records normally instead of auto-awarding.
	result, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 2, "p2": 3, "p3": 1, "p4": 2})
	if err != nil {
		t.Fatalf("SetBids failed: %v", err)
	}
	if result.AutoAwarded {
		t.Error("Auto-award disabled, bids should record as BIDS_SET")
	}
}

func TestAdminKeyRequired(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetBids(ctx, game.GameID, "WRONGKEY", 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 2, "p4": 1})
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindAuthorization {
		t.Errorf("Expected authorization error, got %v", err)
	}
}

func TestSeriesListing(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	playAllRounds(t, svc, game.GameID, game.AdminKey)
	svc.ResolveGame(ctx, game.GameID, game.AdminKey)
	next, err := svc.StartNextGame(ctx, game.GameID, game.AdminKey)
	if err != nil {
		t.Fatalf("StartNextGame failed: %v", err)
	}

	series, err := svc.SeriesByGame(ctx, next.GameID)
	if err != nil {
		t.Fatalf("SeriesByGame failed: %v", err)
	}
	if len(series.Games) != 2 {
		t.Fatalf("Series has %d games, want 2", len(series.Games))
	}
	if series.Games[0].GameIndex != 1 || series.Games[1].GameIndex != 2 {
		t.Errorf("Series games out of order: %+v", series.Games)
	}
	if !series.Games[0].Archived || series.Games[1].Archived {
		t.Error("First game archived, second live")
	}

	byID, err := svc.SeriesByID(ctx, game.SeriesID)
	if err != nil {
		t.Fatalf("SeriesByID failed: %v", err)
	}
	if len(byID.Games) != 2 {
		t.Errorf("SeriesByID has %d games, want 2", len(byID.Games))
	}

	if _, err := svc.SeriesByID(ctx, "NOSUCHSERIES"); err == nil {
		t.Error("Expected not-found error for unknown series")
	}
}

func TestGameNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Game(context.Background(), "MISSING")
	var e *engine.Error
	if !errors.As(err, &e) || e.Kind != engine.KindNotFound {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestReadViewsAreDetached(t *testing.T) {
	svc, game := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SetBids(ctx, game.GameID, game.AdminKey, 1,
		map[string]int{"p1": 4, "p2": 3, "p3": 2, "p4": 1}); err != nil {
		t.Fatalf("SetBids failed: %v", err)
	}

	// Mutating a returned game record must not reach the stored state.
	view, err := svc.Game(ctx, game.GameID)
	if err != nil {
		t.Fatalf("Game failed: %v", err)
	}
	view.RoundData[1].Bids["p1"] = 99
	view.Players[0].Name = "Mallory"
	view.RoundInfo[1].BidderOrder[0] = "zz"
	view.Name = "Hijacked"

	fresh, err := svc.Game(ctx, game.GameID)
	if err != nil {
		t.Fatalf("Game failed: %v", err)
	}
	if fresh.RoundData[1].Bids["p1"] != 4 {
		t.Errorf("Stored bid for p1 = %d, want 4", fresh.RoundData[1].Bids["p1"])
	}
	if fresh.Players[0].Name != "Asha" {
		t.Errorf("Stored player name = %s, want Asha", fresh.Players[0].Name)
	}
	if fresh.RoundInfo[1].BidderOrder[0] == "zz" {
		t.Error("Stored bidder order changed through a returned view")
	}
	if fresh.Name != "Friday Night" {
		t.Errorf("Stored game name = %s, want Friday Night", fresh.Name)
	}

	// Same for the summary view.
	summary, err := svc.Summary(ctx, game.GameID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	summary.Payouts["p1"] = 100
	summary.TotalsPoints["p1"] = 50

	freshSummary, err := svc.Summary(ctx, game.GameID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if freshSummary.Payouts["p1"] != 0 {
		t.Errorf("Stored ledger balance = %v, want 0", freshSummary.Payouts["p1"])
	}
	if freshSummary.TotalsPoints["p1"] == 50 {
		t.Error("Stored totals changed through a returned summary")
	}

	// And for the side-game flag.
	svc.SetBids(ctx, game.GameID, game.AdminKey, 2,
		map[string]int{"p1": 8, "p2": 3, "p3": 3, "p4": 3})
	state, err := svc.HighBidState(ctx, game.GameID)
	if err != nil {
		t.Fatalf("HighBidState failed: %v", err)
	}
	state.BidderIDs[0] = "zz"

	freshState, err := svc.HighBidState(ctx, game.GameID)
	if err != nil {
		t.Fatalf("HighBidState failed: %v", err)
	}
	if freshState.BidderIDs[0] != "p1" {
		t.Errorf("Stored bidder ids = %v, want [p1]", freshState.BidderIDs)
	}
}
