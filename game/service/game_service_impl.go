package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/callbreaklive/server/game/engine"
)

// gameServiceImpl implements the GameService interface. One RWMutex
// serializes all mutations: a read-validate-mutate sequence never
// interleaves with another, which is the whole concurrency model.
type gameServiceImpl struct {
	store Store
	ids   IDGenerator
	mu    sync.RWMutex
}

// NewGameService creates a new game service instance.
func NewGameService(store Store, ids IDGenerator) GameService {
	return &gameServiceImpl{
		store: store,
		ids:   ids,
	}
}

// requireGame loads a live game. Archived games are hidden unless the
// caller explicitly reads history.
func (s *gameServiceImpl) requireGame(gameID string, allowArchived bool) (*engine.Game, error) {
	game, ok := s.store.Get(gameID)
	if !ok {
		return nil, engine.NotFoundf("Game not found")
	}
	if game.Archived && !allowArchived {
		return nil, engine.NotFoundf("Game not found")
	}
	return game, nil
}

func requireAdmin(game *engine.Game, adminKey string) error {
	if adminKey != game.AdminKey {
		return engine.Unauthorized()
	}
	return nil
}

func validRound(game *engine.Game, round int) error {
	if round < 1 || round > game.Rounds {
		return engine.Validationf("Invalid round")
	}
	return nil
}

func copyLedger(ledger map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(ledger))
	for id, balance := range ledger {
		out[id] = balance
	}
	return out
}

// CreateGame validates the roster and settlement parameters, mints the
// game identity, and computes the initial dealer rotation.
func (s *gameServiceImpl) CreateGame(ctx context.Context, req CreateGameRequest) (*CreateGameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(req.Name)
	if name == "" || len(req.Players) != 4 {
		return nil, engine.Validationf("Provide game name and exactly 4 players.")
	}
	if len(req.Weights) != 3 {
		return nil, engine.Validationf("weights must be [w2,w3,w4] non-negative numbers (e.g., [1,2,3]).")
	}
	for _, w := range req.Weights {
		if w < 0 {
			return nil, engine.Validationf("weights must be [w2,w3,w4] non-negative numbers (e.g., [1,2,3]).")
		}
	}
	// Omitting the stake means the default of 1; an explicit zero is a
	// caller mistake and is rejected like any other non-positive value.
	stake := 1.0
	if req.Stake != nil {
		stake = *req.Stake
	}
	if stake <= 0 {
		return nil, engine.Validationf("stake must be a positive number")
	}

	seriesID := req.SeriesID
	if seriesID == "" {
		seriesID = s.ids.SeriesID()
	}
	gameIndex := 1
	for _, existing := range s.store.List() {
		if existing.SeriesID == seriesID && existing.GameIndex >= gameIndex {
			gameIndex = existing.GameIndex + 1
		}
	}

	players := make([]engine.Player, 0, 4)
	for _, playerName := range req.Players {
		trimmed := strings.TrimSpace(playerName)
		if trimmed == "" {
			return nil, engine.Validationf("Provide game name and exactly 4 players.")
		}
		players = append(players, engine.Player{ID: s.ids.PlayerID(), Name: trimmed})
	}

	autoAward := true
	if req.AutoAwardEnabled != nil {
		autoAward = *req.AutoAwardEnabled
	}

	game := &engine.Game{
		SeriesID:  seriesID,
		GameIndex: gameIndex,
		GameID:    s.ids.GameID(),
		Name:      name,
		Rounds:    engine.DefaultRounds,
		CreatedAt: time.Now(),
		Players:   players,
		AdminKey:  s.ids.AdminKey(),
		SettlementConfig: engine.SettlementConfig{
			Weights: append([]float64(nil), req.Weights...),
			Stake:   stake,
			Locked:  true,
		},
		Settings:        engine.Settings{AutoAwardEnabled: autoAward},
		InactivePlayers: []engine.Player{},
		RoundInfo:       map[int]*engine.RoundInfo{},
		RoundData:       map[int]*engine.RoundRecord{},
		PerfectCounts:   map[string]int{},
		PayoutLedger:    map[string]float64{},
		RoundHistory:    map[int]*engine.RoundSnapshot{},
		RoundEvents:     map[int][]engine.RoundEvent{},
	}
	for _, p := range players {
		game.PerfectCounts[p.ID] = 0
		game.PayoutLedger[p.ID] = 0
	}

	startDealerID := resolveStartDealer(players, req)
	rotation, err := engine.DealerRotation(players, game.Rounds, startDealerID)
	if err != nil {
		return nil, err
	}
	game.RoundInfo = rotation

	if err := s.store.Set(game); err != nil {
		return nil, engine.Validationf("%v", err)
	}

	return &CreateGameResult{
		SeriesID:         game.SeriesID,
		GameIndex:        game.GameIndex,
		GameID:           game.GameID,
		AdminKey:         game.AdminKey,
		Players:          players,
		SettlementConfig: game.SettlementConfig,
		RoundInfo:        game.RoundInfo,
		StartDealerID:    startDealerID,
		Settings:         game.Settings,
	}, nil
}

// resolveStartDealer picks the starting dealer from id, name, or seat
// index, in that order, defaulting to the first seat.
func resolveStartDealer(players []engine.Player, req CreateGameRequest) string {
	if req.StartDealerID != "" {
		for _, p := range players {
			if p.ID == req.StartDealerID {
				return p.ID
			}
		}
	}
	if name := strings.TrimSpace(req.StartDealerName); name != "" {
		for _, p := range players {
			if strings.EqualFold(p.Name, name) {
				return p.ID
			}
		}
	}
	if req.StartDealerIndex != nil {
		if idx := *req.StartDealerIndex; idx >= 0 && idx < len(players) {
			return players[idx].ID
		}
	}
	return players[0].ID
}

// SetBids runs the bid phase of the round state machine. Validation
// order matters: malformed input fails outright, then a bid at or above
// the high threshold triggers the side game (persisting nothing), then
// the auto-award shortcut applies, and only then are bids stored.
func (s *gameServiceImpl) SetBids(ctx context.Context, gameID, adminKey string, round int, bids map[string]int) (*BidsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(game, adminKey); err != nil {
		return nil, err
	}
	if game.SettlementApplied {
		return nil, engine.Statef("Game already settled; editing disabled.")
	}
	if err := validRound(game, round); err != nil {
		return nil, err
	}
	if bids == nil {
		return nil, engine.Validationf("bids is required")
	}
	if err := requireFullRoster(game, bids); err != nil {
		return nil, engine.Validationf("Provide bids for all 4 valid players.")
	}

	sum := 0
	anyHigh := false
	for _, bid := range bids {
		if bid < 1 {
			return nil, engine.Validationf("Each bid must be >= 1")
		}
		if bid > 13 {
			return nil, engine.Validationf("Bid must be <= 13")
		}
		if bid >= engine.HighBidThreshold {
			anyHigh = true
		}
		sum += bid
	}

	if anyHigh {
		bidderIDs := make([]string, 0, 1)
		for _, p := range game.Players {
			if bids[p.ID] >= engine.HighBidThreshold {
				bidderIDs = append(bidderIDs, p.ID)
			}
		}
		game.HighBid = &engine.HighBid{Active: true, Round: round, BidderIDs: bidderIDs}
		game.PushRoundEvent(round, engine.RoundEvent{
			Type:      engine.EventHighBidTriggered,
			BidderIDs: append([]string(nil), bidderIDs...),
		})
		return nil, &engine.HighBidError{Round: round, BidderIDs: bidderIDs}
	}

	if game.Settings.AutoAwardEnabled && sum < 10 && round != game.Rounds {
		game.ApplyAutoAward(round, bids)
		clearHighBid(game, round)
		return &BidsResult{AutoAwarded: true, RoundData: game.RoundData[round]}, nil
	}

	rec := game.Round(round)
	rec.Bids = make(map[string]int, len(bids))
	for id, bid := range bids {
		rec.Bids[id] = bid
	}
	rec.Actuals = map[string]int{}
	rec.Points = map[string]float64{}
	rec.Status = engine.RoundBidsSet

	// The event log is an audit trail; it records its own copy so later
	// edits to the round cannot rewrite history.
	logged := make(map[string]int, len(rec.Bids))
	for id, bid := range rec.Bids {
		logged[id] = bid
	}
	game.PushRoundEvent(round, engine.RoundEvent{Type: engine.EventBidsSet, Bids: logged})

	clearHighBid(game, round)
	return &BidsResult{AutoAwarded: false, RoundData: rec}, nil
}

// requireFullRoster checks that the submitted map covers exactly the
// active roster: partial or stray entries are rejected outright.
func requireFullRoster(game *engine.Game, values map[string]int) error {
	if len(values) != len(game.Players) {
		return engine.Validationf("incomplete set")
	}
	for id := range values {
		if !game.HasPlayer(id) {
			return engine.Validationf("unknown player")
		}
	}
	return nil
}

// clearHighBid drops a stale high-bid flag for the round once a bid
// submission succeeds through any non-high path.
func clearHighBid(game *engine.Game, round int) {
	if game.HighBid != nil && game.HighBid.Active && game.HighBid.Round == round {
		game.HighBid = nil
	}
}

/// ResolveHighBid settles the side game as a pure ledger transfer: the
// bidder wins or loses the stake against each of the three opponents.
// It does not restore the round to a bid-able state; bids must still be
// re-submitted afterwards.
func (s *gameServiceImpl) ResolveHighBid(ctx context.Context, gameID, adminKey string, req ResolveHighBidRequest) (*LedgerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(game, adminKey); err != nil {
		return nil, err
	}
	if err := validRound(game, req.Round); err != nil {
		return nil, err
	}
	if game.HighBid == nil || !game.HighBid.Active || game.HighBid.Round != req.Round {
		return nil, engine.Statef("No active high bid for this round")
	}
	if !game.HasPlayer(req.BidderID) {
		return nil, engine.Validationf("Invalid bidderId")
	}
	flagged := false
	for _, id := range game.HighBid.BidderIDs {
		if id == req.BidderID {
			flagged = true
			break
		}
	}
	if !flagged {
		return nil, engine.Validationf("Bidder is not part of the high bid")
	}

	game.EnsureLedger()
	stake := req.Stake
	if stake == 0 {
		stake = game.SettlementConfig.Stake
	}
	if stake <= 0 {
		return nil, engine.Validationf("Invalid stake value")
	}

	opponentIDs := make([]string, 0, len(game.Players)-1)
	for _, p := range game.Players {
		if p.ID != req.BidderID {
			opponentIDs = append(opponentIDs, p.ID)
		}
	}

	bidderWins := req.WinnerID == req.BidderID
	if req.BidderWon != nil {
		bidderWins = *req.BidderWon
	}

	payout := stake * float64(len(opponentIDs))
	outcome := "WIN"
	if bidderWins {
		game.PayoutLedger[req.BidderID] += payout
		for _, id := range opponentIDs {
			game.PayoutLedger[id] -= stake
		}
	} else {
		outcome = "LOSS"
		game.PayoutLedger[req.BidderID] -= payout
		for _, id := range opponentIDs {
			game.PayoutLedger[id] += stake
		}
	}
	game.PushRoundEvent(req.Round, engine.RoundEvent{
		Type:        engine.EventHighBidResolved,
		BidderID:    req.BidderID,
		Stake:       stake,
		Outcome:     outcome,
		OpponentIDs: opponentIDs,
	})

	game.HighBid = nil
	return &LedgerResult{PayoutLedger: copyLedger(game.PayoutLedger)}, nil
}

// CancelHighBid is the escape hatch: it clears the side-game flag and
// resets the round so bids can be re-entered, with no ledger effect.
func (s *gameServiceImpl) CancelHighBid(ctx context.Context, gameID, adminKey string, round int) (*RoundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(game, adminKey); err != nil {
		return nil, err
	}
	if game.SettlementApplied {
		return nil, engine.Statef("Game already settled; editing disabled.")
	}
	if err := validRound(game, round); err != nil {
		return nil, err
	}
	if game.HighBid == nil || !game.HighBid.Active || game.HighBid.Round != round {
		return nil, engine.Statef("No active high bid for this round")
	}

	rec := game.Round(round)
	rec.Bids = map[string]int{}
	rec.Status = engine.RoundEmpty
	game.HighBid = nil

	game.PushRoundEvent(round, engine.RoundEvent{Type: engine.EventHighBidCanceled})
	return &RoundResult{RoundData: rec}, nil
}

// SetActuals completes a round: actuals must cover the full roster, sum
// to exactly 13, and land on a round whose bids are set and which was
// not auto-awarded. Nothing is written until the whole set validates.
func (s *gameServiceImpl) SetActuals(ctx context.Context, gameID, adminKey string, round int, actuals map[string]int) (*RoundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(game, adminKey); err != nil {
		return nil, err
	}
	if game.SettlementApplied {
		return nil, engine.Statef("Game already settled; editing disabled.")
	}
	if err := validRound(game, round); err != nil {
		return nil, err
	}

	rec, ok := game.RoundData[round]
	if !ok || len(rec.Bids) != len(game.Players) {
		return nil, engine.Statef("Set bids before actuals")
	}
	if rec.Status == engine.RoundAutoAwarded {
		return nil, engine.Statef("Round was auto-awarded; cancel it by re-entering bids first")
	}
	if err := requireFullRoster(game, actuals); err != nil {
		return nil, engine.Validationf("Provide actuals for all 4 valid players.")
	}

	sum := 0
	normalized := make(map[string]int, len(actuals))
	for id, actual := range actuals {
		if actual < 0 || actual > 13 {
			return nil, engine.Validationf("Each actual must be an integer between 0 and 13")
		}
		normalized[id] = actual
		sum += actual
	}
	if sum != 13 {
		return nil, engine.Validationf("Sum of actuals must be 13")
	}

	rec.Actuals = normalized
	game.ScorePlayedRound(round)
	return &RoundResult{RoundData: rec}, nil
}

// ResolveGame applies the settlement exactly once: payouts move to the
// ledger and the result freezes as LastSettlementResult.
func (s *gameServiceImpl) ResolveGame(ctx context.Context, gameID, adminKey string) (*LedgerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(game, adminKey); err != nil {
		return nil, err
	}
	if !game.AllRoundsResolved() {
		return nil, engine.Statef("All 5 rounds must be resolved first.")
	}
	if game.SettlementApplied {
		return nil, engine.Statef("Settlement already applied.")
	}

	result, err := game.ComputeSettlement()
	if err != nil {
		return nil, err
	}

	game.EnsureLedger()
	for _, payout := range result.Payouts {
		game.PayoutLedger[payout.FromPlayerID] -= payout.Amount
		game.PayoutLedger[payout.ToPlayerID] += payout.Amount
	}

	now := time.Now()
	game.SettlementApplied = true
	game.ResolvedAt = &now
	result.Applied = true
	result.AppliedAt = &now
	game.LastSettlementResult = result

	return &LedgerResult{PayoutLedger: copyLedger(game.PayoutLedger)}, nil
}

// StartNextGame continues the series: fresh ids and rounds, the roster
// and ledger carried forward, and the settlement loser dealing first.
// The finished game is archived and a redirect recorded for its
// viewers.
func (s *gameServiceImpl) StartNextGame(ctx context.Context, gameID, adminKey string) (*NextGameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(previous, adminKey); err != nil {
		return nil, err
	}
	if !previous.SettlementApplied {
		return nil, engine.Statef("Resolve game before starting a new one.")
	}

	players := make([]engine.Player, len(previous.Players))
	copy(players, previous.Players)
	bench := make([]engine.Player, len(previous.InactivePlayers))
	copy(bench, previous.InactivePlayers)

	next := &engine.Game{
		SeriesID:         previous.SeriesID,
		GameIndex:        previous.GameIndex + 1,
		GameID:           s.ids.GameID(),
		Name:             previous.Name,
		Rounds:           engine.DefaultRounds,
		CreatedAt:        time.Now(),
		Players:          players,
		AdminKey:         s.ids.AdminKey(),
		SettlementConfig: previous.SettlementConfig,
		Settings:         previous.Settings,
		InactivePlayers:  bench,
		RoundInfo:        map[int]*engine.RoundInfo{},
		RoundData:        map[int]*engine.RoundRecord{},
		PerfectCounts:    map[string]int{},
		PayoutLedger:     copyLedger(previous.PayoutLedger),
		RoundHistory:     map[int]*engine.RoundSnapshot{},
		RoundEvents:      map[int][]engine.RoundEvent{},
	}
	for _, p := range players {
		next.PerfectCounts[p.ID] = 0
	}

	startDealerID := players[0].ID
	if result := previous.LastSettlementResult; result != nil && len(result.Ranking) == 4 {
		startDealerID = result.Ranking[len(result.Ranking)-1].ID
	}
	rotation, err := engine.DealerRotation(players, next.Rounds, startDealerID)
	if err != nil {
		return nil, err
	}
	next.RoundInfo = rotation

	previous.Archived = true
	s.store.SetRedirect(previous.GameID, next.GameID)
	if err := s.store.Set(next); err != nil {
		return nil, engine.Validationf("%v", err)
	}

	return &NextGameResult{
		SeriesID:  next.SeriesID,
		GameIndex: next.GameIndex,
		GameID:    next.GameID,
		AdminKey:  next.AdminKey,
		RoundInfo: next.RoundInfo,
	}, nil
}

// ReorderPlayers applies a full seat permutation and recomputes the
// rotation.
func (s *gameServiceImpl) ReorderPlayers(ctx context.Context, gameID, adminKey string, newOrder []string, startDealerID string) (*RosterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(game, adminKey); err != nil {
		return nil, err
	}
	if game.SettlementApplied {
		return nil, engine.Statef("Game already settled; editing disabled.")
	}
	if len(newOrder) != len(game.Players) {
		return nil, engine.Validationf("newOrder must include all 4 player ids")
	}

	byID := make(map[string]engine.Player, len(game.Players))
	for _, p := range game.Players {
		byID[p.ID] = p
	}
	reordered := make([]engine.Player, 0, len(newOrder))
	seen := make(map[string]bool, len(newOrder))
	for _, id := range newOrder {
		p, ok := byID[id]
		if !ok || seen[id] {
			return nil, engine.Validationf("Invalid player IDs")
		}
		seen[id] = true
		reordered = append(reordered, p)
	}
	game.Players = reordered

	dealerID := game.Players[0].ID
	if startDealerID != "" && game.HasPlayer(startDealerID) {
		dealerID = startDealerID
	}
	rotation, err := engine.DealerRotation(game.Players, game.Rounds, dealerID)
	if err != nil {
		return nil, err
	}
	game.RoundInfo = rotation

	return &RosterResult{Players: game.Players, RoundInfo: game.RoundInfo}, nil
}

// SubstitutePlayer swaps one seat before any round has begun. The
// outgoing player keeps their ledger and perfect-count entries under
// their original id on the bench.
func (s *gameServiceImpl) SubstitutePlayer(ctx context.Context, gameID, adminKey string, req SubstituteRequest) (*RosterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(game, adminKey); err != nil {
		return nil, err
	}
	if game.SettlementApplied {
		return nil, engine.Statef("Game already settled; editing disabled.")
	}
	if !game.NoRoundsStarted() {
		return nil, engine.Statef("Substitutions are allowed before the first round starts.")
	}
	if req.OutgoingPlayerID == "" {
		return nil, engine.Validationf("Provide outgoingPlayerId to substitute")
	}

	replaceIndex := -1
	for i, p := range game.Players {
		if p.ID == req.OutgoingPlayerID {
			replaceIndex = i
			break
		}
	}
	if replaceIndex == -1 {
		return nil, engine.Validationf("Outgoing player not found in active roster")
	}

	var incoming engine.Player
	if req.IncomingPlayerID != "" {
		benchIndex := -1
		for i, p := range game.InactivePlayers {
			if p.ID == req.IncomingPlayerID {
				benchIndex = i
				break
			}
		}
		if benchIndex == -1 {
			return nil, engine.Validationf("Incoming player not found in bench")
		}
		incoming = game.InactivePlayers[benchIndex]
		game.InactivePlayers = append(game.InactivePlayers[:benchIndex], game.InactivePlayers[benchIndex+1:]...)
	} else {
		name := strings.TrimSpace(req.IncomingName)
		if name == "" {
			return nil, engine.Validationf("Enter a name for the new player")
		}
		incoming = engine.Player{ID: s.ids.PlayerID(), Name: name}
	}

	outgoing := game.Players[replaceIndex]
	benched := false
	for _, p := range game.InactivePlayers {
		if p.ID == outgoing.ID {
			benched = true
			break
		}
	}
	if !benched {
		game.InactivePlayers = append(game.InactivePlayers, outgoing)
	}
	game.Players[replaceIndex] = incoming

	game.EnsureLedger()
	game.EnsurePerfectCounts()

	// Keep the existing round-1 dealer when that seat is still active.
	dealerID := game.Players[0].ID
	if info, ok := game.RoundInfo[1]; ok && game.HasPlayer(info.DealerID) {
		dealerID = info.DealerID
	}
	rotation, err := engine.DealerRotation(game.Players, game.Rounds, dealerID)
	if err != nil {
		return nil, err
	}
	game.RoundInfo = rotation

	return &RosterResult{
		Players:         game.Players,
		InactivePlayers: game.InactivePlayers,
		RoundInfo:       game.RoundInfo,
	}, nil
}

// SetBidderOrder overrides one round's bidder order; the last entry
// becomes that round's dealer.
func (s *gameServiceImpl) SetBidderOrder(ctx context.Context, gameID, adminKey string, round int, order []string) (*engine.RoundInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(game, adminKey); err != nil {
		return nil, err
	}
	if err := validRound(game, round); err != nil {
		return nil, err
	}
	if len(order) != len(game.Players) {
		return nil, engine.Validationf("bidderOrder must include all 4 players")
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if !game.HasPlayer(id) || seen[id] {
			return nil, engine.Validationf("Invalid bidderOrder ids")
		}
		seen[id] = true
	}

	info := &engine.RoundInfo{
		DealerID:    order[len(order)-1],
		BidderOrder: append([]string(nil), order...),
	}
	game.RoundInfo[round] = info
	return info, nil
}

// UpdateSettings flips the per-game toggles; the auto-award flag is
// read live on each bid submission, not frozen at creation.
func (s *gameServiceImpl) UpdateSettings(ctx context.Context, gameID, adminKey string, req SettingsUpdate) (*engine.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(game, adminKey); err != nil {
		return nil, err
	}
	if req.AutoAwardEnabled != nil {
		game.Settings.AutoAwardEnabled = *req.AutoAwardEnabled
	}
	settings := game.Settings
	return &settings, nil
}

// Game returns the viewer-facing session record. The admin key is
// excluded at the type level, so the record marshals as the public
// view. The returned record is a detached copy: callers marshal it
// outside the lock and may not reach the stored state through it.
func (s *gameServiceImpl) Game(ctx context.Context, gameID string) (*engine.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	return game.Clone(), nil
}

// Summary builds the scoreboard view, attaching the settlement preview
// once all rounds are resolved and the frozen result once applied.
func (s *gameServiceImpl) Summary(ctx context.Context, gameID string) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	return buildSummary(game.Clone()), nil
}

// buildSummary assembles the scoreboard from an already-detached game
// copy, so the view shares nothing with the stored record.
func buildSummary(game *engine.Game) *Summary {
	summary := &Summary{
		SeriesID:          game.SeriesID,
		GameIndex:         game.GameIndex,
		GameID:            game.GameID,
		Name:              game.Name,
		Players:           game.Players,
		Payouts:           copyLedger(game.PayoutLedger),
		SettlementApplied: game.SettlementApplied,
		TotalsPoints:      game.TotalsPoints(),
		RoundInfo:         game.RoundInfo,
		PerfectCounts:     game.PerfectCounts,
		Settings:          game.Settings,
		InactivePlayers:   game.InactivePlayers,
	}

	if game.SettlementApplied && game.LastSettlementResult != nil {
		summary.Settlement = game.LastSettlementResult
	} else if game.AllRoundsResolved() {
		if preview, err := game.ComputeSettlement(); err == nil {
			summary.Settlement = preview
		}
	}
	return summary
}

// Snapshot is the payload pushed to live subscribers. One clone backs
// both halves of the payload.
func (s *gameServiceImpl) Snapshot(ctx context.Context, gameID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	detached := game.Clone()
	return &Snapshot{Game: detached, Summary: buildSummary(detached)}, nil
}

// History exposes the immutable audit log, locked until the game
// resolves. Archived games stay readable here.
func (s *gameServiceImpl) History(ctx context.Context, gameID string) (*HistoryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, err := s.requireGame(gameID, true)
	if err != nil {
		return nil, err
	}
	if !game.SettlementApplied {
		return nil, &engine.Error{
			Kind:    engine.KindLocked,
			Code:    "HISTORY_LOCKED_UNTIL_GAME_RESOLVED",
			Message: "Game history becomes available after the game is resolved.",
		}
	}

	detached := game.Clone()
	return &HistoryResult{
		SeriesID:     detached.SeriesID,
		GameIndex:    detached.GameIndex,
		GameID:       detached.GameID,
		Name:         detached.Name,
		Players:      detached.Players,
		RoundHistory: detached.RoundHistory,
		RoundEvents:  detached.RoundEvents,
		ResolvedAt:   detached.ResolvedAt,
	}, nil
}

// HighBidState returns the side-game flag, nil when inactive.
func (s *gameServiceImpl) HighBidState(ctx context.Context, gameID string) (*engine.HighBid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	if game.HighBid == nil {
		return nil, nil
	}
	hb := *game.HighBid
	hb.BidderIDs = append([]string(nil), game.HighBid.BidderIDs...)
	return &hb, nil
}

// SeriesByGame lists the series containing the given game.
func (s *gameServiceImpl) SeriesByGame(ctx context.Context, gameID string) (*SeriesResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, err := s.requireGame(gameID, false)
	if err != nil {
		return nil, err
	}
	seriesID := game.SeriesID
	if seriesID == "" {
		seriesID = game.GameID
	}
	return &SeriesResult{
		SeriesID:      seriesID,
		CurrentGameID: game.GameID,
		Games:         s.listSeriesGames(seriesID),
	}, nil
}

// SeriesByID lists a series by its id.
func (s *gameServiceImpl) SeriesByID(ctx context.Context, seriesID string) (*SeriesResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := s.listSeriesGames(seriesID)
	if len(games) == 0 {
		return nil, engine.NotFoundf("Series not found")
	}
	return &SeriesResult{SeriesID: seriesID, Games: games}, nil
}

func (s *gameServiceImpl) listSeriesGames(seriesID string) []SeriesGame {
	games := []SeriesGame{}
	for _, game := range s.store.List() {
		id := game.SeriesID
		if id == "" {
			id = game.GameID
		}
		if id != seriesID {
			continue
		}
		games = append(games, SeriesGame{
			SeriesID:          game.SeriesID,
			GameID:            game.GameID,
			GameIndex:         game.GameIndex,
			Name:              game.Name,
			CreatedAt:         game.CreatedAt,
			ResolvedAt:        game.ResolvedAt,
			Archived:          game.Archived,
			SettlementApplied: game.SettlementApplied,
		})
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].GameIndex < games[j].GameIndex
	})
	return games
}

// Redirect reports the successor game id for a superseded game.
func (s *gameServiceImpl) Redirect(gameID string) (string, bool) {
	return s.store.Redirect(gameID)
}
