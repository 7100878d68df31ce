package engine

import "time"

// DefaultRounds is the number of rounds in a Callbreak game.
const DefaultRounds = 5

// HighBidThreshold is the bid value at which the side game triggers.
const HighBidThreshold = 8

// Player is a seat at the table. Players are immutable once created;
// only roster membership changes (reorder, substitution bench).
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoundStatus is the lifecycle state of a single round.
type RoundStatus string

const (
	// RoundEmpty is the initial state: no bids entered.
	RoundEmpty RoundStatus = ""
	// RoundBidsSet means bids are recorded and actuals are pending.
	RoundBidsSet RoundStatus = "BIDS_SET"
	// RoundAutoAwarded means the round was scored without play.
	RoundAutoAwarded RoundStatus = "AUTO_AWARDED"
	// RoundPlayed means actuals were entered and points computed.
	RoundPlayed RoundStatus = "PLAYED"
)

// Resolved reports whether the round reached a terminal state.
func (s RoundStatus) Resolved() bool {
	return s == RoundAutoAwarded || s == RoundPlayed
}

// RoundRecord holds the bid/actual/point maps for one round, keyed by
// player id. Bids and actuals are always written as complete sets for
// all four players; there is no partial persistence.
type RoundRecord struct {
	Bids    map[string]int     `json:"bids"`
	Actuals map[string]int     `json:"actuals"`
	Points  map[string]float64 `json:"points"`
	Status  RoundStatus        `json:"status,omitempty"`
}

// NewRoundRecord returns an empty round.
func NewRoundRecord() *RoundRecord {
	return &RoundRecord{
		Bids:    map[string]int{},
		Actuals: map[string]int{},
		Points:  map[string]float64{},
	}
}

// RoundInfo is the seating outcome of the rotation algorithm for one
// round: who deals and the order in which players bid. The dealer is
// always last in BidderOrder.
type RoundInfo struct {
	DealerID    string   `json:"dealerId"`
	BidderOrder []string `json:"bidderOrder"`
}

// HighBid is the side-game flag: at most one active per game, tied to
// the round currently pending bid re-entry. Nil unless active.
type HighBid struct {
	Active    bool     `json:"active"`
	Round     int      `json:"round"`
	BidderIDs []string `json:"bidderIds"`
}

// SettlementConfig holds the weight/stake parameters, locked at game
// creation. Weights are the base owed units for 2nd, 3rd, and 4th place.
type SettlementConfig struct {
	Weights []float64 `json:"weights"`
	Stake   float64   `json:"stake"`
	Locked  bool      `json:"locked"`
}

// Settings are the per-game toggles an admin may flip mid-game.
type Settings struct {
	AutoAwardEnabled bool `json:"autoAwardEnabled"`
}

// RankedPlayer is one entry of the settlement ranking.
type RankedPlayer struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Total         float64   `json:"total"`
	Priority      int       `json:"priority"`
	PointsByRound []float64 `json:"pointsByRound"`
	Active        bool      `json:"active"`
}

// Payout is one loser-to-winner transfer of the final settlement.
type Payout struct {
	FromPlayerID string  `json:"fromPlayerId"`
	ToPlayerID   string  `json:"toPlayerId"`
	Units        float64 `json:"units"`
	Amount       float64 `json:"amount"`
}

// SettlementResult is the outcome of ComputeSettlement. It is a preview
// until Applied is set by game resolution, after which it is frozen on
// the session as LastSettlementResult.
type SettlementResult struct {
	Applied        bool               `json:"applied"`
	AppliedAt      *time.Time         `json:"appliedAt,omitempty"`
	TotalsPoints   map[string]float64 `json:"totalsPoints"`
	Ranking        []RankedPlayer     `json:"ranking"`
	Weights        []float64          `json:"weights"`
	Stake          float64            `json:"stake"`
	WinnerOver20   bool               `json:"winnerOver20"`
	Payouts        []Payout           `json:"payouts"`
	PerPlayerDelta map[string]float64 `json:"perPlayerDelta"`
	PerfectCounts  map[string]int     `json:"perfectCounts"`
}

// RoundSnapshot is an immutable per-round record kept for the history
// view exposed after the game resolves.
type RoundSnapshot struct {
	At      time.Time          `json:"at"`
	Round   int                `json:"round"`
	Type    string             `json:"type"`
	Bids    map[string]int     `json:"bids"`
	Actuals map[string]int     `json:"actuals"`
	Points  map[string]float64 `json:"points"`
	Status  RoundStatus        `json:"status"`
}

// RoundEvent is one entry of the append-only per-round event log.
type RoundEvent struct {
	At          time.Time          `json:"at"`
	Round       int                `json:"round"`
	Type        string             `json:"type"`
	Bids        map[string]int     `json:"bids,omitempty"`
	Actuals     map[string]int     `json:"actuals,omitempty"`
	BidderIDs   []string           `json:"bidderIds,omitempty"`
	BidderID    string             `json:"bidderId,omitempty"`
	Stake       float64            `json:"stake,omitempty"`
	Outcome     string             `json:"outcome,omitempty"`
	OpponentIDs []string           `json:"opponentIds,omitempty"`
}

// Event types recorded in RoundEvents.
const (
	EventBidsSet          = "BIDS_SET"
	EventAutoAwarded      = "AUTO_AWARDED"
	EventPlayed           = "PLAYED"
	EventHighBidTriggered = "HIGH_BID_TRIGGERED"
	EventHighBidResolved  = "HIGH_BID_RESOLVED"
	EventHighBidCanceled  = "HIGH_BID_CANCELED"
)

// Game is the full session record for one game in a series. The admin
// key never leaves the process: the struct marshals without it, so the
// JSON form is already the public view.
type Game struct {
	SeriesID             string                  `json:"seriesId"`
	GameIndex            int                     `json:"gameIndex"`
	GameID               string                  `json:"gameId"`
	Name                 string                  `json:"name"`
	Rounds               int                     `json:"rounds"`
	CreatedAt            time.Time               `json:"createdAt"`
	Archived             bool                    `json:"archived"`
	Players              []Player                `json:"players"`
	AdminKey             string                  `json:"-"`
	SettlementConfig     SettlementConfig        `json:"settlementConfig"`
	Settings             Settings                `json:"settings"`
	InactivePlayers      []Player                `json:"inactivePlayers"`
	RoundInfo            map[int]*RoundInfo      `json:"roundInfo"`
	RoundData            map[int]*RoundRecord    `json:"roundData"`
	PerfectCounts        map[string]int          `json:"perfectCounts"`
	PayoutLedger         map[string]float64      `json:"payoutLedger"`
	HighBid              *HighBid                `json:"highBid"`
	SettlementApplied    bool                    `json:"settlementApplied"`
	ResolvedAt           *time.Time              `json:"resolvedAt,omitempty"`
	LastSettlementResult *SettlementResult       `json:"lastSettlementResult,omitempty"`
	RoundHistory         map[int]*RoundSnapshot  `json:"roundHistory"`
	RoundEvents          map[int][]RoundEvent    `json:"roundEvents"`
}

// Round returns the record for a round, creating an empty one if needed.
func (g *Game) Round(round int) *RoundRecord {
	if g.RoundData == nil {
		g.RoundData = map[int]*RoundRecord{}
	}
	rec, ok := g.RoundData[round]
	if !ok {
		rec = NewRoundRecord()
		g.RoundData[round] = rec
	}
	return rec
}

// HasPlayer reports whether id is in the active roster.
func (g *Game) HasPlayer(id string) bool {
	for _, p := range g.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// PlayerIDs returns the active roster ids in seat order.
func (g *Game) PlayerIDs() []string {
	ids := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

// EnsureLedger guarantees a ledger entry for every active and benched
// player.
func (g *Game) EnsureLedger() {
	if g.PayoutLedger == nil {
		g.PayoutLedger = map[string]float64{}
	}
	for _, p := range g.Players {
		if _, ok := g.PayoutLedger[p.ID]; !ok {
			g.PayoutLedger[p.ID] = 0
		}
	}
	for _, p := range g.InactivePlayers {
		if _, ok := g.PayoutLedger[p.ID]; !ok {
			g.PayoutLedger[p.ID] = 0
		}
	}
}

// EnsurePerfectCounts guarantees a perfect-count entry for every active
// and benched player.
func (g *Game) EnsurePerfectCounts() {
	if g.PerfectCounts == nil {
		g.PerfectCounts = map[string]int{}
	}
	for _, p := range g.Players {
		if _, ok := g.PerfectCounts[p.ID]; !ok {
			g.PerfectCounts[p.ID] = 0
		}
	}
	for _, p := range g.InactivePlayers {
		if _, ok := g.PerfectCounts[p.ID]; !ok {
			g.PerfectCounts[p.ID] = 0
		}
	}
}

// AllRoundsResolved reports whether every round reached a terminal state.
func (g *Game) AllRoundsResolved() bool {
	for round := 1; round <= g.Rounds; round++ {
		rec, ok := g.RoundData[round]
		if !ok || !rec.Status.Resolved() {
			return false
		}
	}
	return true
}

// NoRoundsStarted reports whether every round is still empty. Used to
// gate substitution.
func (g *Game) NoRoundsStarted() bool {
	for round := 1; round <= g.Rounds; round++ {
		if rec, ok := g.RoundData[round]; ok && rec.Status != RoundEmpty {
			return false
		}
	}
	return true
}

// TotalsPoints sums round points per active player.
func (g *Game) TotalsPoints() map[string]float64 {
	totals := make(map[string]float64, len(g.Players))
	for _, p := range g.Players {
		totals[p.ID] = 0
	}
	for _, rec := range g.RoundData {
		for id, pts := range rec.Points {
			totals[id] += pts
		}
	}
	return totals
}
