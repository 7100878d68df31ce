package service

import (
	"time"

	"github.com/callbreaklive/server/game/engine"
)

// CreateGameRequest is the payload for CreateGame. The starting dealer
// may be addressed by player id, by name, or by seat index; the first
// match wins and the first seat is the fallback.
type CreateGameRequest struct {
	Name             string    `json:"name"`
	Players          []string  `json:"players"`
	Weights          []float64 `json:"weights"`
	Stake            *float64  `json:"stake,omitempty"`
	StartDealerID    string    `json:"startDealerId,omitempty"`
	StartDealerName  string    `json:"startDealerName,omitempty"`
	StartDealerIndex *int      `json:"startDealerIndex,omitempty"`
	SeriesID         string    `json:"seriesId,omitempty"`
	AutoAwardEnabled *bool     `json:"autoAwardEnabled,omitempty"`
}

// CreateGameResult echoes the identity and seating of a new game. The
// admin key appears only here and in NextGameResult.
type CreateGameResult struct {
	SeriesID         string                    `json:"seriesId"`
	GameIndex        int                       `json:"gameIndex"`
	GameID           string                    `json:"gameId"`
	AdminKey         string                    `json:"adminKey"`
	Players          []engine.Player           `json:"players"`
	SettlementConfig engine.SettlementConfig   `json:"settlementConfig"`
	RoundInfo        map[int]*engine.RoundInfo `json:"roundInfo"`
	StartDealerID    string                    `json:"startDealerId"`
	Settings         engine.Settings           `json:"settings"`
}

// NextGameResult identifies the successor game of a series.
type NextGameResult struct {
	SeriesID  string                    `json:"seriesId"`
	GameIndex int                       `json:"gameIndex"`
	GameID    string                    `json:"gameId"`
	AdminKey  string                    `json:"adminKey"`
	RoundInfo map[int]*engine.RoundInfo `json:"roundInfo"`
}

// BidsResult reports a bid submission that did not trigger a high bid.
type BidsResult struct {
	AutoAwarded bool                `json:"autoAwarded"`
	RoundData   *engine.RoundRecord `json:"roundData"`
}

// RoundResult echoes a round record after a mutation.
type RoundResult struct {
	RoundData *engine.RoundRecord `json:"roundData"`
}

// LedgerResult echoes the payout ledger after a ledger mutation.
type LedgerResult struct {
	PayoutLedger map[string]float64 `json:"payoutLedger"`
}

// ResolveHighBidRequest settles the side game for one flagged bidder.
// BidderWon is authoritative when present; otherwise the bidder wins
// when WinnerID names them. Stake falls back to the game's configured
// stake when zero.
type ResolveHighBidRequest struct {
	Round     int     `json:"round"`
	BidderID  string  `json:"bidderId"`
	WinnerID  string  `json:"winnerId,omitempty"`
	BidderWon *bool   `json:"bidderWon,omitempty"`
	Stake     float64 `json:"stake,omitempty"`
}

// SubstituteRequest swaps one active player for a benched or new one.
type SubstituteRequest struct {
	OutgoingPlayerID string `json:"outgoingPlayerId"`
	IncomingPlayerID string `json:"incomingPlayerId,omitempty"`
	IncomingName     string `json:"incomingName,omitempty"`
}

// RosterResult echoes the roster and rotation after a seating change.
type RosterResult struct {
	Players         []engine.Player           `json:"players"`
	InactivePlayers []engine.Player           `json:"inactivePlayers,omitempty"`
	RoundInfo       map[int]*engine.RoundInfo `json:"roundInfo"`
}

// SettingsUpdate carries the per-game toggles to change; nil fields are
// left untouched.
type SettingsUpdate struct {
	AutoAwardEnabled *bool `json:"autoAwardEnabled"`
}

// Summary is the viewer-facing scoreboard: ledger balances, point
// totals, and the settlement (a recomputed preview once all rounds are
// resolved, the frozen result once applied).
type Summary struct {
	SeriesID          string                    `json:"seriesId"`
	GameIndex         int                       `json:"gameIndex"`
	GameID            string                    `json:"gameId"`
	Name              string                    `json:"name"`
	Players           []engine.Player           `json:"players"`
	Payouts           map[string]float64        `json:"payouts"`
	SettlementApplied bool                      `json:"settlementApplied"`
	TotalsPoints      map[string]float64        `json:"totalsPoints"`
	RoundInfo         map[int]*engine.RoundInfo `json:"roundInfo"`
	PerfectCounts     map[string]int            `json:"perfectCounts"`
	Settings          engine.Settings           `json:"settings"`
	InactivePlayers   []engine.Player           `json:"inactivePlayers"`
	Settlement        *engine.SettlementResult  `json:"settlement,omitempty"`
}

// Snapshot is the full state pushed to live subscribers on connect and
// after every mutation.
type Snapshot struct {
	Game    *engine.Game `json:"game"`
	Summary *Summary     `json:"summary"`
}

// SeriesGame is one entry of a series listing.
type SeriesGame struct {
	SeriesID          string     `json:"seriesId"`
	GameID            string     `json:"gameId"`
	GameIndex         int        `json:"gameIndex"`
	Name              string     `json:"name"`
	CreatedAt         time.Time  `json:"createdAt"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
	Archived          bool       `json:"archived"`
	SettlementApplied bool       `json:"settlementApplied"`
}

// SeriesResult lists the chain of games sharing a series id.
type SeriesResult struct {
	SeriesID      string       `json:"seriesId"`
	CurrentGameID string       `json:"currentGameId,omitempty"`
	Games         []SeriesGame `json:"games"`
}

// HistoryResult is the immutable audit log, readable only after the
// game resolves.
type HistoryResult struct {
	SeriesID     string                        `json:"seriesId"`
	GameIndex    int                           `json:"gameIndex"`
	GameID       string                        `json:"gameId"`
	Name         string                        `json:"name"`
	Players      []engine.Player               `json:"players"`
	RoundHistory map[int]*engine.RoundSnapshot `json:"roundHistory"`
	RoundEvents  map[int][]engine.RoundEvent   `json:"roundEvents"`
	ResolvedAt   *time.Time                    `json:"resolvedAt,omitempty"`
}
