package service

import (
	"context"

	"github.com/callbreaklive/server/game/engine"
)

// GameService defines all game-related operations.
type GameService interface {
	// Game lifecycle
	CreateGame(ctx context.Context, req CreateGameRequest) (*CreateGameResult, error)
	ResolveGame(ctx context.Context, gameID, adminKey string) (*LedgerResult, error)
	StartNextGame(ctx context.Context, gameID, adminKey string) (*NextGameResult, error)

	// Round progression
	SetBids(ctx context.Context, gameID, adminKey string, round int, bids map[string]int) (*BidsResult, error)
	SetActuals(ctx context.Context, gameID, adminKey string, round int, actuals map[string]int) (*RoundResult, error)
	ResolveHighBid(ctx context.Context, gameID, adminKey string, req ResolveHighBidRequest) (*LedgerResult, error)
	CancelHighBid(ctx context.Context, gameID, adminKey string, round int) (*RoundResult, error)

	// Roster and per-game settings
	ReorderPlayers(ctx context.Context, gameID, adminKey string, newOrder []string, startDealerID string) (*RosterResult, error)
	SubstitutePlayer(ctx context.Context, gameID, adminKey string, req SubstituteRequest) (*RosterResult, error)
	SetBidderOrder(ctx context.Context, gameID, adminKey string, round int, order []string) (*engine.RoundInfo, error)
	UpdateSettings(ctx context.Context, gameID, adminKey string, req SettingsUpdate) (*engine.Settings, error)

	// Read side
	Game(ctx context.Context, gameID string) (*engine.Game, error)
	Summary(ctx context.Context, gameID string) (*Summary, error)
	Snapshot(ctx context.Context, gameID string) (*Snapshot, error)
	History(ctx context.Context, gameID string) (*HistoryResult, error)
	HighBidState(ctx context.Context, gameID string) (*engine.HighBid, error)
	SeriesByGame(ctx context.Context, gameID string) (*SeriesResult, error)
	SeriesByID(ctx context.Context, seriesID string) (*SeriesResult, error)
	Redirect(gameID string) (string, bool)
}

// Store is the session storage the service operates on. The in-memory
// implementation lives in game/session; tests supply their own.
type Store interface {
	Get(gameID string) (*engine.Game, bool)
	Set(game *engine.Game) error
	List() []*engine.Game
	Remove(gameID string)
	SetRedirect(fromGameID, toGameID string)
	Redirect(gameID string) (string, bool)
}

// IDGenerator mints the random tokens handed out to callers. Tests
// inject a deterministic implementation.
type IDGenerator interface {
	GameID() string
	AdminKey() string
	PlayerID() string
	SeriesID() string
}
