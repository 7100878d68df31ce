package session

import (
	"errors"
	"sort"
	"sync"

	"github.com/callbreaklive/server/game/engine"
)

// ErrGameNotFound is returned by stores for unknown game ids.
var ErrGameNotFound = errors.New("game not found")

// MemoryStore keeps game sessions and supersession redirects in memory.
// No persistence: a restart loses all games, by design. The store is
// safe for concurrent use, though the service layer already serializes
// mutations.
type MemoryStore struct {
	games     map[string]*engine.Game
	redirects map[string]string
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:     make(map[string]*engine.Game),
		redirects: make(map[string]string),
	}
}

// Get returns the game for an id, or false when unknown.
func (s *MemoryStore) Get(gameID string) (*engine.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	return game, ok
}

// Set stores a game under its own id.
func (s *MemoryStore) Set(game *engine.Game) error {
	if game == nil || game.GameID == "" {
		return errors.New("cannot store game without gameId")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.GameID] = game
	return nil
}

// List returns all stored games in creation order.
func (s *MemoryStore) List() []*engine.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*engine.Game, 0, len(s.games))
	for _, game := range s.games {
		result = append(result, game)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Remove deletes a game. Unknown ids are a no-op.
func (s *MemoryStore) Remove(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, gameID)
}

// SetRedirect records that fromGameID was superseded by toGameID, so
// stale viewers can be pointed at the successor.
func (s *MemoryStore) SetRedirect(fromGameID, toGameID string) {
	if fromGameID == "" || toGameID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects[fromGameID] = toGameID
}

// Redirect returns the successor game id recorded for gameID, if any.
func (s *MemoryStore) Redirect(gameID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.redirects[gameID]
	return target, ok
}
