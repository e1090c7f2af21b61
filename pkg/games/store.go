package games

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cityquest-mcp-service/pkg/errors"
)

// Store persists games
type Store interface {
	Create(ctx context.Context, game *Game) error
	Get(ctx context.Context, id string) (*Game, error)
	// UpdatePrompt records the latest dispatch text for a game
	UpdatePrompt(ctx context.Context, id, prompt string, at time.Time) error
	Close() error
}

func gameNotFound(id string) *errors.StructuredError {
	return errors.NewNotFoundError(errors.ErrCodeGameNotFound, "Game not found", nil).
		WithContext("game_id", id)
}

// MemoryStore keeps games in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	games map[string]Game
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]Game)}
}

// Create stores a copy of game
func (s *MemoryStore) Create(ctx context.Context, game *Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[game.ID]; exists {
		return errors.NewStorageError(errors.ErrCodeStoreFailed, fmt.Sprintf("Game %s already exists", game.ID), nil)
	}
	s.games[game.ID] = *game
	return nil
}

// Get returns a copy of the stored game
func (s *MemoryStore) Get(ctx context.Context, id string) (*Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	game, exists := s.games[id]
	if !exists {
		return nil, gameNotFound(id)
	}
	return &game, nil
}

// UpdatePrompt sets the welcome prompt and its timestamp
func (s *MemoryStore) UpdatePrompt(ctx context.Context, id, prompt string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game, exists := s.games[id]
	if !exists {
		return gameNotFound(id)
	}
	game.WelcomePrompt = prompt
	game.LastPromptAt = &at
	s.games[id] = game
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error { return nil }
