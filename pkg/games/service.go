package games

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cityquest-mcp-service/pkg/errors"
	"cityquest-mcp-service/pkg/logging"
)

// CreateGameInput is the payload accepted by CreateGame
type CreateGameInput struct {
	PlayerName    string `json:"playerName"`
	AdventureType string `json:"adventureType"`
	AvatarDataURL string `json:"avatarDataUrl,omitempty"`
}

// Service creates games and issues their dispatch prompts. Every store call
// goes through a circuit breaker.
type Service struct {
	store   Store
	breaker *errors.CircuitBreaker
	logger  *logging.StructuredLogger
	now     func() time.Time
	newID   func() string
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithClock replaces the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the game id generator
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) { s.newID = newID }
}

// WithCircuitBreaker replaces the default store breaker
func WithCircuitBreaker(cb *errors.CircuitBreaker) ServiceOption {
	return func(s *Service) { s.breaker = cb }
}

// NewService creates a game service over store
func NewService(store Store, logger *logging.StructuredLogger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = logging.NewStructuredLogger("games")
	}
	s := &Service{
		store:   store,
		breaker: errors.NewCircuitBreaker(errors.DefaultCircuitBreakerConfig("games_store")),
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Answers about the caller's input are not backend failures.
	s.breaker.SetFailureClassifier(func(err error) bool {
		return err != nil &&
			!errors.IsCategory(err, errors.ErrorCategoryNotFound) &&
			!errors.IsCategory(err, errors.ErrorCategoryValidation)
	})
	s.breaker.SetStateChangeCallback(func(name string, from, to errors.CircuitBreakerState) {
		s.logger.LogCircuitBreakerEvent(name, from, to)
	})
	return s
}

// BreakerStats exposes the store breaker state
func (s *Service) BreakerStats() errors.CircuitBreakerStats {
	return s.breaker.GetStats()
}

// CreateGame validates the input and records a new game
func (s *Service) CreateGame(ctx context.Context, input CreateGameInput) (*Game, error) {
	var violations []errors.FieldViolation

	playerName := strings.TrimSpace(input.PlayerName)
	if playerName == "" {
		violations = append(violations, errors.FieldViolation{
			Field: "playerName", Constraint: "minLength", Message: "playerName must not be empty",
		})
	}
	adventureType, ok := ParseAdventureType(input.AdventureType)
	if !ok {
		violations = append(violations, errors.FieldViolation{
			Field:      "adventureType",
			Constraint: "enum",
			Message:    fmt.Sprintf("adventureType must be one of tour, foodie, race; got %q", input.AdventureType),
		})
	}
	if len(violations) > 0 {
		fields := make([]string, len(violations))
		for i, v := range violations {
			fields[i] = v.Field
		}
		return nil, errors.NewValidationError(
			errors.ErrCodeInvalidArguments,
			"Invalid arguments: "+strings.Join(fields, ", "),
			nil,
		).WithViolations(violations...)
	}

	game := &Game{
		ID:            s.newID(),
		PlayerName:    playerName,
		AdventureType: adventureType,
		AvatarDataURL: input.AvatarDataURL,
		CreatedAt:     s.now().UTC(),
	}

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.store.Create(ctx, game)
	})
	if err != nil {
		s.logger.WithError(err).WithContext("game_id", game.ID).Error("Failed to create game")
		return nil, err
	}

	s.logger.WithContext("game_id", game.ID).
		WithContext("adventure_type", string(adventureType)).
		WithContext("has_avatar", game.AvatarDataURL != "").
		Info("Game created")
	return game, nil
}

// GetGame loads a game by id
func (s *Service) GetGame(ctx context.Context, id string) (*Game, error) {
	var game *Game
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		game, err = s.store.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// SendPrompt builds the game's dispatch text, records it and returns it
func (s *Service) SendPrompt(ctx context.Context, id string) (string, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return "", err
	}

	prompt := BuildDispatch(game)
	at := s.now().UTC()

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.store.UpdatePrompt(ctx, id, prompt, at)
	})
	if err != nil {
		s.logger.WithError(err).WithContext("game_id", id).Error("Failed to record dispatch")
		return "", err
	}

	s.logger.WithContext("game_id", id).Info("Dispatch sent")
	return prompt, nil
}

// Close closes the underlying store
func (s *Service) Close() error {
	return s.store.Close()
}
