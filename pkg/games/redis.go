package games

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cityquest-mcp-service/pkg/errors"
)

// DefaultRedisKeyPrefix namespaces game documents
const DefaultRedisKeyPrefix = "cityquest:game:"

// RedisStore keeps each game as a JSON document under its own key
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis URL and verifies the connection
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStoreUnavailable, "Invalid Redis URL", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewStorageError(errors.ErrCodeStoreUnavailable, "Failed to connect to Redis", err)
	}

	return &RedisStore{client: client, prefix: DefaultRedisKeyPrefix}, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Create stores the game document; an existing id is rejected
func (s *RedisStore) Create(ctx context.Context, game *Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.key(game.ID), data, 0).Result()
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStoreFailed, fmt.Sprintf("Failed to store game %s", game.ID), err)
	}
	if !created {
		return errors.NewStorageError(errors.ErrCodeStoreFailed, fmt.Sprintf("Game %s already exists", game.ID), nil)
	}
	return nil
}

// Get loads the game document
func (s *RedisStore) Get(ctx context.Context, id string) (*Game, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, gameNotFound(id)
	}
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStoreFailed, fmt.Sprintf("Failed to load game %s", id), err)
	}
	return decodeGame(data)
}

// UpdatePrompt rewrites the document inside a WATCH transaction so
// concurrent dispatches do not lose each other's writes
func (s *RedisStore) UpdatePrompt(ctx context.Context, id, prompt string, at time.Time) error {
	key := s.key(id)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if stderrors.Is(err, redis.Nil) {
			return gameNotFound(id)
		}
		if err != nil {
			return err
		}

		game, err := decodeGame(data)
		if err != nil {
			return err
		}
		game.WelcomePrompt = prompt
		game.LastPromptAt = &at

		updated, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("failed to marshal game: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}, key)

	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewStorageError(errors.ErrCodeStoreFailed, fmt.Sprintf("Failed to update game %s", id), err)
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeGame(data []byte) (*Game, error) {
	var game Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStoreFailed, "Stored game document is corrupt", err)
	}
	return &game, nil
}
