package games

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cityquest-mcp-service/pkg/errors"
)

const createGamesTable = `CREATE TABLE IF NOT EXISTS games (
	id              TEXT PRIMARY KEY,
	player_name     TEXT NOT NULL,
	adventure_type  TEXT NOT NULL CHECK (adventure_type IN ('tour', 'foodie', 'race')),
	avatar_data_url TEXT,
	created_at      TIMESTAMPTZ NOT NULL,
	welcome_prompt  TEXT,
	last_prompt_at  TIMESTAMPTZ
)`

const insertGame = `INSERT INTO games (id, player_name, adventure_type, avatar_data_url, created_at)
VALUES ($1, $2, $3, $4, $5)`

const selectGame = `SELECT id, player_name, adventure_type, avatar_data_url, created_at, welcome_prompt, last_prompt_at
FROM games WHERE id = $1`

const updateGamePrompt = `UPDATE games SET welcome_prompt = $2, last_prompt_at = $3 WHERE id = $1`

// DB is the subset of *pgxpool.Pool the store uses
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps games in a PostgreSQL games table
type PostgresStore struct {
	db   DB
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool to dsn and verifies the connection
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStoreUnavailable, "Invalid PostgreSQL DSN", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStoreUnavailable, "Failed to create PostgreSQL pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewStorageError(errors.ErrCodeStoreUnavailable, "Failed to connect to PostgreSQL", err)
	}

	return &PostgresStore{db: pool, pool: pool}, nil
}

// NewPostgresStoreWithDB wraps an existing connection or pool
func NewPostgresStoreWithDB(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the games table when missing
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createGamesTable); err != nil {
		return errors.NewStorageError(errors.ErrCodeStoreFailed, "Failed to create games table", err)
	}
	return nil
}

// Create inserts a game row
func (s *PostgresStore) Create(ctx context.Context, game *Game) error {
	_, err := s.db.Exec(ctx, insertGame,
		game.ID, game.PlayerName, string(game.AdventureType), nullable(game.AvatarDataURL), game.CreatedAt)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStoreFailed, fmt.Sprintf("Failed to insert game %s", game.ID), err)
	}
	return nil
}

// Get loads a game row
func (s *PostgresStore) Get(ctx context.Context, id string) (*Game, error) {
	var (
		game          Game
		adventureType string
		avatar        *string
		welcome       *string
		lastPromptAt  *time.Time
	)

	err := s.db.QueryRow(ctx, selectGame, id).Scan(
		&game.ID, &game.PlayerName, &adventureType, &avatar, &game.CreatedAt, &welcome, &lastPromptAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, gameNotFound(id)
	}
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStoreFailed, fmt.Sprintf("Failed to load game %s", id), err)
	}

	game.AdventureType = AdventureType(adventureType)
	if avatar != nil {
		game.AvatarDataURL = *avatar
	}
	if welcome != nil {
		game.WelcomePrompt = *welcome
	}
	game.LastPromptAt = lastPromptAt
	return &game, nil
}

// UpdatePrompt writes the welcome prompt columns
func (s *PostgresStore) UpdatePrompt(ctx context.Context, id, prompt string, at time.Time) error {
	tag, err := s.db.Exec(ctx, updateGamePrompt, id, prompt, at)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStoreFailed, fmt.Sprintf("Failed to update game %s", id), err)
	}
	if tag.RowsAffected() == 0 {
		return gameNotFound(id)
	}
	return nil
}

// Close releases the pool when the store owns one
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
