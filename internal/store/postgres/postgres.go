// Package postgres implements the Store on a pgx connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heimassist/assistant-platform/internal/store"
)

// PGStore is the Postgres-backed store.
type PGStore struct {
	db *pgxpool.Pool
}

// New connects a pool and verifies the connection.
func New(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &PGStore{db: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *PGStore {
	return &PGStore{db: pool}
}

// Close releases the pool.
func (s *PGStore) Close() {
	s.db.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversations (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT 'New Chat',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations (user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	id              BIGSERIAL PRIMARY KEY,
	conversation_id BIGINT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, id);

CREATE TABLE IF NOT EXISTS assistant_settings (
	id                    INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	timezone              TEXT NOT NULL DEFAULT 'Europe/Berlin',
	locale                TEXT NOT NULL DEFAULT 'de-DE',
	country               TEXT NOT NULL DEFAULT 'DE',
	default_location_name TEXT NOT NULL DEFAULT '',
	default_lat           DOUBLE PRECISION,
	default_lon           DOUBLE PRECISION,
	units                 TEXT NOT NULL DEFAULT 'metric'
);
INSERT INTO assistant_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`

// CreateSchema applies the schema. Safe to call on every startup.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// DropSchema drops all tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		DROP TABLE IF EXISTS messages CASCADE;
		DROP TABLE IF EXISTS conversations CASCADE;
		DROP TABLE IF EXISTS assistant_settings CASCADE;
	`)
	return err
}

// Ensure PGStore implements store.Store at compile time.
var _ store.Store = (*PGStore)(nil)
