package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_runs (
	run_id      uuid PRIMARY KEY,
	started_at  timestamptz NOT NULL,
	finished_at timestamptz NOT NULL,
	owner       text NOT NULL DEFAULT '',
	processed   integer NOT NULL,
	skipped     integer NOT NULL,
	records     integer NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	position     integer PRIMARY KEY,
	run_id       uuid NOT NULL,
	conversation text NOT NULL,
	date         text NOT NULL,
	time         text NOT NULL,
	sent_at      timestamp,
	sender       text NOT NULL,
	message      text NOT NULL
);

CREATE INDEX IF NOT EXISTS chat_messages_conversation_idx ON chat_messages (conversation);
`

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
