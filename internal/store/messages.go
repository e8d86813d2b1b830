package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/chatlog/internal/dataset"
)

var messageColumns = []string{"position", "run_id", "conversation", "date", "time", "sent_at", "sender", "message"}

// RunSummary is the run metadata stored next to the messages.
type RunSummary struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Skipped    int
}

// ReplaceDataset swaps the whole chat_messages table for ds in one transaction,
// so readers see either the previous run or this one.
func (s *Store) ReplaceDataset(ctx context.Context, run RunSummary, ds *dataset.Dataset) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Record the run
	_, err = tx.Exec(ctx, `
		INSERT INTO chat_runs (run_id, started_at, finished_at, owner, processed, skipped, records)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.RunID, run.StartedAt, run.FinishedAt, ds.Owner, run.Processed, run.Skipped, len(ds.Records),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	// 2. Drop the previous dataset
	if _, err := tx.Exec(ctx, `DELETE FROM chat_messages`); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	// 3. Bulk load
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"chat_messages"}, messageColumns,
		pgx.CopyFromSlice(len(ds.Records), func(i int) ([]any, error) {
			r := ds.Records[i]
			var sentAt *time.Time
			if ts, err := r.Timestamp(); err == nil {
				sentAt = &ts
			}
			return []any{i, run.RunID, r.Conversation, r.Date, r.Time, sentAt, r.Sender, r.Body}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy messages: %w", err)
	}
	if int(n) != len(ds.Records) {
		return fmt.Errorf("copy messages: wrote %d of %d rows", n, len(ds.Records))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ConversationCounts returns the number of stored messages per conversation.
func (s *Store) ConversationCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT conversation, count(*) FROM chat_messages GROUP BY conversation`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var conv string
		var n int
		if err := rows.Scan(&conv, &n); err != nil {
			return nil, err
		}
		counts[conv] = n
	}
	return counts, rows.Err()
}
