package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

// ListMatches returns every match, used by the pairing engine to build
// its duplicate-detection set.
func (db *DB) ListMatches(ctx context.Context) ([]types.Match, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, task_id, submission_a, submission_b, created_at FROM matches`)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

// RecentMatches returns the newest matches first.
func (db *DB) RecentMatches(ctx context.Context, limit int) ([]types.Match, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, task_id, submission_a, submission_b, created_at
		 FROM matches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

// MatchByID loads one match, or nil when absent.
func (db *DB) MatchByID(ctx context.Context, id uuid.UUID) (*types.Match, error) {
	var m types.Match
	err := db.pool.QueryRow(ctx,
		`SELECT id, task_id, submission_a, submission_b, created_at FROM matches WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.TaskID, &m.SubmissionA, &m.SubmissionB, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return &m, nil
}

// MatchInsert is one pairing to create.
type MatchInsert struct {
	TaskID      uuid.UUID
	SubmissionA uuid.UUID
	SubmissionB uuid.UUID
}

// InsertMatches creates the given pairings in one batch. The unique
// index on the sorted pair makes a concurrent duplicate insert fail
// rather than silently double-pairing; that conflict is skipped here
// since the pair already exists.
func (db *DB) InsertMatches(ctx context.Context, inserts []MatchInsert) error {
	if len(inserts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ins := range inserts {
		batch.Queue(
			`INSERT INTO matches (task_id, submission_a, submission_b)
			 VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`,
			ins.TaskID, ins.SubmissionA, ins.SubmissionB,
		)
	}

	results := db.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range inserts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}
	}
	return nil
}

func scanMatches(rows pgx.Rows) ([]types.Match, error) {
	var matches []types.Match
	for rows.Next() {
		var m types.Match
		if err := rows.Scan(&m.ID, &m.TaskID, &m.SubmissionA, &m.SubmissionB, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
