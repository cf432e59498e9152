package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

// InsertTasks persists a generated task batch with status "generated"
// and returns the inserted specs.
func (db *DB) InsertTasks(ctx context.Context, tasks []types.TaskSpec) ([]types.TaskSpec, error) {
	batch := &pgx.Batch{}
	for _, task := range tasks {
		spec, err := json.Marshal(task)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal task spec: %w", err)
		}
		batch.Queue(
			`INSERT INTO tasks (id, title, spec, status) VALUES ($1, $2, $3, $4)`,
			task.ID, task.Title, spec, types.TaskStatusGenerated,
		)
	}

	results := db.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range tasks {
		if _, err := results.Exec(); err != nil {
			return nil, fmt.Errorf("failed to insert task: %w", err)
		}
	}
	return tasks, nil
}

// TaskByID loads one task spec, or nil when absent.
func (db *DB) TaskByID(ctx context.Context, id uuid.UUID) (*types.TaskSpec, error) {
	var specJSON []byte
	err := db.pool.QueryRow(ctx, `SELECT spec FROM tasks WHERE id = $1`, id).Scan(&specJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return decodeSpec(id, specJSON)
}

// TasksByIDs loads the specs for an explicit id list.
func (db *DB) TasksByIDs(ctx context.Context, ids []uuid.UUID) ([]types.TaskSpec, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, spec FROM tasks WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	return scanSpecs(rows)
}

// TasksByStatus loads all tasks with the given status.
func (db *DB) TasksByStatus(ctx context.Context, status string) ([]types.TaskSpec, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, spec FROM tasks WHERE status = $1`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	return scanSpecs(rows)
}

// LatestTasks returns the most recently generated tasks, newest first.
func (db *DB) LatestTasks(ctx context.Context, limit int) ([]types.TaskSpec, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, spec FROM tasks ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	return scanSpecs(rows)
}

// UpdateTaskStatus transitions a task's lifecycle status.
func (db *DB) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx, `UPDATE tasks SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return nil
}

func scanSpecs(rows pgx.Rows) ([]types.TaskSpec, error) {
	var tasks []types.TaskSpec
	for rows.Next() {
		var id uuid.UUID
		var specJSON []byte
		if err := rows.Scan(&id, &specJSON); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		task, err := decodeSpec(id, specJSON)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// decodeSpec parses the stored spec document, asserting the row id
// over whatever the document carries.
func decodeSpec(id uuid.UUID, specJSON []byte) (*types.TaskSpec, error) {
	var task types.TaskSpec
	if err := json.Unmarshal(specJSON, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task spec %s: %w", id, err)
	}
	task.ID = id
	return &task, nil
}
