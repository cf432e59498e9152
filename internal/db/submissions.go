package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

// InsertSubmission persists one submission row.
func (db *DB) InsertSubmission(ctx context.Context, sub *types.Submission) error {
	metrics, err := json.Marshal(sub.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal submission metrics: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO submissions (id, task_id, model_id, prompt, code, status, error, metrics)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.TaskID, sub.ModelID, sub.Prompt, sub.Code, sub.Status, sub.Error, metrics,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

// MarkSubmissionFailed transitions a submission to failed with the
// stringified error. The code column is left untouched.
func (db *DB) MarkSubmissionFailed(ctx context.Context, id uuid.UUID, message string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE submissions SET status = $1, error = $2 WHERE id = $3`,
		types.SubmissionFailed, message, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark submission failed: %w", err)
	}
	return nil
}

// SubmissionRef is the minimal view the pairing engine works over.
type SubmissionRef struct {
	ID     uuid.UUID
	TaskID uuid.UUID
}

// SucceededSubmissions lists all submissions with status succeeded.
func (db *DB) SucceededSubmissions(ctx context.Context) ([]SubmissionRef, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, task_id FROM submissions WHERE status = $1`, types.SubmissionSucceeded)
	if err != nil {
		return nil, fmt.Errorf("failed to list succeeded submissions: %w", err)
	}
	defer rows.Close()

	var refs []SubmissionRef
	for rows.Next() {
		var ref SubmissionRef
		if err := rows.Scan(&ref.ID, &ref.TaskID); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

const submissionColumns = `s.id, s.task_id, s.model_id, s.prompt, s.code, s.status, s.error, s.metrics, s.created_at,
	       m.label, COALESCE(p.name, '')`

// SubmissionsByTask lists a task's submissions with model identity
// hydrated, oldest first.
func (db *DB) SubmissionsByTask(ctx context.Context, taskID uuid.UUID) ([]types.Submission, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions s
		 JOIN models m ON m.id = s.model_id
		 LEFT JOIN model_providers p ON p.id = m.provider_id
		 WHERE s.task_id = $1
		 ORDER BY s.created_at ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

// SubmissionsByIDs loads submissions for an id list with model
// identity hydrated.
func (db *DB) SubmissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]types.Submission, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions s
		 JOIN models m ON m.id = s.model_id
		 LEFT JOIN model_providers p ON p.id = m.provider_id
		 WHERE s.id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func scanSubmissions(rows pgx.Rows) ([]types.Submission, error) {
	var subs []types.Submission
	for rows.Next() {
		var sub types.Submission
		var metricsJSON []byte
		var modelRef types.ModelRef
		if err := rows.Scan(&sub.ID, &sub.TaskID, &sub.ModelID, &sub.Prompt, &sub.Code,
			&sub.Status, &sub.Error, &metricsJSON, &sub.CreatedAt,
			&modelRef.Label, &modelRef.Provider); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		if metricsJSON != nil {
			_ = json.Unmarshal(metricsJSON, &sub.Metrics)
		}
		sub.Model = &modelRef
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
