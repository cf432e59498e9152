package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

// InsertArtifact persists one artifact row and fills in its generated
// id.
func (db *DB) InsertArtifact(ctx context.Context, art *types.Artifact) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO artifacts (submission_id, kind, storage_path, width, height, duration_ms, harness_html)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		art.SubmissionID, art.Kind, art.StoragePath, art.Width, art.Height, art.DurationMS, art.HarnessHTML,
	).Scan(&art.ID)
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}
	return nil
}

// ArtifactsBySubmissions lists artifacts for a submission id list,
// insertion order preserved so index 0 stays the primary artifact.
func (db *DB) ArtifactsBySubmissions(ctx context.Context, submissionIDs []uuid.UUID) ([]types.Artifact, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, submission_id, kind, storage_path, width, height, duration_ms, harness_html
		 FROM artifacts
		 WHERE submission_id = ANY($1)
		 ORDER BY created_at ASC`,
		submissionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

func scanArtifacts(rows pgx.Rows) ([]types.Artifact, error) {
	var artifacts []types.Artifact
	for rows.Next() {
		var art types.Artifact
		if err := rows.Scan(&art.ID, &art.SubmissionID, &art.Kind, &art.StoragePath,
			&art.Width, &art.Height, &art.DurationMS, &art.HarnessHTML); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, art)
	}
	return artifacts, rows.Err()
}
