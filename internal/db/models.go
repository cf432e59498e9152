package db

import (
	"context"
	"fmt"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

// ActiveModels lists active models joined with their provider name.
// Models whose provider relation is missing come back with an empty
// provider name; the dispatcher skips those.
func (db *DB) ActiveModels(ctx context.Context) ([]types.ModelIdentity, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT m.id, m.label, COALESCE(p.name, '')
		 FROM models m
		 LEFT JOIN model_providers p ON p.id = m.provider_id
		 WHERE m.is_active = TRUE
		 ORDER BY m.label`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active models: %w", err)
	}
	defer rows.Close()

	var models []types.ModelIdentity
	for rows.Next() {
		var model types.ModelIdentity
		if err := rows.Scan(&model.ID, &model.Label, &model.ProviderName); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, model)
	}
	return models, rows.Err()
}

// SeedModel upserts a provider row and an active model referencing it.
func (db *DB) SeedModel(ctx context.Context, providerName, label, apiIdentifier string) error {
	var providerID string
	err := db.pool.QueryRow(ctx,
		`INSERT INTO model_providers (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		providerName,
	).Scan(&providerID)
	if err != nil {
		return fmt.Errorf("failed to seed provider %s: %w", providerName, err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO models (label, provider_id, api_identifier, is_active)
		 VALUES ($1, $2, $3, TRUE)
		 ON CONFLICT (label) DO UPDATE SET provider_id = $2, api_identifier = $3, is_active = TRUE`,
		label, providerID, apiIdentifier,
	)
	if err != nil {
		return fmt.Errorf("failed to seed model %s: %w", label, err)
	}
	return nil
}
