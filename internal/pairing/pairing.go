// Package pairing builds head-to-head matches from succeeded
// submissions.
package pairing

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/Icannotcodelol/onnyx/internal/db"
	"github.com/Icannotcodelol/onnyx/internal/metrics"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

// Store is the subset of the database layer the engine needs.
type Store interface {
	SucceededSubmissions(ctx context.Context) ([]db.SubmissionRef, error)
	ListMatches(ctx context.Context) ([]types.Match, error)
	InsertMatches(ctx context.Context, matches []db.MatchInsert) error
}

// Engine plans and persists matches.
type Engine struct {
	store   Store
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a pairing engine. metrics may be nil.
func New(store Store, m *metrics.Metrics, log zerolog.Logger) *Engine {
	return &Engine{store: store, metrics: m, log: log}
}

// Run pairs up unmatched succeeded submissions and returns the number
// of matches created. Running it repeatedly without new submissions
// creates nothing.
func (e *Engine) Run(ctx context.Context) (int, error) {
	refs, err := e.store.SucceededSubmissions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load submissions: %w", err)
	}

	existing, err := e.store.ListMatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("load matches: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[m.Key()] = true
	}

	planned := planMatches(refs, seen)
	if len(planned) == 0 {
		e.log.Debug().Int("submissions", len(refs)).Msg("no new matches to create")
		return 0, nil
	}

	if err := e.store.InsertMatches(ctx, planned); err != nil {
		return 0, fmt.Errorf("insert matches: %w", err)
	}
	if e.metrics != nil {
		e.metrics.MatchesCreated.Add(float64(len(planned)))
	}
	e.log.Info().Int("created", len(planned)).Msg("pairing complete")
	return len(planned), nil
}

// planMatches groups submissions by task and pairs them off in sorted
// order, skipping pairs that already exist. Each submission appears in
// at most one planned match per run.
func planMatches(refs []db.SubmissionRef, existing map[string]bool) []db.MatchInsert {
	byTask := make(map[string][]db.SubmissionRef)
	for _, ref := range refs {
		key := ref.TaskID.String()
		byTask[key] = append(byTask[key], ref)
	}

	taskKeys := make([]string, 0, len(byTask))
	for key := range byTask {
		taskKeys = append(taskKeys, key)
	}
	sort.Strings(taskKeys)

	var planned []db.MatchInsert
	for _, key := range taskKeys {
		group := byTask[key]
		sort.Slice(group, func(i, j int) bool {
			return group[i].ID.String() < group[j].ID.String()
		})
		for i := 0; i+1 < len(group); i += 2 {
			a, b := group[i], group[i+1]
			pairKey := types.PairKey(a.TaskID, a.ID, b.ID)
			if existing[pairKey] {
				continue
			}
			planned = append(planned, db.MatchInsert{
				TaskID:      a.TaskID,
				SubmissionA: a.ID,
				SubmissionB: b.ID,
			})
		}
	}
	return planned
}
