// Package dispatch fans a task out to every active model, persists the
// resulting submissions, and renders artifacts for the ones that
// produce usable code.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Icannotcodelol/onnyx/internal/harness"
	"github.com/Icannotcodelol/onnyx/internal/metrics"
	"github.com/Icannotcodelol/onnyx/internal/providers"
	"github.com/Icannotcodelol/onnyx/internal/renderer"
	"github.com/Icannotcodelol/onnyx/internal/sanitize"
	"github.com/Icannotcodelol/onnyx/internal/storage"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

// maxConcurrentModels bounds the provider fan-out per task.
const maxConcurrentModels = 4

// Store is the subset of the database layer the dispatcher needs.
type Store interface {
	ActiveModels(ctx context.Context) ([]types.ModelIdentity, error)
	InsertSubmission(ctx context.Context, sub *types.Submission) error
	MarkSubmissionFailed(ctx context.Context, id uuid.UUID, message string) error
	InsertArtifact(ctx context.Context, art *types.Artifact) error
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Renderer turns submission code into a harness and thumbnail.
type Renderer interface {
	Render(ctx context.Context, runtime types.Runtime, code string) (*renderer.RenderResult, error)
}

// Outcome records what happened for one model during a dispatch. Err
// is set when no usable code was stored; the failure still gets a
// submission row with status failed so it stays visible after the
// run. RenderErr is set when the submission holds code but its
// artifact could not be produced.
type Outcome struct {
	Model        types.ModelIdentity
	SubmissionID uuid.UUID
	Err          error
	RenderErr    error
}

// Report summarizes a dispatch across all active models.
type Report struct {
	TaskID   uuid.UUID
	Outcomes []Outcome
}

// Succeeded counts models whose submission was stored with code.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Dispatcher orchestrates the per-task fan-out.
type Dispatcher struct {
	store    Store
	blobs    storage.BlobStore
	renderer Renderer
	registry map[string]providers.Provider
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New creates a dispatcher. metrics may be nil.
func New(store Store, blobs storage.BlobStore, r Renderer, registry map[string]providers.Provider, m *metrics.Metrics, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		blobs:    blobs,
		renderer: r,
		registry: registry,
		metrics:  m,
		log:      log,
	}
}

// DispatchTask sends the task to every active model in parallel. One
// model failing never aborts the others; each failure is captured in
// the report instead. The returned error covers only preconditions and
// model-list loading.
func (d *Dispatcher) DispatchTask(ctx context.Context, task types.TaskSpec) (*Report, error) {
	if task.ID == uuid.Nil {
		return nil, errors.New("task has no id; persist it before dispatching")
	}
	if !task.Runtime.Valid() {
		return nil, fmt.Errorf("unsupported runtime %q", task.Runtime)
	}

	models, err := d.store.ActiveModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active models: %w", err)
	}

	report := &Report{TaskID: task.ID}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentModels)

	for _, model := range models {
		provider, ok := d.registry[strings.ToLower(model.ProviderName)]
		if !ok {
			d.log.Warn().
				Str("provider", model.ProviderName).
				Str("model", model.Label).
				Msg("no adapter for provider, skipping model")
			continue
		}

		model := model
		g.Go(func() error {
			outcome := d.runModel(gctx, task, model, provider)
			mu.Lock()
			report.Outcomes = append(report.Outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}

	// Worker funcs never return errors; failures live in the report.
	_ = g.Wait()

	if report.Succeeded() > 0 {
		if err := d.store.UpdateTaskStatus(ctx, task.ID, types.TaskStatusDispatched); err != nil {
			d.log.Error().Err(err).Stringer("task", task.ID).Msg("failed to mark task dispatched")
		}
	}
	if d.metrics != nil {
		d.metrics.TasksDispatched.Inc()
	}

	d.log.Info().
		Stringer("task", task.ID).
		Int("models", len(report.Outcomes)).
		Int("succeeded", report.Succeeded()).
		Msg("dispatch complete")
	return report, nil
}

func (d *Dispatcher) runModel(ctx context.Context, task types.TaskSpec, model types.ModelIdentity, provider providers.Provider) Outcome {
	outcome := Outcome{Model: model}
	log := d.log.With().Str("provider", model.ProviderName).Str("model", model.Label).Logger()

	result, err := provider.Call(ctx, task, harness.SystemPrompt())
	if err != nil {
		d.countCall(model.ProviderName, "error")
		log.Error().Err(err).Msg("provider call failed")
		outcome.Err = err
		outcome.SubmissionID = d.recordFailure(ctx, task, model, err, log)
		return outcome
	}
	d.countCall(model.ProviderName, "ok")

	code, err := sanitize.Clean(result.Code, sanitize.DefaultPolicy)
	if err != nil {
		log.Error().Err(err).Msg("submission code rejected")
		outcome.Err = err
		outcome.SubmissionID = d.recordFailure(ctx, task, model, err, log)
		return outcome
	}

	sub := &types.Submission{
		ID:      uuid.New(),
		TaskID:  task.ID,
		ModelID: model.ID,
		Prompt:  harness.FormatSubmissionPrompt(task),
		Code:    &code,
		Status:  types.SubmissionSucceeded,
		Metrics: map[string]any{"tokens": result.Tokens},
	}
	if err := d.store.InsertSubmission(ctx, sub); err != nil {
		log.Error().Err(err).Msg("failed to store submission")
		outcome.Err = err
		return outcome
	}
	outcome.SubmissionID = sub.ID

	if err := d.renderArtifact(ctx, task, sub, code); err != nil {
		if d.metrics != nil {
			d.metrics.RenderFailures.Inc()
		}
		log.Error().Err(err).Stringer("submission", sub.ID).Msg("artifact render failed")
		if markErr := d.store.MarkSubmissionFailed(ctx, sub.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Stringer("submission", sub.ID).Msg("failed to mark submission failed")
		}
		outcome.RenderErr = err
	}
	return outcome
}

// recordFailure persists a failed submission row for a provider or
// sanitizer error. Persistence here is best effort; the outcome in the
// report carries the original error either way.
func (d *Dispatcher) recordFailure(ctx context.Context, task types.TaskSpec, model types.ModelIdentity, cause error, log zerolog.Logger) uuid.UUID {
	msg := cause.Error()
	sub := &types.Submission{
		ID:      uuid.New(),
		TaskID:  task.ID,
		ModelID: model.ID,
		Prompt:  harness.FormatSubmissionPrompt(task),
		Status:  types.SubmissionFailed,
		Error:   &msg,
	}
	if err := d.store.InsertSubmission(ctx, sub); err != nil {
		log.Error().Err(err).Msg("failed to store failed submission")
		return uuid.Nil
	}
	return sub.ID
}

// renderArtifact produces the thumbnail, uploads it, and records the
// artifact row. The blob upload and the row insert are separate steps;
// an orphaned blob after a failed insert is tolerated.
func (d *Dispatcher) renderArtifact(ctx context.Context, task types.TaskSpec, sub *types.Submission, code string) error {
	rendered, err := d.renderer.Render(ctx, task.Runtime, code)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	path := fmt.Sprintf("submissions/%s/%d.png", sub.ID, time.Now().UnixMilli())
	if err := d.blobs.Upload(ctx, path, rendered.Thumbnail, "image/png"); err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}

	art := &types.Artifact{
		SubmissionID: sub.ID,
		Kind:         types.ArtifactImage,
		StoragePath:  path,
		Width:        &rendered.Width,
		Height:       &rendered.Height,
		HarnessHTML:  &rendered.Harness,
	}
	if err := d.store.InsertArtifact(ctx, art); err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}
	return nil
}

func (d *Dispatcher) countCall(provider, status string) {
	if d.metrics != nil {
		d.metrics.ProviderCalls.WithLabelValues(strings.ToLower(provider), status).Inc()
	}
}
