// Package generate produces validated task specifications, either from
// an external generation endpoint or a built-in fallback set. It is
// best-effort by design: generation-provider downtime never blocks the
// pipeline and never surfaces as an error to callers.
package generate

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Icannotcodelol/onnyx/internal/prompts"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

// BatchSize is the number of tasks every generation call returns.
const BatchSize = 3

//go:embed task_spec.schema.json
var taskSpecSchema string

// Generator produces task batches.
type Generator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	schema   *gojsonschema.Schema
	log      zerolog.Logger
}

// New builds a Generator. An empty endpoint or key means every call
// uses the fallback set.
func New(endpoint, apiKey string, log zerolog.Logger) (*Generator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(taskSpecSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile task spec schema: %w", err)
	}

	return &Generator{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
		schema:   schema,
		log:      log,
	}, nil
}

type generatorRequest struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

type generatorResponse struct {
	Tasks []json.RawMessage `json:"tasks"`
}

// Tasks returns exactly BatchSize validated task specs, each with a
// fresh unique identifier.
func (g *Generator) Tasks(ctx context.Context) []types.TaskSpec {
	if g.endpoint == "" || g.apiKey == "" {
		return withFreshIDs(fallbackTasks)
	}

	tasks, err := g.fetchRemote(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("generator endpoint failed, using fallback tasks")
		return withFreshIDs(fallbackTasks)
	}
	return tasks
}

func (g *Generator) fetchRemote(ctx context.Context) ([]types.TaskSpec, error) {
	payload, err := json.Marshal(generatorRequest{
		Prompt: prompts.MustGet("generate.json", "instruction"),
		Count:  BatchSize,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("generator endpoint returned %d: %s", resp.StatusCode, body)
	}

	var parsed generatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("generator returned malformed JSON: %w", err)
	}
	if len(parsed.Tasks) != BatchSize {
		return nil, fmt.Errorf("generator returned %d tasks, want %d", len(parsed.Tasks), BatchSize)
	}

	tasks := make([]types.TaskSpec, 0, BatchSize)
	for i, raw := range parsed.Tasks {
		if err := g.validate(raw); err != nil {
			return nil, fmt.Errorf("task %d failed validation: %w", i, err)
		}
		var task types.TaskSpec
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, fmt.Errorf("task %d failed to decode: %w", i, err)
		}
		task.ID = uuid.New()
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// validate checks one generated task against the TaskSpec schema
// (identifier excluded; it is assigned post-hoc).
func (g *Generator) validate(raw json.RawMessage) error {
	result, err := g.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return err
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return fmt.Errorf("%s: %s", first.Field(), first.Description())
	}
	return nil
}

func withFreshIDs(tasks []types.TaskSpec) []types.TaskSpec {
	out := make([]types.TaskSpec, len(tasks))
	for i, task := range tasks {
		out[i] = task
		out[i].ID = uuid.New()
	}
	return out
}
