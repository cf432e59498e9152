package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Icannotcodelol/onnyx/internal/providers"
	"github.com/Icannotcodelol/onnyx/internal/renderer"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

type fakeStore struct {
	mu          sync.Mutex
	models      []types.ModelIdentity
	submissions []*types.Submission
	artifacts   []*types.Artifact
	failed      map[uuid.UUID]string
	taskStatus  map[uuid.UUID]string

	insertSubmissionErr error
}

func newFakeStore(models ...types.ModelIdentity) *fakeStore {
	return &fakeStore{
		models:     models,
		failed:     make(map[uuid.UUID]string),
		taskStatus: make(map[uuid.UUID]string),
	}
}

func (s *fakeStore) ActiveModels(context.Context) ([]types.ModelIdentity, error) {
	return s.models, nil
}

func (s *fakeStore) InsertSubmission(_ context.Context, sub *types.Submission) error {
	if s.insertSubmissionErr != nil {
		return s.insertSubmissionErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
	return nil
}

func (s *fakeStore) MarkSubmissionFailed(_ context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = message
	return nil
}

func (s *fakeStore) InsertArtifact(_ context.Context, art *types.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, art)
	return nil
}

func (s *fakeStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskStatus[id] = status
	return nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	uploads map[string][]byte
}

func (b *fakeBlobs) Upload(_ context.Context, path string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploads == nil {
		b.uploads = make(map[string][]byte)
	}
	b.uploads[path] = data
	return nil
}

func (b *fakeBlobs) PublicURL(path string) string { return "http://blobs.local/" + path }

type fakeRenderer struct {
	err error
}

func (r *fakeRenderer) Render(_ context.Context, _ types.Runtime, _ string) (*renderer.RenderResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &renderer.RenderResult{
		Harness:   "<html></html>",
		Thumbnail: []byte{0x89, 0x50, 0x4e, 0x47},
		Width:     640,
		Height:    360,
	}, nil
}

type fakeProvider struct {
	name string
	code string
	err  error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Call(context.Context, types.TaskSpec, string) (*providers.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &providers.Result{Code: p.code, Tokens: 42}, nil
}

func testTask() types.TaskSpec {
	return types.TaskSpec{
		ID:      uuid.New(),
		Slug:    "audio-visualization-sphere",
		Title:   "Audio Sphere",
		Summary: "Render a pulsing sphere",
		Runtime: types.RuntimeJSBrowser,
		Starter: types.Starter{Language: "javascript", Code: "function render() {}"},
	}
}

const validCode = "function render(canvas, audioData) { canvas.getContext('2d'); }"

func TestDispatchTaskStoresSubmissionsAndArtifacts(t *testing.T) {
	modelA := types.ModelIdentity{ID: uuid.New(), Label: "A", ProviderName: "OpenAI"}
	modelB := types.ModelIdentity{ID: uuid.New(), Label: "B", ProviderName: "Anthropic"}
	store := newFakeStore(modelA, modelB)
	registry := map[string]providers.Provider{
		"openai":    &fakeProvider{name: "openai", code: validCode},
		"anthropic": &fakeProvider{name: "anthropic", code: validCode},
	}
	blobs := &fakeBlobs{}
	d := New(store, blobs, &fakeRenderer{}, registry, nil, zerolog.Nop())

	task := testTask()
	report, err := d.DispatchTask(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded())
	require.Len(t, store.submissions, 2)
	require.Len(t, store.artifacts, 2)
	assert.Len(t, blobs.uploads, 2)
	assert.Equal(t, types.TaskStatusDispatched, store.taskStatus[task.ID])

	for _, sub := range store.submissions {
		assert.Equal(t, types.SubmissionSucceeded, sub.Status)
		require.NotNil(t, sub.Code)
		assert.Equal(t, validCode, *sub.Code)
		assert.Equal(t, 42, sub.Metrics["tokens"])
	}
}

func TestDispatchTaskIsolatesProviderFailure(t *testing.T) {
	modelA := types.ModelIdentity{ID: uuid.New(), Label: "A", ProviderName: "openai"}
	modelB := types.ModelIdentity{ID: uuid.New(), Label: "B", ProviderName: "anthropic"}
	store := newFakeStore(modelA, modelB)
	registry := map[string]providers.Provider{
		"openai":    &fakeProvider{name: "openai", err: errors.New("rate limited")},
		"anthropic": &fakeProvider{name: "anthropic", code: validCode},
	}
	d := New(store, &fakeBlobs{}, &fakeRenderer{}, registry, nil, zerolog.Nop())

	report, err := d.DispatchTask(context.Background(), testTask())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, 1, report.Succeeded())

	require.Len(t, store.submissions, 2, "the failure is persisted next to the healthy submission")
	byModel := make(map[uuid.UUID]*types.Submission)
	for _, sub := range store.submissions {
		byModel[sub.ModelID] = sub
	}

	failed := byModel[modelA.ID]
	require.NotNil(t, failed)
	assert.Equal(t, types.SubmissionFailed, failed.Status)
	assert.Nil(t, failed.Code)
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "rate limited")

	healthy := byModel[modelB.ID]
	require.NotNil(t, healthy)
	assert.Equal(t, types.SubmissionSucceeded, healthy.Status)
}

func TestDispatchTaskRenderFailureKeepsCode(t *testing.T) {
	model := types.ModelIdentity{ID: uuid.New(), Label: "A", ProviderName: "openai"}
	store := newFakeStore(model)
	registry := map[string]providers.Provider{
		"openai": &fakeProvider{name: "openai", code: validCode},
	}
	d := New(store, &fakeBlobs{}, &fakeRenderer{err: errors.New("renderer down")}, registry, nil, zerolog.Nop())

	report, err := d.DispatchTask(context.Background(), testTask())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.NoError(t, report.Outcomes[0].Err)
	assert.Error(t, report.Outcomes[0].RenderErr)

	require.Len(t, store.submissions, 1)
	sub := store.submissions[0]
	assert.Contains(t, store.failed[sub.ID], "renderer down")
	require.NotNil(t, sub.Code, "code survives a render failure")
	assert.Empty(t, store.artifacts)
}

func TestDispatchTaskRejectsForbiddenCode(t *testing.T) {
	model := types.ModelIdentity{ID: uuid.New(), Label: "A", ProviderName: "openai"}
	store := newFakeStore(model)
	registry := map[string]providers.Provider{
		"openai": &fakeProvider{name: "openai", code: "eval('alert(1)')"},
	}
	d := New(store, &fakeBlobs{}, &fakeRenderer{}, registry, nil, zerolog.Nop())

	report, err := d.DispatchTask(context.Background(), testTask())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Error(t, report.Outcomes[0].Err)

	require.Len(t, store.submissions, 1)
	sub := store.submissions[0]
	assert.Equal(t, types.SubmissionFailed, sub.Status)
	assert.Nil(t, sub.Code, "rejected code is never stored")
	assert.Empty(t, store.artifacts)
}

func TestDispatchTaskSkipsUnknownProvider(t *testing.T) {
	model := types.ModelIdentity{ID: uuid.New(), Label: "A", ProviderName: "mystery"}
	store := newFakeStore(model)
	d := New(store, &fakeBlobs{}, &fakeRenderer{}, map[string]providers.Provider{}, nil, zerolog.Nop())

	report, err := d.DispatchTask(context.Background(), testTask())
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
}

func TestDispatchTaskRequiresPersistedTask(t *testing.T) {
	d := New(newFakeStore(), &fakeBlobs{}, &fakeRenderer{}, nil, nil, zerolog.Nop())

	task := testTask()
	task.ID = uuid.Nil
	_, err := d.DispatchTask(context.Background(), task)
	assert.Error(t, err)
}
