package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Icannotcodelol/onnyx/internal/dispatch"
	"github.com/Icannotcodelol/onnyx/internal/metrics"
	"github.com/Icannotcodelol/onnyx/internal/types"
	"github.com/Icannotcodelol/onnyx/internal/vote"
)

type fakeStore struct {
	tasks       []types.TaskSpec
	submissions []types.Submission
	artifacts   []types.Artifact
	matches     []types.Match
	ratings     []types.Rating

	inserted []types.TaskSpec
}

func (s *fakeStore) InsertTasks(_ context.Context, tasks []types.TaskSpec) ([]types.TaskSpec, error) {
	s.inserted = append(s.inserted, tasks...)
	return tasks, nil
}

func (s *fakeStore) TasksByStatus(_ context.Context, status string) ([]types.TaskSpec, error) {
	return s.tasks, nil
}

func (s *fakeStore) LatestTasks(_ context.Context, limit int) ([]types.TaskSpec, error) {
	if limit < len(s.tasks) {
		return s.tasks[:limit], nil
	}
	return s.tasks, nil
}

func (s *fakeStore) TaskByID(_ context.Context, id uuid.UUID) (*types.TaskSpec, error) {
	for _, task := range s.tasks {
		if task.ID == id {
			return &task, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SubmissionsByTask(_ context.Context, taskID uuid.UUID) ([]types.Submission, error) {
	var out []types.Submission
	for _, sub := range s.submissions {
		if sub.TaskID == taskID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakeStore) SubmissionsByIDs(_ context.Context, ids []uuid.UUID) ([]types.Submission, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []types.Submission
	for _, sub := range s.submissions {
		if want[sub.ID] {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakeStore) ArtifactsBySubmissions(_ context.Context, ids []uuid.UUID) ([]types.Artifact, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []types.Artifact
	for _, art := range s.artifacts {
		if want[art.SubmissionID] {
			out = append(out, art)
		}
	}
	return out, nil
}

func (s *fakeStore) RecentMatches(_ context.Context, limit int) ([]types.Match, error) {
	return s.matches, nil
}

func (s *fakeStore) Leaderboard(_ context.Context) ([]types.Rating, error) {
	return s.ratings, nil
}

type fakeGenerator struct {
	tasks []types.TaskSpec
}

func (g *fakeGenerator) Tasks(context.Context) []types.TaskSpec { return g.tasks }

type fakeDispatcher struct {
	dispatched []uuid.UUID
}

func (d *fakeDispatcher) DispatchTask(_ context.Context, task types.TaskSpec) (*dispatch.Report, error) {
	d.dispatched = append(d.dispatched, task.ID)
	return &dispatch.Report{
		TaskID:   task.ID,
		Outcomes: []dispatch.Outcome{{SubmissionID: uuid.New()}},
	}, nil
}

type fakePairer struct {
	created int
	err     error
}

func (p *fakePairer) Run(context.Context) (int, error) { return p.created, p.err }

type fakeVotes struct {
	reqs []vote.Request
	err  error
}

func (v *fakeVotes) Submit(_ context.Context, req vote.Request) (*types.Vote, error) {
	if v.err != nil {
		return nil, v.err
	}
	v.reqs = append(v.reqs, req)
	return &types.Vote{
		MatchID:  uuid.MustParse(req.MatchID),
		VoterKey: req.VoterKey,
	}, nil
}

type fakeBlobs struct{}

func (fakeBlobs) Upload(context.Context, string, []byte, string) error { return nil }
func (fakeBlobs) PublicURL(path string) string                         { return "http://blobs.local/artifacts/" + path }

func newTestServer(store *fakeStore) (*Server, *fakeDispatcher, *fakeVotes) {
	dispatcher := &fakeDispatcher{}
	votes := &fakeVotes{}
	s := New(Options{
		Port:       0,
		CronSecret: "secret",
		Store:      store,
		Generator:  &fakeGenerator{tasks: []types.TaskSpec{{Slug: "audio-visualization-sphere", Runtime: types.RuntimeJSBrowser}}},
		Dispatcher: dispatcher,
		Pairer:     &fakePairer{created: 2},
		Votes:      votes,
		Blobs:      fakeBlobs{},
		Metrics:    metrics.New(prometheus.NewRegistry()),
		Log:        zerolog.Nop(),
	})
	return s, dispatcher, votes
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.9:52011"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func cronHeader() map[string]string {
	return map[string]string{"x-cron-secret": "secret"}
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(&fakeStore{})

	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateRequiresCronSecret(t *testing.T) {
	s, _, _ := newTestServer(&fakeStore{})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/generate", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/generate", nil, map[string]string{"x-cron-secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateStoresTasks(t *testing.T) {
	store := &fakeStore{}
	s, _, _ := newTestServer(store)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/generate", nil, cronHeader())
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		OK    bool `json:"ok"`
		Count int  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 1, resp.Count)
	assert.Len(t, store.inserted, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.TasksGenerated))
}

func TestDispatchAllPending(t *testing.T) {
	store := &fakeStore{tasks: []types.TaskSpec{
		{ID: uuid.New(), Runtime: types.RuntimeJSBrowser},
		{ID: uuid.New(), Runtime: types.RuntimeJSBrowser},
	}}
	s, dispatcher, _ := newTestServer(store)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/dispatch", nil, cronHeader())
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		OK    bool `json:"ok"`
		Count int  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, dispatcher.dispatched, 2)
}

func TestDispatchSingleTask(t *testing.T) {
	task := types.TaskSpec{ID: uuid.New(), Runtime: types.RuntimeJSBrowser}
	store := &fakeStore{tasks: []types.TaskSpec{task}}
	s, dispatcher, _ := newTestServer(store)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/dispatch",
		map[string][]string{"taskIds": {task.ID.String()}}, cronHeader())
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, task.ID, dispatcher.dispatched[0])
}

func TestDispatchUnknownTask(t *testing.T) {
	s, _, _ := newTestServer(&fakeStore{})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/dispatch",
		map[string][]string{"taskIds": {uuid.New().String()}}, cronHeader())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPairEndpoint(t *testing.T) {
	s, _, _ := newTestServer(&fakeStore{})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/pair", nil, cronHeader())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Created int `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Created)
}

func TestVoteEndpoint(t *testing.T) {
	s, _, votes := newTestServer(&fakeStore{})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/votes", map[string]string{
		"matchId":            uuid.New().String(),
		"winnerSubmissionId": uuid.New().String(),
		"loserSubmissionId":  uuid.New().String(),
		"voterKey":           "reviewer-1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, votes.reqs, 1)
	assert.Equal(t, "203.0.113.9", votes.reqs[0].RemoteIP, "handler fills the remote ip")
}

func TestVoteUnknownMatchIs404(t *testing.T) {
	s, _, _ := newTestServer(&fakeStore{})
	matchID := uuid.New()
	s.votes = &fakeVotes{err: &vote.ErrUnknownMatch{MatchID: matchID}}

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/votes", map[string]string{
		"matchId":            matchID.String(),
		"winnerSubmissionId": uuid.New().String(),
		"loserSubmissionId":  uuid.New().String(),
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVoteRatingUpdateFailureIs500(t *testing.T) {
	s, _, _ := newTestServer(&fakeStore{})
	matchID := uuid.New()
	s.votes = &fakeVotes{err: &vote.ErrRatingUpdate{MatchID: matchID, Err: errors.New("deadlock")}}

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/votes", map[string]string{
		"matchId":            matchID.String(),
		"winnerSubmissionId": uuid.New().String(),
		"loserSubmissionId":  uuid.New().String(),
	}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "vote recorded")
}

func TestGetTaskWithSubmissions(t *testing.T) {
	task := types.TaskSpec{ID: uuid.New(), Slug: "sort-visualizer", Runtime: types.RuntimeJSBrowser}
	code := "function render() {}"
	sub := types.Submission{ID: uuid.New(), TaskID: task.ID, Code: &code, Status: types.SubmissionSucceeded}
	store := &fakeStore{
		tasks:       []types.TaskSpec{task},
		submissions: []types.Submission{sub},
		artifacts: []types.Artifact{
			{ID: uuid.New(), SubmissionID: sub.ID, Kind: types.ArtifactImage, StoragePath: "submissions/s/1.png"},
		},
	}
	s, _, _ := newTestServer(store)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/tasks/"+task.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Task        types.TaskSpec     `json:"task"`
		Submissions []types.Submission `json:"submissions"`
		Artifacts   []artifactView     `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sort-visualizer", resp.Task.Slug)
	assert.Len(t, resp.Submissions, 1)
	require.Len(t, resp.Artifacts, 1)
	assert.Equal(t, "http://blobs.local/artifacts/submissions/s/1.png", resp.Artifacts[0].URL)
}

func TestGetTaskNotFound(t *testing.T) {
	s, _, _ := newTestServer(&fakeStore{})

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/tasks/"+uuid.New().String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMatchesHydrated(t *testing.T) {
	task := types.TaskSpec{ID: uuid.New(), Slug: "responsive-grid", Runtime: types.RuntimeJSBrowser}
	subA := types.Submission{ID: uuid.New(), TaskID: task.ID, Status: types.SubmissionSucceeded,
		Model: &types.ModelRef{Label: "A", Provider: "openai"}}
	subB := types.Submission{ID: uuid.New(), TaskID: task.ID, Status: types.SubmissionSucceeded,
		Model: &types.ModelRef{Label: "B", Provider: "anthropic"}}
	harness := "<html></html>"
	store := &fakeStore{
		tasks:       []types.TaskSpec{task},
		submissions: []types.Submission{subA, subB},
		artifacts: []types.Artifact{
			{ID: uuid.New(), SubmissionID: subA.ID, Kind: types.ArtifactImage,
				StoragePath: "submissions/a/1.png", HarnessHTML: &harness},
		},
		matches: []types.Match{
			{ID: uuid.New(), TaskID: task.ID, SubmissionA: &subA.ID, SubmissionB: &subB.ID},
		},
	}
	s, _, _ := newTestServer(store)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/matches", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Matches []matchView `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Matches, 1)

	m := resp.Matches[0]
	require.NotNil(t, m.Task)
	assert.Equal(t, "responsive-grid", m.Task.Slug)
	assert.Equal(t, "A", m.A.Model.Label)
	assert.Equal(t, "http://blobs.local/artifacts/submissions/a/1.png", m.A.ThumbnailURL)
	assert.Equal(t, harness, m.A.HarnessHTML)
	assert.Empty(t, m.B.ThumbnailURL, "submission without artifact has no thumbnail")
}

func TestListMatchesToleratesMissingSide(t *testing.T) {
	sub := types.Submission{ID: uuid.New(), Status: types.SubmissionSucceeded}
	store := &fakeStore{
		submissions: []types.Submission{sub},
		matches: []types.Match{
			{ID: uuid.New(), TaskID: uuid.New(), SubmissionA: &sub.ID},
		},
	}
	s, _, _ := newTestServer(store)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/matches", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Matches []matchView `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Matches, 1)
	require.NotNil(t, resp.Matches[0].A)
	assert.Equal(t, sub.ID, resp.Matches[0].A.ID)
	assert.Nil(t, resp.Matches[0].B, "a missing side stays empty instead of failing the list")
}

func TestLeaderboard(t *testing.T) {
	store := &fakeStore{ratings: []types.Rating{
		{ModelID: uuid.New(), Rating: 1532, ModelLabel: "A", Sparkline: []float64{1500, 1516, 1532}},
		{ModelID: uuid.New(), Rating: 1468, ModelLabel: "B"},
	}}
	s, _, _ := newTestServer(store)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/leaderboard", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Leaderboard []types.Rating `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Leaderboard, 2)
	assert.Equal(t, "A", resp.Leaderboard[0].ModelLabel)
}
