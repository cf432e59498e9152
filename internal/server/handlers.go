package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/Icannotcodelol/onnyx/internal/types"
	"github.com/Icannotcodelol/onnyx/internal/vote"
)

const (
	defaultTaskLimit  = 20
	defaultMatchLimit = 10
	maxListLimit      = 100
)

// handleGenerate produces a fresh task batch and stores it.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	tasks := s.generator.Tasks(r.Context())

	stored, err := s.store.InsertTasks(r.Context(), tasks)
	if err != nil {
		s.log.Error().Err(err).Msg("storing generated tasks")
		s.errorResponse(w, HTTPStatus(err), "failed to store tasks")
		return
	}
	if s.metrics != nil {
		s.metrics.TasksGenerated.Add(float64(len(stored)))
	}

	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"ok":    true,
		"count": len(stored),
		"tasks": stored,
	})
}

// handleDispatch fans every undispatched task out to the active
// models. Responds 202 because provider calls continue after the
// response when a body names no specific task.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.pendingTasks(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	count := 0
	for _, task := range tasks {
		report, err := s.dispatcher.DispatchTask(r.Context(), task)
		if err != nil {
			s.log.Error().Err(err).Stringer("task", task.ID).Msg("dispatch failed")
			continue
		}
		if report.Succeeded() > 0 {
			count++
		}
	}

	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"ok":    true,
		"count": count,
	})
}

// pendingTasks resolves which tasks to dispatch: the ones named in the
// request body, or every task still in generated status.
func (s *Server) pendingTasks(r *http.Request) ([]types.TaskSpec, error) {
	var req struct {
		TaskIDs []string `json:"taskIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ErrBadRequest{Message: "malformed request body"}
	}

	if len(req.TaskIDs) == 0 {
		return s.store.TasksByStatus(r.Context(), types.TaskStatusGenerated)
	}

	tasks := make([]types.TaskSpec, 0, len(req.TaskIDs))
	for _, raw := range req.TaskIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, &ErrBadRequest{Message: "taskIds must be uuids"}
		}
		task, err := s.store.TaskByID(r.Context(), id)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, &ErrTaskNotFound{TaskID: id}
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

// handlePair creates matches from unmatched submissions.
func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	created, err := s.pairer.Run(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("pairing failed")
		s.errorResponse(w, HTTPStatus(err), "pairing failed")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"ok":      true,
		"created": created,
	})
}

// handleVote records one preference judgment.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req vote.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "malformed request body")
		return
	}
	req.RemoteIP = clientIP(r)

	recorded, err := s.votes.Submit(r.Context(), req)
	if err != nil {
		var ratingErr *vote.ErrRatingUpdate
		if errors.As(err, &ratingErr) {
			s.log.Error().Err(err).Msg("rating update failed after vote")
			s.errorResponse(w, http.StatusInternalServerError, "vote recorded but rating update failed")
			return
		}
		status := HTTPStatus(err)
		if status == http.StatusInternalServerError {
			s.log.Error().Err(err).Msg("vote submission failed")
			s.errorResponse(w, status, "failed to record vote")
			return
		}
		s.errorResponse(w, status, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"ok":       true,
		"matchId":  recorded.MatchID,
		"voterKey": recorded.VoterKey,
	})
}

// handleListTasks returns the most recent tasks.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.LatestTasks(r.Context(), listLimit(r, defaultTaskLimit))
	if err != nil {
		s.log.Error().Err(err).Msg("listing tasks")
		s.errorResponse(w, HTTPStatus(err), "failed to list tasks")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// handleGetTask returns one task with its submissions.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "task id must be a uuid")
		return
	}

	task, err := s.store.TaskByID(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Stringer("task", id).Msg("loading task")
		s.errorResponse(w, HTTPStatus(err), "failed to load task")
		return
	}
	if task == nil {
		s.errorResponse(w, http.StatusNotFound, (&ErrTaskNotFound{TaskID: id}).Error())
		return
	}

	subs, err := s.store.SubmissionsByTask(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Stringer("task", id).Msg("loading submissions")
		s.errorResponse(w, HTTPStatus(err), "failed to load submissions")
		return
	}

	subIDs := make([]uuid.UUID, len(subs))
	for i, sub := range subs {
		subIDs[i] = sub.ID
	}
	arts, err := s.store.ArtifactsBySubmissions(r.Context(), subIDs)
	if err != nil {
		s.log.Error().Err(err).Stringer("task", id).Msg("loading artifacts")
		s.errorResponse(w, HTTPStatus(err), "failed to load artifacts")
		return
	}

	views := make([]artifactView, len(arts))
	for i, art := range arts {
		views[i] = artifactView{
			ID:           art.ID,
			SubmissionID: art.SubmissionID,
			Kind:         art.Kind,
			URL:          s.blobs.PublicURL(art.StoragePath),
			Width:        art.Width,
			Height:       art.Height,
		}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"task":        task,
		"submissions": subs,
		"artifacts":   views,
	})
}

// artifactView is an artifact with its storage path resolved to a
// public URL.
type artifactView struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submissionId"`
	Kind         string    `json:"kind"`
	URL          string    `json:"url"`
	Width        *int      `json:"width,omitempty"`
	Height       *int      `json:"height,omitempty"`
}

// matchView is a match hydrated with what the voting page needs.
type matchView struct {
	ID   uuid.UUID       `json:"id"`
	Task *types.TaskSpec `json:"task,omitempty"`
	A    *submissionView `json:"a"`
	B    *submissionView `json:"b"`
}

type submissionView struct {
	ID           uuid.UUID       `json:"id"`
	Model        *types.ModelRef `json:"model,omitempty"`
	Status       string          `json:"status"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
	HarnessHTML  string          `json:"harnessHtml,omitempty"`
}

// handleListMatches returns recent matches hydrated with both sides'
// submissions and their primary artifacts.
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.store.RecentMatches(r.Context(), listLimit(r, defaultMatchLimit))
	if err != nil {
		s.log.Error().Err(err).Msg("listing matches")
		s.errorResponse(w, HTTPStatus(err), "failed to list matches")
		return
	}

	views, err := s.hydrateMatches(r.Context(), matches)
	if err != nil {
		s.log.Error().Err(err).Msg("hydrating matches")
		s.errorResponse(w, HTTPStatus(err), "failed to load match details")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"matches": views})
}

func (s *Server) hydrateMatches(ctx context.Context, matches []types.Match) ([]matchView, error) {
	subIDs := make([]uuid.UUID, 0, len(matches)*2)
	for _, m := range matches {
		if m.SubmissionA != nil {
			subIDs = append(subIDs, *m.SubmissionA)
		}
		if m.SubmissionB != nil {
			subIDs = append(subIDs, *m.SubmissionB)
		}
	}

	subs, err := s.store.SubmissionsByIDs(ctx, subIDs)
	if err != nil {
		return nil, err
	}
	subByID := make(map[uuid.UUID]types.Submission, len(subs))
	for _, sub := range subs {
		subByID[sub.ID] = sub
	}

	arts, err := s.store.ArtifactsBySubmissions(ctx, subIDs)
	if err != nil {
		return nil, err
	}
	// First artifact per submission is the primary one.
	artBySub := make(map[uuid.UUID]types.Artifact)
	for _, art := range arts {
		if _, ok := artBySub[art.SubmissionID]; !ok {
			artBySub[art.SubmissionID] = art
		}
	}

	views := make([]matchView, 0, len(matches))
	for _, m := range matches {
		view := matchView{
			ID: m.ID,
			A:  s.submissionView(subByID, artBySub, m.SubmissionA),
			B:  s.submissionView(subByID, artBySub, m.SubmissionB),
		}
		if task, err := s.store.TaskByID(ctx, m.TaskID); err == nil && task != nil {
			view.Task = task
		}
		views = append(views, view)
	}
	return views, nil
}

// submissionView builds one side of a match view. A nil id means the
// match is missing that side and yields a nil view.
func (s *Server) submissionView(subs map[uuid.UUID]types.Submission, arts map[uuid.UUID]types.Artifact, id *uuid.UUID) *submissionView {
	if id == nil {
		return nil
	}
	sub, ok := subs[*id]
	if !ok {
		return &submissionView{ID: *id}
	}

	view := &submissionView{
		ID:     sub.ID,
		Model:  sub.Model,
		Status: sub.Status,
	}
	if art, ok := arts[*id]; ok {
		view.ThumbnailURL = s.blobs.PublicURL(art.StoragePath)
		if art.HarnessHTML != nil {
			view.HarnessHTML = *art.HarnessHTML
		}
	}
	return view
}

// handleLeaderboard returns all models ordered by rating.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.store.Leaderboard(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("loading leaderboard")
		s.errorResponse(w, HTTPStatus(err), "failed to load leaderboard")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"leaderboard": ratings})
}

// listLimit parses an optional ?limit= query value.
func listLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
