package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Icannotcodelol/onnyx/internal/dispatch"
	"github.com/Icannotcodelol/onnyx/internal/metrics"
	"github.com/Icannotcodelol/onnyx/internal/server/ratelimit"
	"github.com/Icannotcodelol/onnyx/internal/storage"
	"github.com/Icannotcodelol/onnyx/internal/types"
	"github.com/Icannotcodelol/onnyx/internal/vote"
)

// Store is the read/write surface the handlers need from the database
// layer.
type Store interface {
	InsertTasks(ctx context.Context, tasks []types.TaskSpec) ([]types.TaskSpec, error)
	TasksByStatus(ctx context.Context, status string) ([]types.TaskSpec, error)
	LatestTasks(ctx context.Context, limit int) ([]types.TaskSpec, error)
	TaskByID(ctx context.Context, id uuid.UUID) (*types.TaskSpec, error)
	SubmissionsByTask(ctx context.Context, taskID uuid.UUID) ([]types.Submission, error)
	SubmissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]types.Submission, error)
	ArtifactsBySubmissions(ctx context.Context, submissionIDs []uuid.UUID) ([]types.Artifact, error)
	RecentMatches(ctx context.Context, limit int) ([]types.Match, error)
	Leaderboard(ctx context.Context) ([]types.Rating, error)
}

// TaskSource produces a fresh batch of task specs.
type TaskSource interface {
	Tasks(ctx context.Context) []types.TaskSpec
}

// TaskDispatcher fans a task out to the active models.
type TaskDispatcher interface {
	DispatchTask(ctx context.Context, task types.TaskSpec) (*dispatch.Report, error)
}

// MatchMaker pairs unmatched submissions into matches.
type MatchMaker interface {
	Run(ctx context.Context) (int, error)
}

// VoteRecorder validates and persists a vote.
type VoteRecorder interface {
	Submit(ctx context.Context, req vote.Request) (*types.Vote, error)
}

// Options wires the server's collaborators.
type Options struct {
	Port       int
	CronSecret string
	Store      Store
	Generator  TaskSource
	Dispatcher TaskDispatcher
	Pairer     MatchMaker
	Votes      VoteRecorder
	Blobs      storage.BlobStore
	Gatherer   prometheus.Gatherer
	Metrics    *metrics.Metrics
	Log        zerolog.Logger
}

// voteRateLimit caps anonymous votes per client IP.
const (
	voteRateLimit  = 30
	voteRateWindow = time.Minute
)

// Server is the arena's HTTP API server.
type Server struct {
	httpServer *http.Server
	store      Store
	generator  TaskSource
	dispatcher TaskDispatcher
	pairer     MatchMaker
	votes      VoteRecorder
	blobs      storage.BlobStore
	cronSecret string
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// New creates a server instance. It does not start listening.
func New(opts Options) *Server {
	s := &Server{
		store:      opts.Store,
		generator:  opts.Generator,
		dispatcher: opts.Dispatcher,
		pairer:     opts.Pairer,
		votes:      opts.Votes,
		blobs:      opts.Blobs,
		cronSecret: opts.CronSecret,
		limiter:    ratelimit.New(voteRateLimit, voteRateWindow),
		metrics:    opts.Metrics,
		log:        opts.Log,
	}

	mux := http.NewServeMux()

	// Scheduled pipeline triggers, guarded by the cron secret.
	mux.HandleFunc("POST /api/generate", s.withCronSecret(s.handleGenerate))
	mux.HandleFunc("POST /api/dispatch", s.withCronSecret(s.handleDispatch))
	mux.HandleFunc("POST /api/pair", s.withCronSecret(s.handlePair))

	// Public surface.
	mux.HandleFunc("POST /api/votes", s.withRateLimit(s.handleVote))
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("GET /api/matches", s.handleListMatches)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)

	mux.HandleFunc("GET /health", s.handleHealth)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the configured handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and blocks until an interrupt, then shuts
// down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("api server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal().Err(err).Msg("api server failed")
		}
	}()

	<-stop
	s.log.Info().Msg("shutting down api server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.limiter.Stop()
	return nil
}

// withCronSecret rejects requests missing the shared scheduler secret.
// With no secret configured the endpoints stay open, which is only
// acceptable in local development.
func (s *Server) withCronSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cronSecret != "" && r.Header.Get("x-cron-secret") != s.cronSecret {
			s.errorResponse(w, http.StatusUnauthorized, "invalid cron secret")
			return
		}
		next(w, r)
	}
}

// withRateLimit throttles by client IP.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, x-cron-secret")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// clientIP extracts the client address, without the port.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("encoding json response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
