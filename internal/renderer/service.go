// Package renderer implements the artifact rendering service and the
// HTTP client the dispatcher uses to reach it. Rendering wraps a
// submission in an execution harness and produces a deterministic
// hash-derived thumbnail; it intentionally never runs submitted code.
package renderer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Icannotcodelol/onnyx/internal/harness"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

// RenderRequest is the body of POST /render.
type RenderRequest struct {
	Runtime types.Runtime `json:"runtime"`
	Code    string        `json:"code"`
}

// RenderResponse carries the harness document and a base64 PNG
// thumbnail.
type RenderResponse struct {
	Harness   string `json:"harness"`
	Thumbnail string `json:"thumbnail"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Service is the renderer HTTP service.
type Service struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// NewService builds the renderer service listening on the given port.
func NewService(port int, log zerolog.Logger) *Service {
	s := &Service{log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /render", s.handleRender)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening and blocks until an interrupt.
func (s *Service) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("renderer listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal().Err(err).Msg("renderer server error")
		}
	}()

	<-stop
	s.log.Info().Msg("shutting down renderer")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Runtime == "" || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "runtime and code are required"})
		return
	}

	build, err := harness.BuildHarness(req.Runtime, req.Code)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	thumb, err := thumbnail(build.HTML)
	if err != nil {
		s.log.Error().Err(err).Msg("thumbnail generation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to render thumbnail"})
		return
	}

	writeJSON(w, http.StatusOK, RenderResponse{
		Harness:   build.HTML,
		Thumbnail: base64.StdEncoding.EncodeToString(thumb),
		Width:     thumbnailWidth,
		Height:    thumbnailHeight,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Handler exposes the service routes for tests.
func (s *Service) Handler() http.Handler {
	return s.httpServer.Handler
}
