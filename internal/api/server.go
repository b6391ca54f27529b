// Package api exposes the HTTP surface served while a run is in flight:
// health probes, Prometheus metrics, and the run status snapshot.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/batchworks/regrade/internal/engine"
	"github.com/batchworks/regrade/internal/metrics"
)

// RunStatus is the slice of the engine the server reads.
type RunStatus interface {
	Snapshot() engine.Snapshot
}

// Server wires HTTP handlers to the running engine.
type Server struct {
	router chi.Router
	run    RunStatus
	logger *zap.Logger
}

// NewServer constructs a Server over the given run.
func NewServer(run RunStatus, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{run: run, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/run/status", s.runStatus)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) runStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.run.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}
