// Package api exposes the observer's read surface over HTTP: current state,
// recent events, scenario flags, counters, and the full snapshot export, plus
// a rate-limited clear command.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/modwatch/citywatch/internal/lifecycle"
)

// Archive is the persisted side of the clear command. A nil Archive skips
// the database wipe.
type Archive interface {
	ClearAll(ctx context.Context) error
}

// Server serves the observer API for one engine.
type Server struct {
	engine   *lifecycle.Engine
	archive  Archive
	logger   zerolog.Logger
	gatherer prometheus.Gatherer
}

// New builds a Server. gatherer may be nil to disable the /metrics endpoint.
func New(engine *lifecycle.Engine, archive Archive, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	return &Server{
		engine:   engine,
		archive:  archive,
		logger:   logger,
		gatherer: gatherer,
	}
}

// Router assembles the chi routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/events", s.handleEvents)
		r.Get("/scenarios", s.handleScenarios)
		r.Get("/counters", s.handleCounters)
		r.Get("/pending", s.handlePending)
		r.Get("/export", s.handleExport)

		// Clear wipes diagnostics; keep it from being hammered.
		r.With(httprate.LimitByIP(3, time.Minute)).
			Post("/clear", s.handleClear)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"state":   string(s.engine.CurrentState()),
		"context": string(s.engine.CurrentContext()),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}
	s.writeJSON(w, http.StatusOK, s.engine.RecentEvents(n))
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Scenarios())
}

func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Counters())
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending := map[string]lifecycle.PendingAction{}
	for _, kind := range []string{lifecycle.IntentLoad, lifecycle.IntentNewGame} {
		if p, ok := s.engine.Pending(kind); ok {
			pending[kind] = p
		}
	}
	s.writeJSON(w, http.StatusOK, pending)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Export())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.engine.Clear()
	if s.archive != nil {
		if err := s.archive.ClearAll(r.Context()); err != nil {
			s.logger.Error().Err(err).Msg("failed to clear archived snapshot")
			s.writeError(w, http.StatusInternalServerError, "in-memory state cleared, archive wipe failed")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
