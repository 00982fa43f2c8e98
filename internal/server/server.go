// Package server exposes the pipeline over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"rivalscope/internal/config"
	"rivalscope/internal/core"
	"rivalscope/internal/logger"
	"rivalscope/internal/persistence"
	"rivalscope/internal/pipeline"
)

// Server hosts the HTTP API over one orchestrator and store.
type Server struct {
	orch       *pipeline.Orchestrator
	store      persistence.Store
	httpServer *http.Server
	router     chi.Router
}

// New wires the server, its middleware, and all routes.
func New(cfg config.Server, orch *pipeline.Orchestrator, store persistence.Store) *Server {
	s := &Server{orch: orch, store: store}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Generation calls can legitimately take minutes.
	r.Use(middleware.Timeout(5 * time.Minute))

	if cfg.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	s.registerRoutes(r)
	s.router = r
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/competitors", func(r chi.Router) {
			r.Get("/", s.handleListCompetitors)
			r.Post("/", s.handleCreateCompetitor)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCompetitor)
				r.Put("/", s.handleUpdateCompetitor)
				r.Delete("/", s.handleDeleteCompetitor)
				r.Post("/ingest", s.handleIngest)
				r.Get("/sources", s.handleListSources)
				r.Get("/insights", s.handleListInsights)
				r.Get("/themes", s.handleListThemes)
				r.Post("/reports", s.handleBuildReport)
				r.Get("/reports", s.handleListReports)
			})
		})

		r.Route("/actions", func(r chi.Router) {
			r.Get("/", s.handleListActions)
			r.Post("/", s.handleCreateAction)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAction)
				r.Post("/generate", s.handleGenerate)
				r.Post("/accept", s.handleAccept)
				r.Post("/reject", s.handleReject)
			})
		})

		r.Get("/reports/{id}", s.handleGetReport)
		r.Get("/monitoring", s.handleMonitoring)
	})
}

// Start runs the server until the context is cancelled, then drains.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", map[string]interface{}{"addr": s.httpServer.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", err, nil)
	}
}

// writeError maps the shared error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrStateConflict):
		status = http.StatusConflict
	case errors.Is(err, core.ErrUpstreamTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, core.ErrUpstreamMalformed):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", err, nil)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", core.ErrValidation, err)
	}
	return nil
}
