// Package apiserver exposes a read-only HTTP status API over the persisted
// project state: deployment state, run history, and the delete guard verdict.
package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/appforge/appforge/internal/orchestrator"
	"github.com/appforge/appforge/pkg/logging"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server serves the read-only status API
type Server struct {
	orch       *orchestrator.Orchestrator
	httpServer *http.Server
	logger     *logging.Logger
}

// NewServer creates a status API server bound to the given address
func NewServer(orch *orchestrator.Orchestrator, addr string) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}

	s := &Server{
		orch:   orch,
		logger: logging.API,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealth)
	router.Route("/api/v1/projects/{project}", func(r chi.Router) {
		r.Get("/environments", s.handleEnvironments)
		r.Get("/environments/{environment}/history", s.handleHistory)
		r.Get("/delete-guard", s.handleDeleteGuard)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s, nil
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("status API listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status API server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down status API server: %w", err)
	}
	return nil
}

// Handler returns the configured HTTP handler, for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
