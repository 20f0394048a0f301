// Package core provides the API chassis for the ElderSafe platform.
// It creates a chi router compatible with both standard HTTP (for local dev)
// and AWS Lambda Proxy Integration. It enforces cross-cutting concerns --
// logging, observability, and error handling -- before requests reach
// domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eldersafe/internal/config"
	"eldersafe/internal/metrics"
)

// Server encapsulates all dependencies for the ElderSafe API, allowing for
// easy injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   metrics.MetricsCollector

	// HealthProbes are run concurrently by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars register domain handler routes under /v1. Populated
	// by the application entry point to avoid an import cycle between core
	// and the handler packages.
	V1RouteRegistrars []func(chi.Router)

	// closers are release hooks (database pool, etc.) run during Shutdown
	// in reverse registration order.
	closers []func() error

	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. It performs a "fail-fast" check on critical
// configuration.
//
// The caller is responsible for mounting routes (via MountRoutes) after
// construction. This separation allows tests to customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		Metrics:   metrics.NoopCollector{},
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
// Used by http.ListenAndServe (local) and the Lambda adapter.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// RegisterCloser adds a release hook executed during Shutdown. Hooks run in
// reverse registration order so resources close in dependency order.
func (s *Server) RegisterCloser(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Shutdown performs a graceful termination of server resources: registered
// closers run in reverse order and the first failure is returned after all
// hooks have been attempted.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.Logger.Error("error during shutdown", "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("closing server resources: %w", err)
			}
		}
	}

	s.Logger.Info("server shutdown complete")
	return firstErr
}
