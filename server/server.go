// Package server wires the router, middleware and HTTP server lifecycle of
// the TPN API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giygas/tpn-api/config"
	"github.com/giygas/tpn-api/interfaces"
	"github.com/giygas/tpn-api/logging"
	"github.com/giygas/tpn-api/metrics"
)

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  chi.Router
	config  *config.Config
	handler interfaces.HTTPHandler
	limiter *RateLimiter
}

// NewServer creates a server serving handler with the configured limits
func NewServer(cfg *config.Config, handler interfaces.HTTPHandler) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:           router,
			Addr:              net.JoinHostPort(cfg.Address, cfg.Port),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    int(cfg.MaxHeaderSize),
		},
		router:  router,
		config:  cfg,
		handler: handler,
		limiter: NewRateLimiter(cfg.RateLimitRate, cfg.RateLimitCapacity),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.RequestLogger(logging.Logger()))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.limiter.Middleware)
	s.router.Use(metrics.Metrics)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/solutions", s.handler.ListSolutions)
		r.Get("/solutions/{name}", s.handler.GetSolution)
		r.Post("/calculations", s.handler.Calculate)
		r.Post("/validations", s.handler.Validate)
	})

	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the fully wired router
func (s *Server) Handler() http.Handler {
	return s.router
}

// RateLimiter returns the limiter so maintenance jobs can prune it
func (s *Server) RateLimiter() *RateLimiter {
	return s.limiter
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	logging.Info("Starting server", "addr", s.server.Addr, "env", s.config.Env.String())

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server, closing it outright if
// in-flight requests outlive ctx
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
