// Package http provides the HTTP server and API handlers for miraview.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jmylchreest/miraview/internal/config"
	"github.com/jmylchreest/miraview/internal/http/middleware"
	"github.com/jmylchreest/miraview/internal/metrics"
)

// Server serves the guide API, health checks and metrics over one chi
// router. Operations are registered on API by the handlers package.
type Server struct {
	config     config.ServerConfig
	router     *chi.Mux
	api        huma.API
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the router and middleware chain. version is published in
// the OpenAPI document served at /openapi.json and /docs.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	router := chi.NewRouter()
	router.Use(
		chimiddleware.RealIP,
		middleware.RequestID,
		middleware.RequestLogger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORSOrigins),
		metrics.Middleware,
		middleware.Compress(5, "/metrics"),
	)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	apiConfig := huma.DefaultConfig("miraview API", version)
	apiConfig.Info.Description = "Broadcast-day program guide built from a mirakc tuner server"

	return &Server{
		config: cfg,
		router: router,
		api:    humachi.New(router, apiConfig),
		logger: logger,
	}
}

// API is the huma API guide, tuner and health operations register on.
func (s *Server) API() huma.API {
	return s.api
}

// Router exposes the chi router for plain net/http routes.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("miraview API listening", slog.String("address", addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests for at most the configured shutdown
// timeout. It is a no-op before Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("draining API requests", slog.Duration("timeout", s.config.ShutdownTimeout))
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	s.logger.Info("miraview API stopped")
	return nil
}

// ListenAndServe runs Start until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errc:
		return err
	}
}
