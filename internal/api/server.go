// Package api provides the plot web server for fluxpro.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/atmoslab/fluxpro/internal/config"
	"github.com/atmoslab/fluxpro/internal/output"
	"github.com/atmoslab/fluxpro/internal/storage"
	"github.com/atmoslab/fluxpro/pkg/version"
)

// Server renders a loaded output table as a browser chart and exposes the
// series as JSON. Storage is optional; when present, stored runs are also
// queryable.
type Server struct {
	config     *config.PlotConfig
	table      *output.Table
	storage    storage.Storage
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// NewServer creates a new plot server instance.
func NewServer(cfg *config.PlotConfig, table *output.Table, store storage.Storage, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == nil {
		return nil, fmt.Errorf("output table is required")
	}

	s := &Server{
		config:  cfg,
		table:   table,
		storage: store,
		logger:  logger,
	}

	s.setupRouter()
	return s, nil
}

// setupRouter configures the Chi router with all routes and middleware.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Basic Auth (if configured)
	if s.config.Auth != nil && s.config.Auth.Username != "" {
		r.Use(s.basicAuthMiddleware)
	}

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// Chart page
	r.Get("/", s.handleChart)

	// API v1 routes (Read-Only)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/gases", s.handleGetGases)
		r.Get("/series", s.handleGetAllSeries)
		r.Get("/series/{gas}", s.handleGetSeries)

		if s.storage != nil {
			r.Get("/runs", s.handleGetRuns)
			r.Get("/runs/{id}", s.handleGetRun)
			r.Get("/gases/{gas}/stats", s.handleGetGasStats)
		}

		r.Get("/metrics", s.handlePrometheusMetrics)
	})

	s.router = r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting plot server",
		zap.String("listen", s.config.Listen),
		zap.String("file", s.table.Path),
		zap.String("version", version.GetShortVersion()),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down plot server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router (useful for testing).
func (s *Server) Router() chi.Router {
	return s.router
}
