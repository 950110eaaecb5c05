// Package server provides the HTTP API for AgriSage.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/agrisage/agrisage/internal/answer"
	"github.com/agrisage/agrisage/internal/config"
	"github.com/agrisage/agrisage/internal/retrieval"
	"github.com/agrisage/agrisage/internal/timeline"
	"github.com/agrisage/agrisage/internal/weather"
)

// Server is the HTTP server for the AgriSage API.
type Server struct {
	composer  *answer.Composer
	weather   *weather.Service
	extractor *timeline.Extractor
	engine    *retrieval.Engine
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	composer *answer.Composer,
	ws *weather.Service,
	extractor *timeline.Extractor,
	engine *retrieval.Engine,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		composer:  composer,
		weather:   ws,
		extractor: extractor,
		engine:    engine,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router. Exposed for handler tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/weather", s.handleWeather)
	r.Get("/api/v1/weather/timeline", s.handleWeatherTimeline)
	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/refresh", s.handleRefresh)
	r.Get("/api/v1/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
