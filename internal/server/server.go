// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/engine"
	"github.com/hyperjump/kotae/internal/kb"
	"github.com/hyperjump/kotae/internal/schedule"
)

// Server is the HTTP server for the Kotae API.
type Server struct {
	engine    *engine.Engine
	store     *kb.Store
	schedules *schedule.Store
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. The schedule store
// may be nil; schedule routes then respond 501.
func NewServer(
	eng *engine.Engine,
	store *kb.Store,
	schedules *schedule.Store,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:    eng,
		store:     store,
		schedules: schedules,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/api/v1/categories", s.handleListCategories)
	r.Get("/api/v1/categories/{category}/qa-pairs", s.handleCategoryPairs)
	r.Post("/api/v1/qa-pairs", s.handleAddPair)
	r.Get("/api/v1/qa-pairs/search", s.handleSearchPairs)
	r.Post("/api/v1/train", s.handleTrain)

	r.Post("/api/v1/schedules", s.handleCreateSchedule)
	r.Get("/api/v1/schedules", s.handleListSchedules)
	r.Get("/api/v1/schedules/week/{week}", s.handleWeeklySchedule)
	r.Get("/api/v1/schedules/{id}", s.handleGetSchedule)
	r.Put("/api/v1/schedules/{id}", s.handleUpdateSchedule)
	r.Delete("/api/v1/schedules/{id}", s.handleDeleteSchedule)

	r.Get("/health", s.handleHealth)
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
