// Package server provides the admin HTTP API for Kotae.
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
	"github.com/hyperjump/kotae/internal/embedding"
)

// Builder triggers a full knowledge base rebuild.
type Builder interface {
	Build(ctx context.Context) (int, error)
}

// StatusStore reports the size of the persisted knowledge base.
type StatusStore interface {
	CountChunks(ctx context.Context) (int64, error)
	CountEmbeddings(ctx context.Context) (int64, error)
}

// Server is the admin HTTP server. Question traffic flows over the broker;
// this API only exposes health, index status, and a manual rebuild trigger.
type Server struct {
	store   StatusStore
	builder Builder
	encoder embedding.Encoder
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	store StatusStore,
	builder Builder,
	encoder embedding.Encoder,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:   store,
		builder: builder,
		encoder: encoder,
		config:  cfg,
		logger:  logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/rebuild", s.handleRebuild)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("Starting admin server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
