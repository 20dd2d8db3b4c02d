// Package server provides the HTTP API for hokan. It exposes indexing and
// retrieval so other tools can query collections; the destructive clear and
// drop operations stay CLI-only.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hokan/hokan/internal/config"
	"github.com/hokan/hokan/internal/manager"
)

// Server is the HTTP server for the hokan API.
type Server struct {
	manager *manager.Manager
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server
}

// New creates a server with the given dependencies.
func New(m *manager.Manager, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		manager: m,
		config:  cfg,
		logger:  logger,
	}
}

// Router builds the HTTP routes. Exposed separately so tests can drive the
// handlers without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/collections", s.handleListCollections)
	r.Get("/api/v1/collections/{name}", s.handleCollectionInfo)
	r.Post("/api/v1/collections/{name}/search", s.handleSearch)
	r.Post("/api/v1/collections/{name}/documents", s.handleIndexDocuments)
	r.Delete("/api/v1/collections/{name}/sources/{source}", s.handleDeleteSource)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
