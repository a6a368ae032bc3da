// Package server provides the HTTP API for bookworm.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/bookworm/internal/config"
	"github.com/hyperjump/bookworm/internal/ingest"
	"github.com/hyperjump/bookworm/internal/keyword"
	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/internal/recommend"
	"github.com/hyperjump/bookworm/internal/storage"
)

// StatusFunc reports store sizes for GET /status.
type StatusFunc func(ctx context.Context) (*models.Status, error)

// Deps are the services behind the HTTP API. Catalog and Status are optional.
type Deps struct {
	Ingest      *ingest.Pipeline
	Pager       *ingest.Pager
	Recommender *recommend.Pipeline
	Store       storage.BookStore
	Catalog     keyword.Catalog
	Status      StatusFunc
}

// Server is the HTTP server for the bookworm API.
type Server struct {
	ingest      *ingest.Pipeline
	pager       *ingest.Pager
	recommender *recommend.Pipeline
	store       storage.BookStore
	catalog     keyword.Catalog
	status      StatusFunc
	config      *config.ServerConfig
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ingest:      deps.Ingest,
		pager:       deps.Pager,
		recommender: deps.Recommender,
		store:       deps.Store,
		catalog:     deps.Catalog,
		status:      deps.Status,
		config:      cfg,
		logger:      logger.With(zap.String("component", "server")),
	}
	s.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Population runs are paced and may outlive the request timeout.
	r.Get("/populate", s.handlePopulate)
	r.Get("/start-populate", s.handleStartPopulate)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/", s.handleRecommend)
		r.Post("/books", s.handleAddBook)
		r.Get("/books", s.handleListBooks)
		r.Get("/books/search", s.handleSearchBooks)
		r.Get("/books/{id}", s.handleGetBook)
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops. It returns nil after Stop.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
