// Package server provides the HTTP API for AcademyNomad.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/siebentod/AcademyNomad/internal/config"
	"github.com/siebentod/AcademyNomad/internal/events"
	"github.com/siebentod/AcademyNomad/internal/models"
	"github.com/siebentod/AcademyNomad/internal/search"
	"github.com/siebentod/AcademyNomad/internal/shell"
	"github.com/siebentod/AcademyNomad/internal/xmp"
	"go.uber.org/zap"
)

// ErrMissingSearcher is returned when no search service is provided.
var ErrMissingSearcher = errors.New("server: search service is required")

// Searcher runs searches at a metadata level.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest, level search.Level) ([]models.SearchResult, error)
}

// DirectoryWatcher manages the directories whose changes are pushed to the UI.
type DirectoryWatcher interface {
	Watch(dir string) error
	Unwatch(dir string) error
	Directories() []string
}

// HighlightExtractor reads PDF annotations.
type HighlightExtractor interface {
	Extract(path string) ([]models.Highlight, error)
}

// MetadataService reads and stamps embedded document metadata.
type MetadataService interface {
	ReadCore(path string) (xmp.Core, error)
	EnsureCreatorID(path string) (string, error)
}

// IndexStats reports the size of the file index.
type IndexStats interface {
	DocCount() (uint64, error)
	DiskUsage() (int64, error)
}

// EventSource hands out event subscriptions.
type EventSource interface {
	Subscribe() (<-chan events.Event, func())
}

// Services are the collaborators behind the API. Only Search is required;
// routes whose service is nil answer 501.
type Services struct {
	Search     Searcher
	Watch      DirectoryWatcher
	Highlights HighlightExtractor
	Metadata   MetadataService
	Index      IndexStats
	Events     EventSource
	Shell      shell.Opener
	// Gatherer, when set, is exposed at /metrics.
	Gatherer prometheus.Gatherer
	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Server is the HTTP server for the AcademyNomad API.
type Server struct {
	svc       Services
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
	keepAlive time.Duration
	quit      chan struct{}
	quitOnce  sync.Once
}

// NewServer creates a server with the given services.
func NewServer(svc Services, cfg *config.ServerConfig, logger *zap.Logger) (*Server, error) {
	if svc.Search == nil {
		return nil, ErrMissingSearcher
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		svc:       svc,
		config:    cfg,
		logger:    logger,
		keepAlive: 30 * time.Second,
		quit:      make(chan struct{}),
	}, nil
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// streams must outlive the request timeout
	r.Get("/api/v1/events", s.handleEvents)
	if s.svc.MCP != nil {
		r.Handle("/mcp", s.svc.MCP)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))

		r.Post("/api/v1/search", s.handleSearch(search.Fast))
		r.Post("/api/v1/search/full", s.handleSearch(search.Full))

		r.Route("/api/v1/files", func(r chi.Router) {
			r.Delete("/", s.handleDelete)
			r.Post("/rename", s.handleRename)
			r.Post("/open", s.handleOpen)
			r.Post("/reveal", s.handleReveal)
			r.Post("/open-with", s.handleOpenWith)
			r.Post("/creator-id", s.handleCreatorID)
			r.Get("/highlights", s.handleHighlights)
			r.Get("/metadata", s.handleMetadata)
		})

		r.Get("/api/v1/watch", s.handleWatchList)
		r.Post("/api/v1/watch", s.handleWatchAdd)
		r.Delete("/api/v1/watch", s.handleWatchRemove)

		r.Get("/api/v1/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
		if s.svc.Gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(s.svc.Gatherer, promhttp.HandlerOpts{}))
		}
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	// open event streams would otherwise hold Shutdown until ctx expires
	s.quitOnce.Do(func() { close(s.quit) })
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
