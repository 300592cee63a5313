// Package mcp exposes AcademyNomad search and PDF tools over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/siebentod/AcademyNomad/internal/models"
	"github.com/siebentod/AcademyNomad/internal/search"
	"go.uber.org/zap"
)

// DefaultName is the implementation name reported to clients.
const DefaultName = "academy-nomad"

// ErrMissingSearcher is returned when no search service is provided.
var ErrMissingSearcher = errors.New("mcp: search service is required")

// Searcher runs searches at a metadata level.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest, level search.Level) ([]models.SearchResult, error)
}

// HighlightExtractor reads PDF annotations.
type HighlightExtractor interface {
	Extract(path string) ([]models.Highlight, error)
}

// CreatorIDService stamps documents with a stable id.
type CreatorIDService interface {
	EnsureCreatorID(path string) (string, error)
}

// Services are the collaborators behind the tools. Tools whose service is
// nil are not registered.
type Services struct {
	Search     Searcher
	Highlights HighlightExtractor
	CreatorID  CreatorIDService
}

// Server is the MCP server.
type Server struct {
	svc    Services
	server *mcp.Server
	logger *zap.Logger
}

// NewServer creates a server named name (DefaultName when empty).
func NewServer(svc Services, name, version string, logger *zap.Logger) (*Server, error) {
	if svc.Search == nil {
		return nil, ErrMissingSearcher
	}
	if name == "" {
		name = DefaultName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		logger: logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns a streamable HTTP handler for mounting on a router.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}
