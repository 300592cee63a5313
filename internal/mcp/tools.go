package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/siebentod/AcademyNomad/internal/models"
	"github.com/siebentod/AcademyNomad/internal/search"
	"go.uber.org/zap"
)

// SearchInput is the input schema for the search tools.
type SearchInput struct {
	Query             string `json:"query" jsonschema:"file name words, ext:<extension> or path:<directory> terms; all must match"`
	Path              string `json:"path,omitempty" jsonschema:"only return files below this directory"`
	Count             int    `json:"count,omitempty" jsonschema:"maximum number of results (default 20)"`
	IncludeHighlights bool   `json:"include_highlights,omitempty" jsonschema:"also extract PDF highlights for the newest results"`
}

// SearchOutput is the output schema for the search tools.
type SearchOutput struct {
	Results []models.SearchResult `json:"results"`
	Count   int                   `json:"count"`
}

// PathInput names one file.
type PathInput struct {
	Path string `json:"path" jsonschema:"absolute path of the file"`
}

// HighlightsOutput lists the annotations of one PDF.
type HighlightsOutput struct {
	Path       string             `json:"path"`
	Highlights []models.Highlight `json:"highlights"`
}

// CreatorIDOutput is the id stored in a document.
type CreatorIDOutput struct {
	Path string `json:"path"`
	ID   string `json:"id"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search local files by name, extension and location, newest first",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_full_metadata",
		Description: "Search local files and include PDF title, author, creator and highlights",
	}, s.handleSearchFull)
	if s.svc.Highlights != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "extract_highlights",
			Description: "List the highlights and comments of one PDF",
		}, s.handleExtractHighlights)
	}
	if s.svc.CreatorID != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "set_creator_id",
			Description: "Return the document id stored in a PDF, writing a new one if it has none",
		}, s.handleSetCreatorID)
	}
}

func (in SearchInput) request(highlights bool) models.SearchRequest {
	req := models.SearchRequest{Query: in.Query}
	if in.Path != "" {
		req.Path = &in.Path
	}
	if in.Count > 0 {
		req.Count = &in.Count
	}
	if highlights {
		req.IncludeHighlights = &highlights
	}
	return req
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return s.search(ctx, input.request(input.IncludeHighlights), search.Fast)
}

func (s *Server) handleSearchFull(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return s.search(ctx, input.request(true), search.Full)
}

func (s *Server) search(ctx context.Context, req models.SearchRequest, level search.Level) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.svc.Search.Search(ctx, req, level)
	if err != nil {
		s.logger.Debug("mcp search failed", zap.String("query", req.Query), zap.Error(err))
		return nil, SearchOutput{}, err
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

func (s *Server) handleExtractHighlights(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input PathInput,
) (*mcp.CallToolResult, HighlightsOutput, error) {
	if input.Path == "" {
		return nil, HighlightsOutput{}, fmt.Errorf("path is required")
	}
	hs, err := s.svc.Highlights.Extract(input.Path)
	if err != nil {
		return nil, HighlightsOutput{}, err
	}
	if hs == nil {
		hs = []models.Highlight{}
	}
	return nil, HighlightsOutput{Path: input.Path, Highlights: hs}, nil
}

func (s *Server) handleSetCreatorID(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input PathInput,
) (*mcp.CallToolResult, CreatorIDOutput, error) {
	if input.Path == "" {
		return nil, CreatorIDOutput{}, fmt.Errorf("path is required")
	}
	id, err := s.svc.CreatorID.EnsureCreatorID(input.Path)
	if err != nil {
		return nil, CreatorIDOutput{}, err
	}
	return nil, CreatorIDOutput{Path: input.Path, ID: id}, nil
}
