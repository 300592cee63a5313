package models

import "strings"

// DefaultResultCount caps a search when the request does not set a count.
const DefaultResultCount = 20

// SearchRequest is the input for both search modes.
type SearchRequest struct {
	Query             string  `json:"query"`
	Path              *string `json:"path,omitempty"`
	Count             *int    `json:"count,omitempty"`
	IncludeHighlights *bool   `json:"include_highlights,omitempty"`
}

// Blank reports whether the query holds nothing but whitespace.
func (r *SearchRequest) Blank() bool {
	return strings.TrimSpace(r.Query) == ""
}

// Limit returns the result cap, falling back to def when the count is unset
// or not positive.
func (r *SearchRequest) Limit(def int) int {
	if r.Count == nil || *r.Count <= 0 {
		return def
	}
	return *r.Count
}

// WantsHighlights reports whether highlight enrichment was requested.
func (r *SearchRequest) WantsHighlights() bool {
	return r.IncludeHighlights != nil && *r.IncludeHighlights
}

// RootPath returns the root filter, or "" when none was given.
func (r *SearchRequest) RootPath() string {
	if r.Path == nil {
		return ""
	}
	return strings.TrimSpace(*r.Path)
}
