// Package engine defines the boundary to the indexed file-search engine that
// the search orchestrator drives. Implementations are not required to be
// reentrant: callers serialize Query calls.
package engine

import (
	"context"
	"errors"
	"time"
)

// RequestFlags selects the columns a query must populate.
type RequestFlags uint32

const (
	RequestFileName RequestFlags = 1 << iota
	RequestPath
	RequestFullPathAndFileName
	RequestExtension
	RequestSize
	RequestDateCreated
	RequestDateModified
)

// Has reports whether all bits of f2 are set.
func (f RequestFlags) Has(f2 RequestFlags) bool { return f&f2 == f2 }

// Sort orders query results.
type Sort int

const (
	SortNameAscending Sort = iota
	SortDateModifiedDescending
	SortDateModifiedAscending
	SortSizeDescending
)

// Query is one search invocation.
type Query struct {
	Search     string
	Path       string // restrict to this root; empty searches everywhere
	Flags      RequestFlags
	Sort       Sort
	MaxResults int
}

// ErrNotRequested is returned by a Results accessor for a column the query
// did not request.
var ErrNotRequested = errors.New("column not requested")

// Results is a read-only view over the rows of one query. Every accessor can
// fail per row; a failure affects that field only.
type Results interface {
	Len() int
	FullPath(i int) (string, error)
	Size(i int) (int64, error)
	DateCreated(i int) (time.Time, error)
	DateModified(i int) (time.Time, error)
	Extension(i int) (string, error)
}

// Engine runs queries.
type Engine interface {
	Query(ctx context.Context, q Query) (Results, error)
}
