// Package search runs queries against the file-search engine and enriches
// the matched files with lock status, identity, document metadata and PDF
// highlights under a bounded budget.
package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/siebentod/AcademyNomad/internal/config"
	"github.com/siebentod/AcademyNomad/internal/engine"
	"github.com/siebentod/AcademyNomad/internal/fileinfo"
	"github.com/siebentod/AcademyNomad/internal/highlights"
	"github.com/siebentod/AcademyNomad/internal/metrics"
	"github.com/siebentod/AcademyNomad/internal/models"
	"github.com/siebentod/AcademyNomad/internal/xmp"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when the engine could not be engaged in time or
// its query failed. No partial results accompany it.
var ErrUnavailable = errors.New("search unavailable")

// Level selects how much per-file metadata a search collects.
type Level int

const (
	// Fast reports engine fields plus lock status and file identity.
	Fast Level = iota
	// Full adds document metadata for PDFs and always extracts highlights.
	Full
)

func (l Level) String() string {
	if l == Full {
		return "full"
	}
	return "fast"
}

// HighlightExtractor reads annotations from one file.
type HighlightExtractor interface {
	Extract(path string) ([]models.Highlight, error)
}

// MetadataReader reads embedded document metadata from one file.
type MetadataReader interface {
	ReadCore(path string) (xmp.Core, error)
}

// FileProbe answers lock and identity questions about one file.
type FileProbe interface {
	IsLocked(path string) bool
	Identity(path string) (string, bool)
}

// Settings are the pacing and enrichment limits of an Orchestrator.
type Settings struct {
	DefaultCount           int
	MinInterval            time.Duration
	LockTimeout            time.Duration
	TrailingDelay          time.Duration
	MaxHighlightAttempts   int
	MaxFilesWithHighlights int
}

// DefaultSettings returns the standard limits.
func DefaultSettings() Settings {
	return Settings{
		DefaultCount:           models.DefaultResultCount,
		MinInterval:            100 * time.Millisecond,
		LockTimeout:            5 * time.Second,
		TrailingDelay:          10 * time.Millisecond,
		MaxHighlightAttempts:   11,
		MaxFilesWithHighlights: 7,
	}
}

// SettingsFromConfig converts the search section of the config.
func SettingsFromConfig(cfg *config.SearchConfig) Settings {
	return Settings{
		DefaultCount:           cfg.DefaultCount,
		MinInterval:            cfg.MinInterval,
		LockTimeout:            cfg.LockTimeout,
		TrailingDelay:          cfg.TrailingDelay,
		MaxHighlightAttempts:   cfg.MaxHighlightAttempts,
		MaxFilesWithHighlights: cfg.MaxFilesWithHighlights,
	}
}

// Orchestrator serializes engine access and enriches results. One instance
// owns the process-wide limiter and gate; share it, don't copy it.
type Orchestrator struct {
	engine     engine.Engine
	limiter    *RateLimiter
	gate       *Gate
	probe      FileProbe
	meta       MetadataReader
	highlights HighlightExtractor
	settings   Settings
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSettings overrides the pacing and enrichment limits.
func WithSettings(s Settings) Option {
	return func(o *Orchestrator) { o.settings = s }
}

// WithProbe overrides the lock and identity probe.
func WithProbe(p FileProbe) Option {
	return func(o *Orchestrator) { o.probe = p }
}

// WithMetadataReader overrides the document metadata reader.
func WithMetadataReader(m MetadataReader) Option {
	return func(o *Orchestrator) { o.meta = m }
}

// WithHighlightExtractor overrides the highlight extractor.
func WithHighlightExtractor(h HighlightExtractor) Option {
	return func(o *Orchestrator) { o.highlights = h }
}

// New creates an Orchestrator over eng.
func New(eng engine.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:   eng,
		settings: DefaultSettings(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.probe == nil {
		o.probe = fileinfo.NewProbe(fileinfo.WithLogger(o.logger))
	}
	if o.meta == nil {
		o.meta = xmp.New(xmp.WithLogger(o.logger))
	}
	if o.highlights == nil {
		o.highlights = highlights.New(highlights.WithLogger(o.logger))
	}
	o.limiter = NewRateLimiter(o.settings.MinInterval)
	o.gate = NewGate()
	return o
}

// SearchWithFullMetadata runs a Full search; highlights are always included.
func (o *Orchestrator) SearchWithFullMetadata(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	return o.Search(ctx, req, Full)
}

// Search runs req against the engine. A blank query returns an empty list
// without touching the engine. Results keep the engine's order, most
// recently modified first.
func (o *Orchestrator) Search(ctx context.Context, req models.SearchRequest, level Level) ([]models.SearchResult, error) {
	start := time.Now()
	if req.Blank() {
		o.metrics.ObserveSearch(level.String(), metrics.OutcomeBlank, 0, 0)
		return []models.SearchResult{}, nil
	}

	if o.limiter.Throttle(ctx) {
		o.metrics.ObserveThrottle()
	}

	results, err := o.searchLocked(ctx, req, level)
	if err != nil {
		o.metrics.ObserveSearch(level.String(), metrics.OutcomeUnavailable, 0, time.Since(start))
		return nil, err
	}

	sleep(ctx, o.settings.TrailingDelay)
	o.metrics.ObserveSearch(level.String(), metrics.OutcomeOK, len(results), time.Since(start))
	return results, nil
}

func (o *Orchestrator) searchLocked(ctx context.Context, req models.SearchRequest, level Level) ([]models.SearchResult, error) {
	waitStart := time.Now()
	release, err := o.gate.Acquire(ctx, o.settings.LockTimeout)
	o.metrics.ObserveGateWait(time.Since(waitStart))
	if err != nil {
		o.logger.Warn("search engine busy", zap.String("query", req.Query), zap.Error(err))
		return nil, err
	}
	defer release()

	q := engine.Query{
		Search: req.Query,
		Path:   req.RootPath(),
		Flags: engine.RequestFullPathAndFileName | engine.RequestDateCreated |
			engine.RequestDateModified | engine.RequestSize | engine.RequestExtension,
		Sort:       engine.SortDateModifiedDescending,
		MaxResults: req.Limit(o.settings.DefaultCount),
	}

	o.limiter.Admit(ctx)
	queryStart := time.Now()
	rows, err := o.engine.Query(ctx, q)
	o.metrics.ObserveEngineQuery(time.Since(queryStart))
	if err != nil {
		o.logger.Error("engine query failed", zap.String("query", req.Query), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var budget *highlightBudget
	if level == Full || req.WantsHighlights() {
		budget = newHighlightBudget(o.settings.MaxHighlightAttempts, o.settings.MaxFilesWithHighlights)
	}

	out := make([]models.SearchResult, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		r, ok := o.row(rows, i)
		if !ok {
			continue
		}
		o.enrich(&r, level)
		if budget.open() {
			r.Highlights = o.extractHighlights(r.FullPath, budget)
		}
		out = append(out, r)
	}
	return out, nil
}

// row reads the engine columns of row i. Rows without a path are dropped.
func (o *Orchestrator) row(rows engine.Results, i int) (models.SearchResult, bool) {
	path, err := rows.FullPath(i)
	if err != nil || path == "" {
		o.logger.Debug("dropping row without path", zap.Int("row", i), zap.Error(err))
		return models.SearchResult{}, false
	}
	name := filepath.Base(path)
	r := models.SearchResult{
		FileName:     name,
		FullPath:     path,
		Title:        stem(name),
		CreatedDate:  formatTime(rows.DateCreated(i)),
		ModifiedDate: formatTime(rows.DateModified(i)),
	}
	if size, err := rows.Size(i); err == nil {
		r.Size = &size
	}
	if ext, err := rows.Extension(i); err == nil {
		r.Extension = &ext
	}
	return r, true
}

func stem(name string) string {
	if s := strings.TrimSuffix(name, filepath.Ext(name)); s != "" {
		return s
	}
	return name
}

// formatTime renders t as RFC 3339 in UTC, or "" when it could not be read.
func formatTime(t time.Time, err error) string {
	if err != nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
