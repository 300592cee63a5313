package fileindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siebentod/AcademyNomad/internal/config"
	"github.com/siebentod/AcademyNomad/internal/extract"
	"github.com/siebentod/AcademyNomad/internal/fileinfo"
	"github.com/siebentod/AcademyNomad/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	// ErrExcluded is returned for files whose extension is not indexed.
	ErrExcluded = errors.New("extension not indexed")
	// ErrTooLarge is returned for files above the configured size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrNotRegular is returned for anything that is not a regular file.
	ErrNotRegular = errors.New("not a regular file")
)

// Outcomes of indexing one file.
const (
	ResultIndexed = "indexed"
	ResultSkipped = "skipped"
	ResultRemoved = "removed"
	ResultError   = "error"
)

// Stats summarizes one crawl.
type Stats struct {
	Indexed int
	Skipped int
	Removed int
	Failed  int
}

func (s *Stats) add(result string) {
	switch result {
	case ResultIndexed:
		s.Indexed++
	case ResultSkipped:
		s.Skipped++
	case ResultRemoved:
		s.Removed++
	default:
		s.Failed++
	}
}

// Builder crawls directories into an Index.
type Builder struct {
	index      *Index
	extractor  *extract.Extractor
	extensions map[string]bool
	content    map[string]bool
	maxSize    int64
	workers    int
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithExtractor overrides the content extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(b *Builder) { b.extractor = e }
}

// NewBuilder creates a Builder for idx using the index section of the config.
// An empty extension list indexes every file.
func NewBuilder(idx *Index, cfg *config.IndexConfig, opts ...Option) *Builder {
	b := &Builder{
		index:      idx,
		extractor:  extract.NewExtractor(),
		extensions: extensionSet(cfg.Extensions),
		content:    extensionSet(cfg.ContentExtensions),
		maxSize:    cfg.MaxFileSize,
		workers:    cfg.Workers,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     zap.NewNop(),
	}
	if b.workers <= 0 {
		b.workers = 1
	}
	if cfg.FilesPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.FilesPerSecond), b.workers)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return set
}

func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Wants reports whether path has an indexed extension.
func (b *Builder) Wants(path string) bool {
	return len(b.extensions) == 0 || b.extensions[extOf(path)]
}

// Index returns the index the builder writes to.
func (b *Builder) Index() *Index { return b.index }

// Crawl indexes every wanted file below roots and drops documents for files
// that are gone. Per-file failures are counted, not returned; the error is
// for a failed walk or a cancelled context.
func (b *Builder) Crawl(ctx context.Context, roots ...string) (Stats, error) {
	run := uuid.NewString()
	start := time.Now()
	var total Stats
	for _, root := range roots {
		s, err := b.crawlRoot(ctx, root)
		total.Indexed += s.Indexed
		total.Skipped += s.Skipped
		total.Removed += s.Removed
		total.Failed += s.Failed
		if err != nil {
			return total, err
		}
	}
	b.refreshGauge()
	b.logger.Info("crawl finished",
		zap.String("run", run),
		zap.Strings("roots", roots),
		zap.Int("indexed", total.Indexed),
		zap.Int("skipped", total.Skipped),
		zap.Int("removed", total.Removed),
		zap.Int("failed", total.Failed),
		zap.Duration("took", time.Since(start)))
	return total, nil
}

func (b *Builder) crawlRoot(ctx context.Context, root string) (Stats, error) {
	var (
		stats Stats
		mu    sync.Mutex
	)
	record := func(result string) {
		mu.Lock()
		stats.add(result)
		mu.Unlock()
		b.metrics.ObserveIndexed(result)
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return stats, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		b.logger.Warn("index root unavailable", zap.String("root", root), zap.Error(err))
		return stats, nil
	}
	if !info.IsDir() {
		b.logger.Warn("index root is not a directory", zap.String("root", root))
		return stats, nil
	}

	seen := make(map[string]bool)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := gctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			b.logger.Debug("crawl skipping unreadable entry", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !b.Wants(path) {
			return nil
		}
		seen[path] = true
		g.Go(func() error {
			if err := b.limiter.Wait(gctx); err != nil {
				return err
			}
			result, err := b.IndexFile(gctx, path)
			if err != nil {
				b.logger.Debug("index file failed", zap.String("path", path), zap.Error(err))
			}
			record(result)
			return nil
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return stats, err
	}
	if walkErr != nil {
		return stats, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	indexed, err := b.index.Paths(ctx, root)
	if err != nil {
		return stats, err
	}
	for _, p := range indexed {
		if seen[p] {
			continue
		}
		if err := b.index.Delete(p); err != nil {
			b.logger.Debug("remove vanished file failed", zap.String("path", p), zap.Error(err))
			record(ResultError)
			continue
		}
		record(ResultRemoved)
	}
	return stats, nil
}

// IndexFile brings the document for path up to date and returns what it did.
// A missing file has its document removed. A file whose size and
// modification time match the indexed version is skipped.
func (b *Builder) IndexFile(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := b.index.Delete(path); err != nil {
			return ResultError, err
		}
		return ResultRemoved, nil
	}
	if err != nil {
		return ResultError, fmt.Errorf("stat file: %w", err)
	}
	switch {
	case !info.Mode().IsRegular():
		return ResultError, fmt.Errorf("%w: %s", ErrNotRegular, path)
	case !b.Wants(path):
		return ResultError, fmt.Errorf("%w: %s", ErrExcluded, path)
	case b.maxSize > 0 && info.Size() > b.maxSize:
		return ResultError, fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, path, info.Size())
	}

	if old, err := b.index.Stamp(ctx, path); err == nil && old == stamp(info) {
		b.logger.Debug("index skipping unchanged file", zap.String("path", path))
		return ResultSkipped, nil
	}

	doc := NewDocument(path, info, fileinfo.CreatedAt(path, info))
	if b.content[doc.Ext] {
		text, err := b.extractor.Extract(path)
		if err != nil {
			// still findable by name
			b.logger.Debug("content extraction failed", zap.String("path", path), zap.Error(err))
		}
		doc.Content = text
	}
	if err := b.index.Put(doc); err != nil {
		return ResultError, err
	}
	b.logger.Debug("file indexed", zap.String("path", path))
	return ResultIndexed, nil
}

// RemoveTree drops every document at or below path.
func (b *Builder) RemoveTree(ctx context.Context, path string) error {
	n, err := b.index.DeleteTree(ctx, path)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		b.metrics.ObserveIndexed(ResultRemoved)
	}
	return nil
}

func (b *Builder) refreshGauge() {
	if n, err := b.index.DocCount(); err == nil {
		b.metrics.SetIndexDocuments(n)
	}
}
