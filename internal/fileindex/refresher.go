package fileindex

import (
	"context"
	"time"

	"github.com/siebentod/AcademyNomad/internal/watcher"
	"go.uber.org/zap"
)

// Refresher keeps the index current by watching the crawl roots recursively.
type Refresher struct {
	builder *Builder
	watcher *watcher.Watcher
	ctx     context.Context
}

// NewRefresher creates a Refresher that feeds changes to b. Bursts of writes
// to one file are coalesced over debounce.
func NewRefresher(b *Builder, debounce time.Duration) *Refresher {
	r := &Refresher{builder: b, ctx: context.Background()}
	r.watcher = watcher.New(r.handle,
		watcher.WithRecursive(true),
		watcher.WithDebounce(debounce),
		watcher.WithLogger(b.logger))
	return r
}

// Start watches roots until ctx is cancelled or Stop is called. Roots that
// cannot be watched are logged and skipped.
func (r *Refresher) Start(ctx context.Context, roots ...string) error {
	r.ctx = ctx
	for _, root := range roots {
		if err := r.watcher.AddDirectory(root); err != nil {
			r.builder.logger.Warn("cannot watch index root", zap.String("root", root), zap.Error(err))
		}
	}
	return r.watcher.Start(ctx)
}

// Directories returns the watched roots.
func (r *Refresher) Directories() []string {
	return r.watcher.Directories()
}

// Stop stops watching.
func (r *Refresher) Stop() {
	r.watcher.Stop()
}

func (r *Refresher) handle(c watcher.Change) {
	b := r.builder
	if c.Op == watcher.Removed {
		// the path may have been a file or a whole directory
		if err := b.RemoveTree(r.ctx, c.Path); err != nil {
			b.logger.Debug("refresh remove failed", zap.String("path", c.Path), zap.Error(err))
		}
		b.refreshGauge()
		return
	}
	if !b.Wants(c.Path) {
		return
	}
	result, err := b.IndexFile(r.ctx, c.Path)
	if err != nil {
		b.logger.Debug("refresh index failed", zap.String("path", c.Path), zap.Error(err))
	}
	b.metrics.ObserveIndexed(result)
	b.refreshGauge()
}
