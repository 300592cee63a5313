// Package notify forwards changes in user-watched directories to the UI as
// "file-changed" events.
package notify

import (
	"context"

	"github.com/siebentod/AcademyNomad/internal/metrics"
	"github.com/siebentod/AcademyNomad/internal/models"
	"github.com/siebentod/AcademyNomad/internal/watcher"
	"go.uber.org/zap"
)

// Errors returned by Watch and Unwatch.
var (
	ErrAlreadyWatching = watcher.ErrAlreadyWatching
	ErrNotDirectory    = watcher.ErrNotDirectory
	ErrNotWatching     = watcher.ErrNotWatching
)

// Emitter delivers named events to the UI layer.
type Emitter interface {
	Emit(name string, payload any)
}

// Notifier watches directories non-recursively and emits one event per change.
type Notifier struct {
	watcher *watcher.Watcher
	emitter Emitter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) { n.metrics = m }
}

// New creates a Notifier that emits to e.
func New(e Emitter, opts ...Option) *Notifier {
	n := &Notifier{emitter: e, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	n.watcher = watcher.New(n.handle, watcher.WithLogger(n.logger))
	return n
}

// Start delivers events until ctx is cancelled or Stop is called.
func (n *Notifier) Start(ctx context.Context) error {
	return n.watcher.Start(ctx)
}

// Stop stops delivering events.
func (n *Notifier) Stop() {
	n.watcher.Stop()
}

// Watch starts watching dir.
func (n *Notifier) Watch(dir string) error {
	if err := n.watcher.AddDirectory(dir); err != nil {
		return err
	}
	n.metrics.SetWatchedDirectories(len(n.watcher.Directories()))
	n.logger.Info("watching directory", zap.String("path", dir))
	return nil
}

// Unwatch stops watching dir.
func (n *Notifier) Unwatch(dir string) error {
	if err := n.watcher.RemoveDirectory(dir); err != nil {
		return err
	}
	n.metrics.SetWatchedDirectories(len(n.watcher.Directories()))
	n.logger.Info("stopped watching directory", zap.String("path", dir))
	return nil
}

// Directories returns the watched directories, sorted.
func (n *Notifier) Directories() []string {
	return n.watcher.Directories()
}

func (n *Notifier) handle(c watcher.Change) {
	ev := Event(c)
	n.metrics.ObserveFileEvent(ev.EventType)
	n.emitter.Emit(models.FileChangedEvent, ev)
}

// Event converts a watcher change into the UI payload. Metadata is attached
// to creations and modifications of files that follow the naming convention.
func Event(c watcher.Change) models.FileChangeEvent {
	ev := models.FileChangeEvent{FilePath: c.Path}
	switch c.Op {
	case watcher.Created:
		ev.EventType = models.ChangeCreated
	case watcher.Modified:
		ev.EventType = models.ChangeModified
	default:
		ev.EventType = models.ChangeDeleted
		return ev
	}
	ev.Metadata = ParseFileMetadata(c.Path)
	return ev
}
