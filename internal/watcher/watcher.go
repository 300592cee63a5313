// Package watcher reports changes under a set of directories using fsnotify.
// Directories can be added and removed while the watcher runs.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyWatching is returned when a directory is added twice.
	ErrAlreadyWatching = errors.New("directory already watched")
	// ErrNotWatching is returned when removing a directory that is not watched.
	ErrNotWatching = errors.New("directory not watched")
	// ErrNotDirectory is returned when the path to watch is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// Op is the kind of a Change.
type Op int

const (
	Created Op = iota
	Modified
	Removed
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Change is one observed filesystem change.
type Change struct {
	Op   Op
	Path string
}

// Handler receives changes. It is called from the watcher's goroutines, one
// change at a time per path, and should not block for long.
type Handler func(Change)

// Watcher watches directories and invokes a Handler on changes.
type Watcher struct {
	handler   Handler
	recursive bool
	debounce  time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	roots   map[string][]string // root -> directories added to fsnotify for it
	pending map[string]*pendingChange
	done    chan struct{}
	stop    sync.Once
}

type pendingChange struct {
	timer *time.Timer
	op    Op
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithRecursive watches subdirectories of every root, including ones
// created later.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// WithDebounce coalesces bursts of create/modify events for one path into a
// single change delivered d after the last event. Removals are never delayed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher that calls handler for every change.
func New(handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		handler: handler,
		logger:  zap.NewNop(),
		roots:   make(map[string][]string),
		pending: make(map[string]*pendingChange),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Directories added before Start are registered now.
// A stopped watcher cannot be started again.
// The watcher runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.fsw != nil {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw
	for root := range w.roots {
		dirs, err := w.register(root)
		if err != nil {
			w.logger.Warn("watch root unavailable", zap.String("path", root), zap.Error(err))
		}
		w.roots[root] = dirs
	}
	w.logger.Debug("watcher started", zap.Int("roots", len(w.roots)), zap.Bool("recursive", w.recursive))
	w.mu.Unlock()

	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancel(ev.Name)
		w.handler(Change{Op: Removed, Path: ev.Name})
	case ev.Has(fsnotify.Create):
		if w.recursive {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				w.addSubtree(ev.Name)
				return
			}
		}
		w.deliver(Change{Op: Created, Path: ev.Name})
	case ev.Has(fsnotify.Write):
		w.deliver(Change{Op: Modified, Path: ev.Name})
	}
}

// addSubtree starts watching a directory created under a recursive root and
// reports the files already inside it.
func (w *Watcher) addSubtree(dir string) {
	root, ok := w.rootOf(dir)
	if !ok {
		return
	}
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			files = append(files, path)
			return nil
		}
		w.mu.Lock()
		if w.fsw != nil {
			if err := w.fsw.Add(path); err != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			} else {
				w.roots[root] = append(w.roots[root], path)
			}
		}
		w.mu.Unlock()
		return nil
	})
	for _, f := range files {
		w.deliver(Change{Op: Created, Path: f})
	}
}

func (w *Watcher) rootOf(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for root := range w.roots {
		if rel, err := filepath.Rel(root, path); err == nil && filepath.IsLocal(rel) {
			return root, true
		}
	}
	return "", false
}

func (w *Watcher) deliver(c Change) {
	if w.debounce <= 0 {
		w.handler(c)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.pending[c.Path]; ok {
		p.timer.Stop()
		// a create followed by writes is still a create
		if p.op == Created {
			c.Op = Created
		}
	}
	p := &pendingChange{op: c.Op}
	p.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.pending[c.Path] != p {
			w.mu.Unlock()
			return
		}
		delete(w.pending, c.Path)
		w.mu.Unlock()
		w.handler(c)
	})
	w.pending[c.Path] = p
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// AddDirectory starts watching dir.
func (w *Watcher) AddDirectory(dir string) error {
	root, err := canonical(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.roots[root]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyWatching, root)
	}
	var dirs []string
	if w.fsw != nil {
		if dirs, err = w.register(root); err != nil {
			for _, d := range dirs {
				_ = w.fsw.Remove(d)
			}
			return fmt.Errorf("watch %s: %w", root, err)
		}
	}
	w.roots[root] = dirs
	w.logger.Debug("watcher directory added", zap.String("path", root))
	return nil
}

// register adds root (and its subdirectories when recursive) to fsnotify.
// Callers hold w.mu.
func (w *Watcher) register(root string) ([]string, error) {
	if !w.recursive {
		if err := w.fsw.Add(root); err != nil {
			return nil, err
		}
		return []string{root}, nil
	}
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// RemoveDirectory stops watching dir.
func (w *Watcher) RemoveDirectory(dir string) error {
	root, err := canonical(dir)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs, ok := w.roots[root]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotWatching, root)
	}
	if w.fsw != nil {
		for _, d := range dirs {
			_ = w.fsw.Remove(d)
		}
	}
	delete(w.roots, root)
	w.logger.Debug("watcher directory removed", zap.String("path", root))
	return nil
}

// Directories returns the watched root directories, sorted.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.roots))
	for root := range w.roots {
		out = append(out, root)
	}
	sort.Strings(out)
	return out
}

// Stop stops the watcher and drops pending changes. It is safe to call more
// than once.
func (w *Watcher) Stop() {
	w.stop.Do(func() {
		w.mu.Lock()
		for path, p := range w.pending {
			p.timer.Stop()
			delete(w.pending, path)
		}
		if w.fsw != nil {
			_ = w.fsw.Close()
		}
		w.mu.Unlock()
		close(w.done)
	})
}

func canonical(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	return filepath.Clean(abs), nil
}
