// Package fileinfo answers cheap per-file questions for search results:
// whether another process holds the file, its stable identity and when it
// was created.
package fileinfo

import (
	"os"

	"go.uber.org/zap"
)

// Probe checks files for exclusive locks held by other processes.
type Probe struct {
	logger *zap.Logger
}

// Option configures a Probe.
type Option func(*Probe)

// WithLogger sets a logger for recovered probe failures.
func WithLogger(l *zap.Logger) Option {
	return func(p *Probe) { p.logger = l }
}

// NewProbe creates a Probe.
func NewProbe(opts ...Option) *Probe {
	p := &Probe{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsLocked reports whether the file at path is held by another process. It
// opens the file for writing and tries a non-blocking exclusive lock; a file
// that cannot be opened for writing, a failed lock attempt and any panic all
// count as locked.
func (p *Probe) IsLocked(path string) (locked bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("lock probe panicked", zap.String("path", path), zap.Any("panic", r))
			locked = true
		}
	}()
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return true
	}
	defer f.Close()
	return tryExclusive(f) != nil
}

// Identity returns an identifier that survives renames within a volume.
func (p *Probe) Identity(path string) (string, bool) {
	id, err := identity(path)
	if err != nil {
		p.logger.Debug("file identity unavailable", zap.String("path", path), zap.Error(err))
		return "", false
	}
	return id, true
}
