// Package shell opens files through the operating system: the default
// application, a PDF reader at a given page, the file manager and the
// "open with" chooser.
package shell

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/siebentod/AcademyNomad/internal/models"
	"go.uber.org/zap"
)

// ErrLaunch is returned when no handler could be started.
var ErrLaunch = errors.New("cannot launch handler")

// Opener is the OS integration used by the command surfaces.
type Opener interface {
	// Open opens path. A page is honored only where a PDF reader can jump
	// to it; program, when set, is tried first for that.
	Open(path string, page *uint32, program string) (models.OpenResult, error)
	// Reveal shows path selected in the file manager.
	Reveal(path string) error
	// OpenWith shows the application chooser for path and returns the
	// handler that was started.
	OpenWith(path string) (string, error)
}

// StartFunc starts a detached process.
type StartFunc func(name string, args ...string) error

// Start runs name without waiting for it to exit.
func Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type platform struct {
	start   StartFunc
	exists  func(string) bool
	readers []string
	logger  *zap.Logger
}

// Option configures an Opener.
type Option func(*platform)

// WithStart replaces the process launcher.
func WithStart(f StartFunc) Option {
	return func(p *platform) { p.start = f }
}

// WithExists replaces the check used to find installed readers.
func WithExists(f func(string) bool) Option {
	return func(p *platform) { p.exists = f }
}

// WithReaders sets the PDF readers tried, in order, when opening at a page.
func WithReaders(paths []string) Option {
	return func(p *platform) { p.readers = paths }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *platform) { p.logger = l }
}

// New returns the Opener for the running OS.
func New(opts ...Option) Opener {
	return ForOS(runtime.GOOS, opts...)
}

// ForOS returns the Opener for goos.
func ForOS(goos string, opts ...Option) Opener {
	p := platform{start: Start, exists: fileExists, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&p)
	}
	switch goos {
	case "windows":
		return &windows{p}
	case "darwin":
		return &darwin{p}
	default:
		return &unix{p}
	}
}

func (p platform) launch(name string, args ...string) error {
	if err := p.start(name, args...); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLaunch, name, err)
	}
	p.logger.Debug("handler started", zap.String("handler", name), zap.Strings("args", args))
	return nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

type windows struct{ platform }

func (w *windows) Open(path string, page *uint32, program string) (models.OpenResult, error) {
	if page != nil && isPDF(path) {
		candidates := w.readers
		if program != "" {
			candidates = append([]string{program}, candidates...)
		}
		for _, reader := range candidates {
			if !w.exists(reader) {
				continue
			}
			err := w.launch(reader, "/A", fmt.Sprintf("page=%d", *page), path)
			if err == nil {
				return models.OpenResult{Success: true, HandlerUsed: reader}, nil
			}
			w.logger.Warn("pdf reader failed", zap.String("reader", reader), zap.Error(err))
		}
	}
	if err := w.launch("explorer", path); err != nil {
		return models.OpenResult{HandlerUsed: "explorer"}, err
	}
	return models.OpenResult{Success: true, HandlerUsed: "explorer"}, nil
}

func (w *windows) Reveal(path string) error {
	return w.launch("explorer", "/select,"+path)
}

func (w *windows) OpenWith(path string) (string, error) {
	return "rundll32", w.launch("rundll32", "shell32.dll,OpenAs_RunDLL", path)
}

type darwin struct{ platform }

func (d *darwin) Open(path string, _ *uint32, _ string) (models.OpenResult, error) {
	if err := d.launch("open", path); err != nil {
		return models.OpenResult{HandlerUsed: "open"}, err
	}
	return models.OpenResult{Success: true, HandlerUsed: "open"}, nil
}

func (d *darwin) Reveal(path string) error {
	return d.launch("open", "-R", path)
}

// OpenWith reveals the file in Finder; macOS has no chooser command.
func (d *darwin) OpenWith(path string) (string, error) {
	return "Finder", d.launch("open", "-a", "Finder", path)
}

type unix struct{ platform }

func (u *unix) Open(path string, _ *uint32, _ string) (models.OpenResult, error) {
	if err := u.launch("xdg-open", path); err != nil {
		return models.OpenResult{HandlerUsed: "xdg-open"}, err
	}
	return models.OpenResult{Success: true, HandlerUsed: "xdg-open"}, nil
}

func (u *unix) Reveal(path string) error {
	return u.launch("xdg-open", filepath.Dir(path))
}

func (u *unix) OpenWith(path string) (string, error) {
	return "xdg-open", u.launch("xdg-open", path)
}
