// Package xmp reads and writes the document-level XMP metadata embedded in
// files: title, author and the creator tool, which doubles as a stable
// document id.
package xmp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// IDPrefix marks creator-tool values that are document ids.
const IDPrefix = "id_"

const idLength = 12

var (
	// ErrNoMetadata is returned when a file carries no XMP packet.
	ErrNoMetadata = errors.New("no XMP metadata found")
	// ErrReadOnly is returned when the packet lives in a compressed stream.
	ErrReadOnly = errors.New("XMP packet cannot be rewritten in place")
	// ErrNoRoom is returned when the packet padding cannot absorb an update.
	ErrNoRoom = errors.New("not enough padding in XMP packet")
)

// Core is the subset of document metadata shown next to search results.
type Core struct {
	Title       *string
	Author      *string
	CreatorTool *string
}

// Service opens files through a format-aware handler first and falls back to
// scanning the raw bytes for a packet.
type Service struct {
	logger *zap.Logger
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger for handler fallbacks.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIDGenerator overrides how new document ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a Service.
func New(opts ...Option) *Service {
	s := &Service{logger: zap.NewNop(), newID: randomID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadCore returns the title, author and creator tool of the file at path.
// Missing properties are nil.
func (s *Service) ReadCore(path string) (Core, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Core{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	p, info := s.open(path, data)
	if p == nil {
		if info != (Core{}) {
			return info, nil
		}
		return Core{}, fmt.Errorf("%s: %w", path, ErrNoMetadata)
	}
	core, err := parseCore(p.data)
	if err != nil {
		return Core{}, fmt.Errorf("%s: %w", path, err)
	}
	if core.Title == nil {
		core.Title = info.Title
	}
	if core.Author == nil {
		core.Author = info.Author
	}
	if core.CreatorTool == nil {
		core.CreatorTool = info.CreatorTool
	}
	return core, nil
}

// EnsureCreatorID returns the document id stored in the creator tool of the
// file at path. When the creator tool does not hold an id yet, a new one is
// generated and written into the file's XMP packet in place.
func (s *Service) EnsureCreatorID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	p, _ := s.open(path, data)
	if p == nil {
		return "", fmt.Errorf("%s: %w", path, ErrNoMetadata)
	}
	core, err := parseCore(p.data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if core.CreatorTool != nil && strings.HasPrefix(*core.CreatorTool, IDPrefix) {
		return *core.CreatorTool, nil
	}
	if !p.writable() {
		return "", fmt.Errorf("%s: %w", path, ErrReadOnly)
	}

	id := IDPrefix + s.newID()
	updated, err := setCreatorTool(p.data, id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if err := writeAt(path, updated, p.offset); err != nil {
		return "", err
	}
	s.logger.Debug("wrote creator id", zap.String("path", path), zap.String("id", id))
	return id, nil
}

// open locates the XMP packet of a file. For PDFs the catalog's Metadata
// stream is consulted first, together with the legacy Info dictionary which
// fills properties the packet lacks. Everything else is found by scanning.
func (s *Service) open(path string, data []byte) (*packet, Core) {
	var info Core
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		p, i, err := openPDF(data)
		if err == nil && p != nil {
			return p, i
		}
		info = i
		if err != nil {
			s.logger.Debug("pdf metadata handler failed, scanning packet", zap.String("path", path), zap.Error(err))
		}
	}
	p, _ := scanPacket(data, 0)
	return p, info
}

func openPDF(data []byte) (p *packet, info Core, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("pdf handler: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, Core{}, err
	}

	infoDict := r.Trailer().Key("Info")
	info = Core{
		Title:       nonEmpty(infoDict.Key("Title").Text()),
		Author:      nonEmpty(infoDict.Key("Author").Text()),
		CreatorTool: nonEmpty(infoDict.Key("Creator").Text()),
	}

	meta := r.Trailer().Key("Root").Key("Metadata")
	if meta.Kind() != pdf.Stream {
		return nil, info, nil
	}
	raw, err := io.ReadAll(meta.Reader())
	if err != nil {
		return nil, info, fmt.Errorf("read metadata stream: %w", err)
	}
	if meta.Key("Filter").IsNull() {
		if found, ok := scanPacket(raw, 0); ok {
			// locate the unfiltered stream body in the file for in-place writes
			if at := bytes.Index(data, found.data); at >= 0 {
				found.offset = int64(at)
				return found, info, nil
			}
		}
	}
	if found, ok := scanPacket(raw, 0); ok {
		found.offset = -1
		return found, info, nil
	}
	return nil, info, nil
}

func writeAt(path string, data []byte, offset int64) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", path, err)
	}
	if _, err := f.WriteAt(data, offset); err != nil {
		f.Close()
		return fmt.Errorf("failed to write metadata to %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return f.Close()
}

func randomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}
