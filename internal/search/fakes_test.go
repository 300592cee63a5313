package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siebentod/AcademyNomad/internal/engine"
	"github.com/siebentod/AcademyNomad/internal/models"
	"github.com/siebentod/AcademyNomad/internal/xmp"
)

type fakeEngine struct {
	mu      sync.Mutex
	rows    engine.Rows
	err     error
	delay   time.Duration
	calls   []time.Time
	queries []engine.Query

	inFlight    int32
	maxInFlight int32
}

func (f *fakeEngine) Query(ctx context.Context, q engine.Query) (engine.Results, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeEngine) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

type fakeProbe struct {
	locked map[string]bool
}

func (p *fakeProbe) IsLocked(path string) bool { return p.locked[path] }

func (p *fakeProbe) Identity(path string) (string, bool) {
	return "ino-" + filepath.Base(path), true
}

type fakeMeta struct {
	mu    sync.Mutex
	cores map[string]xmp.Core
	calls []string
}

func (m *fakeMeta) ReadCore(path string) (xmp.Core, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, path)
	core, ok := m.cores[path]
	if !ok {
		return xmp.Core{}, xmp.ErrNoMetadata
	}
	return core, nil
}

type fakeExtractor struct {
	mu    sync.Mutex
	fn    func(path string) ([]models.Highlight, error)
	calls []string
}

func (e *fakeExtractor) Extract(path string) ([]models.Highlight, error) {
	e.mu.Lock()
	e.calls = append(e.calls, path)
	e.mu.Unlock()
	if e.fn == nil {
		return nil, nil
	}
	return e.fn(path)
}

func (e *fakeExtractor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

var errBrokenPDF = errors.New("broken pdf")

func pdfRows(n int) engine.Rows {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := make(engine.Rows, n)
	for i := range rows {
		rows[i] = engine.Row{
			Path:     fmt.Sprintf("/library/paper-%02d.pdf", i),
			Size:     int64(1000 + i),
			Created:  base.Add(-time.Duration(i) * time.Hour),
			Modified: base.Add(-time.Duration(i) * time.Minute),
			Ext:      "pdf",
		}
	}
	return rows
}

func quickSettings() Settings {
	s := DefaultSettings()
	s.MinInterval = 0
	s.TrailingDelay = 0
	s.LockTimeout = time.Second
	return s
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }
