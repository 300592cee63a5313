package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/siebentod/AcademyNomad/internal/engine"
	"github.com/siebentod/AcademyNomad/internal/models"
	"github.com/siebentod/AcademyNomad/internal/xmp"
	"go.uber.org/zap"
)

func newTestOrchestrator(eng engine.Engine, s Settings, ex *fakeExtractor, meta *fakeMeta) *Orchestrator {
	if ex == nil {
		ex = &fakeExtractor{}
	}
	if meta == nil {
		meta = &fakeMeta{}
	}
	return New(eng,
		WithSettings(s),
		WithLogger(zap.NewNop()),
		WithProbe(&fakeProbe{}),
		WithHighlightExtractor(ex),
		WithMetadataReader(meta),
	)
}

func TestSearch_blankQueryTouchesNothing(t *testing.T) {
	eng := &fakeEngine{rows: pdfRows(3)}
	s := DefaultSettings()
	s.LockTimeout = 10 * time.Millisecond
	o := newTestOrchestrator(eng, s, nil, nil)

	// hold the gate: a blank query must not even try to take it
	release, ok := o.gate.tryAcquire()
	if !ok {
		t.Fatal("gate should be free")
	}
	defer release()

	for _, q := range []string{"", "   ", "\t\n"} {
		got, err := o.Search(context.Background(), models.SearchRequest{Query: q}, Fast)
		if err != nil {
			t.Fatalf("Search(%q) error: %v", q, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Search(%q) = %#v, want empty list", q, got)
		}
	}
	if n := len(eng.callTimes()); n != 0 {
		t.Errorf("engine invoked %d times for blank queries", n)
	}
	if o.limiter.remaining() > 0 {
		t.Error("blank query should not record an invocation")
	}
}

func TestSearch_queryParameters(t *testing.T) {
	eng := &fakeEngine{}
	o := newTestOrchestrator(eng, quickSettings(), nil, nil)

	if _, err := o.Search(context.Background(), models.SearchRequest{Query: "kant"}, Fast); err != nil {
		t.Fatal(err)
	}
	root := "/library/philosophy"
	if _, err := o.Search(context.Background(), models.SearchRequest{Query: "hegel", Path: &root, Count: intPtr(5)}, Fast); err != nil {
		t.Fatal(err)
	}

	if len(eng.queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(eng.queries))
	}
	q := eng.queries[0]
	if q.Search != "kant" || q.MaxResults != 20 || q.Sort != engine.SortDateModifiedDescending || q.Path != "" {
		t.Errorf("unexpected default query: %+v", q)
	}
	want := engine.RequestFullPathAndFileName | engine.RequestDateCreated | engine.RequestDateModified | engine.RequestSize | engine.RequestExtension
	if !q.Flags.Has(want) {
		t.Errorf("flags = %b, want %b", q.Flags, want)
	}
	if q2 := eng.queries[1]; q2.MaxResults != 5 || q2.Path != root {
		t.Errorf("count/path not applied: %+v", q2)
	}
}

func TestSearch_rowFields(t *testing.T) {
	boom := errors.New("column unavailable")
	eng := &fakeEngine{rows: engine.Rows{
		{Path: "/docs/report (final).pdf", Size: 42, Ext: "pdf",
			Created:  time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC),
			Modified: time.Date(2024, 2, 3, 4, 5, 6, 700, time.FixedZone("X", 3600))},
		{PathErr: boom},
		{Path: "/docs/notes.txt", SizeErr: boom, CreatedErr: boom, ModifiedErr: boom, ExtErr: boom},
		{Path: "/docs/.hidden"},
	}}
	probe := &fakeProbe{locked: map[string]bool{"/docs/notes.txt": true}}
	o := New(eng, WithSettings(quickSettings()), WithProbe(probe),
		WithHighlightExtractor(&fakeExtractor{}), WithMetadataReader(&fakeMeta{}))

	got, err := o.Search(context.Background(), models.SearchRequest{Query: "docs"}, Fast)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected the row without a path to be dropped, got %d rows", len(got))
	}

	r := got[0]
	if r.FileName != "report (final).pdf" || r.Title != "report (final)" {
		t.Errorf("name/title = %q/%q", r.FileName, r.Title)
	}
	if r.Size == nil || *r.Size != 42 || r.Extension == nil || *r.Extension != "pdf" {
		t.Errorf("size/extension = %v/%v", r.Size, r.Extension)
	}
	if r.CreatedDate != "2023-01-02T03:04:05Z" {
		t.Errorf("created = %q", r.CreatedDate)
	}
	if r.ModifiedDate != "2024-02-03T03:05:06.0000007Z" {
		t.Errorf("modified = %q", r.ModifiedDate)
	}
	if r.ID == nil || *r.ID != "ino-report (final).pdf" || r.IsLocked {
		t.Errorf("id/locked = %v/%v", r.ID, r.IsLocked)
	}
	if r.Highlights != nil {
		t.Error("highlights were not requested and must be absent")
	}

	n := got[1]
	if n.Size != nil || n.Extension != nil || n.CreatedDate != "" || n.ModifiedDate != "" {
		t.Errorf("failed columns should be absent or empty: %+v", n)
	}
	if !n.IsLocked {
		t.Error("lock status not applied")
	}

	if got[2].Title != ".hidden" {
		t.Errorf("dotfile title = %q", got[2].Title)
	}
}

func TestSearch_unavailableWhenGateHeld(t *testing.T) {
	eng := &fakeEngine{rows: pdfRows(2)}
	s := quickSettings()
	s.LockTimeout = 50 * time.Millisecond
	o := newTestOrchestrator(eng, s, nil, nil)

	release, ok := o.gate.tryAcquire()
	if !ok {
		t.Fatal("gate should be free")
	}
	start := time.Now()
	got, err := o.Search(context.Background(), models.SearchRequest{Query: "paper"}, Fast)
	release()

	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if got != nil {
		t.Errorf("expected no result list, got %#v", got)
	}
	if took := time.Since(start); took < 50*time.Millisecond {
		t.Errorf("returned after %v, before the lock timeout", took)
	}
	if n := len(eng.callTimes()); n != 0 {
		t.Errorf("engine invoked %d times without the gate", n)
	}

	// the gate is usable again once released
	if _, err := o.Search(context.Background(), models.SearchRequest{Query: "paper"}, Fast); err != nil {
		t.Errorf("search after release: %v", err)
	}
}

func TestSearch_queryFailureIsUnavailable(t *testing.T) {
	cause := errors.New("ipc error")
	eng := &fakeEngine{err: cause}
	o := newTestOrchestrator(eng, quickSettings(), nil, nil)

	got, err := o.Search(context.Background(), models.SearchRequest{Query: "x"}, Full)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("error = %v, want ErrUnavailable wrapping the cause", err)
	}
	if got != nil {
		t.Errorf("expected no partial results, got %#v", got)
	}

	// the gate was released on the error path
	release, ok := o.gate.tryAcquire()
	if !ok {
		t.Fatal("gate still held after a failed query")
	}
	release()
}

func TestSearch_minimumSpacingBetweenInvocations(t *testing.T) {
	eng := &fakeEngine{}
	s := DefaultSettings()
	o := newTestOrchestrator(eng, s, nil, nil)

	for i := 0; i < 4; i++ {
		if _, err := o.Search(context.Background(), models.SearchRequest{Query: "q"}, Fast); err != nil {
			t.Fatal(err)
		}
	}
	assertSpacing(t, eng.callTimes(), s.MinInterval)
}

func TestSearch_concurrentCallsAreSerializedAndSpaced(t *testing.T) {
	eng := &fakeEngine{rows: pdfRows(3), delay: 5 * time.Millisecond}
	s := quickSettings()
	s.MinInterval = 40 * time.Millisecond
	s.LockTimeout = 5 * time.Second
	o := newTestOrchestrator(eng, s, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.Search(context.Background(), models.SearchRequest{Query: "q"}, Fast); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent search failed: %v", err)
	}

	if eng.maxInFlight != 1 {
		t.Errorf("engine saw %d concurrent invocations", eng.maxInFlight)
	}
	calls := eng.callTimes()
	if len(calls) != 6 {
		t.Fatalf("expected 6 invocations, got %d", len(calls))
	}
	assertSpacing(t, calls, s.MinInterval)
}

func assertSpacing(t *testing.T, calls []time.Time, min time.Duration) {
	t.Helper()
	// call times are taken inside the engine, a hair after the recorded start
	const slack = 2 * time.Millisecond
	for i := 1; i < len(calls); i++ {
		if gap := calls[i].Sub(calls[i-1]); gap < min-slack {
			t.Errorf("gap between invocation %d and %d = %v, want >= %v", i-1, i, gap, min)
		}
	}
}

func TestSearch_highlightCutoffByAttempts(t *testing.T) {
	eng := &fakeEngine{rows: pdfRows(20)}
	ex := &fakeExtractor{} // every file has no highlights
	o := newTestOrchestrator(eng, quickSettings(), ex, nil)

	got, err := o.Search(context.Background(), models.SearchRequest{Query: "paper", IncludeHighlights: boolPtr(true)}, Fast)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 rows, got %d", len(got))
	}
	if ex.count() != 11 {
		t.Errorf("extraction attempted %d times, want 11", ex.count())
	}
	for i, r := range got {
		if i < 11 && (r.Highlights == nil || len(r.Highlights) != 0) {
			t.Errorf("row %d: want empty attempted list, got %#v", i, r.Highlights)
		}
		if i >= 11 && r.Highlights != nil {
			t.Errorf("row %d: want absent highlights after cutoff, got %#v", i, r.Highlights)
		}
	}
}

func TestSearch_highlightCutoffByFilesWithHighlights(t *testing.T) {
	eng := &fakeEngine{rows: pdfRows(20)}
	ex := &fakeExtractor{fn: func(string) ([]models.Highlight, error) {
		return []models.Highlight{{Page: 1, HighlightType: models.HighlightTypeHighlight}}, nil
	}}
	o := newTestOrchestrator(eng, quickSettings(), ex, nil)

	got, err := o.SearchWithFullMetadata(context.Background(), models.SearchRequest{Query: "paper"})
	if err != nil {
		t.Fatal(err)
	}
	if ex.count() != 7 {
		t.Errorf("extraction attempted %d times, want 7", ex.count())
	}
	for i, r := range got {
		if i < 7 && len(r.Highlights) != 1 {
			t.Errorf("row %d: want one highlight, got %#v", i, r.Highlights)
		}
		if i >= 7 && r.Highlights != nil {
			t.Errorf("row %d: want absent highlights after cutoff, got %#v", i, r.Highlights)
		}
	}
}

func TestSearch_highlightCutoffMixed(t *testing.T) {
	eng := &fakeEngine{rows: pdfRows(20)}
	// every third file has highlights, every fourth fails to parse
	calls := 0
	ex := &fakeExtractor{fn: func(string) ([]models.Highlight, error) {
		calls++
		switch {
		case calls%4 == 0:
			return nil, errBrokenPDF
		case calls%3 == 0:
			return []models.Highlight{{Page: 2}}, nil
		}
		return []models.Highlight{}, nil
	}}
	o := newTestOrchestrator(eng, quickSettings(), ex, nil)

	got, err := o.Search(context.Background(), models.SearchRequest{Query: "paper", IncludeHighlights: boolPtr(true)}, Fast)
	if err != nil {
		t.Fatal(err)
	}
	// 11 attempts: highlights found on attempts 3, 6, 9 only
	if ex.count() != 11 {
		t.Fatalf("extraction attempted %d times, want 11", ex.count())
	}
	for i := 0; i < 11; i++ {
		if got[i].Highlights == nil {
			t.Errorf("row %d: attempted row must not be absent", i)
		}
	}
	if got[3].Highlights == nil || len(got[3].Highlights) != 0 {
		t.Errorf("failed extraction should yield an empty list, got %#v", got[3].Highlights)
	}
	for i := 11; i < 20; i++ {
		if got[i].Highlights != nil {
			t.Errorf("row %d: want absent highlights", i)
		}
	}
}

func TestSearch_fastModeWithoutHighlights(t *testing.T) {
	eng := &fakeEngine{rows: pdfRows(5)}
	ex := &fakeExtractor{}
	meta := &fakeMeta{cores: map[string]xmp.Core{"/library/paper-00.pdf": {Title: strPtr("T")}}}
	o := newTestOrchestrator(eng, quickSettings(), ex, meta)

	got, err := o.Search(context.Background(), models.SearchRequest{Query: "paper", IncludeHighlights: boolPtr(false)}, Fast)
	if err != nil {
		t.Fatal(err)
	}
	if ex.count() != 0 || len(meta.calls) != 0 {
		t.Errorf("fast mode ran %d extractions and %d metadata reads", ex.count(), len(meta.calls))
	}
	for i, r := range got {
		if r.Highlights != nil || r.PDFTitle != nil {
			t.Errorf("row %d carries full-mode fields: %+v", i, r)
		}
		if r.ID == nil {
			t.Errorf("row %d: fast mode should still report identity", i)
		}
	}
}

func TestSearch_fullModeReadsPDFMetadataOnly(t *testing.T) {
	eng := &fakeEngine{rows: engine.Rows{
		{Path: "/lib/a.pdf", Ext: "pdf"},
		{Path: "/lib/b.PDF", Ext: "PDF"},
		{Path: "/lib/c.epub", Ext: "epub"},
		{Path: "/lib/d.pdf", Ext: "pdf"},
	}}
	meta := &fakeMeta{cores: map[string]xmp.Core{
		"/lib/a.pdf": {Title: strPtr("Critique"), Author: strPtr("Kant"), CreatorTool: strPtr("id_abc123abc123")},
		"/lib/b.PDF": {Author: strPtr("Hume")},
	}}
	o := newTestOrchestrator(eng, quickSettings(), &fakeExtractor{}, meta)

	got, err := o.Search(context.Background(), models.SearchRequest{Query: "lib"}, Full)
	if err != nil {
		t.Fatal(err)
	}
	if len(meta.calls) != 3 {
		t.Errorf("metadata read for %v, want the three PDFs", meta.calls)
	}
	if got[0].PDFTitle == nil || *got[0].PDFTitle != "Critique" || *got[0].PDFCreator != "id_abc123abc123" {
		t.Errorf("row 0 metadata = %+v", got[0])
	}
	if got[1].PDFTitle != nil || got[1].PDFAuthor == nil || *got[1].PDFAuthor != "Hume" {
		t.Errorf("row 1 metadata = %+v", got[1])
	}
	if got[3].PDFTitle != nil || got[3].PDFAuthor != nil || got[3].PDFCreator != nil {
		t.Errorf("unreadable metadata must stay absent: %+v", got[3])
	}
	for i, r := range got {
		if r.Highlights == nil {
			t.Errorf("row %d: full mode always attempts highlights within budget", i)
		}
	}
}

func TestSearch_trailingDelay(t *testing.T) {
	eng := &fakeEngine{}
	s := quickSettings()
	s.TrailingDelay = 30 * time.Millisecond
	o := newTestOrchestrator(eng, s, nil, nil)

	start := time.Now()
	if _, err := o.Search(context.Background(), models.SearchRequest{Query: "x"}, Fast); err != nil {
		t.Fatal(err)
	}
	if took := time.Since(start); took < 30*time.Millisecond {
		t.Errorf("search returned after %v, before the trailing delay", took)
	}
	// the gate is released before the trailing delay
	release, ok := o.gate.tryAcquire()
	if !ok {
		t.Fatal("gate held after search returned")
	}
	release()
}

func TestLevel_String(t *testing.T) {
	if Fast.String() != "fast" || Full.String() != "full" {
		t.Errorf("unexpected level names %q %q", Fast, Full)
	}
}
