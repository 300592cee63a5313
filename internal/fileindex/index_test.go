package fileindex

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/siebentod/AcademyNomad/internal/engine"
)

var allColumns = engine.RequestFullPathAndFileName | engine.RequestSize |
	engine.RequestExtension | engine.RequestDateCreated | engine.RequestDateModified

func openMem(t *testing.T) *Index {
	t.Helper()
	idx, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func put(t *testing.T, idx *Index, path string, modified time.Time, content string) {
	t.Helper()
	name := filepath.Base(path)
	doc := Document{
		Name:      strings.ReplaceAll(name, "_", " "),
		NameLower: strings.ToLower(name),
		Path:      path,
		Dir:       filepath.Dir(path),
		Ext:       extOf(path),
		Size:      int64(len(path)),
		Created:   modified.Add(-time.Hour),
		Modified:  modified,
		Stamp:     "s",
		Content:   content,
	}
	if err := idx.Put(doc); err != nil {
		t.Fatal(err)
	}
}

func paths(t *testing.T, res engine.Results) []string {
	t.Helper()
	out := make([]string, res.Len())
	for i := range out {
		p, err := res.FullPath(i)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		out[i] = p
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func seedLibrary(t *testing.T) *Index {
	idx := openMem(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	put(t, idx, "/lib/kant/critique_of_pure_reason.pdf", base.Add(3*time.Hour), "transcendental aesthetic")
	put(t, idx, "/lib/kant/prolegomena.epub", base.Add(2*time.Hour), "")
	put(t, idx, "/lib/hegel/phenomenology.pdf", base.Add(1*time.Hour), "the owl of minerva and critique")
	put(t, idx, "/lib/notes/reading list.md", base, "kant hegel")
	return idx
}

func TestQuery_termsAndOrder(t *testing.T) {
	idx := seedLibrary(t)
	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"name word prefix", "crit", []string{"/lib/kant/critique_of_pure_reason.pdf", "/lib/hegel/phenomenology.pdf"}},
		{"inside name", "legom", []string{"/lib/kant/prolegomena.epub"}},
		{"content word", "minerva", []string{"/lib/hegel/phenomenology.pdf"}},
		{"content word prefix", "miner", []string{"/lib/hegel/phenomenology.pdf"}},
		{"all terms must match", "critique minerva", []string{"/lib/hegel/phenomenology.pdf"}},
		{"extension", "ext:pdf", []string{"/lib/kant/critique_of_pure_reason.pdf", "/lib/hegel/phenomenology.pdf"}},
		{"extension with dot", "ext:.EPUB", []string{"/lib/kant/prolegomena.epub"}},
		{"directory", "path:/lib/kant", []string{"/lib/kant/critique_of_pure_reason.pdf", "/lib/kant/prolegomena.epub"}},
		{"case insensitive", "PHENO", []string{"/lib/hegel/phenomenology.pdf"}},
		{"space in name", "reading", []string{"/lib/notes/reading list.md"}},
		{"no match", "spinoza", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := idx.Query(context.Background(), engine.Query{
				Search: tt.search, Flags: allColumns,
				Sort: engine.SortDateModifiedDescending, MaxResults: 10,
			})
			if err != nil {
				t.Fatal(err)
			}
			if got := paths(t, res); !equal(got, tt.want) {
				t.Errorf("Query(%q) = %v, want %v", tt.search, got, tt.want)
			}
		})
	}
}

func TestQuery_rootAndLimit(t *testing.T) {
	idx := seedLibrary(t)

	res, err := idx.Query(context.Background(), engine.Query{
		Search: "ext:pdf", Path: "/lib/hegel/", Flags: allColumns, MaxResults: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(t, res); !equal(got, []string{"/lib/hegel/phenomenology.pdf"}) {
		t.Errorf("root filter: %v", got)
	}

	res, err = idx.Query(context.Background(), engine.Query{Search: "path:/lib", Flags: allColumns, MaxResults: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 2 {
		t.Errorf("MaxResults ignored: %d rows", res.Len())
	}

	// a root that is only a name prefix of a directory does not match it
	res, err = idx.Query(context.Background(), engine.Query{Search: "ext:pdf", Path: "/lib/heg", Flags: allColumns, MaxResults: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 0 {
		t.Errorf("partial directory name matched: %v", paths(t, res))
	}
}

func TestQuery_columns(t *testing.T) {
	idx := openMem(t)
	mod := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	put(t, idx, "/lib/a.pdf", mod, "")

	res, err := idx.Query(context.Background(), engine.Query{Search: "a", Flags: allColumns, MaxResults: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 1 {
		t.Fatalf("rows = %d", res.Len())
	}
	if size, err := res.Size(0); err != nil || size != int64(len("/lib/a.pdf")) {
		t.Errorf("Size = %d, %v", size, err)
	}
	if ext, err := res.Extension(0); err != nil || ext != "pdf" {
		t.Errorf("Extension = %q, %v", ext, err)
	}
	if m, err := res.DateModified(0); err != nil || !m.Equal(mod) {
		t.Errorf("DateModified = %v, %v", m, err)
	}
	if c, err := res.DateCreated(0); err != nil || !c.Equal(mod.Add(-time.Hour)) {
		t.Errorf("DateCreated = %v, %v", c, err)
	}

	res, err = idx.Query(context.Background(), engine.Query{Search: "a", Flags: engine.RequestFullPathAndFileName, MaxResults: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := res.Size(0); !errors.Is(err, engine.ErrNotRequested) {
		t.Errorf("unrequested size: %v", err)
	}
	if _, err := res.DateModified(0); !errors.Is(err, engine.ErrNotRequested) {
		t.Errorf("unrequested modified: %v", err)
	}
}

func TestQuery_sortOrders(t *testing.T) {
	idx := seedLibrary(t)
	q := engine.Query{Search: "ext:pdf", Flags: allColumns, MaxResults: 10, Sort: engine.SortDateModifiedAscending}
	res, err := idx.Query(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(t, res); !equal(got, []string{"/lib/hegel/phenomenology.pdf", "/lib/kant/critique_of_pure_reason.pdf"}) {
		t.Errorf("ascending: %v", got)
	}
	q.Sort = engine.SortNameAscending
	res, err = idx.Query(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(t, res); !equal(got, []string{"/lib/kant/critique_of_pure_reason.pdf", "/lib/hegel/phenomenology.pdf"}) {
		t.Errorf("by name: %v", got)
	}
}

func TestQuery_emptyMatchesNothing(t *testing.T) {
	idx := seedLibrary(t)
	for _, s := range []string{"", "   ", "ext:", "**"} {
		res, err := idx.Query(context.Background(), engine.Query{Search: s, Flags: allColumns, MaxResults: 10})
		if err != nil {
			t.Fatal(err)
		}
		if res.Len() != 0 {
			t.Errorf("Query(%q) returned %d rows", s, res.Len())
		}
	}
}

func TestIndex_stampPathsDelete(t *testing.T) {
	idx := seedLibrary(t)
	ctx := context.Background()

	if s, err := idx.Stamp(ctx, "/lib/kant/prolegomena.epub"); err != nil || s != "s" {
		t.Errorf("Stamp = %q, %v", s, err)
	}
	if _, err := idx.Stamp(ctx, "/lib/missing.pdf"); !errors.Is(err, ErrNotIndexed) {
		t.Errorf("Stamp(missing) error = %v", err)
	}

	got, err := idx.Paths(ctx, "/lib/kant")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("Paths(/lib/kant) = %v", got)
	}

	n, err := idx.DeleteTree(ctx, "/lib/kant")
	if err != nil || n != 2 {
		t.Fatalf("DeleteTree = %d, %v", n, err)
	}
	if err := idx.Delete("/lib/notes/reading list.md"); err != nil {
		t.Fatal(err)
	}
	if c, _ := idx.DocCount(); c != 1 {
		t.Errorf("DocCount = %d, want 1", c)
	}
}

func TestOpen_persistent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "index")
	idx, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	put(t, idx, "/lib/a.pdf", time.Now(), "")
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	if c, _ := idx.DocCount(); c != 1 {
		t.Errorf("DocCount after reopen = %d", c)
	}
	if n, err := idx.DiskUsage(); err != nil || n <= 0 {
		t.Errorf("DiskUsage = %d, %v", n, err)
	}
	if n, err := openMem(t).DiskUsage(); err != nil || n != 0 {
		t.Errorf("in-memory DiskUsage = %d, %v", n, err)
	}
}
