package fileinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsLocked_freeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "free.pdf")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if NewProbe().IsLocked(path) {
		t.Error("an unlocked file should not be reported as locked")
	}
}

func TestIsLocked_openFailureCountsAsLocked(t *testing.T) {
	p := NewProbe()
	if !p.IsLocked(filepath.Join(t.TempDir(), "missing.pdf")) {
		t.Error("a missing file should be reported as locked")
	}
	if !p.IsLocked(t.TempDir()) {
		t.Error("a directory cannot be opened for writing and should be reported as locked")
	}
}

func TestIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewProbe()
	id, ok := p.Identity(path)
	if !ok || id == "" {
		t.Fatalf("Identity() = %q, %v", id, ok)
	}

	renamed := filepath.Join(dir, "b.txt")
	if err := os.Rename(path, renamed); err != nil {
		t.Fatal(err)
	}
	if again, ok := p.Identity(renamed); !ok || again != id {
		t.Errorf("identity changed across rename: %q -> %q", id, again)
	}

	if _, ok := p.Identity(filepath.Join(dir, "missing")); ok {
		t.Error("missing file should have no identity")
	}
}

func TestCreatedAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	before := time.Now().Add(-time.Minute)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	got := CreatedAt(path, fi)
	if got.Before(before) || got.After(time.Now().Add(time.Minute)) {
		t.Errorf("CreatedAt = %v, expected around now", got)
	}
}
