package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
search:
  lock_timeout: 2s
  min_interval: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Search.LockTimeout != 2*time.Second {
		t.Errorf("lock_timeout = %v, want 2s", cfg.Search.LockTimeout)
	}
	if cfg.Search.MinInterval != 250*time.Millisecond {
		t.Errorf("min_interval = %v, want 250ms", cfg.Search.MinInterval)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
index:
  path: "./data/index"
  roots: ["./papers"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "index"); cfg.Index.Path != want {
		t.Errorf("index path = %q, want %q", cfg.Index.Path, want)
	}
	if want := filepath.Join(dir, "papers"); cfg.Index.Roots[0] != want {
		t.Errorf("root = %q, want %q", cfg.Index.Roots[0], want)
	}
}

func TestExpandPath_home(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in   string
		want string
	}{
		{"~/.academynomad/index", filepath.Join(home, ".academynomad", "index")},
		{"Documents/papers", filepath.Join(home, "Documents", "papers")},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in, "/cfg"); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if cfg.Search.DefaultCount != 20 {
		t.Errorf("default count = %d, want 20", cfg.Search.DefaultCount)
	}
	if cfg.Search.MinInterval != 100*time.Millisecond {
		t.Errorf("min interval = %v, want 100ms", cfg.Search.MinInterval)
	}
	if cfg.Search.LockTimeout != 5*time.Second {
		t.Errorf("lock timeout = %v, want 5s", cfg.Search.LockTimeout)
	}
	if cfg.Search.TrailingDelay != 10*time.Millisecond {
		t.Errorf("trailing delay = %v, want 10ms", cfg.Search.TrailingDelay)
	}
	if cfg.Search.MaxHighlightAttempts != 11 || cfg.Search.MaxFilesWithHighlights != 7 {
		t.Errorf("highlight budget = %d/%d, want 11/7", cfg.Search.MaxHighlightAttempts, cfg.Search.MaxFilesWithHighlights)
	}
	if len(cfg.Shell.PDFReaders) != 3 {
		t.Errorf("expected 3 default pdf readers, got %d", len(cfg.Shell.PDFReaders))
	}
	if !cfg.Index.WatchOrDefault() {
		t.Error("index watch should default to true")
	}
}

func TestSave_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Index.Roots = []string{"/srv/papers"}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Index.Roots) != 1 || got.Index.Roots[0] != "/srv/papers" {
		t.Errorf("roots = %v", got.Index.Roots)
	}
	if got.Search.LockTimeout != cfg.Search.LockTimeout {
		t.Errorf("lock timeout = %v, want %v", got.Search.LockTimeout, cfg.Search.LockTimeout)
	}
}
