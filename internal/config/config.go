// Package config provides configuration loading and structs for the AcademyNomad server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Search  SearchConfig  `yaml:"search"`
	Index   IndexConfig   `yaml:"index"`
	Shell   ShellConfig   `yaml:"shell"`
	MCP     MCPConfig     `yaml:"mcp"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SearchConfig holds the pacing and enrichment budget of the search orchestrator.
type SearchConfig struct {
	DefaultCount           int           `yaml:"default_count"`
	MinInterval            time.Duration `yaml:"min_interval"`
	LockTimeout            time.Duration `yaml:"lock_timeout"`
	TrailingDelay          time.Duration `yaml:"trailing_delay"`
	MaxHighlightAttempts   int           `yaml:"max_highlight_attempts"`
	MaxFilesWithHighlights int           `yaml:"max_files_with_highlights"`
}

// IndexConfig holds the file index backing the search engine.
// An empty Path keeps the index in memory.
type IndexConfig struct {
	Path              string        `yaml:"path"`
	Roots             []string      `yaml:"roots"`
	Extensions        []string      `yaml:"extensions"`
	ContentExtensions []string      `yaml:"content_extensions"`
	MaxFileSize       int64         `yaml:"max_file_size"`
	Workers           int           `yaml:"workers"`
	FilesPerSecond    float64       `yaml:"files_per_second"`
	Watch             *bool         `yaml:"watch"`
	Debounce          time.Duration `yaml:"debounce"`
}

// WatchOrDefault returns whether index roots are watched for changes; defaults to true when unset.
func (c *IndexConfig) WatchOrDefault() bool {
	if c.Watch != nil {
		return *c.Watch
	}
	return true
}

// ShellConfig holds OS shell integration settings.
type ShellConfig struct {
	// PDFReaders are tried in order when a PDF is opened at a page.
	PDFReaders []string `yaml:"pdf_readers"`
}

// MCPConfig controls the MCP endpoint mounted on the HTTP server.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	expandPaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns a config with every default applied and paths resolved
// against the working directory.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	expandPaths(&cfg, wd)
	return &cfg
}

// Save writes the config to path. Used for persisting index roots added at runtime.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func expandPaths(cfg *Config, configDir string) {
	if cfg.Index.Path != "" {
		cfg.Index.Path = expandPath(cfg.Index.Path, configDir)
	}
	for i := range cfg.Index.Roots {
		cfg.Index.Roots[i] = expandPath(cfg.Index.Roots[i], configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
