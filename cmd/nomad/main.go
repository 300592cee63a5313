// Package main is the AcademyNomad CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/siebentod/AcademyNomad/internal/cli"
	"github.com/siebentod/AcademyNomad/internal/config"
	"github.com/siebentod/AcademyNomad/internal/events"
	"github.com/siebentod/AcademyNomad/internal/fileindex"
	"github.com/siebentod/AcademyNomad/internal/fileinfo"
	"github.com/siebentod/AcademyNomad/internal/highlights"
	"github.com/siebentod/AcademyNomad/internal/mcp"
	"github.com/siebentod/AcademyNomad/internal/metrics"
	"github.com/siebentod/AcademyNomad/internal/models"
	"github.com/siebentod/AcademyNomad/internal/notify"
	"github.com/siebentod/AcademyNomad/internal/search"
	"github.com/siebentod/AcademyNomad/internal/server"
	"github.com/siebentod/AcademyNomad/internal/shell"
	"github.com/siebentod/AcademyNomad/internal/xmp"
	"github.com/siebentod/AcademyNomad/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/academynomad/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory wins, and a missing default file yields the
// built-in defaults. Returns the config and the path that was actually loaded
// ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "watch":
		runWatch()
	case "highlights":
		runHighlights()
	case "creator-id":
		runCreatorID()
	case "mcp":
		runMCP()
	case "version", "--version", "-v":
		fmt.Printf("nomad version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and builds a logger, exiting on failure.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (directory changes, file indexing, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if _, err := components.Builder.Crawl(ctx, cfg.Index.Roots...); err != nil && ctx.Err() == nil {
			logger.Warn("initial crawl failed", zap.Error(err))
		}
	}()
	if cfg.Index.WatchOrDefault() && len(cfg.Index.Roots) > 0 {
		refresher := fileindex.NewRefresher(components.Builder, cfg.Index.Debounce)
		if err := refresher.Start(ctx, cfg.Index.Roots...); err != nil {
			logger.Fatal("Failed to start index refresher", zap.Error(err))
		}
		defer refresher.Stop()
	}

	broker := events.NewBroker(events.WithLogger(logger))
	defer broker.Close()
	notifier := notify.New(broker, notify.WithLogger(logger), notify.WithMetrics(components.Metrics))
	if err := notifier.Start(ctx); err != nil {
		logger.Fatal("Failed to start notifier", zap.Error(err))
	}
	defer notifier.Stop()

	svc := server.Services{
		Search:     components.Search,
		Watch:      notifier,
		Highlights: components.Highlights,
		Metadata:   components.Metadata,
		Index:      components.Index,
		Events:     broker,
		Shell:      shell.New(shell.WithReaders(cfg.Shell.PDFReaders), shell.WithLogger(logger)),
	}
	if cfg.Metrics.Enabled {
		svc.Gatherer = components.Registry
	}
	if cfg.MCP.Enabled {
		mcpSrv, err := components.mcpServer(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to create MCP server", zap.Error(err))
		}
		svc.MCP = mcpSrv.HTTPHandler()
	}
	srv, err := server.NewServer(svc, &cfg.Server, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	broker.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: nomad search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Every term must match. A term matches a word prefix of the file name, any part
of the name, or the file's text. ext:<x> restricts the extension and
path:<dir> the directory. Results are newest first.

Examples:
  nomad search kant critique
  nomad search ext:pdf hegel
  nomad search --full --count 5 phenomenology
  nomad search --local --path ~/library aesthetics
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// searchParams are the parsed flags of the search subcommand.
type searchParams struct {
	query      string
	path       string
	count      int
	highlights bool
	full       bool
}

func (p searchParams) request() models.SearchRequest {
	req := models.SearchRequest{Query: p.query}
	if p.path != "" {
		req.Path = &p.path
	}
	if p.count > 0 {
		req.Count = &p.count
	}
	if p.highlights {
		req.IncludeHighlights = &p.highlights
	}
	return req
}

func (p searchParams) level() search.Level {
	if p.full {
		return search.Full
	}
	return search.Fast
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for --local)")
	serverURL := fs.String("server", "http://localhost:8787", "server URL")
	local := fs.Bool("local", false, "search the index in-process instead of asking the server")
	count := fs.Int("count", 0, "number of results (default from config)")
	path := fs.String("path", "", "only return files below this directory")
	withHighlights := fs.Bool("highlights", false, "extract PDF highlights for the newest results")
	full := fs.Bool("full", false, "include PDF metadata and highlights")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one path per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	params := searchParams{query: queryStr, path: *path, count: *count, highlights: *withHighlights, full: *full}

	var results []models.SearchResult
	if *local {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()
		results, err = components.Search.Search(context.Background(), params.request(), params.level())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		results, err = searchViaHTTP(*serverURL, params)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, p searchParams) ([]models.SearchResult, error) {
	body, err := json.Marshal(p.request())
	if err != nil {
		return nil, err
	}
	endpoint := serverURL + "/api/v1/search"
	if p.full {
		endpoint += "/full"
	}
	resp, err := http.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var results []models.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return results, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	roots := fs.Args()
	if len(roots) == 0 {
		roots = cfg.Index.Roots
	}
	if len(roots) == 0 {
		fmt.Println("Usage: nomad index [flags] <directory>...   (or set index.roots in the config)")
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	stats, err := components.Builder.Crawl(context.Background(), roots...)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d, unchanged %d, removed %d, failed %d\n",
		stats.Indexed, stats.Skipped, stats.Removed, stats.Failed)
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: nomad watch <add|remove|list> [path]")
		fmt.Println("  nomad watch add <path>     Push change events for a directory")
		fmt.Println("  nomad watch remove <path>  Stop watching a directory")
		fmt.Println("  nomad watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8787", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: nomad watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]string{"path": path})
		resp, err := http.Post(*serverURL+"/api/v1/watch", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: nomad watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runHighlights() {
	fs := flag.NewFlagSet("highlights", flag.ExitOnError)
	debug := fs.Bool("debug", false, "log skipped pages")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: nomad highlights [flags] <file.pdf>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	hs, err := highlights.New(highlights.WithLogger(logger)).Extract(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteHighlights(os.Stdout, hs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runCreatorID() {
	fs := flag.NewFlagSet("creator-id", flag.ExitOnError)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: nomad creator-id <file.pdf>")
		fmt.Println("Prints the document id stored in the file, writing a new one if it has none.")
		os.Exit(1)
	}
	id, err := xmp.New().EnsureCreatorID(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(id)
}

func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	srv, err := components.mcpServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create MCP server", zap.Error(err))
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("MCP server failed", zap.Error(err))
	}
}

// Components holds initialized services.
type Components struct {
	Index      *fileindex.Index
	Builder    *fileindex.Builder
	Search     *search.Orchestrator
	Highlights *highlights.Extractor
	Metadata   *xmp.Service
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
}

// Close releases the index.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

func (c *Components) mcpServer(cfg *config.Config, logger *zap.Logger) (*mcp.Server, error) {
	return mcp.NewServer(mcp.Services{
		Search:     c.Search,
		Highlights: c.Highlights,
		CreatorID:  c.Metadata,
	}, cfg.MCP.Name, version, logger)
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	idx, err := fileindex.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file index: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hl := highlights.New(highlights.WithLogger(logger))
	meta := xmp.New(xmp.WithLogger(logger))

	builder := fileindex.NewBuilder(idx, &cfg.Index,
		fileindex.WithLogger(logger),
		fileindex.WithMetrics(m))
	orch := search.New(idx,
		search.WithLogger(logger),
		search.WithMetrics(m),
		search.WithSettings(search.SettingsFromConfig(&cfg.Search)),
		search.WithProbe(fileinfo.NewProbe(fileinfo.WithLogger(logger))),
		search.WithMetadataReader(meta),
		search.WithHighlightExtractor(hl),
	)
	if n, err := idx.DocCount(); err == nil {
		m.SetIndexDocuments(n)
		logger.Info("file index opened", zap.String("path", cfg.Index.Path), zap.Uint64("documents", n))
	}

	return &Components{
		Index:      idx,
		Builder:    builder,
		Search:     orch,
		Highlights: hl,
		Metadata:   meta,
		Metrics:    m,
		Registry:   reg,
	}, nil
}

func printUsage() {
	fmt.Println(`nomad - local library search with PDF highlights and metadata

Usage:
  nomad server [flags]               Start the HTTP server (index, watch, events, MCP)
  nomad search [flags] <query>       Search files
  nomad index [flags] [dir...]       Crawl directories into the index (default: index.roots)
  nomad watch <add|remove|list>      Manage directories that push change events
  nomad highlights [flags] <pdf>     List the highlights and comments of a PDF
  nomad creator-id <pdf>             Print or assign the document id of a PDF
  nomad mcp [flags]                  Serve MCP tools over stdio
  nomad version                      Show version
  nomad help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/academynomad/config.yaml, or ./config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string    Server URL (default: http://localhost:8787)
  --local            Search in-process (the server must not hold the index)
  --count int        Number of results (default from config)
  --path string      Only return files below this directory
  --highlights       Extract highlights for the newest PDFs
  --full             Include PDF title, author, creator and highlights
  --output string    text, compact or json (default: text)

Examples:
  nomad server
  nomad index ~/library
  nomad search kant ext:pdf
  nomad search --output json --full hegel
  nomad watch add ~/library/inbox
  nomad highlights ~/library/kant/critique.pdf`)
}
