// Package main is the hokan CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hokan/hokan/internal/chunker"
	"github.com/hokan/hokan/internal/cli"
	"github.com/hokan/hokan/internal/config"
	"github.com/hokan/hokan/internal/embedding"
	"github.com/hokan/hokan/internal/manager"
	"github.com/hokan/hokan/internal/server"
	"github.com/hokan/hokan/internal/store"
	"github.com/hokan/hokan/internal/watcher"
	"github.com/hokan/hokan/pkg/utils"

	// Store drivers register themselves on import.
	_ "github.com/hokan/hokan/internal/store/memory"
	_ "github.com/hokan/hokan/internal/store/qdrant"
	_ "github.com/hokan/hokan/internal/store/sqlite"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/hokan/config.yaml"

func main() {
	// API keys may live in a .env next to the working directory; absence is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch command := os.Args[1]; command {
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "list":
		runList()
	case "info":
		runInfo()
	case "delete":
		runDelete()
	case "clear":
		runClear()
	case "drop":
		runDrop()
	case "watch":
		runWatch()
	case "serve":
		runServe()
	case "version", "--version", "-v":
		fmt.Printf("hokan version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`hokan - index documents and search them by meaning

Usage:
  hokan index  <collection> <path>...         index files or directories
  hokan search <collection> <query>...        search a collection
  hokan list                                  list collections
  hokan info   <collection>                   show collection statistics
  hokan delete <collection> <source>          delete chunks of one source file
  hokan clear  <collection> [-yes]            remove all chunks (keeps collection)
  hokan drop   <collection> [-yes]            remove the whole collection
  hokan watch  <collection> <dir>...          keep a collection in sync with directories
  hokan serve                                 run the HTTP API
  hokan version                               print version

Common flags (per command):
  -config <path>   config file (default ` + defaultConfigPath + `)
  -debug           enable debug logging
Search flags:
  -k <n>           number of results (default 5)
  -output <fmt>    text or json (default text)
`)
}

// loadConfig loads the config at path. When path is the default and a
// config.yaml exists in the working directory, that one wins, so running from
// a project directory picks up the project's settings. When neither exists,
// built-in defaults are used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), "(defaults)", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Components holds the initialized services behind every command.
type Components struct {
	Store    store.Store
	Embedder embedding.Embedder
	Manager  *manager.Manager
}

// Close releases the store and embedder.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		// A missing ONNX runtime should not make the tool unusable; mock
		// embeddings keep exact-text behavior working for smoke tests.
		if cfg.Embedding.Provider != "onnx" {
			_ = st.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		logger.Warn("onnx embedder unavailable, falling back to mock embeddings", zap.Error(err))
		embedder = embedding.NewMock(cfg.Embedding.Dimensions)
	}

	ch, err := chunker.New(cfg.Chunking.MaxChars, cfg.Chunking.Overlap)
	if err != nil {
		_ = st.Close()
		_ = embedder.Close()
		return nil, err
	}

	opts := []manager.Option{manager.WithBatchSize(cfg.Embedding.BatchSize)}
	if debug {
		opts = append(opts, manager.WithLogger(logger))
	}
	return &Components{
		Store:    st,
		Embedder: embedder,
		Manager:  manager.New(st, embedder, ch, opts...),
	}, nil
}

// setup parses the common flags, loads config, and wires components. It exits
// the process on failure, matching flag.ExitOnError behavior.
func setup(fs *flag.FlagSet, args []string) (*config.Config, *zap.Logger, *Components, []string) {
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if debugMode {
		logger.Debug("config loaded", zap.String("config_path", resolvedPath))
	}

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components, fs.Args()
}

func fatalStoreError(err error, collection string) {
	if errors.Is(err, store.ErrCollectionNotFound) {
		fmt.Fprintf(os.Stderr, "Collection %q does not exist.\n", collection)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	_, logger, components, args := setup(fs, os.Args[2:])
	defer components.Close()
	defer logger.Sync()

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: hokan index <collection> <path>...")
		os.Exit(1)
	}
	collection, paths := args[0], args[1:]

	report, err := components.Manager.IndexDocuments(context.Background(), collection, paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		os.Exit(1)
	}
	cli.WriteIndexReport(os.Stdout, report)
	if report.FilesIndexed == 0 && len(report.Failures) > 0 {
		os.Exit(1)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	k := fs.Int("k", 5, "number of results")
	output := fs.String("output", "text", "output format: text or json")
	_, logger, components, args := setup(fs, os.Args[2:])
	defer components.Close()
	defer logger.Sync()

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: hokan search <collection> <query>... [-k N] [-output text|json]")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	collection := args[0]
	query := strings.Join(args[1:], " ")

	results, err := components.Manager.Search(context.Background(), collection, query, *k)
	if err != nil {
		fatalStoreError(err, collection)
	}
	if err := cli.WriteSearchResults(os.Stdout, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write results: %v\n", err)
		os.Exit(1)
	}
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	_, logger, components, _ := setup(fs, os.Args[2:])
	defer components.Close()
	defer logger.Sync()

	names, err := components.Manager.ListCollections(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Println("No collections.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func runInfo() {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	_, logger, components, args := setup(fs, os.Args[2:])
	defer components.Close()
	defer logger.Sync()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hokan info <collection>")
		os.Exit(1)
	}
	info, err := components.Manager.CollectionInfo(context.Background(), args[0])
	if err != nil {
		fatalStoreError(err, args[0])
	}
	cli.WriteCollectionInfo(os.Stdout, info)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	_, logger, components, args := setup(fs, os.Args[2:])
	defer components.Close()
	defer logger.Sync()

	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: hokan delete <collection> <source>")
		os.Exit(1)
	}
	collection, source := args[0], args[1]

	deleted, err := components.Manager.DeleteBySource(context.Background(), collection, source)
	if err != nil {
		fatalStoreError(err, collection)
	}
	if deleted == 0 {
		fmt.Printf("No chunks matched source %q in %q.\n", source, collection)
		return
	}
	fmt.Printf("Deleted %d chunks for %q from %q.\n", deleted, source, collection)
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	_, logger, components, args := setup(fs, os.Args[2:])
	defer components.Close()
	defer logger.Sync()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hokan clear <collection> [-yes]")
		os.Exit(1)
	}
	collection := args[0]

	confirmed := *yes
	if !confirmed {
		confirmed = cli.Confirm(os.Stdin, os.Stdout,
			fmt.Sprintf("This removes every chunk from %q.", collection))
	}
	done, err := components.Manager.Clear(context.Background(), collection, confirmed)
	if err != nil {
		fatalStoreError(err, collection)
	}
	if !done {
		fmt.Println("Cancelled.")
		return
	}
	fmt.Printf("Cleared collection %q.\n", collection)
}

func runDrop() {
	fs := flag.NewFlagSet("drop", flag.ExitOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	_, logger, components, args := setup(fs, os.Args[2:])
	defer components.Close()
	defer logger.Sync()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hokan drop <collection> [-yes]")
		os.Exit(1)
	}
	collection := args[0]

	confirmed := *yes
	if !confirmed {
		confirmed = cli.Confirm(os.Stdin, os.Stdout,
			fmt.Sprintf("This deletes collection %q entirely.", collection))
	}
	done, err := components.Manager.Drop(context.Background(), collection, confirmed)
	if err != nil {
		fatalStoreError(err, collection)
	}
	if !done {
		fmt.Println("Cancelled.")
		return
	}
	fmt.Printf("Dropped collection %q.\n", collection)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	sync := fs.Bool("sync", true, "index files already present before watching")
	cfg, logger, components, args := setup(fs, os.Args[2:])
	defer components.Close()
	defer logger.Sync()

	collection := cfg.Watch.Collection
	dirs := cfg.Watch.Directories
	if len(args) >= 2 {
		collection, dirs = args[0], args[1:]
	} else if len(args) == 1 {
		collection = args[0]
	}
	if collection == "" || len(dirs) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: hokan watch <collection> <dir>... (or set watch in the config)")
		os.Exit(1)
	}

	mgr := components.Manager
	if err := mgr.LoadCollection(context.Background(), collection); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Re-indexing replaces: the file's old chunks go first so an edited file
	// does not accumulate stale copies.
	onIndex := func(path string) {
		ctx := context.Background()
		if _, err := mgr.DeleteBySource(ctx, collection, filepath.Base(path)); err != nil {
			logger.Warn("failed to remove stale chunks", zap.String("path", path), zap.Error(err))
		}
		report, err := mgr.IndexDocuments(ctx, collection, []string{path})
		if err != nil {
			logger.Warn("failed to index file", zap.String("path", path), zap.Error(err))
			return
		}
		for _, f := range report.Failures {
			logger.Warn("failed to index file", zap.String("path", f.Path), zap.String("reason", f.Reason))
		}
	}
	onRemove := func(path string) {
		if _, err := mgr.DeleteBySource(context.Background(), collection, filepath.Base(path)); err != nil {
			logger.Warn("failed to delete chunks for removed file", zap.String("path", path), zap.Error(err))
		}
	}

	w := watcher.New(dirs, cfg.Watch.RecursiveOrDefault(), onIndex, onRemove, watcher.WithLogger(logger))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := w.Start(ctx); err != nil {
		logger.Fatal("failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	if *sync {
		w.SyncExistingFiles()
	}

	fmt.Printf("Watching %s -> collection %q. Press Ctrl-C to stop.\n", strings.Join(dirs, ", "), collection)
	<-ctx.Done()
	fmt.Println("Stopping.")
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg, logger, components, _ := setup(fs, os.Args[2:])
	defer components.Close()
	defer logger.Sync()

	srv := server.New(components.Manager, &cfg.Server, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}
}
