// Package main is the entry point for the bibliodb server.
//
// bibliodb serves the students, books, authors and borrows held in a single
// JSON, YAML or XML file as a REST API. Configuration is read from CLI flags,
// a .env file and server_config.json in the data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/maruel/bibliodb/internal/config"
	"github.com/maruel/bibliodb/internal/docstore"
	"github.com/maruel/bibliodb/internal/history"
	"github.com/maruel/bibliodb/internal/resource"
	"github.com/maruel/bibliodb/internal/server"
	"github.com/maruel/bibliodb/internal/server/ratelimit"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "bibliodb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:3000", "Address to listen on (e.g., localhost:3000, :3000, 0.0.0.0:3000)")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	dbFile := flag.String("db", "db.json", "Data file, relative to -data-dir unless absolute")
	format := flag.String("format", "", "Data file format (json, yaml, xml); defaults to the file extension")
	shapeName := flag.String("shape", "auto", "Document shape (auto, flat, collections, nested)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	useGit := flag.Bool("git", false, "Commit the data file to a git repository in -data-dir after each write")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Drop localhost IPs.
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case int64:
				skip = t == 0
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	env, err := loadDotEnv(*dataDir)
	if err != nil {
		return err
	}
	serverCfg, err := config.LoadServerConfig(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", config.FileName, err)
	}

	// Override with .env file values if not explicitly set via flags
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	for name, p := range map[string]*string{
		"http":      httpAddr,
		"db":        dbFile,
		"format":    format,
		"shape":     shapeName,
		"log-level": logLevel,
	} {
		if set[name] {
			continue
		}
		if v := env[strings.ToUpper(strings.ReplaceAll(name, "-", "_"))]; v != "" {
			*p = v
		}
	}
	if !set["git"] {
		if v := env["GIT"]; v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid GIT in .env: %w", err)
			}
			*useGit = b
		}
	}

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	// Normalize addr: ":3000" becomes "localhost:3000"
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	path := *dbFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(*dataDir, path)
	}
	if *format == "" {
		if *format, err = docstore.FormatFromPath(path); err != nil {
			return err
		}
	}
	codec, err := docstore.CodecFor(*format)
	if err != nil {
		return err
	}
	shape, err := docstore.ShapeByName(*shapeName)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.WarnContext(ctx, "Data file does not exist; requests fail until it is created", "path", path)
	}
	adapter := resource.New(docstore.NewStore(path, codec), shape)

	var repo *history.Repo
	if *useGit {
		author := history.Author{Name: serverCfg.Git.AuthorName, Email: serverCfg.Git.AuthorEmail}
		if repo, err = history.Open(*dataDir, author); err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
	}

	limiter := ratelimit.NewLimiter(serverCfg.RateLimits.WriteRatePerMin, time.Minute, serverCfg.RateLimits.WriteBurst)
	defer limiter.Close()

	if err := watchExecutable(ctx, stop); err != nil {
		slog.WarnContext(ctx, "Could not watch executable for modifications", "err", err)
	}
	if err := watchDataFile(ctx, path); err != nil {
		slog.WarnContext(ctx, "Could not watch data file", "err", err)
	}

	buildVersion, _, _, _ := getBuildInfo()
	httpServer := &http.Server{
		Addr: addr,
		Handler: server.NewRouter(&server.Config{
			Version:             buildVersion,
			Adapter:             adapter,
			History:             repo,
			Limiter:             limiter,
			MaxRequestBodyBytes: serverCfg.MaxRequestBodyBytes,
		}),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "db", path, "format", codec.Name(), "shape", shape.Name(), "git", repo != nil, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("bibliodb %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// loadDotEnv reads dataDir/.env. A missing file yields an empty map.
func loadDotEnv(dataDir string) (map[string]string, error) {
	env, err := godotenv.Read(filepath.Join(dataDir, ".env"))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return env, nil
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected. This enables seamless
// restarts during development.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	return watch(ctx, exe, func(event fsnotify.Event) bool {
		if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
			slog.InfoContext(ctx, "Executable modified, initiating shutdown")
			stop()
			return false
		}
		return true
	})
}

// watchDataFile logs changes of the data file, including edits made outside
// of the server.
//
// The directory is watched since saves replace the file by renaming over it.
func watchDataFile(ctx context.Context, path string) error {
	name := filepath.Clean(path)
	return watch(ctx, filepath.Dir(name), func(event fsnotify.Event) bool {
		if filepath.Clean(event.Name) == name && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove)) {
			slog.DebugContext(ctx, "Data file changed", "op", event.Op.String())
		}
		return true
	})
}

// watch calls fn for every event on path until ctx is done or fn returns
// false.
func watch(ctx context.Context, path string, fn func(fsnotify.Event) bool) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !fn(event) {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching file", "path", path, "err", err)
			}
		}
	}()
	return nil
}
