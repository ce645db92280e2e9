// Package main is the entry point for the vdb2 server.
//
// vdb2 serves user-defined virtual databases and their entries over a JSON
// HTTP API. Databases and entries are kept as JSON documents in the data
// directory; file attachments are decoded and stored on disk. Configuration
// is read from CLI flags, the environment, a .env file and
// server_config.yaml (for quotas and rate limits).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/vdb2/vdb2/frontend"
	"github.com/vdb2/vdb2/internal/config"
	"github.com/vdb2/vdb2/internal/history"
	"github.com/vdb2/vdb2/internal/server"
	"github.com/vdb2/vdb2/internal/server/handlers"
	"github.com/vdb2/vdb2/internal/server/ipgeo"
	"github.com/vdb2/vdb2/internal/storage"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "vdb2: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	port := flag.Int("port", 8080, "Port to listen on; overrides PORT")
	dataDir := flag.String("data-dir", "", "Data directory for the JSON documents")
	filesDir := flag.String("files-dir", "", "Attachment directory, served under /vdb_files/")
	staticDir := flag.String("static-dir", "", "Static asset directory, served at /")
	store := flag.String("store", "", "Document store: json or sqlite")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	geoDB := flag.String("geo-db", "", "Path to MaxMind MMDB file for IP geolocation (optional)")
	withHistory := flag.Bool("history", false, "Record every change of the data directory in git")
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
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			skip := false
			switch t := a.Value.Any().(type) {
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

	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		return err
	}
	// Explicit flags win over the environment and .env.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "data-dir":
			cfg.DataDir = *dataDir
		case "files-dir":
			cfg.FilesDir = *filesDir
		case "static-dir":
			cfg.StaticDir = *staticDir
		case "store":
			cfg.Store = *store
		case "log-level":
			cfg.LogLevel = *logLevel
		case "geo-db":
			cfg.GeoDB = *geoDB
		case "history":
			cfg.History = *withHistory
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	ll.Set(level)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	serverCfg, err := config.LoadServerConfig(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", config.ServerConfigFile, err)
	}

	stores, err := storage.Bootstrap(ctx, cfg, serverCfg.Quotas)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			slog.ErrorContext(ctx, "Failed to close storage", "err", err)
		}
	}()

	svc := &handlers.Services{
		Databases: stores.Databases,
		Entries:   stores.Entries,
		Files:     stores.Files,
	}
	if cfg.History {
		rec, err := history.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to initialize history: %w", err)
		}
		if err := rec.Commit(ctx, "Startup"); err != nil {
			return fmt.Errorf("failed to record initial state: %w", err)
		}
		svc.History = rec
		slog.InfoContext(ctx, "History enabled", "dir", cfg.DataDir)
	}

	var geoChecker *ipgeo.Checker
	if cfg.GeoDB != "" {
		geoChecker, err = ipgeo.Open(cfg.GeoDB)
		if err != nil {
			return fmt.Errorf("failed to open geo database: %w", err)
		}
		defer func() { _ = geoChecker.Close() }()
		slog.InfoContext(ctx, "IP geolocation enabled", "db", cfg.GeoDB, "type", geoChecker.DatabaseType())
	}

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	buildVersion, _, _, _ := getBuildInfo()
	router := server.NewRouter(svc, &server.Config{
		ServerConfig: serverCfg,
		StaticDir:    cfg.StaticDir,
		Frontend:     frontend.Files(),
		Version:      buildVersion,
		IPGeo:        geoChecker,
	})
	defer router.Close()

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "store", cfg.Store, "hosted", cfg.Hosted, "version", buildVersion)
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
	fmt.Printf("vdb2 %s\n", version)
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

// watchExecutable calls stop when the running binary is replaced, so that a
// supervisor restarts the new one.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
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
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
