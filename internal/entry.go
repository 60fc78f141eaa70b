// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/origincreativegroup/folio/internal/api"
	"github.com/origincreativegroup/folio/internal/archive"
	"github.com/origincreativegroup/folio/internal/mcpserver"
	"github.com/origincreativegroup/folio/internal/projectservice"
	"github.com/origincreativegroup/folio/internal/scanner"
	"github.com/origincreativegroup/folio/internal/sse"
	"github.com/origincreativegroup/folio/internal/store"
	"github.com/origincreativegroup/folio/internal/studio"
	"github.com/origincreativegroup/folio/internal/syncer"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("studio_root", cfg.Studio.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.Level().String()))

	// SSE broker, throttling studio-wide events to one per window.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	core, err := buildCore(cfg, logger, func(kind, folder string) {
		broker.PublishProjectEvent(kind, folder)
	})
	if err != nil {
		return err
	}
	defer core.db.Close()

	// Initial sweep so the catalog reflects the studio before serving.
	if _, err := core.sync.SyncAll(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(core.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, core.dir)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// SyncOnce reconciles the catalog against the studio and exits. With a folder
// it syncs that one project, otherwise it sweeps the whole studio and fails
// when any project could not be synced.
func SyncOnce(_ context.Context, cfg *Config, folder string) error {
	logger := newLogger(cfg, os.Stdout)
	core, err := buildCore(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer core.db.Close()

	if folder != "" {
		res, err := core.sync.SyncProject(folder)
		if err != nil {
			return err
		}
		logger.Info("project synced",
			slog.String("folder", res.Folder),
			slog.String("status", res.Status),
			slog.Int("assets", res.Assets),
			slog.Int("deliverables", res.Deliverables),
			slog.Int("conflicts", len(res.Conflicts)),
			slog.Int("warnings", len(res.Warnings)))
		return nil
	}

	sum, err := core.sync.SyncAll()
	if err != nil {
		return err
	}
	for _, f := range sum.Failures {
		logger.Error("project failed", slog.String("folder", f.Folder), slog.String("error", f.Error))
	}
	if len(sum.Failures) > 0 {
		return fmt.Errorf("sync: %d of %d projects failed", len(sum.Failures), sum.Scanned+len(sum.Failures))
	}
	return nil
}

// ImportArchive unpacks a zip of project folders into the studio and syncs
// each one.
func ImportArchive(ctx context.Context, cfg *Config, zipPath string) error {
	logger := newLogger(cfg, os.Stdout)
	core, err := buildCore(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer core.db.Close()

	data, err := os.ReadFile(zipPath)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	imports, err := core.bridge.Import(ctx, data)
	if err != nil {
		return err
	}

	failed := 0
	for _, imp := range imports {
		if imp.Error != "" {
			failed++
			logger.Error("import failed", slog.String("folder", imp.Folder), slog.String("error", imp.Error))
			continue
		}
		logger.Info("project imported", slog.String("folder", imp.Folder), slog.String("status", imp.Result.Status))
	}
	if failed > 0 {
		return fmt.Errorf("import: %d of %d folders failed", failed, len(imports))
	}
	return nil
}

// ExportArchive zips one project folder into outPath. An empty outPath
// defaults to <folder>.zip in the working directory.
func ExportArchive(ctx context.Context, cfg *Config, folder, outPath string) error {
	logger := newLogger(cfg, os.Stdout)
	core, err := buildCore(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer core.db.Close()

	data, name, err := core.bridge.Export(ctx, folder)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = name
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	logger.Info("project exported",
		slog.String("folder", folder),
		slog.String("path", outPath),
		slog.Int("bytes", len(data)))
	return nil
}

// ServeMCP runs the MCP server on stdio. Logs go to stderr because stdout
// carries the protocol stream.
func ServeMCP(_ context.Context, cfg *Config) error {
	logger := newLogger(cfg, os.Stderr)
	core, err := buildCore(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer core.db.Close()

	if _, err := core.sync.SyncAll(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(core.svc, core.dir).ServeStdio()
}

// core bundles the wired components every entrypoint needs.
type core struct {
	dir    *studio.Dir
	db     *store.DB
	sync   *syncer.Syncer
	bridge *archive.Bridge
	svc    *projectservice.Service
}

func buildCore(cfg *Config, logger *slog.Logger, notify func(kind, folder string)) (*core, error) {
	if err := os.MkdirAll(cfg.Studio.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create studio dir: %w", err)
	}
	dir, err := studio.NewDir(cfg.Studio.Root)
	if err != nil {
		return nil, fmt.Errorf("init studio: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	sy := syncer.New(dir, scanner.New(dir, cfg.Scan.Ignore), db, logger, notify)
	bridge := archive.New(dir, db, sy, archive.ExecRunner{}, logger, archive.Tools{
		Unzip: cfg.Archive.Unzip,
		Copy:  cfg.Archive.Copy,
		Zip:   cfg.Archive.Zip,
	})
	svc := projectservice.NewService(db, sy, bridge)

	return &core{dir: dir, db: db, sync: sy, bridge: bridge, svc: svc}, nil
}

// newLogger builds the JSON logger. When log_file is set output rotates via
// lumberjack instead of writing to fallback.
func newLogger(cfg *Config, fallback io.Writer) *slog.Logger {
	var w io.Writer = fallback
	if cfg.App.LogFile != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.App.LogFile,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
		}
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.Level(),
	}))
}
