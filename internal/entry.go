// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultsearch/internal/mcpserver"
	"github.com/starford/vaultsearch/internal/search"
	"github.com/starford/vaultsearch/internal/vault"
	"github.com/starford/vaultsearch/internal/vectordb"
	"github.com/starford/vaultsearch/internal/watcher"
)

// NewLogger builds the process logger. Logs go to w (stderr in practice)
// because stdout carries command output and the MCP protocol.
func NewLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Services are the components shared by every command.
type Services struct {
	Config *Config
	Logger *slog.Logger
	Vault  *vault.FS
	DB     *vectordb.DB
	Engine *search.Engine
}

// Open builds the vault reader, opens (creating if needed) the index
// database and wires the search engine over both.
func Open(cfg *Config, logger *slog.Logger) (*Services, error) {
	fs, err := vault.NewFS(cfg.Vault.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}

	dbPath := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := vectordb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	return &Services{
		Config: cfg,
		Logger: logger,
		Vault:  fs,
		DB:     db,
		Engine: search.New(db, fs, search.WithLogger(logger)),
	}, nil
}

// Close releases the index database.
func (s *Services) Close() error {
	return s.DB.Close()
}

// Run starts the MCP stdio server, and the vault watcher when enabled, and
// blocks until stdin closes, a signal arrives or ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App, os.Stderr)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.DBPath()),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := Open(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	// Run initial sync.
	if stats, err := svc.Engine.Sync(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial sync complete",
			slog.Int("indexed", stats.Indexed),
			slog.Int("unchanged", stats.Unchanged),
			slog.Int("removed", stats.Removed),
			slog.Int("failed", stats.Failed))
	}

	srv := mcpserver.New(svc.Engine, svc.Vault,
		mcpserver.WithSearchLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit),
		mcpserver.WithLogger(logger))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			return watcher.Watch(gCtx, svc.Engine, svc.Vault, cfg.Watch.Debounce, logger, nil)
		})
	}

	// Stdin EOF ends the session and everything else with it.
	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server listening on stdio")
		return srv.Serve(gCtx, app.stdin, app.stdout)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
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
