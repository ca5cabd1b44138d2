package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goldvein/economod/economod"
	"github.com/goldvein/economod/economod/database"
	"github.com/goldvein/economod/economod/logger"
	"github.com/goldvein/economod/economod/snapshot"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting economod",
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := loadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize snapshot store", slog.Any("error", err))
		os.Exit(-1)
	}
	defer cleanup()

	engine := economod.NewEngine(*cfg, store)
	if err := engine.Restore(ctx); err != nil {
		slog.Error("Failed to restore engine state", slog.Any("error", err))
		os.Exit(-1)
	}

	go func() {
		s := make(chan os.Signal, 1)
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
		<-s
		slog.Info("Shutting down")
		cancel()
	}()

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Engine stopped", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Shutdown complete")
}

// loadConfig falls back to the built-in defaults when no config file exists,
// so the engine runs out of the box.
func loadConfig(path string) (*economod.Config, error) {
	cfg, err := economod.LoadConfig(path)
	if err == nil {
		slog.Info("Configuration loaded", slog.String("path", path))
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("No config file found, using defaults", slog.String("path", path))
		defaults := economod.DefaultConfig()
		return &defaults, nil
	}
	return nil, err
}

func newStore(ctx context.Context, cfg *economod.Config) (snapshot.Store, func(), error) {
	noop := func() {}
	switch cfg.Snapshot.Backend {
	case "", "file":
		return snapshot.NewFileStore(cfg.Snapshot.Path), noop, nil
	case "postgres":
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		db, err := database.New(dbCtx, cfg.DB)
		if err != nil {
			return nil, noop, err
		}
		store, err := snapshot.NewPGStore(dbCtx, db.BunDB())
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return store, db.Close, nil
	case "s3":
		store, err := snapshot.NewS3Store(ctx, cfg.Spaces)
		return store, noop, err
	default:
		return nil, noop, errors.New("unknown snapshot backend: " + cfg.Snapshot.Backend)
	}
}
