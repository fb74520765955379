// Command api serves answer evaluations over HTTP and runs the passage embedding workers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/formbricks/evalhub/internal/config"
	"github.com/formbricks/evalhub/pkg/database"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return 1
	}

	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)

		return 1
	}
	defer db.Close()

	app, err := NewApp(ctx, cfg, db)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)

		return 1
	}

	exitCode := 0

	if err := app.Run(ctx); err != nil {
		slog.Error("Application stopped with error", "error", err)

		exitCode = 1
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)

		exitCode = 1
	}

	slog.Info("Server exited")

	return exitCode
}

// openDatabase applies schema migrations (application and River) on a bootstrap pool, then opens the
// main pool with pgvector types registered. The vector type only exists after the first migration.
func openDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	bootstrap, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(ctx, bootstrap, cfg.EmbeddingDimensions); err != nil {
		bootstrap.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(bootstrap), nil)
	if err != nil {
		bootstrap.Close()

		return nil, fmt.Errorf("create River migrator: %w", err)
	}

	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		bootstrap.Close()

		return nil, fmt.Errorf("migrate River: %w", err)
	}

	bootstrap.Close()

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithAfterConnect(pgxvec.RegisterTypes),
		database.WithMaxConns(cfg.DatabaseMaxConns),
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// setupLogging configures slog with the specified log level
func setupLogging(level string) {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}
