package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/formbricks/evalhub/internal/config"
	"github.com/formbricks/evalhub/internal/ingest"
	"github.com/formbricks/evalhub/internal/jobs"
	"github.com/formbricks/evalhub/internal/providers"
	"github.com/formbricks/evalhub/internal/repository"
	"github.com/formbricks/evalhub/internal/retrieval"
	"github.com/formbricks/evalhub/pkg/database"
)

var errNoPassages = errors.New("no passages found")

// newIngester connects to the database and returns an Ingester backed by the passage repository and an
// insert-only River client. The API process runs the workers.
func newIngester(ctx context.Context, cfg *config.Config) (*ingest.Ingester, *pgxpool.Pool, error) {
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithAfterConnect(pgxvec.RegisterTypes),
		database.WithMaxConns(cfg.DatabaseMaxConns),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	riverClient, err := river.NewClient[pgx.Tx](riverpgxv5.New(db), &river.Config{})
	if err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("create River client: %w", err)
	}

	inserter := jobs.NewRiverJobInserter(riverClient, cfg.EmbeddingMaxAttempts, nil)

	return ingest.NewIngester(repository.NewPassagesRepository(db), inserter, slog.Default()), db, nil
}

func runPassages(ctx context.Context, cmd *cobra.Command, dir string, maxChars int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reqs, err := ingest.ReadDir(dir, maxChars)
	if err != nil {
		return err
	}

	if len(reqs) == 0 {
		return fmt.Errorf("%w in %s", errNoPassages, dir)
	}

	ingester, db, err := newIngester(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := ingester.Store(ctx, reqs)
	if err != nil {
		return err
	}

	slog.Info("ingest complete", "stored", res.Stored, "enqueued", res.Enqueued, "enqueue_failed", res.EnqueueFailed)
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d passage(s), enqueued %d embedding job(s).\n", res.Stored, res.Enqueued)

	return nil
}

func runBackfill(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ingester, db, err := newIngester(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := ingester.Backfill(ctx)
	if err != nil {
		return err
	}

	slog.Info("backfill complete", "enqueued", res.Enqueued, "enqueue_failed", res.EnqueueFailed)
	fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %d embedding job(s).\n", res.Enqueued)

	return nil
}

func runIndex(ctx context.Context, cmd *cobra.Command, dir, out string, maxChars int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if out == "" {
		out = cfg.MemoryIndexPath
	}

	reqs, err := ingest.ReadDir(dir, maxChars)
	if err != nil {
		return err
	}

	if len(reqs) == 0 {
		return fmt.Errorf("%w in %s", errNoPassages, dir)
	}

	embedder, err := providers.NewEmbedder(ctx, cfg)
	if err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1)

	vectors, passages, err := ingest.EmbedAll(ctx, embedder, limiter, reqs)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	if err := retrieval.WriteMemoryIndex(f, vectors, passages); err != nil {
		_ = f.Close()

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d passage(s) to %s.\n", len(passages), out)

	return nil
}
