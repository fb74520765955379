package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dimensionsPlaceholder is replaced with the configured embedding dimension in migration SQL.
const dimensionsPlaceholder = "%DIMENSIONS%"

// ErrInvalidDimensions is returned by Migrate when the embedding dimension is not positive.
var ErrInvalidDimensions = errors.New("database: embedding dimensions must be positive")

// Migration is one versioned schema change loaded from the embedded migrations directory.
type Migration struct {
	ID      string
	UpSQL   string
	DownSQL string
}

// Migrate applies pending migrations in ID order, each in its own transaction, and records them in
// schema_migrations. dimensions sizes the reference_passages.embedding column.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dimensions int) error {
	if dimensions <= 0 {
		return ErrInvalidDimensions
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	migrations, err := LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}

		if m.UpSQL == "" {
			return fmt.Errorf("missing up migration for %s", m.ID)
		}

		sql := strings.ReplaceAll(m.UpSQL, dimensionsPlaceholder, strconv.Itoa(dimensions))

		if err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, sql); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.ID, err)
			}

			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (id) VALUES ($1)`, m.ID); err != nil {
				return fmt.Errorf("record migration %s: %w", m.ID, err)
			}

			return nil
		}); err != nil {
			return err
		}

		slog.Info("applied migration", "id", m.ID)
	}

	return nil
}

func appliedMigrations(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan schema_migrations: %w", err)
	}

	applied := make(map[string]bool, len(ids))
	for _, id := range ids {
		applied[id] = true
	}

	return applied, nil
}

// LoadMigrations reads the embedded *.up.sql / *.down.sql pairs sorted by ID.
func LoadMigrations() ([]Migration, error) {
	paths, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	entries := map[string]*Migration{}

	for _, path := range paths {
		base := strings.TrimPrefix(path, "migrations/")

		var suffix string

		switch {
		case strings.HasSuffix(base, ".up.sql"):
			suffix = ".up.sql"
		case strings.HasSuffix(base, ".down.sql"):
			suffix = ".down.sql"
		default:
			continue
		}

		id := strings.TrimSuffix(base, suffix)

		entry := entries[id]
		if entry == nil {
			entry = &Migration{ID: id}
			entries[id] = entry
		}

		data, err := migrationsFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", path, err)
		}

		if suffix == ".up.sql" {
			entry.UpSQL = string(data)
		} else {
			entry.DownSQL = string(data)
		}
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	out := make([]Migration, 0, len(ids))
	for _, id := range ids {
		out = append(out, *entries[id])
	}

	return out, nil
}
