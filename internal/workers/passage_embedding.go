// Package workers provides River job workers (passage embedding).
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/formbricks/evalhub/internal/embeddings"
	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/jobs"
	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/observability"
)

const passageEmbeddingTimeout = 30 * time.Second

// PassageStore is the minimal repository interface needed by the worker.
type PassageStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReferencePassage, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// PassageEmbeddingWorker embeds a stored passage and writes the vector to the index table.
type PassageEmbeddingWorker struct {
	river.WorkerDefaults[jobs.PassageEmbeddingArgs]

	passages PassageStore
	embedder embeddings.Client
	limiter  *rate.Limiter
	metrics  observability.EmbeddingMetrics
	logger   *slog.Logger
}

// NewPassageEmbeddingWorker creates the worker. limiter, metrics and logger may be nil.
func NewPassageEmbeddingWorker(
	passages PassageStore,
	embedder embeddings.Client,
	limiter *rate.Limiter,
	metrics observability.EmbeddingMetrics,
	logger *slog.Logger,
) *PassageEmbeddingWorker {
	if logger == nil {
		logger = slog.Default()
	}

	return &PassageEmbeddingWorker{
		passages: passages,
		embedder: embedder,
		limiter:  limiter,
		metrics:  metrics,
		logger:   logger,
	}
}

// Timeout limits how long a single embedding job can run.
func (w *PassageEmbeddingWorker) Timeout(*river.Job[jobs.PassageEmbeddingArgs]) time.Duration {
	return passageEmbeddingTimeout
}

// Work loads the passage, embeds its content and persists the vector. A missing passage or blank
// content completes the job without retry; provider failures retry until the last attempt.
func (w *PassageEmbeddingWorker) Work(ctx context.Context, job *river.Job[jobs.PassageEmbeddingArgs]) error {
	args := job.Args
	start := time.Now()

	passage, err := w.passages.GetByID(ctx, args.PassageID)
	if err != nil {
		if errors.Is(err, evalerrors.ErrNotFound) {
			w.recordFailure(ctx, "get_passage_failed", "failed_final", start)
			w.logger.WarnContext(ctx, "embedding: passage not found", "passage_id", args.PassageID)

			return nil
		}

		status := "retry"
		if job.Attempt >= job.MaxAttempts {
			status = "failed_final"
		}

		w.recordFailure(ctx, "get_passage_failed", status, start)

		return fmt.Errorf("get passage: %w", err)
	}

	text := strings.TrimSpace(passage.Content)
	if text == "" {
		w.recordOutcome(ctx, "skipped", start)
		w.logger.InfoContext(ctx, "embedding: skipped (empty content)", "passage_id", args.PassageID)

		return nil
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			w.recordFailure(ctx, "rate_limit_wait", "retry", start)

			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	embedding, err := w.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		if job.Attempt >= job.MaxAttempts {
			w.recordFailure(ctx, "embedding_failed", "failed_final", start)
			w.logger.ErrorContext(ctx, "embedding: provider failed (final attempt)",
				"passage_id", args.PassageID, "chunk_id", passage.ChunkID, "error", err)

			return nil
		}

		w.recordFailure(ctx, "embedding_failed", "retry", start)

		return fmt.Errorf("create embedding: %w", err)
	}

	if err := w.passages.UpdateEmbedding(ctx, args.PassageID, embedding); err != nil {
		w.recordFailure(ctx, "update_failed", "retry", start)

		return fmt.Errorf("update passage embedding: %w", err)
	}

	w.recordOutcome(ctx, "success", start)
	w.logger.InfoContext(ctx, "embedding: stored", "passage_id", args.PassageID, "chunk_id", passage.ChunkID)

	return nil
}

func (w *PassageEmbeddingWorker) recordFailure(ctx context.Context, reason, status string, start time.Time) {
	if w.metrics != nil {
		w.metrics.RecordJob(ctx, status, reason, time.Since(start))
	}
}

func (w *PassageEmbeddingWorker) recordOutcome(ctx context.Context, status string, start time.Time) {
	if w.metrics != nil {
		w.metrics.RecordJob(ctx, status, "", time.Since(start))
	}
}
