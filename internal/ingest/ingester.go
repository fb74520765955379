package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/formbricks/evalhub/internal/embeddings"
	"github.com/formbricks/evalhub/internal/jobs"
	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/validation"
)

// PassageWriter stores passages and lists those still missing an embedding.
type PassageWriter interface {
	Upsert(ctx context.Context, req *models.CreateReferencePassageRequest) (*models.ReferencePassage, error)
	ListIDsMissingEmbedding(ctx context.Context) ([]uuid.UUID, error)
}

// Result counts what one ingestion run did.
type Result struct {
	Stored        int
	Enqueued      int
	EnqueueFailed int
}

// Ingester stores passages and enqueues their embedding jobs.
type Ingester struct {
	passages PassageWriter
	jobs     jobs.JobInserter
	logger   *slog.Logger
}

// NewIngester creates an Ingester. logger may be nil.
func NewIngester(passages PassageWriter, inserter jobs.JobInserter, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}

	return &Ingester{passages: passages, jobs: inserter, logger: logger}
}

// Store upserts every passage by chunk id and enqueues one embedding job per stored passage.
// A failed enqueue is logged and counted; Backfill picks the passage up later.
func (i *Ingester) Store(ctx context.Context, reqs []models.CreateReferencePassageRequest) (Result, error) {
	var res Result

	for idx := range reqs {
		req := &reqs[idx]

		if err := validation.ValidateStruct(req); err != nil {
			return res, fmt.Errorf("passage %q: %w", req.ChunkID, err)
		}

		passage, err := i.passages.Upsert(ctx, req)
		if err != nil {
			return res, fmt.Errorf("store passage %q: %w", req.ChunkID, err)
		}

		res.Stored++

		if err := i.jobs.InsertPassageEmbeddingJob(ctx, jobs.PassageEmbeddingArgs{PassageID: passage.ID}); err != nil {
			i.logger.WarnContext(ctx, "ingest: enqueue embedding job failed", "chunk_id", req.ChunkID, "error", err)

			res.EnqueueFailed++

			continue
		}

		res.Enqueued++
	}

	return res, nil
}

// Backfill enqueues embedding jobs for every stored passage that has no embedding.
func (i *Ingester) Backfill(ctx context.Context) (Result, error) {
	var res Result

	ids, err := i.passages.ListIDsMissingEmbedding(ctx)
	if err != nil {
		return res, fmt.Errorf("list passages missing embeddings: %w", err)
	}

	for _, id := range ids {
		if err := i.jobs.InsertPassageEmbeddingJob(ctx, jobs.PassageEmbeddingArgs{PassageID: id}); err != nil {
			i.logger.WarnContext(ctx, "backfill: enqueue embedding job failed", "passage_id", id, "error", err)

			res.EnqueueFailed++

			continue
		}

		res.Enqueued++
	}

	return res, nil
}

// EmbedAll embeds each passage in order for a file-backed index. limiter may be nil.
// Slot i of the returned vectors belongs to reqs[i].
func EmbedAll(
	ctx context.Context, embedder embeddings.Client, limiter *rate.Limiter, reqs []models.CreateReferencePassageRequest,
) ([][]float32, []models.ReferencePassage, error) {
	vectors := make([][]float32, 0, len(reqs))
	passages := make([]models.ReferencePassage, 0, len(reqs))

	for _, req := range reqs {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		vec, err := embedder.CreateEmbedding(ctx, req.Content)
		if err != nil {
			return nil, nil, fmt.Errorf("embed %q: %w", req.ChunkID, err)
		}

		vectors = append(vectors, vec)
		passages = append(passages, models.ReferencePassage{
			ChunkID: req.ChunkID,
			Source:  req.Source,
			Page:    req.Page,
			Content: req.Content,
		})
	}

	return vectors, passages, nil
}
