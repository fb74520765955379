package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/formbricks/evalhub/internal/observability"
)

// JobInserter enqueues passage embedding jobs. cmd/ingest depends on this, not on River.
type JobInserter interface {
	InsertPassageEmbeddingJob(ctx context.Context, args PassageEmbeddingArgs) error
}

// uniqueStates are the states in which a second job for the same passage is rejected.
// River requires JobStatePending in the list whenever ByState is set.
var uniqueStates = []rivertype.JobState{
	rivertype.JobStatePending,
	rivertype.JobStateAvailable,
	rivertype.JobStateRunning,
	rivertype.JobStateRetryable,
	rivertype.JobStateScheduled,
}

// RiverJobInserter implements JobInserter on a River client.
type RiverJobInserter struct {
	client      *river.Client[pgx.Tx]
	maxAttempts int
	metrics     observability.EmbeddingMetrics
}

// NewRiverJobInserter creates a River-based job inserter. maxAttempts <= 0 keeps River's default;
// metrics may be nil.
func NewRiverJobInserter(client *river.Client[pgx.Tx], maxAttempts int, metrics observability.EmbeddingMetrics) *RiverJobInserter {
	return &RiverJobInserter{client: client, maxAttempts: maxAttempts, metrics: metrics}
}

// InsertPassageEmbeddingJob enqueues one job per passage; re-ingesting a passage whose job is
// still queued is a no-op.
func (r *RiverJobInserter) InsertPassageEmbeddingJob(ctx context.Context, args PassageEmbeddingArgs) error {
	_, err := r.client.Insert(ctx, args, &river.InsertOpts{
		Queue:       QueueEmbeddings,
		MaxAttempts: r.maxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true, ByState: uniqueStates},
	})

	if r.metrics != nil {
		r.metrics.RecordEnqueue(ctx, err == nil)
	}

	if err != nil {
		return fmt.Errorf("insert embedding job for passage %s: %w", args.PassageID, err)
	}

	return nil
}
