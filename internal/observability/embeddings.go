package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EmbeddingMetrics records the passage embedding pipeline: enqueues from ingestion, job results
// from the River worker and the queue depth sampled by the API process.
type EmbeddingMetrics interface {
	RecordEnqueue(ctx context.Context, ok bool)
	// RecordJob records one worker run. failureReason is empty unless the run failed.
	RecordJob(ctx context.Context, status, failureReason string, duration time.Duration)
	SetQueueDepth(depth int)
}

type embeddingMetrics struct {
	enqueues   metric.Int64Counter
	jobs       metric.Int64Counter
	failures   metric.Int64Counter
	duration   metric.Float64Histogram
	queueDepth atomic.Int64
}

// NewEmbeddingMetrics returns (nil, nil) when meter is nil.
func NewEmbeddingMetrics(meter metric.Meter) (EmbeddingMetrics, error) {
	if meter == nil {
		//nolint:nilnil // metrics disabled
		return nil, nil
	}

	m := &embeddingMetrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.enqueues, MetricNameEmbeddingEnqueues, "Passage embedding job inserts by result (ok, failed)"},
		{&m.jobs, MetricNameEmbeddingJobs, "Passage embedding worker runs by status"},
		{&m.failures, MetricNameEmbeddingJobFailures, "Passage embedding worker failures by reason"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}

		*c.dst = counter
	}

	duration, err := meter.Float64Histogram(
		MetricNameEmbeddingJobDuration,
		metric.WithDescription("Passage embedding worker run duration by status"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricNameEmbeddingJobDuration, err)
	}

	m.duration = duration

	_, err = meter.Int64ObservableGauge(
		MetricNameEmbeddingQueueDepth,
		metric.WithDescription("Passage embedding jobs waiting to run (available, retryable, scheduled)"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.queueDepth.Load())

			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricNameEmbeddingQueueDepth, err)
	}

	return m, nil
}

func (e *embeddingMetrics) RecordEnqueue(ctx context.Context, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}

	e.enqueues.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrResult, result)))
}

func (e *embeddingMetrics) RecordJob(ctx context.Context, status, failureReason string, duration time.Duration) {
	statusAttr := metric.WithAttributes(attribute.String(AttrStatus, NormalizeReason(status, AllowedEmbeddingJobStatuses)))

	e.jobs.Add(ctx, 1, statusAttr)
	e.duration.Record(ctx, duration.Seconds(), statusAttr)

	if failureReason != "" {
		e.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String(AttrReason, NormalizeReason(failureReason, AllowedEmbeddingWorkerReason)),
		))
	}
}

func (e *embeddingMetrics) SetQueueDepth(depth int) {
	e.queueDepth.Store(int64(depth))
}
