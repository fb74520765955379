package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EvaluationMetrics records evaluation pipeline metrics (outcomes, degraded retrieval, cache
// failures, model calls).
type EvaluationMetrics interface {
	RecordEvaluation(ctx context.Context, source string, duration time.Duration)
	RecordRetrievalDegraded(ctx context.Context, reason string)
	RecordCacheUnavailable(ctx context.Context, op string)
	RecordGeneration(ctx context.Context, provider, status string, duration time.Duration)
}

// evaluationMetrics implements EvaluationMetrics.
type evaluationMetrics struct {
	evaluations        metric.Int64Counter
	evaluationDuration metric.Float64Histogram
	retrievalDegraded  metric.Int64Counter
	cacheUnavailable   metric.Int64Counter
	generations        metric.Int64Counter
	generationDuration metric.Float64Histogram
}

// NewEvaluationMetrics creates EvaluationMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewEvaluationMetrics(meter metric.Meter) (EvaluationMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	evaluations, err := meter.Int64Counter(
		MetricNameEvaluations,
		metric.WithDescription("Total evaluations by source (cache, generated, failed)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create evaluations counter: %w", err)
	}

	evaluationDuration, err := meter.Float64Histogram(
		MetricNameEvaluationDuration,
		metric.WithDescription("End-to-end evaluation duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create evaluation duration histogram: %w", err)
	}

	retrievalDegraded, err := meter.Int64Counter(
		MetricNameRetrievalDegraded,
		metric.WithDescription("Evaluations that continued with zero retrieved chunks after a retrieval failure"),
	)
	if err != nil {
		return nil, fmt.Errorf("create retrieval degraded counter: %w", err)
	}

	cacheUnavailable, err := meter.Int64Counter(
		MetricNameCacheUnavailable,
		metric.WithDescription("Evaluation cache lookup or store failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache unavailable counter: %w", err)
	}

	generations, err := meter.Int64Counter(
		MetricNameGenerations,
		metric.WithDescription("Text generation calls by provider and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create generations counter: %w", err)
	}

	generationDuration, err := meter.Float64Histogram(
		MetricNameGenerationDuration,
		metric.WithDescription("Text generation call duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create generation duration histogram: %w", err)
	}

	return &evaluationMetrics{
		evaluations:        evaluations,
		evaluationDuration: evaluationDuration,
		retrievalDegraded:  retrievalDegraded,
		cacheUnavailable:   cacheUnavailable,
		generations:        generations,
		generationDuration: generationDuration,
	}, nil
}

func (e *evaluationMetrics) RecordEvaluation(ctx context.Context, source string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrSource, NormalizeReason(source, AllowedEvaluationSources)))
	e.evaluations.Add(ctx, 1, attrs)
	e.evaluationDuration.Record(ctx, duration.Seconds(), attrs)
}

func (e *evaluationMetrics) RecordRetrievalDegraded(ctx context.Context, reason string) {
	reason = NormalizeReason(reason, AllowedDegradedReasons)
	e.retrievalDegraded.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrReason, reason)))
}

func (e *evaluationMetrics) RecordCacheUnavailable(ctx context.Context, op string) {
	op = NormalizeReason(op, AllowedCacheOps)
	e.cacheUnavailable.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOp, op)))
}

func (e *evaluationMetrics) RecordGeneration(ctx context.Context, provider, status string, duration time.Duration) {
	attrs := metric.WithAttributeSet(attribute.NewSet(
		attribute.String(AttrProvider, NormalizeReason(provider, AllowedGenerationProviders)),
		attribute.String(AttrStatus, NormalizeReason(status, AllowedGenerationStatuses)),
	))
	e.generations.Add(ctx, 1, attrs)
	e.generationDuration.Record(ctx, duration.Seconds(), attrs)
}
