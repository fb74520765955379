package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics counts embedding cache lookups per cache and result (hit or miss).
type CacheMetrics interface {
	RecordLookup(ctx context.Context, cacheName string, hit bool)
}

type cacheMetrics struct {
	lookups metric.Int64Counter
}

// NewCacheMetrics returns (nil, nil) when meter is nil.
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	if meter == nil {
		//nolint:nilnil // metrics disabled
		return nil, nil
	}

	lookups, err := meter.Int64Counter(
		MetricNameEmbeddingCacheLookups,
		metric.WithDescription("Embedding cache lookups. Labels: cache (query_embedding, expected_embedding), "+
			"result (hit, miss). A miss costs one embedding call."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache lookups counter: %w", err)
	}

	return &cacheMetrics{lookups: lookups}, nil
}

func (c *cacheMetrics) RecordLookup(ctx context.Context, cacheName string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	c.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCache, NormalizeCacheName(cacheName)),
		attribute.String(AttrResult, result),
	))
}
