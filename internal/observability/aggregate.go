package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all evalhub metric collectors. When metrics are disabled, all fields are nil.
// Components that accept an interface (EvaluationMetrics, EmbeddingMetrics, CacheMetrics, APIMetrics)
// can receive the corresponding field; they already handle nil.
type Metrics struct {
	Evaluations EvaluationMetrics
	Embeddings  EmbeddingMetrics
	Cache       CacheMetrics
	API         APIMetrics
}

// NewMetrics creates every collector from the given meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	evaluations, err := NewEvaluationMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("evaluation metrics: %w", err)
	}

	embeddings, err := NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("embedding metrics: %w", err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	api, err := NewAPIMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("api metrics: %w", err)
	}

	return &Metrics{
		Evaluations: evaluations,
		Embeddings:  embeddings,
		Cache:       cache,
		API:         api,
	}, nil
}
