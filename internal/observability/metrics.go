package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/formbricks/evalhub/internal/observability"
	defaultServiceName = "evalhub-api"
	cardinalityLimit   = 2000
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds) for HTTP duration histograms.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5}

// slowCallHistogramBoundaries cover model calls and full evaluations, which run for seconds.
var slowCallHistogramBoundaries = []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}

// MeterProviderConfig holds configuration for creating the MeterProvider.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: evalhub-api).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider with a Prometheus exporter bound to a private registry and
// returns the provider plus an HTTP handler for /metrics. Caller must call ShutdownMeterProvider on exit.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (*sdkmetric.MeterProvider, http.Handler, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	// Use a single resource to avoid Schema URL conflicts when merging with resource.Default().
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(
		prometheusexporter.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: MetricNameHTTPRequestDuration},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
			),
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: MetricNameEvaluationDuration},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: slowCallHistogramBoundaries}},
			),
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: MetricNameGenerationDuration},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: slowCallHistogramBoundaries}},
			),
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: MetricNameEmbeddingJobDuration},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: slowCallHistogramBoundaries}},
			),
		),
	)

	return mp, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

// Meter returns the evalhub meter from provider.
func Meter(provider *sdkmetric.MeterProvider) metric.Meter {
	return provider.Meter(meterScope)
}

// ShutdownMeterProvider flushes and shuts down the MeterProvider. Safe to call with nil.
func ShutdownMeterProvider(ctx context.Context, provider *sdkmetric.MeterProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}

	return nil
}
