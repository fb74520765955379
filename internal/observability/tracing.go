package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// newOTLPTraceExporter creates an OTLP HTTP trace exporter. The SDK reads
// OTEL_EXPORTER_OTLP_ENDPOINT (and scheme/insecure) from the environment.
func newOTLPTraceExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create OTLP HTTP trace exporter: %w", err)
	}

	return exp, nil
}

func newStdoutTraceExporter() (sdktrace.SpanExporter, error) {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	return exp, nil
}

// Trace exporters accepted by NewTracerProvider.
const (
	TracesExporterOTLP   = "otlp"
	TracesExporterStdout = "stdout"
)

// TracingConfig selects the span exporter and the sampler.
type TracingConfig struct {
	// Exporter is "otlp" or "stdout"; anything else disables tracing.
	Exporter string
	// Sampler uses the OTEL_TRACES_SAMPLER names. Empty or unknown means parentbased_always_on.
	Sampler string
	// Ratio feeds the traceidratio samplers. Out-of-range values mean 1.
	Ratio float64
}

var samplers = map[string]func(ratio float64) sdktrace.Sampler{
	"always_on":  func(float64) sdktrace.Sampler { return sdktrace.AlwaysSample() },
	"always_off": func(float64) sdktrace.Sampler { return sdktrace.NeverSample() },
	"traceidratio": func(r float64) sdktrace.Sampler {
		return sdktrace.TraceIDRatioBased(r)
	},
	"parentbased_traceidratio": func(r float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(r))
	},
	"parentbased_always_on": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	},
	"parentbased_always_off": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	},
}

func newSampler(name string, ratio float64) sdktrace.Sampler {
	if ratio < 0 || ratio > 1 {
		ratio = 1
	}

	if build, ok := samplers[name]; ok {
		return build(ratio)
	}

	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

// NewTracerProvider creates a TracerProvider for cfg.Exporter.
// An empty or unknown exporter returns (nil, nil): tracing disabled.
func NewTracerProvider(ctx context.Context, cfg TracingConfig) (*sdktrace.TracerProvider, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)

	switch cfg.Exporter {
	case TracesExporterOTLP:
		exp, err = newOTLPTraceExporter(ctx)
	case TracesExporterStdout:
		exp, err = newStdoutTraceExporter()
	default:
		//nolint:nilnil // tracing disabled, caller checks for nil
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(defaultServiceName),
	)

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.Sampler, cfg.Ratio)),
		sdktrace.WithBatcher(exp),
	), nil
}

// ShutdownTracerProvider flushes and shuts down the TracerProvider. Safe to call with nil.
func ShutdownTracerProvider(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}
