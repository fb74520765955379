package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type logAttrsKey struct{}

// WithLogAttrs returns a context whose log records carry attrs in addition to any attached
// earlier. Records are only enriched when the logger uses TraceContextHandler.
func WithLogAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}

	prev := logAttrs(ctx)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)

	return context.WithValue(ctx, logAttrsKey{}, merged)
}

func logAttrs(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(logAttrsKey{}).([]slog.Attr)

	return attrs
}

type requestIDKey struct{}

// WithRequestID stores the X-Request-ID value for handlers and log records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)

	return id
}

// WithEvaluationKey tags log records with the stored-evaluation key being served.
func WithEvaluationKey(ctx context.Context, key string) context.Context {
	return WithLogAttrs(ctx, slog.String("evaluation_key", key))
}

// TraceContextHandler decorates records with trace_id, span_id, request_id and any attributes
// attached through WithLogAttrs.
type TraceContextHandler struct {
	slog.Handler
}

// NewTraceContextHandler wraps inner.
func NewTraceContextHandler(inner slog.Handler) *TraceContextHandler {
	return &TraceContextHandler{Handler: inner}
}

// Handle adds the context attributes and forwards the record.
func (h *TraceContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if id := RequestIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}

	r.AddAttrs(logAttrs(ctx)...)

	return h.Handler.Handle(ctx, r) //nolint:wrapcheck // pass-through
}

// WithAttrs keeps the decoration on derived handlers.
func (h *TraceContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup keeps the decoration on derived handlers.
func (h *TraceContextHandler) WithGroup(name string) slog.Handler {
	return &TraceContextHandler{Handler: h.Handler.WithGroup(name)}
}
