package jobs

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// ErrorHandler logs job errors and panics. A nil Logger uses slog.Default.
type ErrorHandler struct {
	Logger *slog.Logger
}

func (h *ErrorHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}

	return slog.Default()
}

// HandleError is called when a job returns an error. The final failed attempt logs at error level,
// earlier ones at warn.
func (h *ErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	level := slog.LevelWarn
	if job.Attempt >= job.MaxAttempts {
		level = slog.LevelError
	}

	h.logger().Log(ctx, level, "job failed",
		"job_kind", job.Kind,
		"job_id", job.ID,
		"queue", job.Queue,
		"attempt", job.Attempt,
		"max_attempts", job.MaxAttempts,
		"error", err,
	)

	// nil keeps River's retry schedule
	return nil
}

// HandlePanic is called when a job panics.
func (h *ErrorHandler) HandlePanic(
	ctx context.Context, job *rivertype.JobRow, panicVal any, trace string,
) *river.ErrorHandlerResult {
	h.logger().ErrorContext(ctx, "job panicked",
		"job_kind", job.Kind,
		"job_id", job.ID,
		"queue", job.Queue,
		"attempt", job.Attempt,
		"panic_value", panicVal,
		"stack_trace", trace,
	)

	return nil
}
