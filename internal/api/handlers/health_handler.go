package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler. db may be nil (liveness only).
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

const healthPingTimeout = 2 * time.Second

// Check handles GET /health. It answers 503 when the database does not respond.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "health check: database ping failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)

			if _, err := w.Write([]byte("UNAVAILABLE")); err != nil {
				slog.Error("Failed to write health check response", "error", err)
			}

			return
		}
	}

	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health check response", "error", err)
	}
}
