// Package api assembles the HTTP routes of the evaluation service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/formbricks/evalhub/internal/api/handlers"
	"github.com/formbricks/evalhub/internal/api/middleware"
	"github.com/formbricks/evalhub/internal/observability"
)

// RouterParams holds the handlers and settings for NewRouter.
type RouterParams struct {
	APIKey              string
	MaxRequestBodyBytes int64

	Health      *handlers.HealthHandler
	Evaluations *handlers.EvaluationsHandler
	// Reviews is nil when no learning platform is configured; the review route is not registered then.
	Reviews *handlers.ReviewHandler

	// MetricsHandler serves /metrics; nil disables the route.
	MetricsHandler http.Handler
	APIMetrics     observability.APIMetrics
	Logger         *slog.Logger
}

// NewRouter returns the chi router: /health and /metrics are public, every /v1 operation (and the
// OpenAPI document) requires the API key.
func NewRouter(p RouterParams) http.Handler {
	var bodyTooLarge middleware.RequestBodyTooLargeRecorder
	if p.APIMetrics != nil {
		bodyTooLarge = p.APIMetrics
	}

	router := chi.NewRouter()
	router.Use(
		middleware.Metrics(p.APIMetrics),
		middleware.Logging(p.Logger),
		middleware.MaxBody(p.MaxRequestBodyBytes, bodyTooLarge),
	)

	router.Get("/health", p.Health.Check)

	if p.MetricsHandler != nil {
		router.Handle("/metrics", p.MetricsHandler)
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(p.APIKey))

		config := huma.DefaultConfig("evalhub API", "1.0.0")
		config.DocsPath = ""

		api := humachi.New(r, config)

		p.Evaluations.Register(api)

		if p.Reviews != nil {
			p.Reviews.Register(api)
		}
	})

	return router
}
