package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/formbricks/evalhub/internal/api"
	"github.com/formbricks/evalhub/internal/api/handlers"
	"github.com/formbricks/evalhub/internal/api/middleware"
	"github.com/formbricks/evalhub/internal/config"
	"github.com/formbricks/evalhub/internal/corpus"
	"github.com/formbricks/evalhub/internal/jobs"
	"github.com/formbricks/evalhub/internal/observability"
	"github.com/formbricks/evalhub/internal/prompts"
	"github.com/formbricks/evalhub/internal/providers"
	"github.com/formbricks/evalhub/internal/repository"
	"github.com/formbricks/evalhub/internal/retrieval"
	"github.com/formbricks/evalhub/internal/scoring"
	"github.com/formbricks/evalhub/internal/service"
	"github.com/formbricks/evalhub/internal/workers"
	"github.com/formbricks/evalhub/pkg/cache"
	"github.com/formbricks/evalhub/pkg/moodle"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	river          *river.Client[pgx.Tx]
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *observability.Metrics
}

const (
	riverQueueDepthInterval = 15 * time.Second
	expectedEmbeddingCache  = 500
)

// setupMetrics creates the meter provider, the /metrics handler and evalhub metrics.
func setupMetrics(ctx context.Context) (*sdkmetric.MeterProvider, http.Handler, *observability.Metrics, error) {
	mp, handler, err := observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	metrics, err := observability.NewMetrics(observability.Meter(mp))
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(context.Background(), mp); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return mp, handler, metrics, nil
}

// newIndex returns the nearest-neighbor index for cfg.IndexBackend.
func newIndex(cfg *config.Config, passages *repository.PassagesRepository) (retrieval.Index, error) {
	if cfg.IndexBackend != config.IndexBackendMemory {
		return passages, nil
	}

	index, err := retrieval.LoadMemoryIndex(cfg.MemoryIndexPath)
	if err != nil {
		return nil, fmt.Errorf("load memory index: %w", err)
	}

	slog.Info("memory index loaded", "path", cfg.MemoryIndexPath, "passages", index.Len())

	return index, nil
}

// NewApp builds and wires all components. It does not start the HTTP server or River;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (app *App, err error) {
	var (
		meterProvider  *sdkmetric.MeterProvider
		metricsHandler http.Handler
		metrics        *observability.Metrics
		tracerProvider *sdktrace.TracerProvider
	)

	// Providers created so far are shut down when a later step fails.
	defer func() {
		if err == nil {
			return
		}

		if obsErr := shutdownObservability(context.Background(), tracerProvider, meterProvider); obsErr != nil {
			slog.Error("shutdown observability after startup error", "error", obsErr)
		}
	}()

	if cfg.MetricsEnabled {
		meterProvider, metricsHandler, metrics, err = setupMetrics(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		slog.Warn("metrics not enabled (METRICS_ENABLED=false)")
	}

	var (
		evaluationMetrics observability.EvaluationMetrics
		embeddingMetrics  observability.EmbeddingMetrics
		cacheMetrics      observability.CacheMetrics
		apiMetrics        observability.APIMetrics
	)
	if metrics != nil {
		evaluationMetrics = metrics.Evaluations
		embeddingMetrics = metrics.Embeddings
		cacheMetrics = metrics.Cache
		apiMetrics = metrics.API
	}

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(ctx, observability.TracingConfig{
			Exporter: cfg.OtelTracesExporter,
			Sampler:  cfg.OtelTracesSampler,
			Ratio:    cfg.OtelTracesSamplerRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	// Install TraceContextHandler unconditionally so request_id (and trace_id/span_id when tracing is on) appear in logs.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))
	logger := slog.Default()

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	corp, err := corpus.LoadFiles(corpus.Paths{
		ExpectedAnswers: cfg.ExpectedAnswersPath,
		Rubrics:         cfg.RubricsPath,
		Transcript:      cfg.TranscriptPath,
	})
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	embedder, err := providers.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	generator, err := providers.NewGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	passagesRepo := repository.NewPassagesRepository(db)

	index, err := newIndex(cfg, passagesRepo)
	if err != nil {
		return nil, err
	}

	queryCache, err := cache.New[[]float32](cfg.QueryEmbeddingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create query embedding cache: %w", err)
	}

	retriever := retrieval.NewRetriever(retrieval.RetrieverParams{
		Embedder:     embedder,
		Index:        index,
		QueryCache:   queryCache,
		CacheMetrics: cacheMetrics,
		Logger:       logger,
	})

	scorer, err := scoring.NewScorer(embedder, expectedEmbeddingCache, cacheMetrics)
	if err != nil {
		return nil, fmt.Errorf("create scorer: %w", err)
	}

	leveler, err := scoring.NewLeveler(cfg.LevelThresholds, cfg.LevelLabels)
	if err != nil {
		return nil, fmt.Errorf("create leveler: %w", err)
	}

	promptBuilder, err := prompts.NewBuilder(cfg.LevelLabels)
	if err != nil {
		return nil, fmt.Errorf("create prompt builder: %w", err)
	}

	evaluator := service.NewEvaluator(service.EvaluatorParams{
		Corpus:                    corp,
		Retriever:                 retriever,
		Scorer:                    scorer,
		Leveler:                   leveler,
		Prompts:                   promptBuilder,
		Generator:                 generator,
		Provider:                  cfg.GenerationProvider,
		ReservedLeveledQuestionID: cfg.ReservedLeveledQuestionID,
		TopK:                      cfg.RetrievalTopK,
		RetrievalTimeout:          cfg.RetrievalTimeout,
		GenerationTimeout:         cfg.GenerationTimeout,
		DegradeOnRetrievalError:   cfg.RetrievalDegrade,
		Metrics:                   evaluationMetrics,
		Logger:                    logger,
	})

	evaluationsRepo := repository.NewEvaluationsRepository(db)
	evaluationService := service.NewEvaluationService(evaluationsRepo, evaluator, evaluationMetrics, logger)

	var reviewHandler *handlers.ReviewHandler

	if cfg.MoodleDomain != "" && cfg.MoodleToken != "" {
		moodleClient := moodle.NewClient(cfg.MoodleDomain, cfg.MoodleToken)
		reviewService := service.NewReviewService(moodleClient, evaluationService, 0, logger)
		reviewHandler = handlers.NewReviewHandler(reviewService, logger)
	} else {
		slog.Warn("learner reviews disabled (MOODLE_DOMAIN or MOODLE_TOKEN unset)")
	}

	riverWorkers := river.NewWorkers()
	limiter := rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1)
	river.AddWorker(riverWorkers, workers.NewPassageEmbeddingWorker(passagesRepo, embedder, limiter, embeddingMetrics, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			jobs.QueueEmbeddings: {MaxWorkers: cfg.EmbeddingMaxConcurrent},
		},
		Workers:      riverWorkers,
		ErrorHandler: &jobs.ErrorHandler{Logger: logger},
		MaxAttempts:  cfg.EmbeddingMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("create River client: %w", err)
	}

	router := api.NewRouter(api.RouterParams{
		APIKey:              cfg.APIKey,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		Health:              handlers.NewHealthHandler(db),
		Evaluations:         handlers.NewEvaluationsHandler(evaluationService, logger),
		Reviews:             reviewHandler,
		MetricsHandler:      metricsHandler,
		APIMetrics:          apiMetrics,
		Logger:              logger,
	})

	return &App{
		cfg:            cfg,
		db:             db,
		server:         newHTTPServer(cfg, router, meterProvider, tracerProvider),
		river:          riverClient,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		metrics:        metrics,
	}, nil
}

// newHTTPServer wraps the router for tracing and request ids.
// Handler chain: RequestID -> otelhttp(router) so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	router http.Handler,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks and scrapes.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	handler := otelhttp.NewHandler(router, "evalhub-api", otelOpts...)
	handler = middleware.RequestID(handler)

	// Generation can take up to GENERATION_TIMEOUT, so writes get that much on top of retrieval.
	writeTimeout := cfg.RetrievalTimeout + cfg.GenerationTimeout + 15*time.Second

	const (
		readTimeout = 15 * time.Second
		idleTimeout = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, then blocks until ctx is cancelled (e.g. signal)
// or a component fails. When ctx is cancelled or a component fails, it cancels the internal
// River context so River and the queue depth poller stop before Run returns. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	if a.metrics != nil && a.metrics.Embeddings != nil {
		go runRiverQueueDepthPoller(riverCtx, a.db, a.metrics.Embeddings)
	}

	go func() {
		if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
			select {
			case runErr <- fmt.Errorf("river: %w", err):
			default:
			}
		}
	}()

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// runRiverQueueDepthPoller periodically updates the embedding queue depth gauge.
func runRiverQueueDepthPoller(ctx context.Context, db *pgxpool.Pool, embeddingMetrics observability.EmbeddingMetrics) {
	ticker := time.NewTicker(riverQueueDepthInterval)
	defer ticker.Stop()

	update := func() {
		var count int

		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM river_job WHERE queue = $1 AND state IN ($2, $3, $4)`,
			jobs.QueueEmbeddings,
			rivertype.JobStateAvailable, rivertype.JobStateRetryable, rivertype.JobStateScheduled,
		).Scan(&count)
		if err != nil {
			slog.WarnContext(ctx, "river queue depth poll failed", "error", err)

			return
		}

		embeddingMetrics.SetQueueDepth(count)
	}

	update()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if meter != nil {
		if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
			if first == nil {
				first = err
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

// Shutdown stops the server and River in order. Call after Run returns.
// Observability is shut down once via defer; its error is returned only when server and River shut down successfully.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.river.Stop(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if err = a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
