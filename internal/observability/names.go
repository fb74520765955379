// Package observability provides OpenTelemetry metrics (Prometheus exporter), optional tracing and
// trace-aware structured logging for the evaluation service.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameHTTPRequests          = "evalhub_http_requests_total"
	MetricNameHTTPRequestDuration   = "evalhub_http_request_duration_seconds"
	MetricNameRequestBodyTooLarge   = "evalhub_http_request_body_too_large_total"
	MetricNameEvaluations           = "evalhub_evaluations_total"
	MetricNameEvaluationDuration    = "evalhub_evaluation_duration_seconds"
	MetricNameRetrievalDegraded     = "evalhub_retrieval_degraded_total"
	MetricNameCacheUnavailable      = "evalhub_evaluation_cache_unavailable_total"
	MetricNameGenerations           = "evalhub_generations_total"
	MetricNameGenerationDuration    = "evalhub_generation_duration_seconds"
	MetricNameEmbeddingEnqueues     = "evalhub_embedding_job_enqueues_total"
	MetricNameEmbeddingJobs         = "evalhub_embedding_jobs_total"
	MetricNameEmbeddingJobFailures  = "evalhub_embedding_job_failures_total"
	MetricNameEmbeddingJobDuration  = "evalhub_embedding_job_duration_seconds"
	MetricNameEmbeddingQueueDepth   = "evalhub_embedding_queue_depth"
	MetricNameEmbeddingCacheLookups = "evalhub_embedding_cache_lookups_total"
)

// Attribute keys.
const (
	AttrReason      = "reason"
	AttrStatus      = "status"
	AttrSource      = "source"
	AttrOp          = "op"
	AttrProvider    = "provider"
	AttrMethod      = "method"
	AttrRoute       = "route"
	AttrStatusClass = "status_class"
	AttrCache       = "cache"
	AttrResult      = "result"
)

// Cache names used for evalhub_embedding_cache_lookups_total.
const (
	CacheNameQueryEmbedding    = "query_embedding"
	CacheNameExpectedEmbedding = "expected_embedding"
)

// AllowedCacheNames bounds the cache label.
var AllowedCacheNames = map[string]bool{
	CacheNameQueryEmbedding:    true,
	CacheNameExpectedEmbedding: true,
}

// AllowedEvaluationSources for evalhub_evaluations_total.
var AllowedEvaluationSources = map[string]bool{
	"cache":     true,
	"generated": true,
	"failed":    true,
}

// AllowedDegradedReasons for evalhub_retrieval_degraded_total.
var AllowedDegradedReasons = map[string]bool{
	"timeout": true,
	"error":   true,
}

// AllowedCacheOps for evalhub_evaluation_cache_unavailable_total.
var AllowedCacheOps = map[string]bool{
	"lookup": true,
	"store":  true,
}

// AllowedGenerationProviders for evalhub_generations_total.
var AllowedGenerationProviders = map[string]bool{
	"openai":    true,
	"google":    true,
	"anthropic": true,
}

// AllowedGenerationStatuses for evalhub_generations_total and evalhub_generation_duration_seconds.
var AllowedGenerationStatuses = map[string]bool{
	"success": true,
	"timeout": true,
	"error":   true,
}

// AllowedEmbeddingWorkerReason for evalhub_embedding_job_failures_total.
var AllowedEmbeddingWorkerReason = map[string]bool{
	"get_passage_failed": true,
	"embedding_failed":   true,
	"rate_limit_wait":    true,
	"update_failed":      true,
}

// AllowedEmbeddingJobStatuses for evalhub_embedding_jobs_total and the job duration histogram.
var AllowedEmbeddingJobStatuses = map[string]bool{
	"success":      true,
	"retry":        true,
	"failed_final": true,
	"skipped":      true,
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}

// NormalizeCacheName returns name if it is a known cache, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}
