// Package retrieval finds the reference passages closest to an evaluation query.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/formbricks/evalhub/internal/embeddings"
	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/observability"
	"github.com/formbricks/evalhub/pkg/cache"
)

// Index is a nearest-neighbor service over passage embeddings. Hits come back closest first;
// a hit whose Passage is nil points at a slot with no metadata.
type Index interface {
	Nearest(ctx context.Context, vector []float32, k int) ([]models.PassageHit, error)
}

// Query builds the retrieval query from the question and the candidate answer.
func Query(question, answer string) string {
	return question + " " + answer
}

// Retriever embeds a query and returns the closest passages.
type Retriever struct {
	embedder     embeddings.Client
	index        Index
	queryCache   *cache.LoaderCache[[]float32]
	cacheMetrics observability.CacheMetrics
	logger       *slog.Logger
}

// RetrieverParams configures Retriever. QueryCache and CacheMetrics may be nil (no caching).
type RetrieverParams struct {
	Embedder     embeddings.Client
	Index        Index
	QueryCache   *cache.LoaderCache[[]float32]
	CacheMetrics observability.CacheMetrics
	Logger       *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(p RetrieverParams) *Retriever {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Retriever{
		embedder:     p.Embedder,
		index:        p.Index,
		queryCache:   p.QueryCache,
		cacheMetrics: p.CacheMetrics,
		logger:       logger,
	}
}

// Retrieve returns at most topK chunks ordered by ascending distance. Hits that do not resolve to a
// passage are skipped, so a damaged index yields fewer chunks instead of an error. A blank query
// returns no chunks without calling the embedding service. Failures are RetrievalError.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" || topK <= 0 {
		return []models.RetrievedChunk{}, nil
	}

	var (
		vector []float32
		err    error
	)

	if r.queryCache != nil {
		vector, err = r.queryEmbeddingCached(ctx, query)
	} else {
		vector, err = r.embedder.CreateEmbedding(ctx, query)
	}

	if err != nil {
		return nil, evalerrors.NewRetrievalError("embed query", err)
	}

	hits, err := r.index.Nearest(ctx, vector, topK)
	if err != nil {
		return nil, evalerrors.NewRetrievalError("nearest", err)
	}

	chunks := make([]models.RetrievedChunk, 0, len(hits))
	skipped := 0

	for _, h := range hits {
		if h.Position < 0 || h.Passage == nil {
			skipped++

			continue
		}

		chunks = append(chunks, models.RetrievedChunk{
			Source:   h.Passage.Source,
			Page:     h.Passage.Page,
			Snippet:  h.Passage.Content,
			Distance: h.Distance,
		})
	}

	if skipped > 0 {
		r.logger.WarnContext(ctx, "retrieval: skipped unresolved index positions", "skipped", skipped)
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Distance < chunks[j].Distance })

	if len(chunks) > topK {
		chunks = chunks[:topK]
	}

	return chunks, nil
}

func (r *Retriever) queryEmbeddingCached(ctx context.Context, query string) ([]float32, error) {
	vec, hit, err := r.queryCache.Get(ctx, query, r.embedder.CreateEmbedding)
	if err != nil {
		return nil, err
	}

	if r.cacheMetrics != nil {
		r.cacheMetrics.RecordLookup(ctx, observability.CacheNameQueryEmbedding, hit)
	}

	return vec, nil
}
