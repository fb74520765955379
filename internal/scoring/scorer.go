// Package scoring computes the bounded semantic similarity between an answer and its expected
// answer and maps it to an achievement level.
package scoring

import (
	"context"
	"strings"

	"github.com/formbricks/evalhub/internal/embeddings"
	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/observability"
	"github.com/formbricks/evalhub/pkg/cache"
	vecmath "github.com/formbricks/evalhub/pkg/embeddings"
)

const defaultExpectedCacheSize = 512

// Scorer embeds both texts and returns their cosine similarity clamped to [0,1].
// Expected-answer embeddings never change for the process lifetime and are memoized.
type Scorer struct {
	embedder embeddings.Client
	expected *cache.LoaderCache[[]float32]
	metrics  observability.CacheMetrics
}

// NewScorer creates a Scorer. expectedCacheSize <= 0 uses a default; metrics may be nil.
func NewScorer(embedder embeddings.Client, expectedCacheSize int, metrics observability.CacheMetrics) (*Scorer, error) {
	if expectedCacheSize <= 0 {
		expectedCacheSize = defaultExpectedCacheSize
	}

	expected, err := cache.New[[]float32](expectedCacheSize)
	if err != nil {
		return nil, err
	}

	return &Scorer{embedder: embedder, expected: expected, metrics: metrics}, nil
}

// Score returns 0 without calling the embedding service when either text is blank.
// Embedding failures are returned as RetrievalError.
func (s *Scorer) Score(ctx context.Context, candidate, expected string) (float64, error) {
	candidate = strings.TrimSpace(candidate)
	expected = strings.TrimSpace(expected)

	if candidate == "" || expected == "" {
		return 0, nil
	}

	expectedVec, hit, err := s.expected.Get(ctx, expected, s.embedder.CreateEmbedding)
	if err != nil {
		return 0, evalerrors.NewRetrievalError("embed expected answer", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLookup(ctx, observability.CacheNameExpectedEmbedding, hit)
	}

	candidateVec, err := s.embedder.CreateEmbedding(ctx, candidate)
	if err != nil {
		return 0, evalerrors.NewRetrievalError("embed answer", err)
	}

	return vecmath.Clamp01(vecmath.CosineSimilarity(candidateVec, expectedVec)), nil
}
