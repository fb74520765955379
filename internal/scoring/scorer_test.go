package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/evalhub/internal/embeddings"
	"github.com/formbricks/evalhub/internal/evalerrors"
)

func TestScorer_emptyInputShortCircuits(t *testing.T) {
	mock := embeddings.NewMockClient(4)

	s, err := NewScorer(mock, 0, nil)
	require.NoError(t, err)

	ctx := context.Background()

	for _, pair := range [][2]string{
		{"", "respuesta esperada"},
		{"respuesta del docente", ""},
		{"   ", "respuesta esperada"},
		{"", ""},
	} {
		score, err := s.Score(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.InDelta(t, 0.0, score, 1e-12)
	}

	assert.Equal(t, 0, mock.Calls())
}

func TestScorer_cosineClamped(t *testing.T) {
	mock := embeddings.NewMockClient(2)
	mock.Set("igual", []float32{1, 0})
	mock.Set("referencia", []float32{1, 0})
	mock.Set("opuesta", []float32{-1, 0})
	mock.Set("diagonal", []float32{1, 1})

	s, err := NewScorer(mock, 8, nil)
	require.NoError(t, err)

	ctx := context.Background()

	score, err := s.Score(ctx, "igual", "referencia")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-6)

	score, err = s.Score(ctx, "opuesta", "referencia")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-12)

	score, err = s.Score(ctx, "diagonal", "referencia")
	require.NoError(t, err)
	assert.InDelta(t, 0.7071, score, 1e-3)

	// referencia embedded once, the three candidates once each
	assert.Equal(t, 4, mock.Calls())
}

func TestScorer_embeddingFailureIsRetrievalError(t *testing.T) {
	mock := embeddings.NewMockClient(2)
	mock.FailWith(errors.New("503 service unavailable"))

	s, err := NewScorer(mock, 8, nil)
	require.NoError(t, err)

	_, err = s.Score(context.Background(), "a", "b")
	require.ErrorIs(t, err, evalerrors.ErrRetrieval)
}
