package evalerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrors_matchSentinels(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"retrieval", NewRetrievalError("nearest", cause), ErrRetrieval},
		{"generation", NewGenerationError("openai", cause), ErrGeneration},
		{"cache", NewCacheUnavailableError(CacheOpStore, cause), ErrCacheUnavailable},
		{"upstream", NewUpstreamError("moodle", cause), ErrUpstream},
		{"validation", NewValidationError("question_id", "required"), ErrValidation},
		{"not found", NewNotFoundError("evaluation", ""), ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestTypedErrors_unwrapToCause(t *testing.T) {
	err := NewGenerationError("openai", context.DeadlineExceeded)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, "generation (openai) failed: context deadline exceeded", err.Error())
}

func TestCacheUnavailableError_op(t *testing.T) {
	err := fmt.Errorf("evaluate: %w", NewCacheUnavailableError(CacheOpStore, errors.New("conn refused")))

	var cacheErr *CacheUnavailableError
	require.ErrorAs(t, err, &cacheErr)
	assert.Equal(t, CacheOpStore, cacheErr.Op)
	assert.Contains(t, err.Error(), "(store)")
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(NewRetrievalError("embed query", errors.New("503"))))
	assert.True(t, IsTransient(NewGenerationError("openai", context.DeadlineExceeded)))
	assert.False(t, IsTransient(NewGenerationError("openai", errors.New("401 unauthorized"))))
	assert.False(t, IsTransient(NewValidationError("answer", "")))
}
