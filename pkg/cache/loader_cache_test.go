package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder stands in for an embedding service: one vector per text, counting calls.
type countingEmbedder struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (e *countingEmbedder) embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)

	if e.delay > 0 {
		time.Sleep(e.delay)
	}

	if e.err != nil {
		return nil, e.err
	}

	return []float32{float32(len(text)), 1}, nil
}

func TestLoaderCache_missThenHit(t *testing.T) {
	c, err := New[[]float32](4)
	require.NoError(t, err)

	emb := &countingEmbedder{}
	ctx := context.Background()

	v, hit, err := c.Get(ctx, "respuesta esperada", emb.embed)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []float32{18, 1}, v)

	v, hit, err = c.Get(ctx, "respuesta esperada", emb.embed)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []float32{18, 1}, v)

	assert.Equal(t, int32(1), emb.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestLoaderCache_concurrentMissesShareOneLoad(t *testing.T) {
	c, err := New[[]float32](4)
	require.NoError(t, err)

	emb := &countingEmbedder{delay: 50 * time.Millisecond}

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			v, _, err := c.Get(context.Background(), "consulta", emb.embed)
			assert.NoError(t, err)
			assert.Len(t, v, 2)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), emb.calls.Load())
}

func TestLoaderCache_errorsAreNotCached(t *testing.T) {
	c, err := New[[]float32](4)
	require.NoError(t, err)

	emb := &countingEmbedder{err: errors.New("rate limited")}
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "consulta", emb.embed)
	require.Error(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, c.Len())

	emb.err = nil

	_, hit, err = c.Get(ctx, "consulta", emb.embed)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), emb.calls.Load())
}

func TestLoaderCache_evictsLeastRecentlyUsed(t *testing.T) {
	c, err := New[[]float32](2)
	require.NoError(t, err)

	emb := &countingEmbedder{}
	ctx := context.Background()

	for _, text := range []string{"a", "bb", "a", "ccc"} {
		_, _, err := c.Get(ctx, text, emb.embed)
		require.NoError(t, err)
	}

	_, hit, err := c.Get(ctx, "a", emb.embed)
	require.NoError(t, err)
	assert.True(t, hit)

	_, hit, err = c.Get(ctx, "bb", emb.embed)
	require.NoError(t, err)
	assert.False(t, hit, "bb was least recently used when ccc arrived")
}

func TestNew_invalidSize(t *testing.T) {
	_, err := New[[]float32](0)
	assert.Error(t, err)
}
