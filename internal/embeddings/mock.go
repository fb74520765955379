package embeddings

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	vecmath "github.com/formbricks/evalhub/pkg/embeddings"
)

// ErrMockEmptyInput is returned by MockClient for blank input, mirroring the real providers.
var ErrMockEmptyInput = errors.New("embeddings: input text is empty")

// MockClient implements Client for tests. It returns deterministic unit vectors derived from the
// input hash unless a fixed vector was registered with Set, and counts every call.
type MockClient struct {
	dimensions int
	calls      atomic.Int64

	mu      sync.RWMutex
	vectors map[string][]float32
	err     error
}

// NewMockClient creates a mock embedding client producing vectors of the given dimension.
func NewMockClient(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions, vectors: make(map[string][]float32)}
}

// Set registers the vector returned for input.
func (c *MockClient) Set(input string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vectors[strings.TrimSpace(input)] = vector
}

// FailWith makes every subsequent call return err (nil restores normal behavior).
func (c *MockClient) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.err = err
}

// Calls returns how many times CreateEmbedding was invoked.
func (c *MockClient) Calls() int {
	return int(c.calls.Load())
}

// CreateEmbedding returns the registered vector for input or a hash-derived one.
func (c *MockClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	c.calls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	failure := c.err
	fixed, ok := c.vectors[strings.TrimSpace(input)]
	c.mu.RUnlock()

	if failure != nil {
		return nil, failure
	}

	if strings.TrimSpace(input) == "" {
		return nil, ErrMockEmptyInput
	}

	if ok {
		out := make([]float32, len(fixed))
		copy(out, fixed)

		return out, nil
	}

	return c.hashVector(input), nil
}

func (c *MockClient) hashVector(input string) []float32 {
	hash := sha256.Sum256([]byte(strings.TrimSpace(input)))
	out := make([]float32, c.dimensions)

	for i := range out {
		out[i] = (float32(hash[i%len(hash)]) / 127.5) - 1.0
	}

	vecmath.NormalizeL2(out)

	return out
}

var _ Client = (*MockClient)(nil)
