// Package googleai provides thin wrappers around the Google Gen AI SDK (Gemini API) for embeddings and
// text generation.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vecmath "github.com/formbricks/evalhub/pkg/embeddings"
	"google.golang.org/genai"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with blank text.
	ErrEmptyInput = errors.New("googleai: input text is empty")
	// ErrInvalidDims is returned when the configured dimension is outside (0, MaxDimensions].
	ErrInvalidDims = errors.New("googleai: invalid embedding dimensions")
	// ErrNoEmbeddingInResponse is returned when Gemini answers without a vector.
	ErrNoEmbeddingInResponse = errors.New("googleai: no embedding in response")
	// ErrDimensionMismatch is returned when the returned vector does not have the requested length.
	ErrDimensionMismatch = errors.New("googleai: embedding dimension mismatch")
)

// Embedding task types understood by gemini-embedding models.
const (
	TaskSemanticSimilarity = "SEMANTIC_SIMILARITY"
	TaskRetrievalQuery     = "RETRIEVAL_QUERY"
	TaskRetrievalDocument  = "RETRIEVAL_DOCUMENT"
)

const (
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultDimensions     = 1536

	// MaxDimensions is the native output size of gemini-embedding-001. Only vectors of this size
	// come back unit-length; truncated ones are renormalized here.
	MaxDimensions = 3072
)

// newGenAIClient opens a Gemini API client shared by the embedder and the generator.
func newGenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	return c, nil
}

// Client embeds text through EmbedContent.
type Client struct {
	client     *genai.Client
	model      string
	dimensions int
	taskType   string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the output dimensionality. It must match the passages.embedding column.
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model. Empty keeps the default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTaskType sets the embedding task type (TaskSemanticSimilarity by default).
func WithTaskType(task string) ClientOption {
	return func(c *Client) {
		c.taskType = task
	}
}

// NewClient creates a Gemini embeddings client. The dimension is validated here so a bad
// EMBEDDING_DIMENSIONS fails at startup instead of on the first evaluation.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		model:      defaultEmbeddingModel,
		dimensions: defaultDimensions,
		taskType:   TaskSemanticSimilarity,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dimensions <= 0 || c.dimensions > MaxDimensions {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDims, c.dimensions)
	}

	genaiClient, err := newGenAIClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	c.client = genaiClient

	return c, nil
}

// CreateEmbedding returns a unit-length vector of the configured dimension for input.
// Answers and expected answers are compared with the same task type so their vectors share a space.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	//nolint:gosec // G115: dimensions is bounded by MaxDimensions in NewClient
	dims := int32(c.dimensions)

	cfg := &genai.EmbedContentConfig{OutputDimensionality: &dims}
	if c.taskType != "" {
		cfg.TaskType = c.taskType
	}

	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}

	resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, ErrNoEmbeddingInResponse
	}

	values := resp.Embeddings[0].Values
	if len(values) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(values), c.dimensions)
	}

	out := make([]float32, len(values))
	copy(out, values)

	if c.dimensions < MaxDimensions {
		vecmath.NormalizeL2(out)
	}

	return out, nil
}
