// Package openai provides thin wrappers around the official OpenAI Go SDK for embeddings and
// chat-completion text generation.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with blank text.
	ErrEmptyInput = errors.New("openai: input text is empty")
	// ErrInvalidDims is returned by NewClient when the dimension is not positive.
	ErrInvalidDims = errors.New("openai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the response carries no vector.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrDimensionMismatch is returned when the vector length differs from the requested dimension.
	ErrDimensionMismatch = errors.New("openai: embedding dimension mismatch")
)

const (
	defaultEmbeddingModel = openaisdk.EmbeddingModelTextEmbedding3Small
	defaultDimensions     = 1536
	// Embedding calls are idempotent, so the SDK may retry 429 and 5xx answers.
	defaultEmbeddingRetries = 2
)

// Client embeds text through the Embeddings API.
type Client struct {
	sdk         openaisdk.Client
	model       openaisdk.EmbeddingModel
	dimensions  int
	maxRetries  int
	requestOpts []option.RequestOption
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the vector size requested from text-embedding-3 models. It must match the
// passages.embedding column.
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model. Empty keeps text-embedding-3-small.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = openaisdk.EmbeddingModel(model)
		}
	}
}

// WithMaxRetries overrides the SDK retry count for embedding calls.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseURL points the client at a different API root (proxies, tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.requestOpts = append(c.requestOpts, option.WithBaseURL(baseURL))
	}
}

// NewClient creates an embeddings client.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		model:      defaultEmbeddingModel,
		dimensions: defaultDimensions,
		maxRetries: defaultEmbeddingRetries,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dimensions <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDims, c.dimensions)
	}

	sdkOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(c.maxRetries)}
	c.sdk = openaisdk.NewClient(append(sdkOpts, c.requestOpts...)...)

	return c, nil
}

// CreateEmbedding returns the vector for input, converted to float32.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input:      openaisdk.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(input)},
		Model:      c.model,
		Dimensions: param.NewOpt(int64(c.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	values := resp.Data[0].Embedding
	if len(values) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(values), c.dimensions)
	}

	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}

	return out, nil
}
