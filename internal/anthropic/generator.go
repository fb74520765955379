// Package anthropic provides a thin wrapper around the Anthropic Go SDK for text generation.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrEmptyCompletion is returned when the model answers with no text blocks.
var ErrEmptyCompletion = errors.New("anthropic: empty completion")

const (
	defaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 1100
)

// Generator produces feedback text through the Messages API. Temperature is fixed at 0.
type Generator struct {
	client      anthropicsdk.Client
	model       string
	system      string
	maxTokens   int
	requestOpts []option.RequestOption
}

// GeneratorOption configures the Generator.
type GeneratorOption func(*Generator)

// WithModel sets the model. Empty keeps the default.
func WithModel(model string) GeneratorOption {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithSystemInstruction sets the system prompt.
func WithSystemInstruction(system string) GeneratorOption {
	return func(g *Generator) {
		g.system = system
	}
}

// WithMaxTokens caps the response length. Non-positive values are ignored.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithBaseURL points the generator at a different API root (proxies, tests).
func WithBaseURL(baseURL string) GeneratorOption {
	return func(g *Generator) {
		g.requestOpts = append(g.requestOpts, option.WithBaseURL(baseURL))
	}
}

// NewGenerator creates a Messages API generator with SDK retries disabled.
func NewGenerator(apiKey string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}

	for _, opt := range opts {
		opt(g)
	}

	sdkOpts := append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, g.requestOpts...)
	g.client = anthropicsdk.NewClient(sdkOpts...)

	return g
}

// Generate sends prompt as a single user turn and joins the text blocks of the reply.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
		Temperature: anthropicsdk.Float(0),
	}

	if g.system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: g.system}}
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder

	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}

	return text, nil
}
