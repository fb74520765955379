package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("openai: empty completion")

const (
	defaultChatModel = "gpt-4.1-mini"
	defaultMaxTokens = 1100
)

// Generator produces feedback text through the Chat Completions API. Temperature is fixed at 0.
type Generator struct {
	sdk         openaisdk.Client
	model       string
	system      string
	maxTokens   int
	requestOpts []option.RequestOption
}

// GeneratorOption configures the Generator.
type GeneratorOption func(*Generator)

// WithChatModel sets the chat model. Empty uses gpt-4.1-mini.
func WithChatModel(model string) GeneratorOption {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithSystemInstruction sets the system message sent before every prompt.
func WithSystemInstruction(system string) GeneratorOption {
	return func(g *Generator) {
		g.system = system
	}
}

// WithMaxTokens caps the completion length. Non-positive values are ignored.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithGeneratorBaseURL points the generator at a different API root (proxies, tests).
func WithGeneratorBaseURL(baseURL string) GeneratorOption {
	return func(g *Generator) {
		g.requestOpts = append(g.requestOpts, option.WithBaseURL(baseURL))
	}
}

// NewGenerator creates a chat-completion generator. The SDK's own retries are disabled: a failed
// generation surfaces to the caller.
func NewGenerator(apiKey string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		model:     defaultChatModel,
		maxTokens: defaultMaxTokens,
	}

	for _, opt := range opts {
		opt(g)
	}

	sdkOpts := append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, g.requestOpts...)
	g.sdk = openaisdk.NewClient(sdkOpts...)

	return g
}

// Generate sends prompt as the user message and returns the trimmed completion text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if g.system != "" {
		messages = append(messages, openaisdk.SystemMessage(g.system))
	}

	messages = append(messages, openaisdk.UserMessage(prompt))

	resp, err := g.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:               openaisdk.ChatModel(g.model),
		Messages:            messages,
		Temperature:         openaisdk.Float(0),
		MaxCompletionTokens: openaisdk.Int(int64(g.maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	return text, nil
}
