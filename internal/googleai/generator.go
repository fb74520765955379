package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"
)

// ErrEmptyCompletion is returned when Gemini answers with no text.
var ErrEmptyCompletion = errors.New("googleai: empty completion")

const (
	defaultGenerationModel = "gemini-2.0-flash"
	defaultMaxTokens       = 1100
)

// Generator produces feedback text through GenerateContent. Temperature is fixed at 0.
type Generator struct {
	client    *genai.Client
	model     string
	system    string
	maxTokens int
}

// GeneratorOption configures the Generator.
type GeneratorOption func(*Generator)

// WithGenerationModel sets the Gemini model. Empty keeps the default.
func WithGenerationModel(model string) GeneratorOption {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithSystemInstruction sets the system instruction.
func WithSystemInstruction(system string) GeneratorOption {
	return func(g *Generator) {
		g.system = system
	}
}

// WithMaxTokens caps the response length. Non-positive values are ignored.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 && n <= math.MaxInt32 {
			g.maxTokens = n
		}
	}
}

// NewGenerator creates a Gemini text generator.
func NewGenerator(ctx context.Context, apiKey string, opts ...GeneratorOption) (*Generator, error) {
	genaiClient, err := newGenAIClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		client:    genaiClient,
		model:     defaultGenerationModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Generate sends prompt as a user turn and returns the trimmed response text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0)

	cfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
		//nolint:gosec // G115: maxTokens is bounded above by math.MaxInt32
		MaxOutputTokens: int32(g.maxTokens),
	}
	if g.system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: g.system}}}
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyCompletion
	}

	return text, nil
}
