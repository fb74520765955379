// Package providers builds the embedding and text-generation clients selected by configuration.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/formbricks/evalhub/internal/anthropic"
	"github.com/formbricks/evalhub/internal/config"
	"github.com/formbricks/evalhub/internal/embeddings"
	"github.com/formbricks/evalhub/internal/googleai"
	"github.com/formbricks/evalhub/internal/openai"
)

// Provider names accepted by EMBEDDING_PROVIDER and GENERATION_PROVIDER.
const (
	OpenAI    = "openai"
	Google    = "google"
	Anthropic = "anthropic"
)

// SystemInstruction frames every generation call.
const SystemInstruction = "Eres un asistente que evalúa respuestas docentes basándose en documentos oficiales."

var (
	ErrUnsupportedEmbeddingProvider  = errors.New("unsupported embedding provider")
	ErrUnsupportedGenerationProvider = errors.New("unsupported generation provider")
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewEmbedder returns the embedding client for cfg.EmbeddingProvider (openai or google).
func NewEmbedder(ctx context.Context, cfg *config.Config) (embeddings.Client, error) {
	switch cfg.EmbeddingProvider {
	case OpenAI:
		client, err := openai.NewClient(cfg.EmbeddingProviderAPIKey,
			openai.WithModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai embedding client: %w", err)
		}

		return client, nil
	case Google:
		client, err := googleai.NewClient(ctx, cfg.EmbeddingProviderAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("%w: %q (EMBEDDING_PROVIDER must be %s or %s)",
			ErrUnsupportedEmbeddingProvider, cfg.EmbeddingProvider, OpenAI, Google)
	}
}

// NewGenerator returns the text generator for cfg.GenerationProvider (openai, google or anthropic).
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, error) {
	switch cfg.GenerationProvider {
	case OpenAI:
		return openai.NewGenerator(cfg.GenerationProviderAPIKey,
			openai.WithChatModel(cfg.GenerationModel),
			openai.WithSystemInstruction(SystemInstruction),
			openai.WithMaxTokens(cfg.GenerationMaxTokens),
		), nil
	case Anthropic:
		return anthropic.NewGenerator(cfg.GenerationProviderAPIKey,
			anthropic.WithModel(cfg.GenerationModel),
			anthropic.WithSystemInstruction(SystemInstruction),
			anthropic.WithMaxTokens(cfg.GenerationMaxTokens),
		), nil
	case Google:
		gen, err := googleai.NewGenerator(ctx, cfg.GenerationProviderAPIKey,
			googleai.WithGenerationModel(cfg.GenerationModel),
			googleai.WithSystemInstruction(SystemInstruction),
			googleai.WithMaxTokens(cfg.GenerationMaxTokens),
		)
		if err != nil {
			return nil, fmt.Errorf("create google generator: %w", err)
		}

		return gen, nil
	default:
		return nil, fmt.Errorf("%w: %q (GENERATION_PROVIDER must be %s, %s or %s)",
			ErrUnsupportedGenerationProvider, cfg.GenerationProvider, OpenAI, Google, Anthropic)
	}
}
