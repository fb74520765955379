// Package embeddings defines the text-embedding capability used by scoring, retrieval and ingestion.
package embeddings

import "context"

// Client turns text into a fixed-dimension vector.
// Implemented by the openai and googleai provider packages and by MockClient in tests.
type Client interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}
