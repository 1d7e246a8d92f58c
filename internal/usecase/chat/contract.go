package chat

import (
	"context"

	"github.com/paperchat/paperchat/internal/domain"
)

// Retriever performs similarity search over the resident corpus.
type Retriever interface {
	SearchKNN(ctx context.Context, vector []float32, k int) ([]domain.Passage, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator produces text from a prompt. Implementations consume their
// provider's entire stream and return one aggregated string.
type Generator interface {
	Provider() domain.Provider
	Generate(ctx context.Context, prompt string) (string, error)
}
