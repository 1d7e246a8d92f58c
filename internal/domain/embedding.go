package domain

import "context"

// EmbeddingResult is the vector plus token accounting from the provider.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text. Used both at ingestion and at query time.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by providers that can probe their upstream.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
