package ingest

import (
	"context"

	"github.com/paperchat/paperchat/internal/domain"
)

// Repository defines the storage contract for corpus replacement.
type Repository interface {
	ReplaceAll(ctx context.Context, chunks []domain.Chunk) error
}

// Embedder vectorizes document text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
