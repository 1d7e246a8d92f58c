package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paperchat/paperchat/internal/domain"
)

// Service replaces the resident corpus with a newly uploaded document.
//
// Ingestion is a delete-then-insert sequence, so concurrent calls could
// interleave and leave chunks from two documents resident. The mutex makes
// ingestion single-writer; retrieval reads are not serialized.
type Service struct {
	repo   Repository
	embed  Embedder
	logger *zap.Logger

	mu sync.Mutex
}

// New creates an ingestion service.
func New(repo Repository, embed Embedder, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, logger: logger}
}

// Ingest embeds the document text and replaces the resident corpus with it.
// The document is stored as a single chunk.
func (s *Service) Ingest(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyDocument
	}

	// Embed before taking the lock: the provider call is slow I/O and must
	// not block concurrent read traffic behind the writer lock.
	embResult, err := s.embed.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}

	chunk := domain.Chunk{
		ID:     uuid.NewString(),
		Text:   text,
		Vector: embResult.Embedding,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.ReplaceAll(ctx, []domain.Chunk{chunk}); err != nil {
		return fmt.Errorf("replace corpus: %w", err)
	}

	s.logger.Info("corpus replaced",
		zap.String("chunk_id", chunk.ID),
		zap.Int("text_len", len(text)),
		zap.Int("embedding_tokens", embResult.TotalTokens),
	)
	return nil
}
