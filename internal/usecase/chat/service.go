package chat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/paperchat/paperchat/internal/domain"
)

// Service answers chat messages by retrieving grounding passages and
// dispatching prompt generation to the chosen provider.
type Service struct {
	retriever       Retriever
	embed           Embedder
	generators      map[domain.Provider]Generator
	defaultProvider domain.Provider
	topK            int
	timeout         time.Duration
	logger          *zap.Logger
}

// New creates a chat service over the given generators. defaultProvider
// handles requests naming no provider or an unknown one; empty falls back
// to domain.DefaultProvider.
func New(
	retriever Retriever,
	embed Embedder,
	generators []Generator,
	defaultProvider domain.Provider,
	topK int,
	timeout time.Duration,
	logger *zap.Logger,
) (*Service, error) {
	if defaultProvider == "" {
		defaultProvider = domain.DefaultProvider
	}

	byProvider := make(map[domain.Provider]Generator, len(generators))
	for _, g := range generators {
		if _, dup := byProvider[g.Provider()]; dup {
			return nil, fmt.Errorf("duplicate generator for provider %s", g.Provider())
		}
		byProvider[g.Provider()] = g
	}
	if _, ok := byProvider[defaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %s has no generator", defaultProvider)
	}

	return &Service{
		retriever:       retriever,
		embed:           embed,
		generators:      byProvider,
		defaultProvider: defaultProvider,
		topK:            topK,
		timeout:         timeout,
		logger:          logger,
	}, nil
}

// Answer handles one chat turn. Greetings are answered with a canned
// response before any retrieval or provider call. History is read-only
// context and is never mutated or persisted.
func (s *Service) Answer(
	ctx context.Context, message string, history []domain.Turn, provider domain.Provider,
) (string, error) {
	if IsGreeting(message) {
		return GreetingResponse, nil
	}

	passages, err := s.retrieve(ctx, message)
	if err != nil {
		return "", err
	}

	prompt := BuildPrompt(message, history, passages)

	gen, ok := s.generators[provider]
	if !ok {
		// Unknown or empty provider degrades to the configured default
		// rather than failing the chat.
		gen = s.generators[s.defaultProvider]
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := gen.Generate(genCtx, prompt)
	if err != nil {
		if genCtx.Err() != nil {
			return "", domain.NewGenerationError(gen.Provider(), fmt.Errorf("timed out after %s", s.timeout))
		}
		return "", err
	}

	s.logger.Info("chat answered",
		zap.String("provider", string(gen.Provider())),
		zap.Int("passages", len(passages)),
		zap.Int("history_turns", len(history)),
		zap.Int("answer_len", len(answer)),
	)
	return answer, nil
}

// retrieve embeds the message and runs top-k similarity search. An empty
// corpus yields no passages and no error.
func (s *Service) retrieve(ctx context.Context, message string) ([]domain.Passage, error) {
	embResult, err := s.embed.Embed(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	passages, err := s.retriever.SearchKNN(ctx, embResult.Embedding, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	return passages, nil
}
