package googleai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/paperchat/paperchat/internal/domain"
	"github.com/paperchat/paperchat/internal/metrics"
)

// Generator produces text via the native Gemini API, consumed as a token
// stream and aggregated into one string.
type Generator struct {
	llm    llms.Model
	model  string
	logger *zap.Logger
}

// Config holds the Gemini backend settings.
type Config struct {
	APIKey string
	Model  string
	Logger *zap.Logger
}

// NewGenerator creates a Gemini generator.
func NewGenerator(ctx context.Context, cfg *Config) (*Generator, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create googleai client: %w", err)
	}

	return &Generator{llm: llm, model: cfg.Model, logger: cfg.Logger}, nil
}

// Provider returns the provider variant this generator serves.
func (g *Generator) Provider() domain.Provider { return domain.ProviderGemini }

// Generate streams the completion and concatenates every non-empty chunk in
// arrival order.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	provider := string(domain.ProviderGemini)
	start := time.Now()

	var sb strings.Builder
	streamFunc := func(_ context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			metrics.GenerationFragmentsTotal.WithLabelValues(provider, "empty").Inc()
			return nil
		}
		metrics.GenerationFragmentsTotal.WithLabelValues(provider, "content").Inc()
		sb.Write(chunk)
		return nil
	}

	resp, err := g.llm.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)},
		llms.WithStreamingFunc(streamFunc),
	)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, g.model, "error").Inc()
		return "", domain.NewGenerationError(domain.ProviderGemini, fmt.Errorf("generate content: %w", err))
	}

	metrics.GenerationRequestsTotal.WithLabelValues(provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(provider, g.model).Observe(time.Since(start).Seconds())

	if sb.Len() > 0 {
		return sb.String(), nil
	}

	// Some model versions return the whole completion without streaming.
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Content, nil
	}
	return "", domain.NewGenerationError(domain.ProviderGemini, fmt.Errorf("empty completion"))
}
