package openrouter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/paperchat/paperchat/internal/domain"
	"github.com/paperchat/paperchat/internal/metrics"
)

// Generator produces text via an OpenAI-compatible chat-completion stream.
// Both the Deepseek and OpenAI provider variants go through this transport,
// pointed at the OpenRouter gateway with different models and credentials.
type Generator struct {
	client   *openai.Client
	model    string
	provider domain.Provider
	logger   *zap.Logger
}

// Config holds one gateway backend's settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider domain.Provider
	Logger   *zap.Logger
}

// NewGenerator creates a streaming chat-completion generator.
func NewGenerator(cfg *Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Provider returns the provider variant this generator serves.
func (g *Generator) Provider() domain.Provider { return g.provider }

// Generate sends the prompt and consumes the whole token stream,
// concatenating fragments in arrival order. Fragments without content are
// counted and skipped, never appended.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	}

	start := time.Now()

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(string(g.provider), g.model, "error").Inc()
		return "", domain.NewGenerationError(g.provider, parseAPIError(err))
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.GenerationRequestsTotal.WithLabelValues(string(g.provider), g.model, "error").Inc()
			return "", domain.NewGenerationError(g.provider, fmt.Errorf("stream recv: %w", err))
		}

		// The final chunk of a stream may carry no choices or an empty delta.
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			metrics.GenerationFragmentsTotal.WithLabelValues(string(g.provider), "empty").Inc()
			continue
		}

		metrics.GenerationFragmentsTotal.WithLabelValues(string(g.provider), "content").Inc()
		sb.WriteString(resp.Choices[0].Delta.Content)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(string(g.provider), g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(string(g.provider), g.model).Observe(time.Since(start).Seconds())

	return sb.String(), nil
}

// parseAPIError extracts a human-readable error from the gateway response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("gateway error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gateway error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("chat completion request failed: %w", err)
}
