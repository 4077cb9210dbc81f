package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/studyhall-ai/quizgen/internal/domain"
	"github.com/studyhall-ai/quizgen/internal/metrics"
)

// Completer is a chat-completion provider using the OpenAI-compatible API.
// Responses are requested in JSON object mode.
type Completer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	user        string
	provider    string
	logger      *zap.Logger
}

// CompleterConfig holds the completion provider settings.
type CompleterConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	User        string
	Provider    string
	Logger      *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completion provider.
func NewCompleter(cfg *CompleterConfig) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Completer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		user:        cfg.User,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
	}
}

// Complete implements domain.Completer. The response is requested as a JSON
// object; the raw text is returned without parsing.
func (c *Completer) Complete(ctx context.Context, systemDirective, userContent string) (domain.CompletionResult, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemDirective},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: c.temperature,
		User:        c.user,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return domain.CompletionResult{}, parseAPIError("completion", err, domain.ErrGenerationProvider)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return domain.CompletionResult{}, fmt.Errorf("empty completion response: %w", domain.ErrGenerationProvider)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())

	promptTokens := resp.Usage.PromptTokens
	completionTokens := resp.Usage.CompletionTokens
	if promptTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(c.provider, c.model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(c.provider, c.model, "completion").Add(float64(completionTokens))
	}

	return domain.CompletionResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
