package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/viralcraft/core/internal/config"
	"github.com/viralcraft/core/pkg/logger"
)

// ModelCompletion is one model response with its usage metrics
type ModelCompletion struct {
	Content string
	Model   string
	Tokens  int
}

// ModelClient is the opaque LLM call the content generator delegates to
type ModelClient interface {
	Complete(ctx context.Context, model, prompt string) (*ModelCompletion, error)
}

// OpenAIModelClient implements ModelClient over the OpenAI chat completions API
type OpenAIModelClient struct {
	client openai.Client
	logger *logger.Logger
}

// NewOpenAIModelClient creates an OpenAI-backed model client
func NewOpenAIModelClient(cfg config.OpenAIConfig) *OpenAIModelClient {
	return &OpenAIModelClient{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		logger: logger.New("openai-client"),
	}
}

// Complete sends a single-turn chat completion request
func (c *OpenAIModelClient) Complete(ctx context.Context, model, prompt string) (*ModelCompletion, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return &ModelCompletion{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Tokens:  int(resp.Usage.TotalTokens),
	}, nil
}

// isQuotaError reports whether err is a rate-limit or quota failure worth
// retrying on a cheaper model
func isQuotaError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
