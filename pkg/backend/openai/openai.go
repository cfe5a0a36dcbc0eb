package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/weftworks/weft/pkg/backend"
	"github.com/weftworks/weft/pkg/domain"
)

// Adapter implements the backend.Adapter interface for OpenAI.
type Adapter struct {
	client     *openai.Client
	descriptor backend.Descriptor
	limiter    *backend.Limiter
	retry      backend.RetryPolicy
	apiKey     string
}

// Config holds OpenAI-specific configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	RequestsPerWindow int
	TokensPerWindow   int
	Window            time.Duration
}

// New creates a new OpenAI adapter.
func New(apiKey, model string) *Adapter {
	return NewWithConfig(Config{
		APIKey: apiKey,
		Model:  model,
	})
}

// NewWithConfig creates a new OpenAI adapter with custom configuration.
func NewWithConfig(config Config) *Adapter {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	descriptor := backend.Descriptor{
		Provider:          "openai",
		Model:             config.Model,
		ContextWindow:     128000,
		InputCostPer1K:    0.0025,
		OutputCostPer1K:   0.01,
		RequestsPerWindow: 60,
		TokensPerWindow:   90000,
		Window:            time.Minute,
	}

	if config.RequestsPerWindow > 0 {
		descriptor.RequestsPerWindow = config.RequestsPerWindow
	}
	if config.TokensPerWindow > 0 {
		descriptor.TokensPerWindow = config.TokensPerWindow
	}
	if config.Window > 0 {
		descriptor.Window = config.Window
	}

	return &Adapter{
		client:     openai.NewClientWithConfig(clientConfig),
		descriptor: descriptor,
		limiter:    backend.NewLimiter(descriptor),
		retry:      backend.DefaultRetryPolicy(),
		apiKey:     config.APIKey,
	}
}

// Descriptor returns the static configuration of this backend.
func (a *Adapter) Descriptor() backend.Descriptor {
	return a.descriptor
}

// RateLimit returns a snapshot of the remaining window budget.
func (a *Adapter) RateLimit() backend.RateLimitSnapshot {
	return a.limiter.Snapshot()
}

// EstimateCost predicts the cost of a call from the input size.
func (a *Adapter) EstimateCost(inputChars, expectedOutputTokens int) float64 {
	return backend.EstimateCost(a.descriptor, inputChars, expectedOutputTokens)
}

// Generate implements the Generate method of the backend.Adapter interface.
func (a *Adapter) Generate(ctx context.Context, bundle domain.PromptBundle) (*backend.Completion, error) {
	if a.apiKey == "" {
		return nil, backend.NewConfigurationError("openai api key not configured")
	}

	return backend.Call(ctx, a.limiter, a.retry, func(ctx context.Context) (*backend.Completion, error) {
		chatReq := openai.ChatCompletionRequest{
			Model:    a.descriptor.Model,
			Messages: a.convertTurns(bundle),
		}

		if bundle.MaxTokens > 0 {
			chatReq.MaxCompletionTokens = bundle.MaxTokens
		}
		if bundle.Temperature > 0 {
			chatReq.Temperature = bundle.Temperature
		}

		resp, err := a.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return nil, normalizeError(err)
		}

		if len(resp.Choices) == 0 {
			return nil, backend.FromStatusCode(502, "openai returned no choices", nil)
		}

		return &backend.Completion{
			RawText:      resp.Choices[0].Message.Content,
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}, nil
	})
}

// ValidateCredential issues a minimal one-token request to check the key.
func (a *Adapter) ValidateCredential(ctx context.Context) error {
	if a.apiKey == "" {
		return backend.NewConfigurationError("openai api key not configured")
	}

	_, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               a.descriptor.Model,
		MaxCompletionTokens: 1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "ping"},
		},
	})
	if err != nil {
		return normalizeError(err)
	}

	return nil
}

func (a *Adapter) convertTurns(bundle domain.PromptBundle) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(bundle.History)+2)

	if bundle.System != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: bundle.System,
		})
	}

	for _, turn := range bundle.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == domain.TurnRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}

		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	result = append(result, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: bundle.Directive,
	})

	return result
}

// normalizeError maps OpenAI SDK errors into the shared taxonomy.
func normalizeError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return backend.FromStatusCode(apiErr.HTTPStatusCode, fmt.Sprintf("openai api error: %v", err), err)
	}

	return backend.NewNetworkError(fmt.Errorf("openai request failed: %w", err))
}
