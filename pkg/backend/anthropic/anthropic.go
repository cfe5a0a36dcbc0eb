package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/weftworks/weft/pkg/backend"
	"github.com/weftworks/weft/pkg/domain"
)

// Adapter implements the backend.Adapter interface for Anthropic Claude.
type Adapter struct {
	client     anthropic.Client
	descriptor backend.Descriptor
	limiter    *backend.Limiter
	retry      backend.RetryPolicy
	config     Config
}

// Config holds Anthropic-specific configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	// Rate-limit window overrides; zero values fall back to defaults.
	RequestsPerWindow int
	TokensPerWindow   int
	Window            time.Duration
}

// New creates a new Anthropic adapter.
func New(apiKey, model string) *Adapter {
	return NewWithConfig(Config{
		APIKey: apiKey,
		Model:  model,
	})
}

// NewWithConfig creates a new Anthropic adapter with custom configuration.
func NewWithConfig(config Config) *Adapter {
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	descriptor := backend.Descriptor{
		Provider:          "anthropic",
		Model:             config.Model,
		ContextWindow:     200000, // All Claude models have 200k context
		InputCostPer1K:    0.003,
		OutputCostPer1K:   0.015,
		RequestsPerWindow: 50,
		TokensPerWindow:   80000,
		Window:            time.Minute,
		StrongReasoning:   true,
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
		client:     anthropic.NewClient(opts...),
		descriptor: descriptor,
		limiter:    backend.NewLimiter(descriptor),
		retry:      backend.DefaultRetryPolicy(),
		config:     config,
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
	if a.config.APIKey == "" {
		return nil, backend.NewConfigurationError("anthropic api key not configured")
	}

	return backend.Call(ctx, a.limiter, a.retry, func(ctx context.Context) (*backend.Completion, error) {
		msgReq := anthropic.MessageNewParams{
			Model:    anthropic.Model(a.descriptor.Model),
			Messages: a.convertTurns(bundle),
		}

		if bundle.System != "" {
			msgReq.System = []anthropic.TextBlockParam{{Text: bundle.System}}
		}

		if bundle.MaxTokens > 0 {
			msgReq.MaxTokens = int64(bundle.MaxTokens)
		} else {
			// Anthropic requires max_tokens, set a reasonable default
			msgReq.MaxTokens = int64(4096)
		}

		if bundle.Temperature > 0 {
			msgReq.Temperature = anthropic.Float(float64(bundle.Temperature))
		}

		resp, err := a.client.Messages.New(ctx, msgReq)
		if err != nil {
			return nil, normalizeError(err)
		}

		var textContent strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				textContent.WriteString(block.Text)
			}
		}

		return &backend.Completion{
			RawText:      textContent.String(),
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		}, nil
	})
}

// ValidateCredential issues a minimal one-token request to check the key.
func (a *Adapter) ValidateCredential(ctx context.Context) error {
	if a.config.APIKey == "" {
		return backend.NewConfigurationError("anthropic api key not configured")
	}

	_, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.descriptor.Model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return normalizeError(err)
	}

	return nil
}

// convertTurns maps the backend-agnostic bundle to Anthropic message params.
// System turns are folded into the system prompt by the prompt engineer, so
// only user and assistant turns remain here.
func (a *Adapter) convertTurns(bundle domain.PromptBundle) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(bundle.History)+1)

	for _, turn := range bundle.History {
		switch turn.Role {
		case domain.TurnRoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
		case domain.TurnRoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		}
	}

	result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(bundle.Directive)))

	return result
}

// normalizeError maps Anthropic SDK errors into the shared taxonomy.
func normalizeError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return backend.FromStatusCode(apiErr.StatusCode, fmt.Sprintf("anthropic api error: %v", err), err)
	}

	return backend.NewNetworkError(fmt.Errorf("anthropic request failed: %w", err))
}
