package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weftworks/weft/pkg/backend"
	"github.com/weftworks/weft/pkg/domain"
	"google.golang.org/genai"
)

// Adapter implements the backend.Adapter interface for Google Gemini.
type Adapter struct {
	client     *genai.Client
	descriptor backend.Descriptor
	limiter    *backend.Limiter
	retry      backend.RetryPolicy
	apiKey     string
}

// Config holds Gemini-specific configuration.
type Config struct {
	APIKey string
	Model  string

	RequestsPerWindow int
	TokensPerWindow   int
	Window            time.Duration
}

// New creates a new Gemini adapter.
func New(ctx context.Context, apiKey, model string) (*Adapter, error) {
	return NewWithConfig(ctx, Config{
		APIKey: apiKey,
		Model:  model,
	})
}

// NewWithConfig creates a new Gemini adapter with custom configuration.
func NewWithConfig(ctx context.Context, config Config) (*Adapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	descriptor := backend.Descriptor{
		Provider:          "gemini",
		Model:             config.Model,
		ContextWindow:     1000000,
		InputCostPer1K:    0.00015,
		OutputCostPer1K:   0.0006,
		RequestsPerWindow: 60,
		TokensPerWindow:   120000,
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
		client:     client,
		descriptor: descriptor,
		limiter:    backend.NewLimiter(descriptor),
		retry:      backend.DefaultRetryPolicy(),
		apiKey:     config.APIKey,
	}, nil
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
		return nil, backend.NewConfigurationError("gemini api key not configured")
	}

	return backend.Call(ctx, a.limiter, a.retry, func(ctx context.Context) (*backend.Completion, error) {
		config := &genai.GenerateContentConfig{}

		if bundle.MaxTokens > 0 {
			config.MaxOutputTokens = int32(bundle.MaxTokens)
		}
		if bundle.Temperature > 0 {
			config.Temperature = genai.Ptr(bundle.Temperature)
		}
		if bundle.System != "" {
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(bundle.System)},
			}
		}

		resp, err := a.client.Models.GenerateContent(ctx, a.descriptor.Model, a.convertTurns(bundle), config)
		if err != nil {
			return nil, normalizeError(err)
		}

		if len(resp.Candidates) == 0 {
			return nil, backend.FromStatusCode(502, "gemini returned no candidates", nil)
		}

		completion := &backend.Completion{}

		if resp.UsageMetadata != nil {
			completion.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
			completion.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}

		candidate := resp.Candidates[0]
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				completion.RawText += part.Text
			}
		}

		return completion, nil
	})
}

// ValidateCredential issues a minimal one-token request to check the key.
func (a *Adapter) ValidateCredential(ctx context.Context) error {
	if a.apiKey == "" {
		return backend.NewConfigurationError("gemini api key not configured")
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText("ping")},
	}}

	_, err := a.client.Models.GenerateContent(ctx, a.descriptor.Model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: 1,
	})
	if err != nil {
		return normalizeError(err)
	}

	return nil
}

// convertTurns maps the bundle to Gemini content. Gemini uses "user" and
// "model" roles; the system prompt travels as SystemInstruction.
func (a *Adapter) convertTurns(bundle domain.PromptBundle) []*genai.Content {
	result := make([]*genai.Content, 0, len(bundle.History)+1)

	for _, turn := range bundle.History {
		role := "user"
		if turn.Role == domain.TurnRoleAssistant {
			role = "model"
		}

		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(turn.Content)},
		})
	}

	result = append(result, &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText(bundle.Directive)},
	})

	return result
}

// normalizeError maps Gemini SDK errors into the shared taxonomy.
func normalizeError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return backend.FromStatusCode(apiErr.Code, fmt.Sprintf("gemini api error: %v", err), err)
	}

	return backend.NewNetworkError(fmt.Errorf("gemini request failed: %w", err))
}
