package backend

import (
	"context"
	"time"

	"github.com/weftworks/weft/pkg/domain"
)

// Adapter is the contract every generation backend implements. Each concrete
// adapter owns its provider wire format but normalizes responses to a
// Completion and failures to a categorized *Error.
type Adapter interface {
	// Generate renders the bundle into the provider's wire format, issues one
	// generation request and returns the raw text plus usage accounting.
	Generate(ctx context.Context, bundle domain.PromptBundle) (*Completion, error)

	// ValidateCredential performs a minimal live call to check the configured
	// API key.
	ValidateCredential(ctx context.Context) error

	// RateLimit returns a snapshot of the adapter's rolling-window budget.
	RateLimit() RateLimitSnapshot

	// EstimateCost predicts the cost of a call from the input size and the
	// expected output length, using the descriptor's unit rates.
	EstimateCost(inputChars, expectedOutputTokens int) float64

	// Descriptor returns the static configuration of this backend.
	Descriptor() Descriptor
}

// Completion is a normalized generation response.
type Completion struct {
	RawText      string
	InputTokens  int
	OutputTokens int
	Elapsed      time.Duration
}

// Descriptor is the static configuration of a backend: identity, context
// window, unit costs and rate-limit window sizes.
type Descriptor struct {
	Provider          string
	Model             string
	ContextWindow     int
	InputCostPer1K    float64
	OutputCostPer1K   float64
	RequestsPerWindow int
	TokensPerWindow   int
	Window            time.Duration
	StrongReasoning   bool
}

// ID returns the provider-qualified model identifier.
func (d Descriptor) ID() string {
	return d.Provider + ":" + d.Model
}

// CostFor computes the cost of a call from its token counts.
func (d Descriptor) CostFor(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*d.InputCostPer1K + float64(outputTokens)/1000*d.OutputCostPer1K
}

// charsPerToken is the fixed approximation used everywhere a character count
// has to be converted into a token budget.
const charsPerToken = 4

// EstimateTokens approximates the token count of a text by its length.
func EstimateTokens(chars int) int {
	return chars / charsPerToken
}

// EstimateCost predicts the cost of a call against the given descriptor.
func EstimateCost(d Descriptor, inputChars, expectedOutputTokens int) float64 {
	return d.CostFor(EstimateTokens(inputChars), expectedOutputTokens)
}
