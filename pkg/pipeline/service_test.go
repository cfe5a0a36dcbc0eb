package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weftworks/weft/pkg/backend"
	"github.com/weftworks/weft/pkg/domain"
)

// fakeAdapter is an in-memory backend for pipeline tests.
type fakeAdapter struct {
	descriptor backend.Descriptor
	snapshot   backend.RateLimitSnapshot
	response   string
	err        error
	calls      int
}

func (f *fakeAdapter) Generate(ctx context.Context, bundle domain.PromptBundle) (*backend.Completion, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	return &backend.Completion{
		RawText:      f.response,
		InputTokens:  120,
		OutputTokens: 80,
		Elapsed:      25 * time.Millisecond,
	}, nil
}

func (f *fakeAdapter) ValidateCredential(ctx context.Context) error { return nil }

func (f *fakeAdapter) RateLimit() backend.RateLimitSnapshot { return f.snapshot }

func (f *fakeAdapter) EstimateCost(inputChars, expectedOutputTokens int) float64 {
	return f.descriptor.CostFor(inputChars/4, expectedOutputTokens)
}

func (f *fakeAdapter) Descriptor() backend.Descriptor { return f.descriptor }

func newFakeAdapter(provider string, response string) *fakeAdapter {
	return &fakeAdapter{
		descriptor: backend.Descriptor{
			Provider:        provider,
			Model:           provider + "-test-model",
			ContextWindow:   200000,
			InputCostPer1K:  0.003,
			OutputCostPer1K: 0.015,
		},
		snapshot: backend.RateLimitSnapshot{
			RequestsRemaining: 10,
			TokensRemaining:   50000,
			ResetsAt:          time.Now().Add(time.Minute),
		},
		response: response,
	}
}

func newTestService(adapters map[string]*fakeAdapter, names ...string) *Service {
	service := NewService(ServiceConfig{})
	for _, name := range names {
		service.RegisterBackend(name, adapters[name])
	}
	return service
}

func TestServiceGenerate_HappyPath(t *testing.T) {
	adapter := newFakeAdapter("anthropic", validWorkflowJSON)
	service := newTestService(map[string]*fakeAdapter{"anthropic": adapter}, "anthropic")

	result := service.Generate(context.Background(), domain.GenerationRequest{
		Description:    "when a github issue is opened, post it to slack",
		ConversationID: "conv-42",
		Target: domain.TargetContext{
			AvailableNodeTypes: []string{"githubTrigger", "slack"},
		},
	})

	require.True(t, result.Success)
	require.NotNil(t, result.Workflow)
	assert.Nil(t, result.Error)

	assert.Equal(t, "Issue Notifier", result.Workflow.Name)
	assert.Equal(t, 1, adapter.calls)
	assert.False(t, result.Workflow.Metadata.ParseError)
	assert.Equal(t, "conv-42", result.Workflow.Metadata.ConversationID)
	assert.Equal(t, "anthropic:anthropic-test-model", result.Workflow.Metadata.GeneratedBy)
	assert.Greater(t, result.Workflow.Metadata.EstimatedCost, 0.0)

	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.Valid)
	require.NotNil(t, result.Preview)
	assert.Equal(t, 2, result.Preview.NodeCount)

	stages := make([]string, 0, len(result.Trace))
	for _, entry := range result.Trace {
		stages = append(stages, entry.Stage)
	}
	assert.Equal(t, []string{"context", "select", "prompt", "generate", "parse", "enhance", "validate", "preview"}, stages)
}

func TestServiceGenerate_UnparseableResponseStillSucceeds(t *testing.T) {
	adapter := newFakeAdapter("anthropic", "Sure! Here is an outline of what I would build for you.")
	service := newTestService(map[string]*fakeAdapter{"anthropic": adapter}, "anthropic")

	result := service.Generate(context.Background(), domain.GenerationRequest{
		Description: "notify slack on new issues",
	})

	require.True(t, result.Success)
	require.NotNil(t, result.Workflow)
	assert.True(t, result.Workflow.Metadata.ParseError)
	assert.InDelta(t, 0.1, result.Workflow.Metadata.Confidence, 1e-9)
	assert.NotEmpty(t, result.Workflow.Metadata.RawResponse)

	require.Len(t, result.Workflow.Nodes, 1)
	assert.Equal(t, "manualTrigger", result.Workflow.Nodes[0].Type)

	var parseEntry *domain.TraceEntry
	for i := range result.Trace {
		if result.Trace[i].Stage == "parse" {
			parseEntry = &result.Trace[i]
		}
	}
	require.NotNil(t, parseEntry)
	assert.Equal(t, domain.TraceStatusWarning, parseEntry.Status)
}

func TestServiceGenerate_AllBackendsExhausted(t *testing.T) {
	adapter := newFakeAdapter("anthropic", validWorkflowJSON)
	adapter.snapshot = backend.RateLimitSnapshot{
		RequestsRemaining: 0,
		TokensRemaining:   0,
		ResetsAt:          time.Now().Add(30 * time.Second),
	}
	service := newTestService(map[string]*fakeAdapter{"anthropic": adapter}, "anthropic")

	result := service.Generate(context.Background(), domain.GenerationRequest{
		Description: "notify slack on new issues",
	})

	require.False(t, result.Success)
	assert.Nil(t, result.Workflow)
	require.NotNil(t, result.Error)
	assert.Equal(t, string(backend.CategoryConfiguration), result.Error.Category)
	assert.Zero(t, adapter.calls)

	// The trace still records everything up to the failing stage.
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "select", result.Trace[1].Stage)
	assert.Equal(t, domain.TraceStatusError, result.Trace[1].Status)
}

func TestServiceGenerate_BackendErrorSurfacesCategory(t *testing.T) {
	adapter := newFakeAdapter("anthropic", "")
	adapter.err = backend.NewRateLimitError("requests exhausted", 30*time.Second)
	service := newTestService(map[string]*fakeAdapter{"anthropic": adapter}, "anthropic")

	result := service.Generate(context.Background(), domain.GenerationRequest{
		Description: "notify slack on new issues",
	})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, string(backend.CategoryRateLimit), result.Error.Category)
	assert.True(t, result.Error.Recoverable)
	assert.Equal(t, 30*time.Second, result.Error.RetryAfter)
}

func TestServiceGenerate_PrefersRequestedBackend(t *testing.T) {
	adapters := map[string]*fakeAdapter{
		"anthropic": newFakeAdapter("anthropic", validWorkflowJSON),
		"openai":    newFakeAdapter("openai", validWorkflowJSON),
	}
	service := newTestService(adapters, "anthropic", "openai")

	result := service.Generate(context.Background(), domain.GenerationRequest{
		Description: "notify slack on new issues",
		Options:     domain.GenerationOptions{PreferredBackend: "openai"},
	})

	require.True(t, result.Success)
	assert.Zero(t, adapters["anthropic"].calls)
	assert.Equal(t, 1, adapters["openai"].calls)
	assert.Equal(t, "openai:openai-test-model", result.Workflow.Metadata.GeneratedBy)
}

func TestServiceGenerate_NoBackendConfigured(t *testing.T) {
	service := NewService(ServiceConfig{})

	result := service.Generate(context.Background(), domain.GenerationRequest{Description: "anything"})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, string(backend.CategoryConfiguration), result.Error.Category)
}

func TestServiceBackends_RegistrationOrder(t *testing.T) {
	adapters := map[string]*fakeAdapter{
		"gemini":    newFakeAdapter("gemini", ""),
		"anthropic": newFakeAdapter("anthropic", ""),
	}
	service := newTestService(adapters, "gemini", "anthropic")

	assert.Equal(t, []string{"gemini", "anthropic"}, service.Backends())

	adapter, ok := service.Adapter("gemini")
	require.True(t, ok)
	assert.Equal(t, "gemini", adapter.Descriptor().Provider)
}
