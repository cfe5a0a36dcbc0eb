package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/weftworks/weft/pkg/backend"
	"github.com/weftworks/weft/pkg/domain"
)

// expectedOutputTokens is the output-length assumption fed into per-backend
// cost estimates, scaled by the estimated description complexity.
var expectedOutputTokens = map[domain.Complexity]int{
	domain.ComplexitySimple:  400,
	domain.ComplexityMedium:  800,
	domain.ComplexityComplex: 1600,
}

// ServiceConfig tunes a generation service.
type ServiceConfig struct {
	// PreferredBackend names the backend to favor when it is available.
	PreferredBackend string

	// CallTimeout bounds the backend network round trip. Zero means the
	// default of 120 seconds.
	CallTimeout time.Duration
}

// Service is the generation pipeline: context enrichment, backend
// selection, prompt construction, backend call, parsing, enhancement,
// validation and preview. It holds no per-invocation state; concurrent
// invocations share nothing except each adapter's rate-limit counters.
type Service struct {
	config   ServiceConfig
	adapters map[string]backend.Adapter
	order    []string
}

func NewService(config ServiceConfig) *Service {
	if config.CallTimeout == 0 {
		config.CallTimeout = 120 * time.Second
	}

	return &Service{
		config:   config,
		adapters: make(map[string]backend.Adapter),
	}
}

// RegisterBackend adds an adapter under a stable name. Registration order is
// the deterministic tie-break used during selection.
func (s *Service) RegisterBackend(name string, adapter backend.Adapter) {
	if _, exists := s.adapters[name]; !exists {
		s.order = append(s.order, name)
	}
	s.adapters[name] = adapter
}

// Backends returns registered backend names in registration order.
func (s *Service) Backends() []string {
	return append([]string(nil), s.order...)
}

// Adapter returns a registered adapter by name.
func (s *Service) Adapter(name string) (backend.Adapter, bool) {
	adapter, ok := s.adapters[name]
	return adapter, ok
}

// Generate runs one full pipeline invocation. The caller always receives a
// structured result: stage failures other than parse failures abort the
// remaining stages and surface as success=false with the trace up to the
// failing stage; an unparseable backend response degrades to a placeholder
// workflow and still succeeds.
func (s *Service) Generate(ctx context.Context, req domain.GenerationRequest) *domain.GenerationResult {
	trace := &tracer{}

	// Context enrichment.
	started := time.Now()
	enriched := EnrichContext(req)
	trace.record("context", req.Description, describeAnalysis(enriched.Analysis), domain.TraceStatusSuccess, nil, started)

	// Backend selection.
	started = time.Now()
	selected, err := s.selectBackend(req, enriched)
	if err != nil {
		trace.record("select", "", "", domain.TraceStatusError, err, started)
		return failure(trace, err)
	}
	trace.record("select", "", selected.Name, domain.TraceStatusSuccess, nil, started)

	adapter := s.adapters[selected.Name]
	descriptor := adapter.Descriptor()

	// Prompt construction.
	started = time.Now()
	bundle := BuildPrompt(enriched, req.Description, req.Options, descriptor)
	trace.record("prompt", req.Description, bundle.System, domain.TraceStatusSuccess, nil, started)

	// Backend call, the single I/O suspension point of the pipeline.
	started = time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	completion, err := adapter.Generate(callCtx, bundle)
	cancel()
	if err != nil {
		trace.record("generate", bundle.Directive, "", domain.TraceStatusError, err, started)
		log.Error().Err(err).Str("backend", selected.Name).Msg("backend call failed")
		return failure(trace, err)
	}
	trace.record("generate", bundle.Directive, completion.RawText, domain.TraceStatusSuccess, nil, started)

	log.Debug().
		Str("backend", selected.Name).
		Int("input_tokens", completion.InputTokens).
		Int("output_tokens", completion.OutputTokens).
		Dur("elapsed", completion.Elapsed).
		Msg("backend call completed")

	// Parsing degrades instead of failing.
	started = time.Now()
	workflow := ParseWorkflow(completion.RawText)
	parseStatus := domain.TraceStatusSuccess
	if workflow.Metadata.ParseError {
		parseStatus = domain.TraceStatusWarning
	}
	trace.record("parse", completion.RawText, workflow.Name, parseStatus, nil, started)

	// Enhancement.
	started = time.Now()
	workflow = Enhance(workflow, EnhanceOptions{
		Backend:             descriptor.ID(),
		ConversationID:      req.ConversationID,
		Description:         req.Description,
		EstimatedCost:       descriptor.CostFor(completion.InputTokens, completion.OutputTokens),
		Trace:               trace.list(),
		InjectErrorHandling: req.Target.Preferences.ErrorHandling,
	})
	trace.record("enhance", "", fmt.Sprintf("%d nodes", len(workflow.Nodes)), domain.TraceStatusSuccess, nil, started)

	// Validation findings are data, never aborts.
	started = time.Now()
	validation := Validate(workflow, req.Target)
	validationStatus := domain.TraceStatusSuccess
	if !validation.Valid {
		validationStatus = domain.TraceStatusWarning
	}
	trace.record("validate", "", fmt.Sprintf("%d errors, %d warnings", len(validation.Errors), len(validation.Warnings)), validationStatus, nil, started)

	// Preview.
	started = time.Now()
	preview := BuildPreview(workflow)
	trace.record("preview", "", string(preview.Complexity), domain.TraceStatusSuccess, nil, started)

	return &domain.GenerationResult{
		Success:    true,
		Workflow:   workflow,
		Validation: validation,
		Preview:    preview,
		Trace:      trace.list(),
	}
}

func (s *Service) selectBackend(req domain.GenerationRequest, enriched EnrichedContext) (Candidate, error) {
	if len(s.order) == 0 {
		return Candidate{}, backend.NewConfigurationError("no backend configured")
	}

	outputTokens := expectedOutputTokens[enriched.Analysis.Complexity]

	candidates := make([]Candidate, 0, len(s.order))
	for _, name := range s.order {
		adapter := s.adapters[name]
		candidates = append(candidates, Candidate{
			Name:       name,
			Descriptor: adapter.Descriptor(),
			Snapshot:   adapter.RateLimit(),
			Cost:       adapter.EstimateCost(len(req.Description), outputTokens),
		})
	}

	preferred := req.Options.PreferredBackend
	if preferred == "" {
		preferred = s.config.PreferredBackend
	}

	return SelectBackend(enriched, preferred, req.Options.CostOptimize, candidates)
}

// failure converts a stage error into the structured result contract.
func failure(trace *tracer, err error) *domain.GenerationResult {
	generationErr := &domain.GenerationError{
		Category: string(backend.CategoryConfiguration),
		Message:  err.Error(),
	}

	if backendErr, ok := backend.AsError(err); ok {
		generationErr.Category = string(backendErr.Category)
		generationErr.Recoverable = backendErr.IsRetryable()
		generationErr.RetryAfter = backendErr.RetryAfter
	}

	return &domain.GenerationResult{
		Success: false,
		Trace:   trace.list(),
		Error:   generationErr,
	}
}

func describeAnalysis(a DescriptionAnalysis) string {
	encoded, err := json.Marshal(a)
	if err != nil {
		return string(a.Complexity)
	}
	return string(encoded)
}
