package domain

import "time"

// Complexity classifies how involved a description or a produced workflow is.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// GenerationRequest is the input to a single pipeline invocation. It is
// immutable once submitted.
type GenerationRequest struct {
	Description    string            `json:"description"`
	ConversationID string            `json:"conversation_id"`
	Target         TargetContext     `json:"target"`
	History        []Turn            `json:"history,omitempty"`
	Options        GenerationOptions `json:"options"`
}

type GenerationOptions struct {
	Complexity       Complexity `json:"complexity,omitempty"`
	CostOptimize     bool       `json:"cost_optimize,omitempty"`
	PreferredBackend string     `json:"preferred_backend,omitempty"`
	MaxTokens        int        `json:"max_tokens,omitempty"`
	Temperature      float32    `json:"temperature,omitempty"`
}

// TargetContext describes the system the generated workflow will be imported
// into. It is supplied per request by an external discovery collaborator and
// is not owned by the pipeline.
type TargetContext struct {
	AvailableNodeTypes []string        `json:"available_node_types,omitempty"`
	Version            string          `json:"version,omitempty"`
	Credentials        []string        `json:"credentials,omitempty"`
	Preferences        UserPreferences `json:"preferences"`
}

type UserPreferences struct {
	PreferredNodeTypes []string   `json:"preferred_node_types,omitempty"`
	Complexity         Complexity `json:"complexity,omitempty"`
	ErrorHandling      bool       `json:"error_handling,omitempty"`
}

// Turn is a single prior conversation turn.
type Turn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
	TurnRoleSystem    TurnRole = "system"
)

// PromptBundle is the backend-agnostic structured prompt handed to an
// adapter. Backend-specific wire formatting is the adapter's job.
type PromptBundle struct {
	System      string  `json:"system"`
	History     []Turn  `json:"history,omitempty"`
	Directive   string  `json:"directive"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
}

// GenerationResult is the structured return value of a pipeline invocation.
// The caller is always given a result, never a raw panic or provider error.
type GenerationResult struct {
	Success    bool              `json:"success"`
	Workflow   *Workflow         `json:"workflow,omitempty"`
	Validation *ValidationResult `json:"validation,omitempty"`
	Preview    *Preview          `json:"preview,omitempty"`
	Trace      []TraceEntry      `json:"trace"`
	Error      *GenerationError  `json:"error,omitempty"`
}

// GenerationError carries the failure category plus a recoverability flag so
// upstream surfaces can decide whether to offer a retry action.
type GenerationError struct {
	Category    string        `json:"category"`
	Message     string        `json:"message"`
	Recoverable bool          `json:"recoverable"`
	RetryAfter  time.Duration `json:"retry_after,omitempty"`
}

func (e *GenerationError) Error() string {
	return e.Message
}

// TraceEntry records one executed pipeline stage. The trace list is owned by
// a single generation run and never shared across runs.
type TraceEntry struct {
	Stage     string        `json:"stage"`
	Input     string        `json:"input,omitempty"`
	Output    string        `json:"output,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Status    TraceStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
}

type TraceStatus string

const (
	TraceStatusSuccess TraceStatus = "success"
	TraceStatusWarning TraceStatus = "warning"
	TraceStatusError   TraceStatus = "error"
)
