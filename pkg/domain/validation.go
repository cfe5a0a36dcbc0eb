package domain

// ValidationCategory tags where a validation finding came from.
type ValidationCategory string

const (
	ValidationCategoryStructure  ValidationCategory = "structure"
	ValidationCategoryNode       ValidationCategory = "node"
	ValidationCategoryConnection ValidationCategory = "connection"
	ValidationCategoryParameter  ValidationCategory = "parameter"
	ValidationCategoryCredential ValidationCategory = "credential"
)

type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

type ValidationImpact string

const (
	ImpactHigh   ValidationImpact = "high"
	ImpactMedium ValidationImpact = "medium"
	ImpactLow    ValidationImpact = "low"
)

// ValidationResult holds every finding produced by the validator. Warnings
// and suggestions never affect overall validity.
type ValidationResult struct {
	Valid         bool                   `json:"valid"`
	Errors        []ValidationError      `json:"errors,omitempty"`
	Warnings      []ValidationWarning    `json:"warnings,omitempty"`
	Suggestions   []ValidationSuggestion `json:"suggestions,omitempty"`
	Compatibility map[string]bool        `json:"compatibility,omitempty"`
}

type ValidationError struct {
	Category ValidationCategory `json:"category"`
	Severity ValidationSeverity `json:"severity"`
	Message  string             `json:"message"`
	NodeID   string             `json:"node_id,omitempty"`
	Fix      string             `json:"fix,omitempty"`
}

type ValidationWarning struct {
	Category       string           `json:"category"`
	Impact         ValidationImpact `json:"impact"`
	Message        string           `json:"message"`
	NodeID         string           `json:"node_id,omitempty"`
	Recommendation string           `json:"recommendation,omitempty"`
}

type ValidationSuggestion struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}
