package pipeline

import (
	"fmt"
	"strings"

	"github.com/weftworks/weft/pkg/backend"
	"github.com/weftworks/weft/pkg/domain"
)

const (
	// maxNodeTypesInPrompt caps the available-node-type list rendered into
	// the system block.
	maxNodeTypesInPrompt = 120

	// charsPerToken mirrors the fixed token approximation used for window
	// budgeting.
	charsPerToken = 4

	// outputReserveTokens is kept free of prompt content so the response has
	// room inside the context window.
	outputReserveTokens = 4096
)

const systemPreamble = `You convert automation descriptions into workflow graphs.
Respond with a single JSON object and nothing else, using this shape:
{
  "name": "workflow name",
  "description": "what the workflow does",
  "nodes": [
    {"id": "unique-id", "name": "display name", "type": "node type", "parameters": {}, "credentials": {}}
  ],
  "connections": {
    "source-node-id": [
      {"sourceOutput": "main", "targetNode": "target-node-id", "targetInput": "main", "targetIndex": 0}
    ]
  }
}
The first node must be a trigger. Every connection must reference node ids that exist.`

// BuildPrompt renders the enriched context and user description into a
// backend-agnostic prompt bundle sized to the selected backend's context
// window. Backend-specific formatting is the adapter's job.
func BuildPrompt(enriched EnrichedContext, description string, opts domain.GenerationOptions, descriptor backend.Descriptor) domain.PromptBundle {
	budget := descriptor.ContextWindow*charsPerToken - outputReserveTokens*charsPerToken

	system := buildSystemBlock(enriched, budget/2)
	directive := fmt.Sprintf("Produce the workflow for this description:\n\n%s", description)

	used := len(system) + len(directive)
	history := truncateHistory(enriched.History, budget-used)

	return domain.PromptBundle{
		System:      system,
		History:     history,
		Directive:   directive,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
}

func buildSystemBlock(enriched EnrichedContext, budget int) string {
	var b strings.Builder
	b.WriteString(systemPreamble)

	if enriched.Target.Version != "" {
		fmt.Fprintf(&b, "\n\nTarget system version: %s", enriched.Target.Version)
	}

	if types := enriched.Target.AvailableNodeTypes; len(types) > 0 {
		if len(types) > maxNodeTypesInPrompt {
			types = types[:maxNodeTypesInPrompt]
		}
		fmt.Fprintf(&b, "\n\nOnly use these node types:\n%s", strings.Join(types, ", "))
	}

	prefs := enriched.Target.Preferences
	if len(prefs.PreferredNodeTypes) > 0 {
		fmt.Fprintf(&b, "\n\nPrefer these node types where applicable: %s", strings.Join(prefs.PreferredNodeTypes, ", "))
	}
	if prefs.Complexity != "" {
		fmt.Fprintf(&b, "\nKeep the workflow %s.", prefs.Complexity)
	}
	if prefs.ErrorHandling {
		b.WriteString("\nInclude error handling paths for nodes that can fail.")
	}

	system := b.String()
	if budget > 0 && len(system) > budget {
		system = system[:budget]
	}

	return system
}

// truncateHistory drops oldest turns first until the rendered history fits
// the remaining character budget.
func truncateHistory(history []domain.Turn, budget int) []domain.Turn {
	if budget <= 0 {
		return nil
	}

	total := 0
	for i := len(history) - 1; i >= 0; i-- {
		total += len(history[i].Content)
		if total > budget {
			return history[i+1:]
		}
	}

	return history
}
