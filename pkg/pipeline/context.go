package pipeline

import (
	"strings"

	"github.com/weftworks/weft/pkg/domain"
)

// historyWindow bounds how many prior conversation turns feed the prompt.
const historyWindow = 8

var integrationKeywords = []string{
	"slack", "github", "gitlab", "gmail", "email", "jira", "discord",
	"telegram", "notion", "stripe", "salesforce", "sheet", "sheets",
	"dropbox", "airtable", "hubspot", "twitter", "linkedin", "api",
	"webhook", "database", "postgres", "mysql", "mongo", "redis", "s3",
}

var controlFlowKeywords = []string{
	"if", "condition", "conditional", "loop", "each", "branch", "switch",
	"filter", "route", "otherwise", "unless", "until", "compare", "merge",
}

var schedulingKeywords = []string{
	"every", "daily", "weekly", "hourly", "monthly", "schedule",
	"scheduled", "cron", "midnight", "interval",
}

// DescriptionAnalysis is the lightweight static analysis of the user's
// description produced by the context processor.
type DescriptionAnalysis struct {
	Words           int               `json:"word_count"`
	HasIntegrations bool              `json:"has_integrations"`
	HasControlFlow  bool              `json:"has_control_flow"`
	HasScheduling   bool              `json:"has_scheduling"`
	Complexity      domain.Complexity `json:"complexity"`
}

// EnrichedContext bundles everything the later stages need: the supplied
// target context, the bounded conversation history and the derived analysis.
type EnrichedContext struct {
	Target   domain.TargetContext
	History  []domain.Turn
	Analysis DescriptionAnalysis
}

// EnrichContext normalizes the request into an enriched context. No network
// or storage I/O happens here; failures are local data errors only.
func EnrichContext(req domain.GenerationRequest) EnrichedContext {
	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	return EnrichedContext{
		Target:   req.Target,
		History:  history,
		Analysis: analyzeDescription(req.Description),
	}
}

func analyzeDescription(description string) DescriptionAnalysis {
	lowered := strings.ToLower(description)
	words := strings.Fields(lowered)

	analysis := DescriptionAnalysis{
		Words:           len(words),
		HasIntegrations: containsKeyword(words, integrationKeywords),
		HasControlFlow:  containsKeyword(words, controlFlowKeywords),
		HasScheduling:   containsKeyword(words, schedulingKeywords),
	}

	analysis.Complexity = estimateComplexity(analysis)

	return analysis
}

// estimateComplexity classifies the description. An integration mention on
// its own does not elevate a short description: "send a Slack message when X
// happens" is still a simple workflow.
func estimateComplexity(a DescriptionAnalysis) domain.Complexity {
	switch {
	case a.Words > 50 || (a.HasIntegrations && a.HasControlFlow):
		return domain.ComplexityComplex
	case a.Words > 20 || a.HasControlFlow || a.HasScheduling:
		return domain.ComplexityMedium
	default:
		return domain.ComplexitySimple
	}
}

func containsKeyword(words []string, keywords []string) bool {
	for _, word := range words {
		trimmed := strings.Trim(word, ".,!?;:'\"()")
		for _, keyword := range keywords {
			if trimmed == keyword {
				return true
			}
		}
	}

	return false
}
