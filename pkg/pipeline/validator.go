package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron"
	"github.com/weftworks/weft/pkg/domain"
)

// decompositionThreshold is the node count past which the validator suggests
// splitting the workflow.
const decompositionThreshold = 20

var triggerVocabulary = []string{"trigger", "webhook", "manual", "schedule", "cron"}

// Validate runs the structural, node, connection, best-practice and scale
// passes over a workflow against the supplied target context. Overall
// validity is the absence of structure, node and connection errors; warnings
// and suggestions never affect it.
func Validate(workflow *domain.Workflow, target domain.TargetContext) *domain.ValidationResult {
	result := &domain.ValidationResult{
		Compatibility: make(map[string]bool),
	}

	validateStructure(workflow, result)
	validateNodes(workflow, target, result)
	validateConnections(workflow, result)
	validateBestPractices(workflow, result)
	validateScale(workflow, result)

	result.Valid = true
	for _, e := range result.Errors {
		switch e.Category {
		case domain.ValidationCategoryStructure, domain.ValidationCategoryNode, domain.ValidationCategoryConnection:
			result.Valid = false
		}
	}

	return result
}

func validateStructure(workflow *domain.Workflow, result *domain.ValidationResult) {
	if len(workflow.Nodes) == 0 {
		result.Errors = append(result.Errors, domain.ValidationError{
			Category: domain.ValidationCategoryStructure,
			Severity: domain.SeverityError,
			Message:  "workflow has no nodes",
			Fix:      "regenerate with a more specific description",
		})
	}
}

func validateNodes(workflow *domain.Workflow, target domain.TargetContext, result *domain.ValidationResult) {
	available := make(map[string]bool, len(target.AvailableNodeTypes))
	for _, t := range target.AvailableNodeTypes {
		available[t] = true
	}

	for _, node := range workflow.Nodes {
		for _, check := range []struct {
			field string
			value string
		}{
			{"identifier", node.ID},
			{"name", node.Name},
			{"type", node.Type},
		} {
			if check.value == "" {
				result.Errors = append(result.Errors, domain.ValidationError{
					Category: domain.ValidationCategoryNode,
					Severity: domain.SeverityError,
					Message:  fmt.Sprintf("node %q is missing its %s", nodeLabel(node), check.field),
					NodeID:   node.ID,
					Fix:      fmt.Sprintf("set a non-empty %s on the node", check.field),
				})
			}
		}

		if node.Type == "" {
			continue
		}

		// Compatibility is only checkable when the target supplied its
		// capability list.
		if len(available) > 0 && !available[node.Type] {
			result.Compatibility[node.Type] = false
			result.Warnings = append(result.Warnings, domain.ValidationWarning{
				Category:       "best-practice",
				Impact:         domain.ImpactHigh,
				Message:        fmt.Sprintf("node type %q is not available on the target system", node.Type),
				NodeID:         node.ID,
				Recommendation: "replace it with an available node type or install the missing integration",
			})
		} else {
			result.Compatibility[node.Type] = true
		}

		validateSchedule(node, result)
	}
}

// validateSchedule checks the cron expression parameter of
// schedule-classified nodes.
func validateSchedule(node domain.Node, result *domain.ValidationResult) {
	lowered := strings.ToLower(node.Type)
	if !strings.Contains(lowered, "cron") && !strings.Contains(lowered, "schedule") {
		return
	}

	expression, ok := node.Parameters["cronExpression"].(string)
	if !ok || expression == "" {
		return
	}

	if _, err := cron.ParseStandard(expression); err != nil {
		result.Errors = append(result.Errors, domain.ValidationError{
			Category: domain.ValidationCategoryParameter,
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("node %q has an invalid cron expression %q: %v", node.Name, expression, err),
			NodeID:   node.ID,
			Fix:      "use a standard five-field cron expression, e.g. \"0 9 * * 1\"",
		})
	}
}

func validateConnections(workflow *domain.Workflow, result *domain.ValidationResult) {
	sources := make([]string, 0, len(workflow.Connections))
	for source := range workflow.Connections {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		connections := workflow.Connections[source]
		if _, ok := workflow.GetNodeByID(source); !ok {
			result.Errors = append(result.Errors, domain.ValidationError{
				Category: domain.ValidationCategoryConnection,
				Severity: domain.SeverityError,
				Message:  fmt.Sprintf("connection source %q does not name a node in the workflow", source),
				Fix:      "remove the connection or point it at an existing node",
			})
		}

		for _, conn := range connections {
			if _, ok := workflow.GetNodeByID(conn.TargetNode); !ok {
				result.Errors = append(result.Errors, domain.ValidationError{
					Category: domain.ValidationCategoryConnection,
					Severity: domain.SeverityError,
					Message:  fmt.Sprintf("connection target %q does not name a node in the workflow", conn.TargetNode),
					Fix:      "remove the connection or point it at an existing node",
				})
			}
		}
	}
}

func validateBestPractices(workflow *domain.Workflow, result *domain.ValidationResult) {
	if len(workflow.Nodes) == 0 {
		return
	}

	for _, node := range workflow.Nodes {
		if isTriggerType(node.Type) {
			return
		}
	}

	result.Warnings = append(result.Warnings, domain.ValidationWarning{
		Category:       "best-practice",
		Impact:         domain.ImpactMedium,
		Message:        "workflow has no trigger node",
		Recommendation: "add a manual, webhook or schedule trigger so the workflow can start",
	})
}

func validateScale(workflow *domain.Workflow, result *domain.ValidationResult) {
	if len(workflow.Nodes) <= decompositionThreshold {
		return
	}

	result.Suggestions = append(result.Suggestions, domain.ValidationSuggestion{
		Category: "optimization",
		Message: fmt.Sprintf("workflow has %d nodes; consider decomposing it into smaller sub-workflows",
			len(workflow.Nodes)),
	})
}

func isTriggerType(nodeType string) bool {
	lowered := strings.ToLower(nodeType)
	for _, keyword := range triggerVocabulary {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}

	return false
}

func nodeLabel(node domain.Node) string {
	if node.Name != "" {
		return node.Name
	}
	if node.ID != "" {
		return node.ID
	}
	return "unnamed"
}
