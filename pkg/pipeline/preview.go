package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/weftworks/weft/pkg/domain"
)

const (
	previewBaseDuration    = 5 * time.Second
	previewPerNodeDuration = 2 * time.Second
)

// categoryKeywords maps type-name keywords to preview categories. The
// longest matching keyword wins, so "webhook" beats "web" style collisions;
// anything unmatched lands in utility.
var categoryKeywords = map[string]domain.NodeCategory{
	"trigger":  domain.CategoryTrigger,
	"webhook":  domain.CategoryTrigger,
	"cron":     domain.CategoryTrigger,
	"schedule": domain.CategoryTrigger,
	"manual":   domain.CategoryTrigger,
	"poll":     domain.CategoryTrigger,

	"http":    domain.CategoryHTTP,
	"request": domain.CategoryHTTP,
	"graphql": domain.CategoryHTTP,

	"postgres":  domain.CategoryDatabase,
	"mysql":     domain.CategoryDatabase,
	"mongo":     domain.CategoryDatabase,
	"redis":     domain.CategoryDatabase,
	"database":  domain.CategoryDatabase,
	"sql":       domain.CategoryDatabase,
	"snowflake": domain.CategoryDatabase,

	"slack":    domain.CategoryCommunication,
	"email":    domain.CategoryCommunication,
	"gmail":    domain.CategoryCommunication,
	"discord":  domain.CategoryCommunication,
	"telegram": domain.CategoryCommunication,
	"teams":    domain.CategoryCommunication,
	"sms":      domain.CategoryCommunication,

	"github":     domain.CategoryIntegration,
	"gitlab":     domain.CategoryIntegration,
	"jira":       domain.CategoryIntegration,
	"notion":     domain.CategoryIntegration,
	"stripe":     domain.CategoryIntegration,
	"salesforce": domain.CategoryIntegration,
	"sheet":      domain.CategoryIntegration,
	"drive":      domain.CategoryIntegration,
	"dropbox":    domain.CategoryIntegration,
	"s3":         domain.CategoryIntegration,

	"if":        domain.CategoryLogic,
	"switch":    domain.CategoryLogic,
	"filter":    domain.CategoryLogic,
	"merge":     domain.CategoryLogic,
	"router":    domain.CategoryLogic,
	"condition": domain.CategoryLogic,

	"transform": domain.CategoryTransform,
	"set":       domain.CategoryTransform,
	"code":      domain.CategoryTransform,
	"function":  domain.CategoryTransform,
	"json":      domain.CategoryTransform,
	"xml":       domain.CategoryTransform,
	"split":     domain.CategoryTransform,
	"aggregate": domain.CategoryTransform,
}

// BuildPreview derives the human-facing digest from a finished workflow
// graph. Its complexity class reflects the produced graph, intentionally
// independent of the description-based estimate made before generation.
func BuildPreview(workflow *domain.Workflow) *domain.Preview {
	categories := make(map[domain.NodeCategory]int)
	for _, node := range workflow.Nodes {
		categories[categorizeNodeType(node.Type)]++
	}

	complexity := graphComplexity(len(workflow.Nodes), len(categories))

	return &domain.Preview{
		NodeCount:         len(workflow.Nodes),
		Complexity:        complexity,
		EstimatedDuration: estimateDuration(len(workflow.Nodes), complexity),
		Trigger:           classifyTrigger(workflow),
		Credentials:       collectCredentials(workflow),
		Steps:             mainSteps(workflow),
		Categories:        categories,
	}
}

// categorizeNodeType buckets a node type by its longest matching keyword.
func categorizeNodeType(nodeType string) domain.NodeCategory {
	lowered := strings.ToLower(nodeType)

	best := domain.CategoryUtility
	bestLen := 0
	for keyword, category := range categoryKeywords {
		if len(keyword) > bestLen && strings.Contains(lowered, keyword) {
			best = category
			bestLen = len(keyword)
		}
	}

	return best
}

func graphComplexity(nodeCount, categoryCount int) domain.Complexity {
	switch {
	case nodeCount > 10 || categoryCount > 4:
		return domain.ComplexityComplex
	case nodeCount > 5 || categoryCount > 2:
		return domain.ComplexityMedium
	default:
		return domain.ComplexitySimple
	}
}

func estimateDuration(nodeCount int, complexity domain.Complexity) time.Duration {
	multiplier := 1.0
	switch complexity {
	case domain.ComplexityMedium:
		multiplier = 1.5
	case domain.ComplexityComplex:
		multiplier = 2.0
	}

	perNode := time.Duration(float64(previewPerNodeDuration) * multiplier)

	return previewBaseDuration + time.Duration(nodeCount)*perNode
}

// classifyTrigger inspects the first node matching the trigger vocabulary,
// defaulting to manual when the graph has none.
func classifyTrigger(workflow *domain.Workflow) domain.TriggerKind {
	for _, node := range workflow.Nodes {
		if !isTriggerType(node.Type) {
			continue
		}

		lowered := strings.ToLower(node.Type)
		switch {
		case strings.Contains(lowered, "webhook"):
			return domain.TriggerWebhook
		case strings.Contains(lowered, "cron") || strings.Contains(lowered, "schedule"):
			return domain.TriggerScheduled
		case strings.Contains(lowered, "manual"):
			return domain.TriggerManual
		default:
			return domain.TriggerEvent
		}
	}

	return domain.TriggerManual
}

func collectCredentials(workflow *domain.Workflow) []string {
	seen := make(map[string]bool)
	for _, node := range workflow.Nodes {
		for key := range node.Credentials {
			seen[key] = true
		}
	}

	if len(seen) == 0 {
		return nil
	}

	credentials := make([]string, 0, len(seen))
	for key := range seen {
		credentials = append(credentials, key)
	}
	sort.Strings(credentials)

	return credentials
}

// mainSteps summarizes the workflow as its first few node names.
func mainSteps(workflow *domain.Workflow) []string {
	const maxSteps = 5

	steps := make([]string, 0, maxSteps)
	for _, node := range workflow.Nodes {
		if node.Disabled {
			continue
		}

		steps = append(steps, node.Name)
		if len(steps) == maxSteps {
			break
		}
	}

	return steps
}
