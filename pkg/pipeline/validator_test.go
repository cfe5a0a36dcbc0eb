package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weftworks/weft/pkg/domain"
)

func TestValidate_EmptyNodeListIsStructureError(t *testing.T) {
	tests := []struct {
		name     string
		workflow *domain.Workflow
	}{
		{"nil nodes", &domain.Workflow{Name: "Empty"}},
		{"empty nodes", &domain.Workflow{Name: "Empty", Nodes: []domain.Node{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.workflow, domain.TargetContext{})

			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)
			assert.Equal(t, domain.ValidationCategoryStructure, result.Errors[0].Category)
		})
	}
}

func TestValidate_MinimalTwoNodeGraphIsValid(t *testing.T) {
	workflow := &domain.Workflow{
		Name: "Issue Notifier",
		Nodes: []domain.Node{
			{ID: "trigger-1", Name: "GitHub Trigger", Type: "githubTrigger"},
			{ID: "slack-1", Name: "Post to Slack", Type: "slack"},
		},
		Connections: map[string][]domain.Connection{
			"trigger-1": {{SourceOutput: "main", TargetNode: "slack-1", TargetInput: "main"}},
		},
	}

	// Empty available-node-type set: compatibility is not checkable.
	result := Validate(workflow, domain.TargetContext{})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.True(t, result.Compatibility["githubTrigger"])
	assert.True(t, result.Compatibility["slack"])
}

func TestValidate_MissingNodeFields(t *testing.T) {
	workflow := &domain.Workflow{
		Name: "Broken",
		Nodes: []domain.Node{
			{ID: "a", Name: "", Type: "noOp"},
			{ID: "", Name: "B", Type: ""},
		},
	}

	result := Validate(workflow, domain.TargetContext{})

	assert.False(t, result.Valid)

	var nodeErrors []domain.ValidationError
	for _, e := range result.Errors {
		if e.Category == domain.ValidationCategoryNode {
			nodeErrors = append(nodeErrors, e)
		}
	}
	require.Len(t, nodeErrors, 3)
	for _, e := range nodeErrors {
		assert.NotEmpty(t, e.Fix)
	}
}

func TestValidate_UnknownNodeTypeWarnsOncePerNode(t *testing.T) {
	workflow := &domain.Workflow{
		Name: "Partial",
		Nodes: []domain.Node{
			{ID: "a", Name: "Known", Type: "slack"},
			{ID: "b", Name: "Unknown 1", Type: "telegram"},
			{ID: "c", Name: "Unknown 2", Type: "telegram"},
		},
	}

	target := domain.TargetContext{AvailableNodeTypes: []string{"slack"}}
	result := Validate(workflow, target)

	// Warnings never affect validity.
	assert.True(t, result.Valid)
	assert.False(t, result.Compatibility["telegram"])
	assert.True(t, result.Compatibility["slack"])

	var incompatibleWarnings int
	for _, w := range result.Warnings {
		if w.Impact == domain.ImpactHigh {
			incompatibleWarnings++
			assert.Equal(t, "best-practice", w.Category)
		}
	}
	assert.Equal(t, 2, incompatibleWarnings, "exactly one warning per incompatible node")
}

func TestValidate_DanglingConnectionTarget(t *testing.T) {
	workflow := &domain.Workflow{
		Name: "Dangling",
		Nodes: []domain.Node{
			{ID: "a", Name: "A", Type: "manualTrigger"},
		},
		Connections: map[string][]domain.Connection{
			"a": {{TargetNode: "ghost"}},
		},
	}

	result := Validate(workflow, domain.TargetContext{})

	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, domain.ValidationCategoryConnection, result.Errors[0].Category)
}

func TestValidate_MissingTriggerWarns(t *testing.T) {
	workflow := &domain.Workflow{
		Name: "No Trigger",
		Nodes: []domain.Node{
			{ID: "a", Name: "A", Type: "slack"},
		},
	}

	result := Validate(workflow, domain.TargetContext{})

	assert.True(t, result.Valid)
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, domain.ImpactMedium, result.Warnings[0].Impact)
}

func TestValidate_LargeWorkflowSuggestsDecomposition(t *testing.T) {
	workflow := &domain.Workflow{Name: "Huge"}
	for i := 0; i < 25; i++ {
		workflow.Nodes = append(workflow.Nodes, domain.Node{
			ID:   fmt.Sprintf("node-%d", i),
			Name: fmt.Sprintf("Node %d", i),
			Type: "noOp",
		})
	}
	workflow.Nodes[0].Type = "manualTrigger"

	result := Validate(workflow, domain.TargetContext{})

	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, "optimization", result.Suggestions[0].Category)
}

func TestValidate_CronExpression(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantError  bool
	}{
		{"valid five field", "0 9 * * 1", false},
		{"valid wildcard", "* * * * *", false},
		{"invalid field count", "0 9 *", true},
		{"nonsense", "tomorrow at nine", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := &domain.Workflow{
				Name: "Scheduled",
				Nodes: []domain.Node{
					{
						ID:   "cron-1",
						Name: "Every Monday",
						Type: "scheduleTrigger",
						Parameters: map[string]any{
							"cronExpression": tt.expression,
						},
					},
				},
			}

			result := Validate(workflow, domain.TargetContext{})

			var hasParameterError bool
			for _, e := range result.Errors {
				if e.Category == domain.ValidationCategoryParameter {
					hasParameterError = true
				}
			}
			assert.Equal(t, tt.wantError, hasParameterError)

			// Parameter findings never affect structural validity.
			assert.True(t, result.Valid)
		})
	}
}
