package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weftworks/weft/pkg/domain"
)

func sampleGraph() *domain.Workflow {
	return &domain.Workflow{
		Name: "Issue Notifier",
		Nodes: []domain.Node{
			{ID: "trigger-1", Name: "GitHub Trigger", Type: "githubTrigger"},
			{ID: "slack-1", Name: "Post to Slack", Type: "slack"},
		},
		Connections: map[string][]domain.Connection{
			"trigger-1": {{TargetNode: "slack-1"}},
		},
		Metadata: domain.WorkflowMetadata{Confidence: 0.9},
	}
}

func sampleOptions() EnhanceOptions {
	return EnhanceOptions{
		Backend:        "anthropic:claude-sonnet-4-20250514",
		ConversationID: "conv-1",
		Description:    "Post new GitHub issues to Slack",
		EstimatedCost:  0.004,
		Timestamp:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEnhance_Idempotent(t *testing.T) {
	opts := sampleOptions()
	opts.InjectErrorHandling = true

	first := Enhance(sampleGraph(), opts)
	firstEncoded, err := json.Marshal(first)
	require.NoError(t, err)

	second := Enhance(first, opts)
	secondEncoded, err := json.Marshal(second)
	require.NoError(t, err)

	assert.JSONEq(t, string(firstEncoded), string(secondEncoded))
}

func TestEnhance_StampsProvenance(t *testing.T) {
	workflow := Enhance(sampleGraph(), sampleOptions())

	meta := workflow.Metadata
	assert.Equal(t, "anthropic:claude-sonnet-4-20250514", meta.GeneratedBy)
	assert.Equal(t, "conv-1", meta.ConversationID)
	assert.Equal(t, "Post new GitHub issues to Slack", meta.Source)
	assert.Equal(t, "issue-notifier", meta.Slug)
	assert.InDelta(t, 0.004, meta.EstimatedCost, 1e-9)
	assert.Equal(t, sampleOptions().Timestamp, meta.GeneratedAt)
	assert.NotEmpty(t, workflow.ID)
}

func TestEnhance_GridLayout(t *testing.T) {
	workflow := &domain.Workflow{
		Name:        "Big",
		Connections: map[string][]domain.Connection{},
	}
	for i := 0; i < 6; i++ {
		workflow.Nodes = append(workflow.Nodes, domain.Node{
			ID:   string(rune('a' + i)),
			Name: "Node",
			Type: "noOp",
		})
	}

	Enhance(workflow, sampleOptions())

	// Columns fill top to bottom, wrapping after nodesPerColumn nodes.
	assert.Equal(t, domain.Position{X: layoutOriginX, Y: layoutOriginY}, workflow.Nodes[0].Position)
	assert.Equal(t, domain.Position{X: layoutOriginX, Y: layoutOriginY + 3*rowSpacing}, workflow.Nodes[3].Position)
	assert.Equal(t, domain.Position{X: layoutOriginX + columnSpacing, Y: layoutOriginY}, workflow.Nodes[4].Position)
}

func TestEnhance_KeepsExistingPositions(t *testing.T) {
	workflow := sampleGraph()
	workflow.Nodes[0].Position = domain.Position{X: 500, Y: 300}

	Enhance(workflow, sampleOptions())

	assert.Equal(t, domain.Position{X: 500, Y: 300}, workflow.Nodes[0].Position)
}

func TestEnhance_InjectsErrorHandlers(t *testing.T) {
	opts := sampleOptions()
	opts.InjectErrorHandling = true

	workflow := Enhance(sampleGraph(), opts)

	// The slack node is fallible; the trigger is not.
	require.Len(t, workflow.Nodes, 3)
	handler := workflow.Nodes[2]
	assert.Equal(t, errorHandlerType, handler.Type)
	assert.Equal(t, "Post to Slack Error Handler", handler.Name)

	var errorConn *domain.Connection
	for _, conn := range workflow.Connections["slack-1"] {
		if conn.SourceOutput == errorOutputPort {
			errorConn = &conn
			break
		}
	}
	require.NotNil(t, errorConn)
	assert.Equal(t, handler.ID, errorConn.TargetNode)
}

func TestEnhance_ErrorHandlingNoOpWithoutFallibleNodes(t *testing.T) {
	workflow := &domain.Workflow{
		Name: "Pure Logic",
		Nodes: []domain.Node{
			{ID: "a", Name: "Manual", Type: "manualTrigger"},
			{ID: "b", Name: "Branch", Type: "switch"},
		},
		Connections: map[string][]domain.Connection{},
	}

	opts := sampleOptions()
	opts.InjectErrorHandling = true
	Enhance(workflow, opts)

	assert.Len(t, workflow.Nodes, 2)
}

func TestEnhance_NormalizesNameReferences(t *testing.T) {
	workflow := &domain.Workflow{
		Name: "Named Refs",
		Nodes: []domain.Node{
			{ID: "trigger-1", Name: "GitHub Trigger", Type: "githubTrigger"},
			{ID: "slack-1", Name: "Post to Slack", Type: "slack"},
		},
		Connections: map[string][]domain.Connection{
			"GitHub Trigger": {{TargetNode: "Post to Slack"}},
		},
	}

	Enhance(workflow, sampleOptions())

	require.Contains(t, workflow.Connections, "trigger-1")
	conn := workflow.Connections["trigger-1"][0]
	assert.Equal(t, "slack-1", conn.TargetNode)
	assert.Equal(t, defaultPort, conn.SourceOutput)
	assert.Equal(t, defaultPort, conn.TargetInput)
}

func TestEnhance_AnnotatesUnnotedNodes(t *testing.T) {
	workflow := sampleGraph()
	workflow.Nodes[0].Notes = "already noted"

	Enhance(workflow, sampleOptions())

	assert.Equal(t, "already noted", workflow.Nodes[0].Notes)
	assert.Contains(t, workflow.Nodes[1].Notes, "Post new GitHub issues to Slack")
}
