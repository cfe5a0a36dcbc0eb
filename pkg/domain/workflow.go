package domain

import (
	"errors"
	"time"
)

var (
	ErrNodeNotFound = errors.New("node not found")
)

// Workflow is the generated automation artifact: nodes plus directed
// connections plus provenance metadata.
type Workflow struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Nodes       []Node                  `json:"nodes"`
	Connections map[string][]Connection `json:"connections"`
	Metadata    WorkflowMetadata        `json:"metadata"`
}

// IsWellFormed reports whether every connection references a node present in
// the node list and every node carries an identifier, name and type.
func (w Workflow) IsWellFormed() bool {
	for _, node := range w.Nodes {
		if node.ID == "" || node.Name == "" || node.Type == "" {
			return false
		}
	}

	for sourceID, connections := range w.Connections {
		if _, ok := w.GetNodeByID(sourceID); !ok {
			return false
		}

		for _, conn := range connections {
			if _, ok := w.GetNodeByID(conn.TargetNode); !ok {
				return false
			}
		}
	}

	return true
}

func (w Workflow) GetNodeByID(nodeID string) (Node, bool) {
	for _, node := range w.Nodes {
		if node.ID == nodeID {
			return node, true
		}
	}

	return Node{}, false
}

func (w Workflow) GetNodeByName(name string) (Node, bool) {
	for _, node := range w.Nodes {
		if node.Name == name {
			return node, true
		}
	}

	return Node{}, false
}

// Node is a typed unit of work within a workflow. The type identifier is
// opaque to the generation pipeline.
type Node struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	TypeVersion int               `json:"typeVersion,omitempty"`
	Position    Position          `json:"position"`
	Parameters  map[string]any    `json:"parameters,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
	Disabled    bool              `json:"disabled,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Connection is a directed edge from a node's named output port to a
// destination node's named input port and index. The connection map is keyed
// by source node identifier; multiple parallel edges per port are permitted.
type Connection struct {
	SourceOutput string `json:"sourceOutput"`
	TargetNode   string `json:"targetNode"`
	TargetInput  string `json:"targetInput"`
	TargetIndex  int    `json:"targetIndex"`
}

// WorkflowMetadata records the provenance of a generated workflow.
type WorkflowMetadata struct {
	GeneratedBy    string       `json:"generatedBy,omitempty"`
	GeneratedAt    time.Time    `json:"generatedAt,omitzero"`
	ConversationID string       `json:"conversationId,omitempty"`
	Source         string       `json:"source,omitempty"`
	Slug           string       `json:"slug,omitempty"`
	Confidence     float64      `json:"confidence,omitempty"`
	EstimatedCost  float64      `json:"estimatedCost,omitempty"`
	ParseError     bool         `json:"parseError,omitempty"`
	RawResponse    string       `json:"rawResponse,omitempty"`
	Trace          []TraceEntry `json:"trace,omitempty"`
}
