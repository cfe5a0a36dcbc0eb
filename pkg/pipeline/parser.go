package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/weftworks/weft/pkg/domain"
)

const (
	// parsedConfidence is stamped on workflows decoded from a well-formed
	// backend response.
	parsedConfidence = 0.9

	// degradedConfidence is stamped on the placeholder workflow synthesized
	// when no recovery strategy produced a usable graph.
	degradedConfidence = 0.1
)

// workflowSchema is the strict shape a backend response must satisfy before
// it is decoded. The node list itself may be empty; an empty graph is a
// validator finding, not a parse failure.
const workflowSchema = `{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string"},
    "description": {"type": "string"},
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type"],
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string"},
          "type": {"type": "string"},
          "typeVersion": {"type": "integer"},
          "position": {"type": "array", "items": {"type": "number"}},
          "parameters": {"type": "object"},
          "credentials": {"type": "object"},
          "notes": {"type": "string"},
          "disabled": {"type": "boolean"}
        }
      }
    },
    "connections": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["targetNode"],
          "properties": {
            "sourceOutput": {"type": "string"},
            "targetNode": {"type": "string"},
            "targetInput": {"type": "string"},
            "targetIndex": {"type": "integer"}
          }
        }
      }
    }
  }
}`

var compiledWorkflowSchema = jsonschema.MustCompileString("workflow.schema.json", workflowSchema)

type wireWorkflow struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Nodes       []wireNode               `json:"nodes"`
	Connections map[string][]wireConnect `json:"connections"`
}

type wireNode struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	TypeVersion int               `json:"typeVersion"`
	Position    []float64         `json:"position"`
	Parameters  map[string]any    `json:"parameters"`
	Credentials map[string]string `json:"credentials"`
	Notes       string            `json:"notes"`
	Disabled    bool              `json:"disabled"`
}

type wireConnect struct {
	SourceOutput string `json:"sourceOutput"`
	TargetNode   string `json:"targetNode"`
	TargetInput  string `json:"targetInput"`
	TargetIndex  int    `json:"targetIndex"`
}

// ParseWorkflow extracts a workflow graph from a backend's raw text. It
// never fails: candidate extraction runs through a bounded ladder of
// recovery strategies (strict whole-text decode, fenced code block, first
// balanced brace span), each validated against the workflow schema. When no
// strategy yields a usable graph the result is a degraded single-node
// placeholder carrying the raw text, so the caller still receives an
// importable artifact and full visibility into what the backend said.
func ParseWorkflow(raw string) *domain.Workflow {
	for _, extract := range []func(string) (string, bool){
		extractWholeText,
		extractFencedBlock,
		extractBraceSpan,
	} {
		candidate, ok := extract(raw)
		if !ok {
			continue
		}

		workflow, err := decodeWorkflow(candidate)
		if err != nil {
			log.Debug().Err(err).Msg("workflow candidate rejected")
			continue
		}

		return workflow
	}

	log.Warn().Int("raw_len", len(raw)).Msg("backend response unparseable, synthesizing degraded workflow")

	return degradedWorkflow(raw)
}

// decodeWorkflow is the strict terminal step of every recovery strategy:
// schema validation first, then decode into the graph model.
func decodeWorkflow(candidate string) (*domain.Workflow, error) {
	var loose any
	if err := json.Unmarshal([]byte(candidate), &loose); err != nil {
		return nil, err
	}

	if err := compiledWorkflowSchema.Validate(loose); err != nil {
		return nil, err
	}

	var wire wireWorkflow
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		return nil, err
	}

	workflow := &domain.Workflow{
		Name:        wire.Name,
		Description: wire.Description,
		Nodes:       make([]domain.Node, 0, len(wire.Nodes)),
		Connections: make(map[string][]domain.Connection, len(wire.Connections)),
		Metadata: domain.WorkflowMetadata{
			Confidence: parsedConfidence,
		},
	}

	for _, n := range wire.Nodes {
		node := domain.Node{
			ID:          n.ID,
			Name:        n.Name,
			Type:        n.Type,
			TypeVersion: n.TypeVersion,
			Parameters:  n.Parameters,
			Credentials: n.Credentials,
			Notes:       n.Notes,
			Disabled:    n.Disabled,
		}

		if node.ID == "" {
			node.ID = xid.New().String()
		}
		if len(n.Position) == 2 {
			node.Position = domain.Position{X: n.Position[0], Y: n.Position[1]}
		}

		workflow.Nodes = append(workflow.Nodes, node)
	}

	for source, connects := range wire.Connections {
		for _, c := range connects {
			conn := domain.Connection{
				SourceOutput: c.SourceOutput,
				TargetNode:   c.TargetNode,
				TargetInput:  c.TargetInput,
				TargetIndex:  c.TargetIndex,
			}
			workflow.Connections[source] = append(workflow.Connections[source], conn)
		}
	}

	return workflow, nil
}

// degradedWorkflow is the explicit terminal fallback: a single
// manual-trigger node, empty connections, parse error flagged and the raw
// response preserved as the explanation.
func degradedWorkflow(raw string) *domain.Workflow {
	return &domain.Workflow{
		Name: "Generated Workflow",
		Nodes: []domain.Node{
			{
				ID:   xid.New().String(),
				Name: "Manual Trigger",
				Type: "manualTrigger",
			},
		},
		Connections: map[string][]domain.Connection{},
		Metadata: domain.WorkflowMetadata{
			ParseError:  true,
			Confidence:  degradedConfidence,
			RawResponse: raw,
		},
	}
}

func extractWholeText(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return "", false
	}

	return trimmed, true
}

// extractFencedBlock returns the body of the first fenced code block.
func extractFencedBlock(raw string) (string, bool) {
	start := strings.Index(raw, "```")
	if start < 0 {
		return "", false
	}

	body := raw[start+3:]

	// Skip a language tag such as "json" on the fence line.
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		firstLine := strings.TrimSpace(body[:newline])
		if firstLine != "" && !strings.HasPrefix(firstLine, "{") {
			body = body[newline+1:]
		}
	}

	end := strings.Index(body, "```")
	if end < 0 {
		return "", false
	}

	return strings.TrimSpace(body[:end]), true
}

// extractBraceSpan returns the first balanced brace-delimited span,
// respecting string literals and escapes.
func extractBraceSpan(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1], true
				}
			}
		}
	}

	return "", false
}
