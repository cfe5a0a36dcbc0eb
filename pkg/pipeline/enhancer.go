package pipeline

import (
	"time"

	"github.com/gosimple/slug"
	"github.com/rs/xid"
	"github.com/weftworks/weft/pkg/domain"
)

const (
	// Grid layout for nodes that arrive without a position.
	columnSpacing  = 240.0
	rowSpacing     = 140.0
	layoutOriginX  = 100.0
	layoutOriginY  = 100.0
	nodesPerColumn = 4

	// errorHandlerType is the node type injected on failure paths.
	errorHandlerType = "errorHandler"

	// errorOutputPort is the output port failure paths hang off.
	errorOutputPort = "error"

	defaultPort = "main"

	maxNoteLength = 80
)

// EnhanceOptions carries the provenance and behavior switches for one
// enhancement pass.
type EnhanceOptions struct {
	Backend        string
	ConversationID string
	Description    string
	EstimatedCost  float64
	Trace          []domain.TraceEntry
	Timestamp      time.Time

	// InjectErrorHandling attaches failure-path handler nodes to every
	// fallible node. Exact no-op when the graph has no fallible nodes.
	InjectErrorHandling bool
}

// Enhance normalizes and repairs a parsed workflow graph: provenance
// metadata, deterministic grid layout, optional error-handling injection,
// connection normalization and node annotation. Enhancement is idempotent so
// it is safe to reuse during iterative refinement: applying it twice with
// the same options produces no further change.
func Enhance(workflow *domain.Workflow, opts EnhanceOptions) *domain.Workflow {
	stampMetadata(workflow, opts)
	normalizeConnections(workflow)

	if opts.InjectErrorHandling {
		injectErrorHandlers(workflow)
	}

	layoutNodes(workflow)
	annotateNodes(workflow, opts.Description)

	return workflow
}

func stampMetadata(workflow *domain.Workflow, opts EnhanceOptions) {
	if workflow.ID == "" {
		workflow.ID = xid.New().String()
	}
	if workflow.Name == "" {
		workflow.Name = "Generated Workflow"
	}

	meta := &workflow.Metadata
	meta.GeneratedBy = opts.Backend
	meta.ConversationID = opts.ConversationID
	meta.Source = opts.Description
	meta.Slug = slug.Make(workflow.Name)
	meta.EstimatedCost = opts.EstimatedCost
	meta.Trace = opts.Trace

	if meta.GeneratedAt.IsZero() {
		timestamp := opts.Timestamp
		if timestamp.IsZero() {
			timestamp = time.Now().UTC()
		}
		meta.GeneratedAt = timestamp
	}
}

// normalizeConnections rewrites connections so both endpoints reference
// nodes by identifier only. Backends frequently reference nodes by display
// name; those are mapped back to ids. Dangling references are left in place
// for the validator to flag. Missing ports default to "main".
func normalizeConnections(workflow *domain.Workflow) {
	if workflow.Connections == nil {
		workflow.Connections = map[string][]domain.Connection{}
		return
	}

	nameToID := make(map[string]string, len(workflow.Nodes))
	ids := make(map[string]bool, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		ids[node.ID] = true
		nameToID[node.Name] = node.ID
	}

	resolve := func(ref string) string {
		if ids[ref] {
			return ref
		}
		if id, ok := nameToID[ref]; ok {
			return id
		}
		return ref
	}

	result := make(map[string][]domain.Connection, len(workflow.Connections))
	for source, connections := range workflow.Connections {
		resolvedSource := resolve(source)

		for _, conn := range connections {
			conn.TargetNode = resolve(conn.TargetNode)
			if conn.SourceOutput == "" {
				conn.SourceOutput = defaultPort
			}
			if conn.TargetInput == "" {
				conn.TargetInput = defaultPort
			}

			result[resolvedSource] = append(result[resolvedSource], conn)
		}
	}

	workflow.Connections = result
}

// injectErrorHandlers attaches a failure-path handler to every fallible node
// that does not already have one. Node classes known to be fallible are the
// ones that perform external I/O.
func injectErrorHandlers(workflow *domain.Workflow) {
	handled := make(map[string]bool)
	for source, connections := range workflow.Connections {
		for _, conn := range connections {
			if conn.SourceOutput == errorOutputPort {
				handled[source] = true
			}
		}
	}

	var handlers []domain.Node
	for _, node := range workflow.Nodes {
		if !isFallible(node) || handled[node.ID] {
			continue
		}

		handler := domain.Node{
			ID:   xid.New().String(),
			Name: node.Name + " Error Handler",
			Type: errorHandlerType,
		}
		handlers = append(handlers, handler)

		workflow.Connections[node.ID] = append(workflow.Connections[node.ID], domain.Connection{
			SourceOutput: errorOutputPort,
			TargetNode:   handler.ID,
			TargetInput:  defaultPort,
		})
	}

	workflow.Nodes = append(workflow.Nodes, handlers...)
}

func isFallible(node domain.Node) bool {
	switch categorizeNodeType(node.Type) {
	case domain.CategoryHTTP, domain.CategoryDatabase, domain.CategoryIntegration, domain.CategoryCommunication:
		return true
	}
	return false
}

// layoutNodes assigns deterministic grid positions to nodes lacking one,
// filling columns top to bottom and wrapping to a new column after
// nodesPerColumn nodes.
func layoutNodes(workflow *domain.Workflow) {
	slot := 0
	for i := range workflow.Nodes {
		node := &workflow.Nodes[i]
		if node.Position.X != 0 || node.Position.Y != 0 {
			continue
		}

		column := slot / nodesPerColumn
		row := slot % nodesPerColumn

		node.Position = domain.Position{
			X: layoutOriginX + float64(column)*columnSpacing,
			Y: layoutOriginY + float64(row)*rowSpacing,
		}
		slot++
	}
}

// annotateNodes attaches a short note derived from the originating
// description to nodes that have none.
func annotateNodes(workflow *domain.Workflow, description string) {
	if description == "" {
		return
	}

	note := "Generated from: " + truncate(description, maxNoteLength)
	for i := range workflow.Nodes {
		if workflow.Nodes[i].Notes == "" {
			workflow.Nodes[i].Notes = note
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
