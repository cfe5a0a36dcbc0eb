package domain

import "time"

// TriggerKind classifies a workflow's entry point.
type TriggerKind string

const (
	TriggerManual    TriggerKind = "manual"
	TriggerWebhook   TriggerKind = "webhook"
	TriggerScheduled TriggerKind = "scheduled"
	TriggerEvent     TriggerKind = "event"
)

// NodeCategory buckets node types for the preview digest.
type NodeCategory string

const (
	CategoryTrigger       NodeCategory = "trigger"
	CategoryHTTP          NodeCategory = "http"
	CategoryDatabase      NodeCategory = "database"
	CategoryCommunication NodeCategory = "communication"
	CategoryIntegration   NodeCategory = "integration"
	CategoryLogic         NodeCategory = "logic"
	CategoryTransform     NodeCategory = "transform"
	CategoryUtility       NodeCategory = "utility"
)

// Preview is the human-facing digest derived from a finished workflow graph.
type Preview struct {
	NodeCount         int                  `json:"node_count"`
	Complexity        Complexity           `json:"complexity"`
	EstimatedDuration time.Duration        `json:"estimated_duration"`
	Trigger           TriggerKind          `json:"trigger"`
	Credentials       []string             `json:"credentials,omitempty"`
	Steps             []string             `json:"steps,omitempty"`
	Categories        map[NodeCategory]int `json:"categories,omitempty"`
}
