package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus tracks the lifecycle of a workflow run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one execution instance of a workflow, identified separately from the
// definition and carrying its own variable state over time.
type Run struct {
	ID         uuid.UUID      `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Status     RunStatus      `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Variables  map[string]any `json:"variables,omitempty"`
}

// RunStep records a single external step: the node that ran, the message
// windows around it, and a snapshot of the variables afterwards. Steps are
// appended in execution order.
type RunStep struct {
	ID                uuid.UUID      `json:"id"`
	RunID             uuid.UUID      `json:"run_id"`
	NodeID            string         `json:"node_id"`
	InputMessages     []Message      `json:"input_messages"`
	OutputMessages    []Message      `json:"output_messages"`
	VariablesSnapshot map[string]any `json:"variables_snapshot,omitempty"`
	LatencyMS         int64          `json:"latency_ms"`
	CreatedAt         time.Time      `json:"created_at"`
}
