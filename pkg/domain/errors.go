package domain

import (
	"errors"
	"fmt"
)

// ErrWorkflowNotFound is returned when a workflow ID cannot be found in the store.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrRunNotRunning is returned when stepping a run that is already terminal.
var ErrRunNotRunning = errors.New("run is not running")

// ErrEmptyWorkflow is returned when a workflow definition has no nodes.
var ErrEmptyWorkflow = errors.New("workflow must have at least one node")

// ErrNoUserMessage is returned when an LLM node executes without any prior
// user message in the transcript.
var ErrNoUserMessage = errors.New("no user message in conversation")

// ConfigError reports a node with missing or malformed configuration. It is
// raised at executor construction time and is fatal to building that node;
// it must be surfaced to the workflow author, never retried.
type ConfigError struct {
	NodeID string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("node %s: invalid config: %s", e.NodeID, e.Reason)
}

// UnknownNodeTypeError reports a node whose type has no executor.
type UnknownNodeTypeError struct {
	NodeID string
	Type   NodeType
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("node %s: unknown node type %q", e.NodeID, e.Type)
}

// ConditionTypeError reports a condition expression whose result is not a
// boolean. Fatal to that evaluation.
type ConditionTypeError struct {
	Condition string
	Result    any
}

func (e *ConditionTypeError) Error() string {
	return fmt.Sprintf("condition %q must evaluate to boolean, got %T", e.Condition, e.Result)
}

// BackendError wraps a failure of an external backend: the completion
// service or a store. The engine propagates it without retrying; retry
// policy belongs to the layer that owns the backend.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
