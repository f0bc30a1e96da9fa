package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter        EventType = "node_enter"
	EventNodeLeave        EventType = "node_leave"
	EventCompletionCall   EventType = "completion_call"
	EventCompletionReturn EventType = "completion_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NodeEvent represents entry into or exit from a node execution.
type NodeEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	NodeType NodeType      `json:"node_type"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// CompletionEvent represents a call to the completion backend.
type CompletionEvent struct {
	EventBase
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability. Any field may be
// nil; the engine skips missing hooks.
type LifecycleHooks struct {
	OnNodeEnter        func(context.Context, *NodeEvent)
	OnNodeLeave        func(context.Context, *NodeEvent)
	OnCompletionReturn func(context.Context, *CompletionEvent)
}
