package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventLine       EventType = "line"
	EventChoice     EventType = "choice"
	EventRewind     EventType = "rewind"
	EventDiagnostic EventType = "diagnostic"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NodeEvent represents entry into or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeKind NodeKind `json:"node_kind"`
}

// LineEvent is emitted when a dialog line is appended to the transcript.
type LineEvent struct {
	EventBase
	NodeID string     `json:"node_id"`
	Index  int        `json:"index"`
	Line   DialogLine `json:"line"`
}

// ChoiceEvent is emitted when a choice is made or a rewind lands on a choice node.
type ChoiceEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Index  int    `json:"index"`
	Text   string `json:"text,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnLine       func(context.Context, *LineEvent)
	OnChoice     func(context.Context, *ChoiceEvent)
	OnRewind     func(context.Context, *ChoiceEvent)
	OnDiagnostic func(context.Context, *Diagnostic)
}
