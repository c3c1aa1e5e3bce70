package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventChoice     EventType = "choice"
	EventFlagChange EventType = "flag_change"
	EventAutosave   EventType = "autosave"
	EventRestore    EventType = "restore"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NodeEvent represents entry into a story node.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
}

// ChoiceEvent represents a player selecting a choice.
type ChoiceEvent struct {
	EventBase
	FromNodeID string `json:"from_node_id"`
	ToNodeID   string `json:"to_node_id"`
	ChoiceText string `json:"choice_text"`
}

// FlagEvent represents a single flag mutation.
type FlagEvent struct {
	EventBase
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
}

// AutosaveEvent reports the outcome of an autosave attempt.
type AutosaveEvent struct {
	EventBase
	CheckpointID string        `json:"checkpoint_id,omitempty"`
	Trigger      string        `json:"trigger"`
	Success      bool          `json:"success"`
	Duration     time.Duration `json:"duration"`
	Size         int           `json:"size"`
}

// RestoreEvent reports a state replacement from a checkpoint or snapshot.
type RestoreEvent struct {
	EventBase
	Source string `json:"source"` // "checkpoint", "snapshot", "undo", "redo"
	NodeID string `json:"node_id"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks are notified after the fact and can never veto a mutation.
type LifecycleHooks struct {
	OnNodeEnter   func(context.Context, *NodeEvent)
	OnChoice      func(context.Context, *ChoiceEvent)
	OnFlagChange  func(context.Context, *FlagEvent)
	OnAutosave    func(context.Context, *AutosaveEvent)
	OnRestore     func(context.Context, *RestoreEvent)
	OnStateChange func(context.Context, *StateDiff)
}
