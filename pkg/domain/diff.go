package domain

import (
	"reflect"
)

// StateDiff represents the changes between two states.
// It is designed to be serialized to JSON for partial updates on a client
// or for compact structured logging of mutations.
type StateDiff struct {
	// CurrentNodeID is set when the active node changed.
	CurrentNodeID *string `json:"current_node_id,omitempty"`

	// Flags contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Flags map[string]any `json:"flags,omitempty"`

	// History contains *new* items appended to the visit history.
	History *HistoryDelta `json:"history,omitempty"`
}

// HistoryDelta represents changes to the history list.
type HistoryDelta struct {
	Appended []string `json:"appended,omitempty"`

	// Rewritten is set when the new history is not an append-only
	// extension of the old one (undo, restore, state load). In that case
	// Appended holds the full new history.
	Rewritten bool `json:"rewritten,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{}

	if oldState == nil || oldState.CurrentNodeID != newState.CurrentNodeID {
		diff.CurrentNodeID = &newState.CurrentNodeID
	}

	diff.Flags = diffFlags(oldState, newState)
	diff.History = diffHistory(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFlags(old, new *State) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Flags {
			delta[k] = v
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVal := range new.Flags {
		oldVal, exists := old.Flags[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	// Deletions surface as explicit nils so clients can drop the key.
	for k := range old.Flags {
		if _, exists := new.Flags[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

func diffHistory(old, new *State) *HistoryDelta {
	if new == nil || len(new.History) == 0 {
		return nil
	}

	if old == nil {
		return &HistoryDelta{Appended: new.History}
	}

	oldLen := len(old.History)
	newLen := len(new.History)

	if newLen > oldLen && reflect.DeepEqual(old.History, new.History[:oldLen]) {
		return &HistoryDelta{Appended: new.History[oldLen:]}
	}

	if newLen == oldLen && reflect.DeepEqual(old.History, new.History) {
		return nil
	}

	// Undo/restore rewrote the list; send it whole.
	return &HistoryDelta{Appended: new.History, Rewritten: true}
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		len(d.Flags) == 0 &&
		d.History == nil
}
