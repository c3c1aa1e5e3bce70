package domain

// State represents the current snapshot of a narrative session.
// It is the only entity ever persisted or snapshotted, and must round-trip
// exactly through serialization.
type State struct {
	// CurrentNodeID is the identifier of the active story node.
	CurrentNodeID string `json:"currentNodeId"`

	// Flags holds mutable narrative state (scalars or nested maps/slices)
	// used to gate choices and record player decisions.
	Flags map[string]any `json:"flags"`

	// History is the ordered list of visited node IDs.
	History []string `json:"history"`
}

// NewState creates a clean state starting at a specific node.
func NewState(startNodeID string) *State {
	return &State{
		CurrentNodeID: startNodeID,
		Flags:         make(map[string]any),
		History:       []string{startNodeID},
	}
}

// Clone returns a deep copy of the state. Snapshots stored by the undo
// stacks, the checkpoint store and the serializer must never alias live
// state, so nested flag values are copied recursively.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := &State{
		CurrentNodeID: s.CurrentNodeID,
		Flags:         make(map[string]any, len(s.Flags)),
		History:       make([]string, len(s.History)),
	}
	for k, v := range s.Flags {
		clone.Flags[k] = CloneValue(v)
	}
	copy(clone.History, s.History)
	return clone
}

// CloneValue deep-copies a flag value. Maps and slices are copied
// recursively; scalars are returned as-is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}
