package domain

import "time"

// Node represents a single point in the story graph.
// The graph is supplied at engine construction and is read-only to the
// engine; nodes are referenced exclusively by ID.
type Node struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Text is the narrative content shown when the node is entered.
	// It may contain markdown; rendering is the host's concern.
	Text string `json:"text" yaml:"text"`

	// Metadata allows for extensible key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Choices defines the possible paths from this node, in author order.
	Choices []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// Choice defines a player-selectable transition from one node to another.
// Visibility is gated by two independent mechanisms that are AND'ed
// together: the Condition expression and the structured requirements.
type Choice struct {
	// Text is the label presented to the player.
	Text string `json:"text" yaml:"text"`

	// Target is the ID of the node this choice leads to.
	Target string `json:"target" yaml:"target"`

	// Effects is merged into the flag map when the choice is selected.
	Effects map[string]any `json:"effects,omitempty" yaml:"effects,omitempty"`

	// Condition is a boolean expression over flags/context that must
	// evaluate to true for this choice to be visible.
	// e.g. "flags.curiosity >= 3 && !flags.door_locked"
	// If empty, the expression gate always passes.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`

	// FlagRequirements maps flag names to the exact value each must hold.
	FlagRequirements map[string]any `json:"flag_requirements,omitempty" yaml:"flag_requirements,omitempty"`

	// AvailableAfter / AvailableBefore bound the time window in which the
	// choice is offered. Either side may be nil (unbounded).
	AvailableAfter  *time.Time `json:"available_after,omitempty" yaml:"available_after,omitempty"`
	AvailableBefore *time.Time `json:"available_before,omitempty" yaml:"available_before,omitempty"`

	// InventoryRequirements maps counter names to the minimum count the
	// player must hold for the choice to be offered.
	InventoryRequirements map[string]int `json:"inventory_requirements,omitempty" yaml:"inventory_requirements,omitempty"`

	// Enabled rejects the choice unconditionally when explicitly false.
	// nil is treated as true.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the choice is enabled. A nil Enabled field
// defaults to true.
func (c *Choice) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
