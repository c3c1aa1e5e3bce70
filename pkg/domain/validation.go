package domain

import "time"

// ValidationContext carries everything a validation rule may inspect.
// It is constructed fresh for each filtering pass and never mutated.
type ValidationContext struct {
	// Node is the node the player is currently on.
	Node *Node

	// State is the full live engine state.
	State *State

	// Choices is the current node's choice list.
	Choices []Choice

	// Timestamp is the moment the pass was started, used by time windows.
	Timestamp time.Time

	// Metadata carries optional caller-supplied values for custom rules.
	Metadata map[string]any
}

// ValidationResult is the outcome of validating a single choice.
type ValidationResult struct {
	Valid bool

	// Reason is a human-readable explanation of the first failing rule.
	Reason string

	// FailedConditions identifies every condition the failing rule found
	// unmet, not just the first.
	FailedConditions []string

	// Alternatives suggests other choices on the node that are at least
	// enabled, to help hosts present a recovery path.
	Alternatives []string
}

// RuleFailure is returned by a validation rule when a choice does not pass.
type RuleFailure struct {
	Reason     string
	Conditions []string
}

// ConditionContext is the read-only view a condition expression is
// evaluated against. Evaluation never mutates it.
type ConditionContext struct {
	// Flags is the live flag map, addressed as flags.<name>.
	Flags map[string]any

	// Ambient holds engine-provided values (elapsed time, visit counters,
	// arbitrary extension fields), addressed as context.<name>.
	Ambient map[string]any
}
