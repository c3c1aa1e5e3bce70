package validation

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/spf13/cast"

	"github.com/arborlabs/arbor/pkg/domain"
)

// Built-in rule priorities. Gaps leave room for caller-registered rules.
const (
	PriorityExistence        = 10
	PriorityFlagRequirements = 20
	PriorityEnabled          = 30
	PriorityTimeWindow       = 40
	PriorityInventory        = 50
)

// existenceRule defends against stale references: the choice must be a
// member of the current node's choice list.
type existenceRule struct{}

func (existenceRule) Name() string  { return "existence" }
func (existenceRule) Priority() int { return PriorityExistence }

func (existenceRule) Check(choice *domain.Choice, vctx *domain.ValidationContext) *domain.RuleFailure {
	if vctx.Node == nil {
		return &domain.RuleFailure{Reason: "no current node"}
	}
	for i := range vctx.Node.Choices {
		c := &vctx.Node.Choices[i]
		if c.Text == choice.Text && c.Target == choice.Target {
			return nil
		}
	}
	return &domain.RuleFailure{
		Reason:     fmt.Sprintf("choice %q is not offered by node %q", choice.Text, vctx.Node.ID),
		Conditions: []string{"existence"},
	}
}

// flagRequirementsRule checks the structured flag-equality map. All
// mismatches are collected, not just the first.
type flagRequirementsRule struct{}

func (flagRequirementsRule) Name() string  { return "flag_requirements" }
func (flagRequirementsRule) Priority() int { return PriorityFlagRequirements }

func (flagRequirementsRule) Check(choice *domain.Choice, vctx *domain.ValidationContext) *domain.RuleFailure {
	if len(choice.FlagRequirements) == 0 {
		return nil
	}

	var unmet []string
	for _, key := range sortedKeys(choice.FlagRequirements) {
		want := choice.FlagRequirements[key]
		got, exists := vctx.State.Flags[key]
		if !exists || !flagEqual(got, want) {
			unmet = append(unmet, fmt.Sprintf("%s == %v", key, want))
		}
	}

	if len(unmet) > 0 {
		return &domain.RuleFailure{
			Reason:     fmt.Sprintf("%d flag requirement(s) not met", len(unmet)),
			Conditions: unmet,
		}
	}
	return nil
}

// enabledRule rejects unconditionally when a choice is explicitly disabled.
type enabledRule struct{}

func (enabledRule) Name() string  { return "enabled" }
func (enabledRule) Priority() int { return PriorityEnabled }

func (enabledRule) Check(choice *domain.Choice, _ *domain.ValidationContext) *domain.RuleFailure {
	if !choice.IsEnabled() {
		return &domain.RuleFailure{
			Reason:     "choice is disabled",
			Conditions: []string{"enabled"},
		}
	}
	return nil
}

// timeWindowRule compares the optional availability window against the
// context timestamp.
type timeWindowRule struct{}

func (timeWindowRule) Name() string  { return "time_window" }
func (timeWindowRule) Priority() int { return PriorityTimeWindow }

func (timeWindowRule) Check(choice *domain.Choice, vctx *domain.ValidationContext) *domain.RuleFailure {
	if choice.AvailableAfter != nil && vctx.Timestamp.Before(*choice.AvailableAfter) {
		return &domain.RuleFailure{
			Reason:     fmt.Sprintf("not available before %s", choice.AvailableAfter.Format("2006-01-02T15:04:05Z07:00")),
			Conditions: []string{"available_after"},
		}
	}
	if choice.AvailableBefore != nil && !vctx.Timestamp.Before(*choice.AvailableBefore) {
		return &domain.RuleFailure{
			Reason:     fmt.Sprintf("no longer available after %s", choice.AvailableBefore.Format("2006-01-02T15:04:05Z07:00")),
			Conditions: []string{"available_before"},
		}
	}
	return nil
}

// inventoryRule checks numeric counter requirements against the live
// flags. All shortfalls are reported together.
type inventoryRule struct{}

func (inventoryRule) Name() string  { return "inventory" }
func (inventoryRule) Priority() int { return PriorityInventory }

func (inventoryRule) Check(choice *domain.Choice, vctx *domain.ValidationContext) *domain.RuleFailure {
	if len(choice.InventoryRequirements) == 0 {
		return nil
	}

	var short []string
	for _, key := range sortedKeys(choice.InventoryRequirements) {
		need := choice.InventoryRequirements[key]
		have := 0
		if raw, exists := vctx.State.Flags[key]; exists && isNumber(raw) {
			have = cast.ToInt(raw)
		}
		if have < need {
			short = append(short, fmt.Sprintf("%s: need %d, have %d", key, need, have))
		}
	}

	if len(short) > 0 {
		return &domain.RuleFailure{
			Reason:     fmt.Sprintf("%d inventory requirement(s) not met", len(short)),
			Conditions: short,
		}
	}
	return nil
}

// flagEqual compares a live flag against a required value. Numbers compare
// numerically regardless of width (YAML decodes ints, JSON floats), but
// only when both sides already are numbers: a string flag "5" does not
// satisfy a numeric requirement 5. Everything else is deep equality.
func flagEqual(got, want any) bool {
	if isNumber(got) && isNumber(want) {
		return cast.ToFloat64(got) == cast.ToFloat64(want)
	}
	return reflect.DeepEqual(got, want)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
