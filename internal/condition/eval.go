package condition

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/arborlabs/arbor/pkg/domain"
)

// absent is the sentinel for a flag or context key that does not exist.
// It is equal only to itself and to the null/undefined literals, and
// comparing against it never fails.
type absent struct{}

func (absent) String() string { return "absent" }

func evalTree(root expr, ctx *domain.ConditionContext) (bool, error) {
	v, err := eval(root, ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expression evaluates to %T, not a boolean", v)
	}
	return b, nil
}

func eval(node expr, ctx *domain.ConditionContext) (any, error) {
	switch e := node.(type) {
	case *literalExpr:
		return e.value, nil

	case *propertyExpr:
		return resolveProperty(e, ctx), nil

	case *unaryExpr:
		v, err := eval(e.operand, ctx)
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			if _, isAbsent := v.(absent); isAbsent {
				// !flags.missing is true: an absent flag is not set.
				return true, nil
			}
			return nil, fmt.Errorf("operator ! applied to non-boolean value %v", v)
		}
		return !b, nil

	case *binaryExpr:
		return evalBinary(e, ctx)
	}
	return nil, fmt.Errorf("unknown expression node %T", node)
}

func evalBinary(e *binaryExpr, ctx *domain.ConditionContext) (any, error) {
	// Logical operators short-circuit.
	if e.op == tokenAnd || e.op == tokenOr {
		left, err := evalBool(e.left, ctx)
		if err != nil {
			return nil, err
		}
		if e.op == tokenAnd && !left {
			return false, nil
		}
		if e.op == tokenOr && left {
			return true, nil
		}
		return evalBool(e.right, ctx)
	}

	left, err := eval(e.left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := eval(e.right, ctx)
	if err != nil {
		return nil, err
	}

	switch e.op {
	case tokenEq:
		return valuesEqual(left, right), nil
	case tokenNe:
		return !valuesEqual(left, right), nil
	}

	// Relational: comparisons against absent are false, never an error.
	if isAbsent(left) || isAbsent(right) {
		return false, nil
	}

	if ls, lok := left.(string); lok {
		if rs, rok := right.(string); rok {
			return compareOrdered(e.op, compareStrings(ls, rs)), nil
		}
	}

	lf, lerr := cast.ToFloat64E(left)
	rf, rerr := cast.ToFloat64E(right)
	if lerr != nil || rerr != nil {
		return nil, fmt.Errorf("cannot order values %v and %v", left, right)
	}
	switch {
	case lf < rf:
		return compareOrdered(e.op, -1), nil
	case lf > rf:
		return compareOrdered(e.op, 1), nil
	default:
		return compareOrdered(e.op, 0), nil
	}
}

func evalBool(node expr, ctx *domain.ConditionContext) (bool, error) {
	v, err := eval(node, ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		if isAbsent(v) {
			return false, nil
		}
		return false, fmt.Errorf("logical operand %v is not a boolean", v)
	}
	return b, nil
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOrdered(op tokenKind, cmp int) bool {
	switch op {
	case tokenLt:
		return cmp < 0
	case tokenLe:
		return cmp <= 0
	case tokenGt:
		return cmp > 0
	case tokenGe:
		return cmp >= 0
	}
	return false
}

// valuesEqual implements strict equality: absent equals only absent,
// booleans equal booleans, numbers compare numerically across widths, and
// strings compare byte-wise. Mismatched kinds are unequal, never an error.
func valuesEqual(a, b any) bool {
	if isAbsent(a) || isAbsent(b) {
		return isAbsent(a) && isAbsent(b)
	}
	// Kind checks look at both sides: equality must be symmetric, and
	// cast would happily coerce "5" or true to a float.
	ab, aBool := a.(bool)
	bb, bBool := b.(bool)
	if aBool || bBool {
		return aBool && bBool && ab == bb
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr || bStr {
		return aStr && bStr && as == bs
	}
	af, aerr := cast.ToFloat64E(a)
	bf, berr := cast.ToFloat64E(b)
	if aerr == nil && berr == nil {
		return af == bf
	}
	return false
}

func isAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

// resolveProperty walks the dotted path through the flag or context map.
// Any missing segment yields the absent sentinel; nil values are treated
// as absent so "flags.x == null" holds for both missing and nil flags.
func resolveProperty(e *propertyExpr, ctx *domain.ConditionContext) any {
	var current any
	switch e.root {
	case "flags":
		current = mapOrNil(ctx.Flags)
	case "context":
		current = mapOrNil(ctx.Ambient)
	default:
		return absent{}
	}

	for _, seg := range e.path {
		m, ok := current.(map[string]any)
		if !ok {
			return absent{}
		}
		v, exists := m[seg]
		if !exists || v == nil {
			return absent{}
		}
		current = v
	}
	return current
}

func mapOrNil(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
