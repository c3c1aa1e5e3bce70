package condition

import (
	"context"
	"errors"
	"testing"

	"github.com/arborlabs/arbor/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *domain.ConditionContext {
	return &domain.ConditionContext{
		Flags: map[string]any{
			"curiosity":   5,
			"name":        "ada",
			"has_key":     true,
			"door_locked": false,
			"inventory": map[string]any{
				"coins": 12.0,
			},
		},
		Ambient: map[string]any{
			"elapsed": 42.0,
			"visits": map[string]any{
				"start": 3,
			},
		},
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	ev := NewEvaluator()
	ctx := context.Background()

	cases := []struct {
		expr string
		want bool
	}{
		{"flags.curiosity >= 3", true},
		{"flags.curiosity > 5", false},
		{"flags.curiosity == 5", true},
		{"flags.curiosity != 5", false},
		{"flags.name == 'ada'", true},
		{"flags.name == \"grace\"", false},
		{"flags.has_key", true},
		{"!flags.door_locked", true},
		{"flags.has_key && !flags.door_locked", true},
		{"flags.curiosity < 3 || flags.has_key", true},
		{"(flags.curiosity >= 3) && (flags.name == 'ada')", true},
		{"flags.inventory.coins >= 10", true},
		{"context.elapsed > 40", true},
		{"context.visits.start == 3", true},
		{"flags.name < 'zoe'", true},
		{"true", true},
		{"false || true", true},
		{"1 < 2", true},
		{"-1 < 0.5", true},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := ev.Evaluate(ctx, tc.expr, testContext())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluator_StrictEquality(t *testing.T) {
	ev := NewEvaluator()
	ctx := context.Background()

	// Mixed-kind operands are unequal in both orderings: a numeric flag
	// never equals a numeric-looking string, and booleans never equal 1/0.
	cases := []struct {
		expr string
		want bool
	}{
		{"flags.curiosity == '5'", false},
		{"'5' == flags.curiosity", false},
		{"flags.curiosity != '5'", true},
		{"'5' != flags.curiosity", true},
		{"flags.name == 5", false},
		{"5 == flags.name", false},
		{"flags.has_key == 1", false},
		{"1 == flags.has_key", false},
		{"flags.has_key == 'true'", false},
		{"'true' == flags.has_key", false},
		// Same-kind equality still holds, numerically across widths.
		{"flags.curiosity == 5.0", true},
		{"5.0 == flags.curiosity", true},
		{"flags.inventory.coins == 12", true},
		{"flags.name == 'ada'", true},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := ev.Evaluate(ctx, tc.expr, testContext())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluator_AbsentFlags(t *testing.T) {
	ev := NewEvaluator()
	ctx := context.Background()

	cases := []struct {
		expr string
		want bool
	}{
		// An absent flag equals only itself and the absent literals.
		{"flags.missing == null", true},
		{"flags.missing == undefined", true},
		{"flags.missing != null", false},
		{"flags.missing == flags.also_missing", true},
		{"flags.missing == 0", false},
		{"flags.missing == ''", false},
		{"flags.missing == false", false},
		// Comparisons against absent values must not throw.
		{"flags.missing > 3", false},
		{"flags.missing <= 3", false},
		{"!flags.missing", true},
		{"flags.missing || flags.has_key", true},
		// Walking through a scalar is absent, not an error.
		{"flags.name.deeper == null", true},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := ev.Evaluate(ctx, tc.expr, testContext())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluator_RejectsUnsafeExpressions(t *testing.T) {
	ev := NewEvaluator()

	exprs := []string{
		"eval('1==1')",
		"flags.constructor == null",
		"context.__proto__.polluted == true",
		"Function('return 1')()",
		"globalThis.process == null",
		"process.env.HOME == ''",
		"require == null",
		"import == null",
		"new.target == null",
		"this.flags == null",
		"flags.x = 1",
		"window.alert == null",
	}

	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			err := ev.Validate(expr)
			require.Error(t, err, "unsafe expression must fail static validation")

			// And must never be evaluated either.
			_, err = ev.Evaluate(context.Background(), expr, testContext())
			var evalErr *EvalError
			require.ErrorAs(t, err, &evalErr)
			assert.Equal(t, expr, evalErr.Expr)
		})
	}
}

func TestEvaluator_RejectsMalformedExpressions(t *testing.T) {
	ev := NewEvaluator()

	exprs := []string{
		"",
		"flags.curiosity >=",
		"(flags.curiosity > 1",
		"flags.",
		"flags",
		"unknown_root == 1",
		"flags.a && ",
		"flags.a &",
		"flags.a | flags.b",
		"'unterminated",
		"flags.a === 1",
	}

	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			assert.Error(t, ev.Validate(expr))
		})
	}
}

func TestEvaluator_TypeErrorsSurfaceAsEvalError(t *testing.T) {
	ev := NewEvaluator()

	// Ordering a string against a number is a runtime type error, reported
	// as the single condition-evaluation failure kind.
	_, err := ev.Evaluate(context.Background(), "flags.name > 3", testContext())
	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "flags.name > 3", evalErr.Expr)

	// Non-boolean result is also an evaluation failure.
	_, err = ev.Evaluate(context.Background(), "flags.curiosity", testContext())
	assert.ErrorAs(t, err, &evalErr)
}

func TestEvaluator_CustomEvaluator(t *testing.T) {
	ev := NewEvaluator()
	ctx := context.Background()

	ev.SetCustomEvaluator(func(_ context.Context, expression string, _ *domain.ConditionContext) (bool, error) {
		if expression == "quest:dragon_slain" {
			return true, nil
		}
		return false, ErrNotHandled
	})

	t.Run("handled by hook", func(t *testing.T) {
		ok, err := ev.Evaluate(ctx, "quest:dragon_slain", testContext())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("falls back to grammar", func(t *testing.T) {
		ok, err := ev.Evaluate(ctx, "flags.curiosity >= 3", testContext())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("hook error is an eval failure", func(t *testing.T) {
		ev.SetCustomEvaluator(func(context.Context, string, *domain.ConditionContext) (bool, error) {
			return false, errors.New("lookup failed")
		})
		_, err := ev.Evaluate(ctx, "flags.curiosity >= 3", testContext())
		var evalErr *EvalError
		assert.ErrorAs(t, err, &evalErr)
	})

	t.Run("cleared hook restores built-in", func(t *testing.T) {
		ev.SetCustomEvaluator(nil)
		ok, err := ev.Evaluate(ctx, "flags.curiosity >= 3", testContext())
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestEvaluator_ReferencedFlags(t *testing.T) {
	ev := NewEvaluator()

	flags, err := ev.ReferencedFlags("flags.curiosity >= 3 && (flags.inventory.coins > 0 || flags.curiosity < 10) && context.elapsed > 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"curiosity", "inventory.coins"}, flags)

	flags, err = ev.ReferencedFlags("context.elapsed > 1")
	require.NoError(t, err)
	assert.Empty(t, flags)

	_, err = ev.ReferencedFlags("flags.")
	assert.Error(t, err)
}

func TestEvaluator_EvaluationDoesNotMutateContext(t *testing.T) {
	ev := NewEvaluator()
	cctx := testContext()

	_, err := ev.Evaluate(context.Background(), "flags.curiosity >= 3 && flags.missing == null", cctx)
	require.NoError(t, err)

	assert.Equal(t, 5, cctx.Flags["curiosity"])
	_, exists := cctx.Flags["missing"]
	assert.False(t, exists, "evaluation must not materialize absent flags")
}
