// Package condition implements the safe boolean-expression evaluator that
// gates choice visibility.
//
// Expressions are compiled by a small hand-rolled recursive-descent parser
// over a restricted grammar: literals, flags.*/context.* property access,
// comparison and logical operators, and parentheses. Nothing in the grammar
// can call functions, assign, or reach execution primitives; identifiers
// such as eval or constructor are rejected before evaluation.
package condition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arborlabs/arbor/pkg/domain"
)

// ErrNotHandled is returned by a CustomEvaluator to signal that the
// expression should fall through to the built-in grammar.
var ErrNotHandled = errors.New("condition not handled")

// CustomEvaluator is a caller-supplied hook consulted before the built-in
// grammar. Returning ErrNotHandled falls back to the built-in evaluator;
// any other error is surfaced as an evaluation failure.
type CustomEvaluator func(ctx context.Context, expression string, cctx *domain.ConditionContext) (bool, error)

// EvalError is the single failure kind for condition evaluation. It covers
// parse errors, statically rejected constructs, and runtime type errors,
// and always carries the offending expression text.
type EvalError struct {
	Expr  string
	Cause error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("condition %q: %v", e.Expr, e.Cause)
}

func (e *EvalError) Unwrap() error { return e.Cause }

// Evaluator parses and evaluates condition expressions. Compiled trees are
// cached, so repeated filtering passes over the same story do not re-parse.
type Evaluator struct {
	mu     sync.RWMutex
	cache  map[string]expr
	custom CustomEvaluator
}

// NewEvaluator creates an evaluator with an empty compilation cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]expr)}
}

// SetCustomEvaluator installs (or clears, with nil) the custom hook.
func (ev *Evaluator) SetCustomEvaluator(custom CustomEvaluator) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	ev.custom = custom
}

// Evaluate runs the expression against the given context. The custom hook,
// if set, is tried first; ErrNotHandled falls back to the built-in grammar.
func (ev *Evaluator) Evaluate(ctx context.Context, expression string, cctx *domain.ConditionContext) (bool, error) {
	ev.mu.RLock()
	custom := ev.custom
	ev.mu.RUnlock()

	if custom != nil {
		ok, err := custom(ctx, expression, cctx)
		if err == nil {
			return ok, nil
		}
		if !errors.Is(err, ErrNotHandled) {
			return false, &EvalError{Expr: expression, Cause: err}
		}
	}

	tree, err := ev.compile(expression)
	if err != nil {
		return false, &EvalError{Expr: expression, Cause: err}
	}

	result, err := evalTree(tree, cctx)
	if err != nil {
		return false, &EvalError{Expr: expression, Cause: err}
	}
	return result, nil
}

// Validate statically checks an expression without evaluating it.
func (ev *Evaluator) Validate(expression string) error {
	if _, err := ev.compile(expression); err != nil {
		return &EvalError{Expr: expression, Cause: err}
	}
	return nil
}

// ReferencedFlags performs a static scan (no execution) and returns the
// flag paths the expression reads, in order of first appearance.
func (ev *Evaluator) ReferencedFlags(expression string) ([]string, error) {
	tree, err := ev.compile(expression)
	if err != nil {
		return nil, &EvalError{Expr: expression, Cause: err}
	}

	var raw []string
	tree.refs("flags", &raw)

	seen := make(map[string]bool, len(raw))
	flags := make([]string, 0, len(raw))
	for _, name := range raw {
		if !seen[name] {
			seen[name] = true
			flags = append(flags, name)
		}
	}
	return flags, nil
}

func (ev *Evaluator) compile(expression string) (expr, error) {
	ev.mu.RLock()
	tree, ok := ev.cache[expression]
	ev.mu.RUnlock()
	if ok {
		return tree, nil
	}

	tree, err := parse(expression)
	if err != nil {
		return nil, err
	}

	ev.mu.Lock()
	ev.cache[expression] = tree
	ev.mu.Unlock()
	return tree, nil
}
