// Package engine implements the narrative state core: choice filtering and
// selection, flag mutation, bounded undo/redo, throttled autosave,
// checkpoints, and full-state save/load.
//
// An Engine has a single logical owner. Mutating operations are applied
// strictly in call order and are atomic: either the whole mutation commits
// (flags, node, history, undo entry) or nothing does. The only internal
// concurrency is the autosave goroutine, which works on a snapshot taken
// synchronously at mutation commit time.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arborlabs/arbor/internal/condition"
	"github.com/arborlabs/arbor/internal/logging"
	"github.com/arborlabs/arbor/internal/observability"
	"github.com/arborlabs/arbor/internal/validation"
	"github.com/arborlabs/arbor/pkg/domain"
	"github.com/arborlabs/arbor/pkg/persistence"
	"github.com/arborlabs/arbor/pkg/ports"
	"github.com/arborlabs/arbor/pkg/story"
)

const (
	defaultMaxUndoEntries = 50
	defaultMaxRedoEntries = 50
	defaultMaxCheckpoints = 20
	maxFlowEvents         = 256
)

// Engine is the core state machine. Construct it with New; the zero value
// is not usable.
type Engine struct {
	story     *story.Story
	state     *domain.State
	evaluator *condition.Evaluator
	pipeline  *validation.Pipeline

	undo *historyStack
	redo *historyStack

	checkpoints *checkpointRegistry
	autosave    *autosaver
	store       ports.Store

	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   func() time.Time

	startedAt time.Time
	visits    map[string]int

	// replaying suppresses undo recording and autosave while an undo/redo
	// replay or a checkpoint restore is applied.
	replaying bool

	flowEvents []persistence.FlowEvent
	mutations  int
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger sets a structured logger. Default is a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithMaxUndoEntries bounds the undo stack. Zero disables undo recording.
func WithMaxUndoEntries(n int) Option {
	return func(e *Engine) {
		e.undo = newHistoryStack(n)
	}
}

// WithMaxRedoEntries bounds the redo stack.
func WithMaxRedoEntries(n int) Option {
	return func(e *Engine) {
		e.redo = newHistoryStack(n)
	}
}

// WithMaxCheckpoints bounds the checkpoint registry; the oldest checkpoint
// is evicted first.
func WithMaxCheckpoints(n int) Option {
	return func(e *Engine) {
		e.checkpoints = newCheckpointRegistry(n)
	}
}

// WithAutosave enables autosaving with the given configuration.
func WithAutosave(cfg AutosaveConfig) Option {
	return func(e *Engine) {
		e.autosave = newAutosaver(cfg)
	}
}

// WithStore attaches a storage backend used by SaveToStore/LoadFromStore.
func WithStore(store ports.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithCustomEvaluator installs a condition hook consulted before the
// built-in grammar.
func WithCustomEvaluator(custom condition.CustomEvaluator) Option {
	return func(e *Engine) {
		e.evaluator.SetCustomEvaluator(custom)
	}
}

// WithRule registers an additional validation rule at its own priority.
func WithRule(rule validation.Rule) Option {
	return func(e *Engine) {
		e.pipeline.Register(rule)
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithInitialState starts the engine from a previously captured state
// instead of the story's start node. The state is deep-copied.
func WithInitialState(state *domain.State) Option {
	return func(e *Engine) {
		if state != nil {
			e.state = state.Clone()
		}
	}
}

// New creates an engine for the given story. The story is only read, never
// mutated.
func New(st *story.Story, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("story is required")
	}

	e := &Engine{
		story:     st,
		evaluator: condition.NewEvaluator(),
		pipeline:  validation.NewPipeline(),
		logger:    logging.NewNop(),
		clock:     time.Now,
		visits:    make(map[string]int),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.undo == nil {
		e.undo = newHistoryStack(defaultMaxUndoEntries)
	}
	if e.redo == nil {
		e.redo = newHistoryStack(defaultMaxRedoEntries)
	}
	if e.checkpoints == nil {
		e.checkpoints = newCheckpointRegistry(defaultMaxCheckpoints)
	}

	if e.state == nil {
		e.state = domain.NewState(st.Start)
	}
	if _, err := st.Node(e.state.CurrentNodeID); err != nil {
		return nil, fmt.Errorf("initial node %q: %w", e.state.CurrentNodeID, err)
	}

	e.startedAt = e.clock()
	e.visits[e.state.CurrentNodeID]++
	return e, nil
}

// State returns a deep copy of the current engine state.
func (e *Engine) State() *domain.State {
	return e.state.Clone()
}

// CurrentNode returns the node the engine is currently on.
func (e *Engine) CurrentNode() (*domain.Node, error) {
	return e.story.Node(e.state.CurrentNodeID)
}

// Evaluator exposes the condition evaluator for diagnostics and static
// story validation.
func (e *Engine) Evaluator() *condition.Evaluator {
	return e.evaluator
}

// RegisterRule adds a validation rule after construction.
func (e *Engine) RegisterRule(rule validation.Rule) {
	e.pipeline.Register(rule)
}

// RemoveRule removes a validation rule by name.
func (e *Engine) RemoveRule(name string) bool {
	return e.pipeline.Remove(name)
}

// conditionContext builds the read-only view conditions evaluate against.
func (e *Engine) conditionContext() *domain.ConditionContext {
	return &domain.ConditionContext{
		Flags: e.state.Flags,
		Ambient: map[string]any{
			"nodeId":        e.state.CurrentNodeID,
			"historyLength": len(e.state.History),
			"visits":        e.visits[e.state.CurrentNodeID],
			"elapsed":       e.clock().Sub(e.startedAt).Seconds(),
		},
	}
}

// validationContext builds the rule-chain view for the given node.
func (e *Engine) validationContext(node *domain.Node) *domain.ValidationContext {
	return &domain.ValidationContext{
		Node:      node,
		State:     e.state,
		Choices:   node.Choices,
		Timestamp: e.clock(),
	}
}

// conditionGate evaluates a choice's condition expression. Absent
// conditions pass; evaluation failures make the choice invisible.
func (e *Engine) conditionGate(ctx context.Context) validation.Gate {
	cctx := e.conditionContext()
	return func(choice *domain.Choice) (bool, error) {
		if choice.Condition == "" {
			return true, nil
		}
		ok, err := e.evaluator.Evaluate(ctx, choice.Condition, cctx)
		if err != nil {
			e.logger.Debug("condition evaluation failed",
				"choice", choice.Text,
				"err", err)
			return false, err
		}
		return ok, nil
	}
}

// AvailableChoices returns the choices on the current node that pass both
// the validation rule chain and their condition expressions. Per-choice
// failures are absorbed; the pass as a whole only fails when the current
// node itself is missing from the story.
func (e *Engine) AvailableChoices(ctx context.Context) ([]domain.Choice, error) {
	node, err := e.story.Node(e.state.CurrentNodeID)
	if err != nil {
		return nil, err
	}
	return e.pipeline.Filter(node.Choices, e.validationContext(node), e.conditionGate(ctx)), nil
}

// ValidateChoice runs the rule chain and condition gate against a single
// choice without mutating anything.
func (e *Engine) ValidateChoice(ctx context.Context, choice *domain.Choice) (domain.ValidationResult, error) {
	node, err := e.story.Node(e.state.CurrentNodeID)
	if err != nil {
		return domain.ValidationResult{}, err
	}

	result := e.pipeline.ValidateOne(choice, e.validationContext(node))
	if !result.Valid {
		return result, nil
	}

	if choice.Condition != "" {
		ok, evalErr := e.evaluator.Evaluate(ctx, choice.Condition, e.conditionContext())
		if evalErr != nil || !ok {
			reason := fmt.Sprintf("condition %q not met", choice.Condition)
			if evalErr != nil {
				reason = fmt.Sprintf("condition %q failed to evaluate", choice.Condition)
			}
			return domain.ValidationResult{
				Valid:            false,
				Reason:           reason,
				FailedConditions: []string{choice.Condition},
			}, nil
		}
	}

	return domain.ValidationResult{Valid: true}, nil
}

// ChoiceRejectedError reports a choice that failed validation, carrying the
// full result (reason, failed conditions, suggested alternatives).
type ChoiceRejectedError struct {
	ChoiceText string
	Result     domain.ValidationResult
}

func (e *ChoiceRejectedError) Error() string {
	return fmt.Sprintf("choice %q rejected: %s", e.ChoiceText, e.Result.Reason)
}

func (e *ChoiceRejectedError) Unwrap() error { return domain.ErrChoiceNotFound }

// SelectChoice validates and applies a choice: merges its flag effects,
// moves to the target node, and appends it to history. Nothing is committed
// if validation fails or the target node does not exist.
func (e *Engine) SelectChoice(ctx context.Context, choice *domain.Choice) (*domain.State, error) {
	if choice == nil {
		return nil, fmt.Errorf("choice is required: %w", domain.ErrChoiceNotFound)
	}

	result, err := e.ValidateChoice(ctx, choice)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &ChoiceRejectedError{ChoiceText: choice.Text, Result: result}
	}

	// Target existence is checked before any mutation; a dangling target is
	// a fatal navigation failure, never a partial commit.
	if _, err := e.story.Node(choice.Target); err != nil {
		return nil, fmt.Errorf("choice %q target %q: %w", choice.Text, choice.Target, domain.ErrNodeNotFound)
	}

	before := e.state
	e.recordUndo(UndoKindChoice, fmt.Sprintf("choice %q", choice.Text))

	next := e.state.Clone()
	for key, value := range choice.Effects {
		next.Flags[key] = domain.CloneValue(value)
	}
	from := next.CurrentNodeID
	next.CurrentNodeID = choice.Target
	next.History = append(next.History, choice.Target)
	e.state = next
	e.visits[choice.Target]++
	e.mutations++

	now := e.clock()
	e.appendFlowEvent(persistence.FlowEvent{Type: "choice", NodeID: choice.Target, Timestamp: now})
	e.logger.Debug("choice selected", "from", from, "to", choice.Target, "choice", choice.Text)
	e.metrics.MutationApplied("choice")
	e.metrics.SetHistoryDepths(e.undo.len(), e.redo.len())

	e.emitChoice(ctx, from, choice, now)
	e.emitNodeEnter(ctx, choice.Target, now)
	e.emitStateChange(ctx, before)

	e.notifyAutosave(ctx, TriggerChoice)
	return e.State(), nil
}

// SetFlag sets a single flag value. The value is deep-copied so later
// caller-side mutation cannot alias engine state.
func (e *Engine) SetFlag(ctx context.Context, key string, value any) (*domain.State, error) {
	if key == "" {
		return nil, fmt.Errorf("flag key is required")
	}

	before := e.state
	e.recordUndo(UndoKindFlagChange, fmt.Sprintf("set flag %q", key))

	next := e.state.Clone()
	next.Flags[key] = domain.CloneValue(value)
	e.state = next
	e.mutations++

	e.logger.Debug("flag set", "key", key)
	e.metrics.MutationApplied("flag_change")
	e.metrics.SetHistoryDepths(e.undo.len(), e.redo.len())

	if e.hooks.OnFlagChange != nil {
		e.hooks.OnFlagChange(ctx, &domain.FlagEvent{
			EventBase: domain.EventBase{Timestamp: e.clock(), Type: domain.EventFlagChange},
			Key:       key,
			Value:     domain.CloneValue(value),
		})
	}
	e.emitStateChange(ctx, before)

	e.notifyAutosave(ctx, TriggerFlagChange)
	return e.State(), nil
}

// LoadSimpleState replaces the engine state with a bare state value,
// without serializer metadata checks. The node it points at must exist.
func (e *Engine) LoadSimpleState(ctx context.Context, state *domain.State) error {
	if state == nil {
		return fmt.Errorf("state is required: %w", domain.ErrInvalidSnapshot)
	}
	if _, err := e.story.Node(state.CurrentNodeID); err != nil {
		return fmt.Errorf("loaded state points at node %q: %w", state.CurrentNodeID, domain.ErrNodeNotFound)
	}

	before := e.state
	e.recordUndo(UndoKindStateLoad, "state load")

	e.state = state.Clone()
	e.visits[e.state.CurrentNodeID]++
	e.mutations++

	e.logger.Debug("state loaded", "node", e.state.CurrentNodeID)
	e.metrics.MutationApplied("state_load")
	e.metrics.SetHistoryDepths(e.undo.len(), e.redo.len())

	e.emitRestore(ctx, "state-load")
	e.emitStateChange(ctx, before)

	e.notifyAutosave(ctx, TriggerStateLoad)
	return nil
}

// Reset returns the engine to the story's start node with empty flags and
// history. The reset itself is undoable.
func (e *Engine) Reset(ctx context.Context) *domain.State {
	before := e.state
	e.recordUndo(UndoKindReset, "reset")

	e.state = domain.NewState(e.story.Start)
	e.visits[e.story.Start]++
	e.mutations++

	e.logger.Debug("narrative reset", "start", e.story.Start)
	e.metrics.MutationApplied("reset")
	e.metrics.SetHistoryDepths(e.undo.len(), e.redo.len())

	now := e.clock()
	e.emitNodeEnter(ctx, e.story.Start, now)
	e.emitStateChange(ctx, before)

	e.notifyAutosave(ctx, TriggerStateLoad)
	return e.State()
}

// recordUndo pushes a pre-mutation snapshot and clears the redo stack.
// New mutations invalidate the redo path; replays record nothing.
func (e *Engine) recordUndo(kind UndoKind, description string) {
	if e.replaying {
		return
	}
	e.undo.push(UndoEntry{
		Kind:        kind,
		Snapshot:    e.state.Clone(),
		At:          e.clock(),
		Description: description,
	})
	e.redo.clear()
}

func (e *Engine) appendFlowEvent(ev persistence.FlowEvent) {
	e.flowEvents = append(e.flowEvents, ev)
	if len(e.flowEvents) > maxFlowEvents {
		e.flowEvents = e.flowEvents[len(e.flowEvents)-maxFlowEvents:]
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, nodeID string, at time.Time) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: at, Type: domain.EventNodeEnter},
		NodeID:    nodeID,
	})
}

func (e *Engine) emitChoice(ctx context.Context, from string, choice *domain.Choice, at time.Time) {
	if e.hooks.OnChoice == nil {
		return
	}
	e.hooks.OnChoice(ctx, &domain.ChoiceEvent{
		EventBase:  domain.EventBase{Timestamp: at, Type: domain.EventChoice},
		FromNodeID: from,
		ToNodeID:   choice.Target,
		ChoiceText: choice.Text,
	})
}

func (e *Engine) emitRestore(ctx context.Context, source string) {
	if e.hooks.OnRestore == nil {
		return
	}
	e.hooks.OnRestore(ctx, &domain.RestoreEvent{
		EventBase: domain.EventBase{Timestamp: e.clock(), Type: domain.EventRestore},
		Source:    source,
		NodeID:    e.state.CurrentNodeID,
	})
}

func (e *Engine) emitStateChange(ctx context.Context, before *domain.State) {
	if e.hooks.OnStateChange == nil {
		return
	}
	if diff := domain.Diff(before, e.state); diff != nil {
		e.hooks.OnStateChange(ctx, diff)
	}
}
