package arbor

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arborlabs/arbor/internal/condition"
	"github.com/arborlabs/arbor/internal/engine"
	"github.com/arborlabs/arbor/internal/observability"
	"github.com/arborlabs/arbor/internal/validation"
	"github.com/arborlabs/arbor/pkg/domain"
	"github.com/arborlabs/arbor/pkg/persistence"
	"github.com/arborlabs/arbor/pkg/ports"
	"github.com/arborlabs/arbor/pkg/story"
)

// Engine is the high-level entry point for the Arbor library. It wraps the
// internal state core and exposes the full narrative API: choice filtering
// and selection, flags, undo/redo, checkpoints, autosave, and save/load.
type Engine struct {
	*engine.Engine

	story *story.Story
	Name  string
}

// Shared vocabulary re-exported so hosts never import internal packages.
type (
	// Option configures the engine at construction time.
	Option = engine.Option

	// AutosaveConfig controls the autosave controller.
	AutosaveConfig = engine.AutosaveConfig

	// AutosaveResult reports a completed autosave attempt.
	AutosaveResult = engine.AutosaveResult

	// AutosaveTrigger identifies the mutation kind that requested an autosave.
	AutosaveTrigger = engine.AutosaveTrigger

	// Checkpoint is an explicit, addressable snapshot of engine state.
	Checkpoint = engine.Checkpoint

	// CheckpointOptions customizes checkpoint creation.
	CheckpointOptions = engine.CheckpointOptions

	// SaveOptions customizes snapshot production.
	SaveOptions = engine.SaveOptions

	// LoadOptions customizes snapshot restoration.
	LoadOptions = engine.LoadOptions

	// ChoiceRejectedError reports a choice that failed validation.
	ChoiceRejectedError = engine.ChoiceRejectedError

	// CustomEvaluator is a condition hook consulted before the built-in grammar.
	CustomEvaluator = condition.CustomEvaluator

	// Rule is a custom validation rule for the choice pipeline.
	Rule = validation.Rule

	// Metrics bundles the Prometheus collectors the engine updates.
	Metrics = observability.Metrics
)

const (
	TriggerChoice     = engine.TriggerChoice
	TriggerFlagChange = engine.TriggerFlagChange
	TriggerStateLoad  = engine.TriggerStateLoad
	TriggerManual     = engine.TriggerManual
)

// ErrConditionNotHandled signals from a CustomEvaluator that the expression
// should fall through to the built-in grammar.
var ErrConditionNotHandled = condition.ErrNotHandled

// Version is the engine version embedded in every snapshot.
const Version = persistence.EngineVersion

// WithLogger sets a structured logger. Default is a no-op logger.
func WithLogger(logger *slog.Logger) Option { return engine.WithLogger(logger) }

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return engine.WithLifecycleHooks(hooks)
}

// WithMaxUndoEntries bounds the undo stack. Zero disables undo recording.
func WithMaxUndoEntries(n int) Option { return engine.WithMaxUndoEntries(n) }

// WithMaxRedoEntries bounds the redo stack.
func WithMaxRedoEntries(n int) Option { return engine.WithMaxRedoEntries(n) }

// WithMaxCheckpoints bounds the checkpoint registry.
func WithMaxCheckpoints(n int) Option { return engine.WithMaxCheckpoints(n) }

// WithAutosave enables autosaving with the given configuration.
func WithAutosave(cfg AutosaveConfig) Option { return engine.WithAutosave(cfg) }

// WithStore attaches a storage backend used by SaveToStore/LoadFromStore.
func WithStore(store ports.Store) Option { return engine.WithStore(store) }

// WithCustomEvaluator installs a condition hook consulted before the
// built-in grammar.
func WithCustomEvaluator(custom CustomEvaluator) Option {
	return engine.WithCustomEvaluator(custom)
}

// WithRule registers an additional validation rule at its own priority.
func WithRule(rule Rule) Option { return engine.WithRule(rule) }

// NewMetrics builds the engine's Prometheus collectors and registers them
// on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics { return observability.New(reg) }

// WithMetrics attaches collectors built by NewMetrics.
func WithMetrics(m *Metrics) Option { return engine.WithMetrics(m) }

// WithInitialState starts from a previously captured state instead of the
// story's start node.
func WithInitialState(state *domain.State) Option { return engine.WithInitialState(state) }

// New creates an engine for an already-loaded story.
func New(st *story.Story, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("story is required")
	}

	core, err := engine.New(st, opts...)
	if err != nil {
		return nil, err
	}

	name := st.Title
	if name == "" {
		name = st.ID
	}
	return &Engine{Engine: core, story: st, Name: name}, nil
}

// NewFromFile loads a YAML story from disk and creates an engine for it.
func NewFromFile(path string, opts ...Option) (*Engine, error) {
	st, err := story.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(st, opts...)
}

// NewFromReader loads a YAML story from a reader and creates an engine.
func NewFromReader(r io.Reader, opts ...Option) (*Engine, error) {
	st, err := story.Load(r)
	if err != nil {
		return nil, err
	}
	return New(st, opts...)
}

// Story returns the immutable story graph the engine traverses.
func (e *Engine) Story() *story.Story { return e.story }

// ValidateStory runs structural and static condition checks over the story
// graph: duplicate ids, dangling choice targets, invalid condition
// expressions, unreachable nodes.
func (e *Engine) ValidateStory() []story.Issue {
	return e.story.Validate(e.Evaluator())
}

// Node returns a story node by id.
func (e *Engine) Node(id string) (*domain.Node, error) {
	return e.story.Node(id)
}

// Snapshot is a convenience wrapper producing a checksummed snapshot.
func (e *Engine) Snapshot(ctx context.Context) (*persistence.SerializedState, error) {
	return e.SaveState(ctx, &SaveOptions{Checksum: true})
}
