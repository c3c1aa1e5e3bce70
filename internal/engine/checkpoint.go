package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/arborlabs/arbor/pkg/domain"
)

// Checkpoint is an explicit, addressable deep snapshot of engine state,
// distinct from the undo/redo history.
type Checkpoint struct {
	ID        string
	Name      string
	CreatedAt time.Time
	State     *domain.State
	Tags      []string

	// Metadata holds the standard summary fields (nodeTitle, flagCount,
	// historyLength) merged with caller-supplied custom entries.
	Metadata map[string]any
}

// DecodeMeta decodes the checkpoint metadata into a typed struct, for
// callers that attach structured custom entries.
func (c *Checkpoint) DecodeMeta(out any) error {
	return mapstructure.Decode(c.Metadata, out)
}

// clone returns an isolated copy so registry internals never escape.
func (c *Checkpoint) clone() *Checkpoint {
	cp := &Checkpoint{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		State:     c.State.Clone(),
		Tags:      append([]string(nil), c.Tags...),
	}
	if c.Metadata != nil {
		cp.Metadata = domain.CloneValue(c.Metadata).(map[string]any)
	}
	return cp
}

// CheckpointOptions customizes checkpoint creation.
type CheckpointOptions struct {
	// Tags are free-form labels. Autosave tags its checkpoints with
	// "autosave" plus the trigger name.
	Tags []string

	// Metadata is merged into the standard summary fields; caller keys win.
	Metadata map[string]any

	// SkipMetadata omits the standard summary fields entirely.
	SkipMetadata bool
}

// checkpointRegistry is a bounded, creation-ordered checkpoint store.
// It has its own lock because the autosave goroutine writes to it.
type checkpointRegistry struct {
	mu    sync.Mutex
	max   int
	order []string
	byID  map[string]*Checkpoint
}

func newCheckpointRegistry(max int) *checkpointRegistry {
	if max < 1 {
		max = 1
	}
	return &checkpointRegistry{max: max, byID: make(map[string]*Checkpoint)}
}

func (r *checkpointRegistry) add(cp *Checkpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Oldest-first eviction, independent of tags.
	for len(r.order) >= r.max {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.byID, oldest)
	}

	r.order = append(r.order, cp.ID)
	r.byID[cp.ID] = cp
}

func (r *checkpointRegistry) get(id string) (*Checkpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, ok := r.byID[id]
	return cp, ok
}

func (r *checkpointRegistry) delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *checkpointRegistry) list() []*Checkpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Checkpoint, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *checkpointRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// CreateCheckpoint deep-snapshots the current state under a fresh id.
func (e *Engine) CreateCheckpoint(name string, opts *CheckpointOptions) (*Checkpoint, error) {
	cp := e.newCheckpoint(e.state.Clone(), name, opts)
	e.checkpoints.add(cp)
	e.metrics.SetCheckpoints(e.checkpoints.len())
	e.logger.Debug("checkpoint created", "id", cp.ID, "name", name)
	return cp.clone(), nil
}

// newCheckpoint builds a checkpoint from an already-isolated snapshot.
// The autosave goroutine calls it with a snapshot taken at commit time.
func (e *Engine) newCheckpoint(snapshot *domain.State, name string, opts *CheckpointOptions) *Checkpoint {
	if opts == nil {
		opts = &CheckpointOptions{}
	}

	cp := &Checkpoint{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: e.clock(),
		State:     snapshot,
		Tags:      append([]string(nil), opts.Tags...),
	}

	if !opts.SkipMetadata {
		title := snapshot.CurrentNodeID
		if node, err := e.story.Node(snapshot.CurrentNodeID); err == nil && node.Title != "" {
			title = node.Title
		}
		cp.Metadata = map[string]any{
			"nodeTitle":     title,
			"flagCount":     len(snapshot.Flags),
			"historyLength": len(snapshot.History),
		}
	}
	for k, v := range opts.Metadata {
		if cp.Metadata == nil {
			cp.Metadata = make(map[string]any)
		}
		cp.Metadata[k] = domain.CloneValue(v)
	}

	return cp
}

// RestoreCheckpoint replaces the engine state with a checkpoint snapshot.
// Restoring is a direct replacement: it does not push an undo entry and
// does not trigger autosave.
func (e *Engine) RestoreCheckpoint(ctx context.Context, id string) (*domain.State, error) {
	cp, ok := e.checkpoints.get(id)
	if !ok {
		return nil, fmt.Errorf("checkpoint %q: %w", id, domain.ErrCheckpointNotFound)
	}

	e.replaying = true
	e.state = cp.State.Clone()
	e.replaying = false

	e.logger.Debug("checkpoint restored", "id", id, "node", e.state.CurrentNodeID)
	e.emitRestore(ctx, "checkpoint")
	return e.State(), nil
}

// Checkpoints lists all checkpoints in creation order.
func (e *Engine) Checkpoints() []*Checkpoint {
	stored := e.checkpoints.list()
	out := make([]*Checkpoint, len(stored))
	for i, cp := range stored {
		out[i] = cp.clone()
	}
	return out
}

// Checkpoint returns a single checkpoint by id.
func (e *Engine) Checkpoint(id string) (*Checkpoint, error) {
	cp, ok := e.checkpoints.get(id)
	if !ok {
		return nil, fmt.Errorf("checkpoint %q: %w", id, domain.ErrCheckpointNotFound)
	}
	return cp.clone(), nil
}

// DeleteCheckpoint removes a checkpoint by id.
func (e *Engine) DeleteCheckpoint(id string) error {
	if !e.checkpoints.delete(id) {
		return fmt.Errorf("checkpoint %q: %w", id, domain.ErrCheckpointNotFound)
	}
	e.metrics.SetCheckpoints(e.checkpoints.len())
	return nil
}
