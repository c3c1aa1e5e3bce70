package engine

import (
	"context"
	"time"

	"github.com/arborlabs/arbor/pkg/domain"
)

// UndoKind tags the mutation that produced an undo entry.
type UndoKind string

const (
	UndoKindChoice     UndoKind = "choice"
	UndoKindFlagChange UndoKind = "flag-change"
	UndoKindStateLoad  UndoKind = "state-load"
	UndoKindReset      UndoKind = "reset"
)

// UndoEntry is a pre-mutation snapshot together with what caused it.
type UndoEntry struct {
	Kind        UndoKind
	Snapshot    *domain.State
	At          time.Time
	Description string
}

// historyStack is a bounded LIFO stack. Pushing onto a full stack evicts
// the oldest entry, so the stack always holds the most recent snapshots.
type historyStack struct {
	max     int
	entries []UndoEntry
}

func newHistoryStack(max int) *historyStack {
	if max < 0 {
		max = 0
	}
	return &historyStack{max: max}
}

func (s *historyStack) push(entry UndoEntry) {
	if s.max == 0 {
		return
	}
	if len(s.entries) >= s.max {
		s.entries = append(s.entries[:0], s.entries[len(s.entries)-s.max+1:]...)
	}
	s.entries = append(s.entries, entry)
}

func (s *historyStack) pop() (UndoEntry, bool) {
	if len(s.entries) == 0 {
		return UndoEntry{}, false
	}
	entry := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return entry, true
}

func (s *historyStack) len() int { return len(s.entries) }

func (s *historyStack) clear() { s.entries = s.entries[:0] }

// Undo restores the most recent pre-mutation snapshot, moving the current
// state onto the redo stack. It returns the restored state and both stack
// depths. An empty undo stack is a checked outcome, not a crash: the error
// matches domain.ErrNothingToUndo.
func (e *Engine) Undo(ctx context.Context) (*domain.State, int, int, error) {
	entry, ok := e.undo.pop()
	if !ok {
		return nil, 0, e.redo.len(), domain.ErrNothingToUndo
	}

	e.redo.push(UndoEntry{
		Kind:        entry.Kind,
		Snapshot:    e.state,
		At:          e.clock(),
		Description: entry.Description,
	})

	e.replaying = true
	e.state = entry.Snapshot
	e.replaying = false

	e.logger.Debug("undo applied", "kind", entry.Kind, "node", e.state.CurrentNodeID)
	e.metrics.SetHistoryDepths(e.undo.len(), e.redo.len())
	e.emitRestore(ctx, "undo")

	return e.State(), e.undo.len(), e.redo.len(), nil
}

// Redo is the mirror of Undo, replaying the most recently undone mutation.
func (e *Engine) Redo(ctx context.Context) (*domain.State, int, int, error) {
	entry, ok := e.redo.pop()
	if !ok {
		return nil, e.undo.len(), 0, domain.ErrNothingToRedo
	}

	e.undo.push(UndoEntry{
		Kind:        entry.Kind,
		Snapshot:    e.state,
		At:          e.clock(),
		Description: entry.Description,
	})

	e.replaying = true
	e.state = entry.Snapshot
	e.replaying = false

	e.logger.Debug("redo applied", "kind", entry.Kind, "node", e.state.CurrentNodeID)
	e.metrics.SetHistoryDepths(e.undo.len(), e.redo.len())
	e.emitRestore(ctx, "redo")

	return e.State(), e.undo.len(), e.redo.len(), nil
}

// UndoCount returns the current undo stack depth.
func (e *Engine) UndoCount() int { return e.undo.len() }

// RedoCount returns the current redo stack depth.
func (e *Engine) RedoCount() int { return e.redo.len() }
