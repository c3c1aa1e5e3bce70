package domain

import "errors"

// ErrNodeNotFound is returned when a node ID cannot be resolved in the
// story graph. Selecting a choice with an unresolvable target is a fatal
// navigation failure: no partial mutation is committed.
var ErrNodeNotFound = errors.New("node not found")

// ErrChoiceNotFound is returned when a choice is not a member of the
// current node's choice list (stale reference).
var ErrChoiceNotFound = errors.New("choice not found on current node")

// ErrNothingToUndo is returned by Undo when the undo stack is empty.
// This is a normal checked outcome, not an exceptional condition.
var ErrNothingToUndo = errors.New("no operations to undo")

// ErrNothingToRedo is returned by Redo when the redo stack is empty.
var ErrNothingToRedo = errors.New("no operations to redo")

// ErrCheckpointNotFound is returned when a checkpoint ID is absent from
// the checkpoint store.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ErrInvalidSnapshot is returned when a serialized state fails structural
// validation (missing required fields, malformed shape).
var ErrInvalidSnapshot = errors.New("invalid serialized state")

// ErrChecksumMismatch is returned when a snapshot's embedded checksum does
// not match the recomputed value (tamper or corruption).
var ErrChecksumMismatch = errors.New("checksum verification failed")

// ErrIncompatibleVersion is returned when a snapshot was produced by a
// newer engine than the one loading it.
var ErrIncompatibleVersion = errors.New("snapshot produced by a newer engine version")

// ErrCyclicFlags is returned when the flag graph contains a reference
// cycle and therefore cannot be serialized.
var ErrCyclicFlags = errors.New("flag graph contains a reference cycle")

// ErrStateNotFound is returned by storage adapters when a key does not
// exist in the backend.
var ErrStateNotFound = errors.New("state not found")
