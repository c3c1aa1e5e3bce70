package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/arborlabs/arbor/pkg/domain"
	"github.com/arborlabs/arbor/pkg/persistence"
)

// SaveOptions customizes snapshot production.
type SaveOptions struct {
	// Checksum embeds a SHA-256 digest of the state payload.
	Checksum bool

	// Custom is attached verbatim to the snapshot metadata.
	Custom map[string]any

	// FlowEvents embeds recent narrative telemetry.
	FlowEvents bool

	// Performance embeds a coarse runtime profile.
	Performance bool
}

// LoadOptions customizes snapshot restoration.
type LoadOptions struct {
	// VerifyChecksum recomputes and compares the embedded checksum.
	VerifyChecksum bool

	// SkipCompatibilityCheck accepts snapshots from newer engine versions.
	SkipCompatibilityCheck bool

	// Migration transforms the snapshot before it is restored.
	Migration persistence.Migration
}

// SaveState produces a serializable deep copy of the current engine state
// plus provenance metadata. The engine keeps no reference to the result.
func (e *Engine) SaveState(ctx context.Context, opts *SaveOptions) (*persistence.SerializedState, error) {
	if opts == nil {
		opts = &SaveOptions{}
	}

	snap := &persistence.SerializedState{
		State: e.state.Clone(),
		Metadata: persistence.Metadata{
			EngineVersion: persistence.EngineVersion,
			Timestamp:     e.clock().UTC().Format(time.RFC3339),
			StoryID:       e.story.ID,
		},
	}

	if opts.Checksum {
		sum, err := persistence.Checksum(snap.State)
		if err != nil {
			return nil, fmt.Errorf("computing checksum: %w", err)
		}
		snap.Metadata.Checksum = sum
	}
	if opts.Custom != nil {
		snap.Metadata.Custom = domain.CloneValue(opts.Custom).(map[string]any)
	}
	if opts.FlowEvents && len(e.flowEvents) > 0 {
		snap.FlowEvents = append([]persistence.FlowEvent(nil), e.flowEvents...)
	}
	if opts.Performance {
		autosaves, lastSave := e.autosave.stats()
		snap.Performance = &persistence.PerformanceSnapshot{
			Mutations:   e.mutations,
			Autosaves:   autosaves,
			Checkpoints: e.checkpoints.len(),
			LastSave:    lastSave,
		}
	}

	e.logger.Debug("state saved", "node", snap.State.CurrentNodeID, "checksum", snap.Metadata.Checksum != "")
	return snap, nil
}

// LoadState validates and restores a serialized snapshot:
// structural validation, optional checksum verification, engine version
// compatibility, optional migration, then state replacement. The snapshot
// is never mutated unless a migration is supplied, in which case the
// migration runs on a private copy.
func (e *Engine) LoadState(ctx context.Context, snap *persistence.SerializedState, opts *LoadOptions) error {
	if opts == nil {
		opts = &LoadOptions{}
	}
	if snap == nil {
		return fmt.Errorf("snapshot is required: %w", domain.ErrInvalidSnapshot)
	}

	if err := snap.Validate(); err != nil {
		return err
	}
	if opts.VerifyChecksum {
		if err := snap.VerifyChecksum(); err != nil {
			return err
		}
	}
	if !opts.SkipCompatibilityCheck {
		if err := snap.CheckCompatibility(persistence.EngineVersion); err != nil {
			return err
		}
	}

	if opts.Migration != nil {
		migrated := &persistence.SerializedState{
			State:      snap.State.Clone(),
			Metadata:   snap.Metadata,
			FlowEvents: append([]persistence.FlowEvent(nil), snap.FlowEvents...),
		}
		if snap.Performance != nil {
			perf := *snap.Performance
			migrated.Performance = &perf
		}
		if err := opts.Migration(migrated); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if err := migrated.Validate(); err != nil {
			return fmt.Errorf("migration produced invalid snapshot: %w", err)
		}
		snap = migrated
	}

	e.logger.Debug("state restored from snapshot",
		"node", snap.State.CurrentNodeID,
		"snapshotVersion", snap.Metadata.EngineVersion)
	return e.LoadSimpleState(ctx, snap.State)
}

// SaveToStore serializes the current state and writes it to the configured
// storage backend under the given key.
func (e *Engine) SaveToStore(ctx context.Context, key string, opts *SaveOptions) error {
	if e.store == nil {
		return fmt.Errorf("no store configured")
	}

	snap, err := e.SaveState(ctx, opts)
	if err != nil {
		return err
	}
	data, err := persistence.Encode(snap)
	if err != nil {
		return err
	}
	if err := e.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("writing snapshot %q: %w", key, err)
	}
	return nil
}

// LoadFromStore reads a snapshot from the configured storage backend and
// restores it.
func (e *Engine) LoadFromStore(ctx context.Context, key string, opts *LoadOptions) error {
	if e.store == nil {
		return fmt.Errorf("no store configured")
	}

	data, err := e.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("reading snapshot %q: %w", key, err)
	}
	snap, err := persistence.Decode(data)
	if err != nil {
		return err
	}
	return e.LoadState(ctx, snap, opts)
}
