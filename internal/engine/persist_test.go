package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlabs/arbor/pkg/adapters/memory"
	"github.com/arborlabs/arbor/pkg/domain"
	"github.com/arborlabs/arbor/pkg/persistence"
)

func TestSaveState(t *testing.T) {
	ctx := context.Background()

	t.Run("captures state and provenance", func(t *testing.T) {
		e := mustEngine(t)
		_, err := e.SetFlag(ctx, "quest", map[string]any{"stage": 2, "items": []any{"rope", "torch"}})
		require.NoError(t, err)

		snap, err := e.SaveState(ctx, &SaveOptions{Checksum: true, Custom: map[string]any{"slot": "quick"}})
		require.NoError(t, err)

		assert.Equal(t, persistence.EngineVersion, snap.Metadata.EngineVersion)
		assert.Equal(t, "test-story", snap.Metadata.StoryID)
		assert.NotEmpty(t, snap.Metadata.Timestamp)
		assert.NotEmpty(t, snap.Metadata.Checksum)
		assert.Equal(t, "quick", snap.Metadata.Custom["slot"])
	})

	t.Run("snapshot is isolated from the live state", func(t *testing.T) {
		e := mustEngine(t)
		snap, err := e.SaveState(ctx, nil)
		require.NoError(t, err)

		snap.State.Flags["tampered"] = true
		assert.NotContains(t, e.State().Flags, "tampered")
	})

	t.Run("optional telemetry embeds", func(t *testing.T) {
		e := mustEngine(t)
		_, err := e.SelectChoice(ctx, &domain.Choice{Text: "Walk away", Target: "road"})
		require.NoError(t, err)

		snap, err := e.SaveState(ctx, &SaveOptions{FlowEvents: true, Performance: true})
		require.NoError(t, err)

		require.NotEmpty(t, snap.FlowEvents)
		assert.Equal(t, "road", snap.FlowEvents[0].NodeID)
		require.NotNil(t, snap.Performance)
		assert.Equal(t, 1, snap.Performance.Mutations)
	})
}

func TestLoadState(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips nested flags exactly", func(t *testing.T) {
		e := mustEngine(t)
		_, err := e.SetFlag(ctx, "quest", map[string]any{
			"stage": 2,
			"log":   []any{"met the hermit", map[string]any{"day": 3}},
		})
		require.NoError(t, err)
		_, err = e.SelectChoice(ctx, &domain.Choice{Text: "Walk away", Target: "road"})
		require.NoError(t, err)
		saved := e.State()

		snap, err := e.SaveState(ctx, &SaveOptions{Checksum: true})
		require.NoError(t, err)

		e2 := mustEngine(t)
		require.NoError(t, e2.LoadState(ctx, snap, &LoadOptions{VerifyChecksum: true}))
		assert.Equal(t, saved, e2.State())
	})

	t.Run("checksum mismatch fails the load", func(t *testing.T) {
		e := mustEngine(t)
		snap, err := e.SaveState(ctx, &SaveOptions{Checksum: true})
		require.NoError(t, err)

		snap.State.Flags["injected"] = true
		err = e.LoadState(ctx, snap, &LoadOptions{VerifyChecksum: true})
		assert.ErrorIs(t, err, domain.ErrChecksumMismatch)
	})

	t.Run("structural validation fails fast", func(t *testing.T) {
		e := mustEngine(t)
		err := e.LoadState(ctx, &persistence.SerializedState{}, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)

		err = e.LoadState(ctx, nil, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)
	})

	t.Run("snapshots from a newer engine are rejected", func(t *testing.T) {
		e := mustEngine(t)
		snap, err := e.SaveState(ctx, nil)
		require.NoError(t, err)
		snap.Metadata.EngineVersion = "99.0.0"

		err = e.LoadState(ctx, snap, nil)
		assert.ErrorIs(t, err, domain.ErrIncompatibleVersion)

		err = e.LoadState(ctx, snap, &LoadOptions{SkipCompatibilityCheck: true})
		assert.NoError(t, err)
	})

	t.Run("migration transforms before restore", func(t *testing.T) {
		e := mustEngine(t)
		_, err := e.SetFlag(ctx, "karma_points", 3)
		require.NoError(t, err)
		snap, err := e.SaveState(ctx, nil)
		require.NoError(t, err)

		e2 := mustEngine(t)
		migrate := func(s *persistence.SerializedState) error {
			if v, ok := s.State.Flags["karma_points"]; ok {
				s.State.Flags["karma"] = v
				delete(s.State.Flags, "karma_points")
			}
			return nil
		}
		require.NoError(t, e2.LoadState(ctx, snap, &LoadOptions{Migration: migrate}))

		assert.Equal(t, 3, e2.State().Flags["karma"])
		assert.NotContains(t, e2.State().Flags, "karma_points")

		// The caller's snapshot is untouched.
		assert.Contains(t, snap.State.Flags, "karma_points")
	})

	t.Run("load points the engine at an existing node", func(t *testing.T) {
		e := mustEngine(t)
		snap, err := e.SaveState(ctx, nil)
		require.NoError(t, err)
		snap.State.CurrentNodeID = "nowhere"

		err = e.LoadState(ctx, snap, nil)
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	// JSON numbers decode as float64; using float64 here keeps the
	// round-trip comparison exact.
	e := mustEngine(t, WithStore(store))
	_, err := e.SetFlag(ctx, "curiosity", 5.0)
	require.NoError(t, err)
	_, err = e.SelectChoice(ctx, &domain.Choice{
		Text: "Enter the vault", Target: "vault", Condition: "flags.curiosity >= 3",
	})
	require.NoError(t, err)
	saved := e.State()

	require.NoError(t, e.SaveToStore(ctx, "slot-1", &SaveOptions{Checksum: true}))

	e2 := mustEngine(t, WithStore(store))
	require.NoError(t, e2.LoadFromStore(ctx, "slot-1", &LoadOptions{VerifyChecksum: true}))
	assert.Equal(t, saved, e2.State())

	t.Run("missing key surfaces the sentinel", func(t *testing.T) {
		err := e2.LoadFromStore(ctx, "no-such-slot", nil)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("no store configured", func(t *testing.T) {
		bare := mustEngine(t)
		assert.Error(t, bare.SaveToStore(ctx, "x", nil))
		assert.Error(t, bare.LoadFromStore(ctx, "x", nil))
	})
}
