package arbor_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlabs/arbor"
	"github.com/arborlabs/arbor/pkg/adapters/memory"
	"github.com/arborlabs/arbor/pkg/domain"
)

const demoStory = `
id: the-heist
title: The Heist
start: lobby
nodes:
  lobby:
    title: Bank Lobby
    text: Marble floors. A guard eyes you.
    choices:
      - text: Slip into the vault corridor
        target: corridor
        condition: flags.curiosity >= 3
      - text: Chat with the guard
        target: guard
        effects:
          curiosity: 5
      - text: Leave quietly
        target: street
  corridor:
    title: Vault Corridor
    choices:
      - text: Open the vault
        target: vault
        effects:
          alarm: true
      - text: Retreat to the lobby
        target: lobby
  guard:
    title: The Guard
    choices:
      - text: Back away
        target: lobby
  vault:
    title: Inside the Vault
  street:
    title: The Street
`

func mustLoad(t *testing.T, opts ...arbor.Option) *arbor.Engine {
	t.Helper()
	eng, err := arbor.NewFromReader(strings.NewReader(demoStory), opts...)
	require.NoError(t, err)
	return eng
}

func TestConditionGatedChoice(t *testing.T) {
	ctx := context.Background()
	eng := mustLoad(t)

	choices, err := eng.AvailableChoices(ctx)
	require.NoError(t, err)
	require.Len(t, choices, 2)

	_, err = eng.SetFlag(ctx, "curiosity", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, eng.UndoCount())

	choices, err = eng.AvailableChoices(ctx)
	require.NoError(t, err)
	require.Len(t, choices, 3)
	assert.Equal(t, "Slip into the vault corridor", choices[0].Text)
}

func TestPlaythroughWithUndo(t *testing.T) {
	ctx := context.Background()
	eng := mustLoad(t)

	choices, err := eng.AvailableChoices(ctx)
	require.NoError(t, err)
	state, err := eng.SelectChoice(ctx, &choices[0]) // chat with the guard
	require.NoError(t, err)
	assert.Equal(t, "guard", state.CurrentNodeID)
	assert.Equal(t, 5, state.Flags["curiosity"])

	restored, _, _, err := eng.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lobby", restored.CurrentNodeID)
	assert.NotContains(t, restored.Flags, "curiosity")

	replayed, _, _, err := eng.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, replayed)
}

func TestCheckpointScenario(t *testing.T) {
	ctx := context.Background()
	eng := mustLoad(t)

	_, err := eng.SetFlag(ctx, "curiosity", 5)
	require.NoError(t, err)
	cp, err := eng.CreateCheckpoint("before-risk", nil)
	require.NoError(t, err)

	choices, err := eng.AvailableChoices(ctx)
	require.NoError(t, err)
	_, err = eng.SelectChoice(ctx, &choices[0]) // into the corridor
	require.NoError(t, err)
	choices, err = eng.AvailableChoices(ctx)
	require.NoError(t, err)
	_, err = eng.SelectChoice(ctx, &choices[0]) // open the vault
	require.NoError(t, err)
	require.Equal(t, "vault", eng.State().CurrentNodeID)

	undoDepth := eng.UndoCount()
	restored, err := eng.RestoreCheckpoint(ctx, cp.ID)
	require.NoError(t, err)

	assert.Equal(t, "lobby", restored.CurrentNodeID)
	assert.NotContains(t, restored.Flags, "alarm")
	// Restore is not itself undoable.
	assert.Equal(t, undoDepth, eng.UndoCount())
}

func TestAutosaveThrottleScenario(t *testing.T) {
	ctx := context.Background()

	saves := make(chan string, 8)
	eng := mustLoad(t,
		arbor.WithAutosave(arbor.AutosaveConfig{
			Enabled:     true,
			MinInterval: 100 * time.Millisecond,
		}),
		arbor.WithLifecycleHooks(domain.LifecycleHooks{
			OnAutosave: func(_ context.Context, ev *domain.AutosaveEvent) {
				saves <- ev.CheckpointID
			},
		}))

	_, err := eng.SetFlag(ctx, "a", 1)
	require.NoError(t, err)
	_, err = eng.SetFlag(ctx, "b", 2)
	require.NoError(t, err)
	eng.FlushAutosave()
	assert.Len(t, saves, 1)

	time.Sleep(120 * time.Millisecond)
	_, err = eng.SetFlag(ctx, "c", 3)
	require.NoError(t, err)
	eng.FlushAutosave()
	assert.Len(t, saves, 2)
}

func TestSaveLoadThroughStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	eng := mustLoad(t, arbor.WithStore(store))
	_, err := eng.SetFlag(ctx, "curiosity", 5.0)
	require.NoError(t, err)
	choices, err := eng.AvailableChoices(ctx)
	require.NoError(t, err)
	_, err = eng.SelectChoice(ctx, &choices[0])
	require.NoError(t, err)
	saved := eng.State()

	require.NoError(t, eng.SaveToStore(ctx, "slot-1", &arbor.SaveOptions{Checksum: true}))

	fresh := mustLoad(t, arbor.WithStore(store))
	require.NoError(t, fresh.LoadFromStore(ctx, "slot-1", &arbor.LoadOptions{VerifyChecksum: true}))
	assert.Equal(t, saved, fresh.State())
}

func TestCustomRule(t *testing.T) {
	ctx := context.Background()
	eng := mustLoad(t, arbor.WithRule(blockTargets{"street"}))

	choices, err := eng.AvailableChoices(ctx)
	require.NoError(t, err)
	for _, c := range choices {
		assert.NotEqual(t, "street", c.Target)
	}
}

// blockTargets hides every choice pointing at one of the listed targets.
type blockTargets []string

func (blockTargets) Name() string  { return "block-targets" }
func (blockTargets) Priority() int { return 100 }

func (b blockTargets) Check(choice *domain.Choice, _ *domain.ValidationContext) *domain.RuleFailure {
	for _, target := range b {
		if choice.Target == target {
			return &domain.RuleFailure{Reason: "path is blocked"}
		}
	}
	return nil
}

func TestCustomEvaluatorHook(t *testing.T) {
	ctx := context.Background()
	eng := mustLoad(t, arbor.WithCustomEvaluator(
		func(_ context.Context, expression string, _ *domain.ConditionContext) (bool, error) {
			if expression == "flags.curiosity >= 3" {
				return true, nil
			}
			return false, arbor.ErrConditionNotHandled
		}))

	choices, err := eng.AvailableChoices(ctx)
	require.NoError(t, err)
	assert.Len(t, choices, 3)
}

func TestValidateStory(t *testing.T) {
	t.Run("clean story has no issues", func(t *testing.T) {
		eng := mustLoad(t)
		assert.Empty(t, eng.ValidateStory())
	})

	t.Run("dangling target and bad condition are reported", func(t *testing.T) {
		broken := `
id: broken
start: a
nodes:
  a:
    choices:
      - text: Into the void
        target: nowhere
      - text: Glitch
        target: a
        condition: "flags.x ==="
`
		eng, err := arbor.NewFromReader(strings.NewReader(broken))
		require.NoError(t, err)

		issues := eng.ValidateStory()
		require.NotEmpty(t, issues)
		assert.GreaterOrEqual(t, len(issues), 2)
	})
}

func TestRejectedChoiceCarriesDiagnostics(t *testing.T) {
	ctx := context.Background()
	eng := mustLoad(t)

	_, err := eng.SelectChoice(ctx, &domain.Choice{
		Text:      "Slip into the vault corridor",
		Target:    "corridor",
		Condition: "flags.curiosity >= 3",
	})
	require.Error(t, err)

	var rejected *arbor.ChoiceRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, rejected.Result.FailedConditions, "flags.curiosity >= 3")
}
