/*
Package arbor is a choice-based narrative state engine. It drives a story
graph of nodes and choices, evaluates safe boolean conditions over player
flags, and manages the full lifecycle of narrative state: bounded
undo/redo, throttled autosave, addressable checkpoints, and versioned,
checksummed save files.

The engine is deliberately split along hexagonal lines: the story graph
(pkg/story) is immutable input, the state core lives behind this facade,
and persistence reaches storage only through the narrow ports.Store
interface, with in-memory, filesystem, and Redis adapters provided under
pkg/adapters.

# Conditions

Choices may carry a condition expression gating their visibility:

	- text: "Enter the vault"
	  target: vault
	  condition: flags.curiosity >= 3 && !flags.banned

Expressions are parsed by a restricted recursive-descent grammar: literals,
flags.* and context.* property access, comparisons, && || !, and
parentheses. There are no function calls and no assignment, and identifiers
that name execution primitives are rejected before evaluation. Absent flags
compare equal only to null/undefined and never make a comparison fail with
an error.

# Usage

	eng, err := arbor.NewFromFile("story.yaml",
		arbor.WithAutosave(arbor.AutosaveConfig{
			Enabled:     true,
			MinInterval: 5 * time.Second,
		}),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	choices, _ := eng.AvailableChoices(ctx)
	state, err := eng.SelectChoice(ctx, &choices[0])
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(state.CurrentNodeID)

Every mutation is atomic and undoable:

	state, undoDepth, redoDepth, err := eng.Undo(ctx)

Snapshots round-trip through any ports.Store backend:

	_ = eng.SaveToStore(ctx, "slot-1", &arbor.SaveOptions{Checksum: true})
	_ = eng.LoadFromStore(ctx, "slot-1", &arbor.LoadOptions{VerifyChecksum: true})
*/
package arbor
