package dsl_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlabs/arbor/pkg/dsl"
)

func TestBuild(t *testing.T) {
	t.Run("builds a valid story", func(t *testing.T) {
		st, err := dsl.New("demo").
			Title("Demo").
			Node("start").
			Title("The Gate").
			Text("You stand before a gate.").
			Choice("Enter", "hall").
			ChoiceWhen("Sneak past", "garden", "flags.stealth >= 2").
			Node("hall").
			Text("A grand hall.").
			Node("garden").
			Text("A quiet garden.").
			Build()
		require.NoError(t, err)

		assert.Equal(t, "demo", st.ID)
		assert.Equal(t, "Demo", st.Title)
		assert.Equal(t, "start", st.Start)
		assert.Len(t, st.Nodes, 3)

		start, err := st.Node("start")
		require.NoError(t, err)
		require.Len(t, start.Choices, 2)
		assert.Equal(t, "flags.stealth >= 2", start.Choices[1].Condition)
	})

	t.Run("explicit start overrides insertion order", func(t *testing.T) {
		st, err := dsl.New("demo").
			Start("b").
			Node("a").Text("a").
			Node("b").Text("b").
			Build()
		require.NoError(t, err)
		assert.Equal(t, "b", st.Start)
	})

	t.Run("rejects empty story", func(t *testing.T) {
		_, err := dsl.New("empty").Build()
		assert.ErrorContains(t, err, "no nodes")
	})

	t.Run("rejects unknown start", func(t *testing.T) {
		_, err := dsl.New("demo").
			Start("nowhere").
			Node("a").Text("a").
			Build()
		assert.ErrorContains(t, err, "start node")
	})

	t.Run("rejects dangling choice target", func(t *testing.T) {
		_, err := dsl.New("demo").
			Node("a").Choice("Go", "missing").
			Build()
		assert.ErrorContains(t, err, `unknown node "missing"`)
	})
}

func TestChoiceBuilder(t *testing.T) {
	deadline := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	b := dsl.New("demo")
	b.Node("start").
		Text("start").
		Choice("Bribe the guard", "inside").
		LastChoice().
		Effect("bribed", true).
		RequireFlag("reputation", "shady").
		RequireItem("gold", 10).
		Window(time.Time{}, deadline).
		Done().
		Node("inside").Text("inside")

	st, err := b.Build()
	require.NoError(t, err)

	start, err := st.Node("start")
	require.NoError(t, err)
	require.Len(t, start.Choices, 1)

	c := start.Choices[0]
	assert.Equal(t, true, c.Effects["bribed"])
	assert.Equal(t, "shady", c.FlagRequirements["reputation"])
	assert.Equal(t, 10, c.InventoryRequirements["gold"])
	assert.Nil(t, c.AvailableAfter)
	require.NotNil(t, c.AvailableBefore)
	assert.True(t, c.AvailableBefore.Equal(deadline))
}
