package story_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlabs/arbor/internal/condition"
	"github.com/arborlabs/arbor/pkg/domain"
	"github.com/arborlabs/arbor/pkg/story"
)

const demoStory = `
id: demo
title: The Hollow Tree
start: start
nodes:
  start:
    title: The Clearing
    text: |
      A hollow tree looms ahead. Something glints inside.
    choices:
      - text: Reach into the hollow
        target: hollow
        effects:
          curiosity: 1
      - text: Walk away
        target: road
  hollow:
    text: Your fingers close around a cold iron key.
    choices:
      - text: Return to the clearing
        target: start
        effects:
          has_key: true
  road:
    text: The road stretches on.
    choices:
      - text: Unlock the gate
        target: gate
        condition: flags.has_key == true
  gate:
    text: The gate creaks open.
`

func TestLoad(t *testing.T) {
	s, err := story.Load(strings.NewReader(demoStory))
	require.NoError(t, err)

	assert.Equal(t, "demo", s.ID)
	assert.Equal(t, "start", s.Start)
	assert.Len(t, s.Nodes, 4)

	node, err := s.Node("start")
	require.NoError(t, err)
	assert.Equal(t, "start", node.ID, "map key backfills node ID")
	assert.Equal(t, "The Clearing", node.Title)
	require.Len(t, node.Choices, 2)
	assert.Equal(t, "hollow", node.Choices[0].Target)
	assert.Equal(t, map[string]any{"curiosity": 1}, node.Choices[0].Effects)
}

func TestLoad_ConflictingNodeID(t *testing.T) {
	_, err := story.Load(strings.NewReader(`
id: bad
start: a
nodes:
  a:
    id: b
    text: mismatch
`))
	assert.Error(t, err)
}

func TestNode_NotFound(t *testing.T) {
	s, err := story.Load(strings.NewReader(demoStory))
	require.NoError(t, err)

	_, err = s.Node("nowhere")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestValidate(t *testing.T) {
	t.Run("valid story has no issues", func(t *testing.T) {
		s, err := story.Load(strings.NewReader(demoStory))
		require.NoError(t, err)
		assert.Empty(t, s.Validate(condition.NewEvaluator()))
	})

	t.Run("dangling target and bad condition are reported together", func(t *testing.T) {
		s, err := story.Load(strings.NewReader(`
id: broken
start: start
nodes:
  start:
    text: hello
    choices:
      - text: Jump
        target: missing
      - text: Sneak
        target: loft
        condition: "eval('boom')"
  loft:
    text: dusty
  attic:
    text: never linked
`))
		require.NoError(t, err)

		issues := s.Validate(condition.NewEvaluator())
		require.Len(t, issues, 3)

		var details []string
		for _, issue := range issues {
			details = append(details, issue.String())
		}
		joined := strings.Join(details, "\n")
		assert.Contains(t, joined, `targets unknown node "missing"`)
		assert.Contains(t, joined, "invalid condition")
		assert.Contains(t, joined, `node "attic": unreachable`)
	})

	t.Run("missing start node", func(t *testing.T) {
		s, err := story.Load(strings.NewReader("id: x\nstart: ghost\nnodes:\n  a:\n    text: hi\n"))
		require.NoError(t, err)

		issues := s.Validate(nil)
		require.NotEmpty(t, issues)
		assert.Contains(t, issues[0].Detail, `start node "ghost" does not exist`)
	})

	t.Run("cycles are legal", func(t *testing.T) {
		s, err := story.Load(strings.NewReader(`
id: loop
start: a
nodes:
  a:
    text: ping
    choices:
      - text: go
        target: b
  b:
    text: pong
    choices:
      - text: back
        target: a
`))
		require.NoError(t, err)
		assert.Empty(t, s.Validate(nil))
	})
}
