package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arborlabs/arbor/internal/presentation/graph"
	"github.com/arborlabs/arbor/pkg/domain"
	"github.com/arborlabs/arbor/pkg/story"
)

func testStory() *story.Story {
	return &story.Story{
		ID:    "demo",
		Start: "start",
		Nodes: map[string]domain.Node{
			"start": {ID: "start", Title: "The Gate", Choices: []domain.Choice{
				{Text: "Enter", Target: "the-end", Condition: `flags.key == "brass"`},
			}},
			"the-end": {ID: "the-end", Title: "The End"},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	t.Run("node shapes", func(t *testing.T) {
		out := graph.GenerateMermaid(testStory(), nil)

		assert.True(t, strings.HasPrefix(out, "graph TD\n"))
		assert.Contains(t, out, `start(("The Gate"))`)
		assert.Contains(t, out, `the_end(["The End"])`)
	})

	t.Run("condition becomes an edge label with quotes stripped", func(t *testing.T) {
		out := graph.GenerateMermaid(testStory(), nil)
		assert.Contains(t, out, `start -- "flags.key == 'brass'" --> the_end`)
	})

	t.Run("overlay styles visited and current nodes", func(t *testing.T) {
		out := graph.GenerateMermaid(testStory(), &graph.Overlay{
			VisitedNodes: []string{"start", "start"},
			CurrentNode:  "the-end",
		})

		assert.Equal(t, 1, strings.Count(out, "class start visited;"))
		assert.Contains(t, out, "class the_end current;")
	})
}
