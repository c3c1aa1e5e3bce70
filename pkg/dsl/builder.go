package dsl

import (
	"fmt"

	"github.com/arborlabs/arbor/pkg/domain"
	"github.com/arborlabs/arbor/pkg/story"
)

// Builder constructs a story graph programmatically, as an alternative to
// YAML files. Useful for tests and generated stories.
type Builder struct {
	id    string
	title string
	start string
	nodes map[string]*NodeBuilder
	order []string
}

// New creates a builder for a story with the given id.
func New(id string) *Builder {
	return &Builder{
		id:    id,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Title sets the story title.
func (b *Builder) Title(title string) *Builder {
	b.title = title
	return b
}

// Start sets the entry node id. If never called, the first added node is
// the entry.
func (b *Builder) Start(id string) *Builder {
	b.start = id
	return b
}

// Node creates (or returns the existing builder for) a node.
func (b *Builder) Node(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build compiles the graph into an immutable Story. The start node must
// exist and every choice target must resolve.
func (b *Builder) Build() (*story.Story, error) {
	if len(b.nodes) == 0 {
		return nil, fmt.Errorf("story %q has no nodes", b.id)
	}

	start := b.start
	if start == "" {
		start = b.order[0]
	}
	if _, ok := b.nodes[start]; !ok {
		return nil, fmt.Errorf("start node %q does not exist", start)
	}

	nodes := make(map[string]domain.Node, len(b.nodes))
	for id, nb := range b.nodes {
		for _, c := range nb.node.Choices {
			if _, ok := b.nodes[c.Target]; !ok {
				return nil, fmt.Errorf("node %q: choice %q targets unknown node %q", id, c.Text, c.Target)
			}
		}
		nodes[id] = nb.node
	}

	return &story.Story{
		ID:    b.id,
		Title: b.title,
		Start: start,
		Nodes: nodes,
	}, nil
}
