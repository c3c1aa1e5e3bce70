package dsl

import (
	"time"

	"github.com/arborlabs/arbor/pkg/domain"
	"github.com/arborlabs/arbor/pkg/story"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Title sets the node title shown in players and checkpoint metadata.
func (n *NodeBuilder) Title(title string) *NodeBuilder {
	n.node.Title = title
	return n
}

// Text sets the node's narrative text.
func (n *NodeBuilder) Text(text string) *NodeBuilder {
	n.node.Text = text
	return n
}

// Meta attaches a metadata entry to the node.
func (n *NodeBuilder) Meta(key, value string) *NodeBuilder {
	if n.node.Metadata == nil {
		n.node.Metadata = make(map[string]string)
	}
	n.node.Metadata[key] = value
	return n
}

// Choice adds a plain choice leading to target.
func (n *NodeBuilder) Choice(text, target string) *NodeBuilder {
	n.node.Choices = append(n.node.Choices, domain.Choice{Text: text, Target: target})
	return n
}

// ChoiceWhen adds a choice gated by a condition expression.
func (n *NodeBuilder) ChoiceWhen(text, target, condition string) *NodeBuilder {
	n.node.Choices = append(n.node.Choices, domain.Choice{
		Text:      text,
		Target:    target,
		Condition: condition,
	})
	return n
}

// ChoiceFull adds a fully specified choice.
func (n *NodeBuilder) ChoiceFull(choice domain.Choice) *NodeBuilder {
	n.node.Choices = append(n.node.Choices, choice)
	return n
}

// LastChoice returns a ChoiceBuilder for the most recently added choice,
// for attaching effects and requirements fluently.
func (n *NodeBuilder) LastChoice() *ChoiceBuilder {
	if len(n.node.Choices) == 0 {
		return &ChoiceBuilder{node: n}
	}
	return &ChoiceBuilder{node: n, choice: &n.node.Choices[len(n.node.Choices)-1]}
}

// Node jumps to (or creates) another node on the parent builder, allowing
// chained graph definitions.
func (n *NodeBuilder) Node(id string) *NodeBuilder {
	return n.builder.Node(id)
}

// Build delegates to the parent builder.
func (n *NodeBuilder) Build() (*story.Story, error) {
	return n.builder.Build()
}

// ChoiceBuilder decorates the last added choice.
type ChoiceBuilder struct {
	node   *NodeBuilder
	choice *domain.Choice
}

// Effect sets a flag when the choice is taken.
func (c *ChoiceBuilder) Effect(key string, value any) *ChoiceBuilder {
	if c.choice == nil {
		return c
	}
	if c.choice.Effects == nil {
		c.choice.Effects = make(map[string]any)
	}
	c.choice.Effects[key] = value
	return c
}

// RequireFlag demands an exact flag value.
func (c *ChoiceBuilder) RequireFlag(key string, value any) *ChoiceBuilder {
	if c.choice == nil {
		return c
	}
	if c.choice.FlagRequirements == nil {
		c.choice.FlagRequirements = make(map[string]any)
	}
	c.choice.FlagRequirements[key] = value
	return c
}

// RequireItem demands a minimum counter value.
func (c *ChoiceBuilder) RequireItem(key string, count int) *ChoiceBuilder {
	if c.choice == nil {
		return c
	}
	if c.choice.InventoryRequirements == nil {
		c.choice.InventoryRequirements = make(map[string]int)
	}
	c.choice.InventoryRequirements[key] = count
	return c
}

// Window restricts the choice to a time window; either bound may be zero.
func (c *ChoiceBuilder) Window(after, before time.Time) *ChoiceBuilder {
	if c.choice == nil {
		return c
	}
	if !after.IsZero() {
		c.choice.AvailableAfter = &after
	}
	if !before.IsZero() {
		c.choice.AvailableBefore = &before
	}
	return c
}

// Done returns to the node builder.
func (c *ChoiceBuilder) Done() *NodeBuilder {
	return c.node
}
