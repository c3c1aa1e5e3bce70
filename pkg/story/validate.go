package story

import (
	"fmt"
)

// ConditionValidator statically checks a condition expression. The engine's
// evaluator satisfies this; story validation stays decoupled from it.
type ConditionValidator interface {
	Validate(expression string) error
}

// Issue is a single problem found during validation.
type Issue struct {
	NodeID string
	Detail string
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return i.Detail
	}
	return fmt.Sprintf("node %q: %s", i.NodeID, i.Detail)
}

// Validate checks the structural integrity of the graph: a resolvable
// start node, no dangling choice targets, no unreachable nodes, and — when
// a validator is supplied — statically valid condition expressions.
// It returns every issue found, not just the first.
func (s *Story) Validate(conditions ConditionValidator) []Issue {
	var issues []Issue

	if s.Start == "" {
		issues = append(issues, Issue{Detail: "story has no start node"})
	} else if _, ok := s.Nodes[s.Start]; !ok {
		issues = append(issues, Issue{Detail: fmt.Sprintf("start node %q does not exist", s.Start)})
	}

	for _, id := range s.NodeIDs() {
		node := s.Nodes[id]
		for _, choice := range node.Choices {
			if choice.Target == "" {
				issues = append(issues, Issue{NodeID: id, Detail: fmt.Sprintf("choice %q has no target", choice.Text)})
				continue
			}
			if _, ok := s.Nodes[choice.Target]; !ok {
				issues = append(issues, Issue{NodeID: id, Detail: fmt.Sprintf("choice %q targets unknown node %q", choice.Text, choice.Target)})
			}
			if choice.Condition != "" && conditions != nil {
				if err := conditions.Validate(choice.Condition); err != nil {
					issues = append(issues, Issue{NodeID: id, Detail: fmt.Sprintf("invalid condition: %v", err)})
				}
			}
		}
	}

	for _, id := range s.unreachable() {
		issues = append(issues, Issue{NodeID: id, Detail: "unreachable from start"})
	}

	return issues
}

// unreachable walks the graph from the start node and reports every node
// no choice path can reach.
func (s *Story) unreachable() []string {
	if _, ok := s.Nodes[s.Start]; !ok {
		return nil
	}

	seen := map[string]bool{s.Start: true}
	queue := []string{s.Start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, choice := range s.Nodes[id].Choices {
			if _, ok := s.Nodes[choice.Target]; ok && !seen[choice.Target] {
				seen[choice.Target] = true
				queue = append(queue, choice.Target)
			}
		}
	}

	var missing []string
	for _, id := range s.NodeIDs() {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
