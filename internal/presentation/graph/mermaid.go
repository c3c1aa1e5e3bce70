// Package graph renders a story graph as Mermaid flowchart syntax, for
// documentation and for inspecting play state.
package graph

import (
	"fmt"
	"strings"

	"github.com/arborlabs/arbor/pkg/story"
)

// Overlay carries dynamic play state to visualize on top of the graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart from a story. The start node
// is drawn as a circle, terminal nodes (no choices) as stadiums, everything
// else as rectangles. Condition expressions become edge labels, and the
// overlay styles visited and current nodes.
func GenerateMermaid(st *story.Story, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range st.NodeIDs() {
		node := st.Nodes[id]
		safeID := sanitizeID(id)

		opener, closer := "[", "]"
		switch {
		case id == st.Start:
			opener, closer = "((", "))"
		case len(node.Choices) == 0:
			opener, closer = "([", "])"
		}

		label := id
		if node.Title != "" {
			label = node.Title
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, choice := range node.Choices {
			safeTo := sanitizeID(choice.Target)

			arrow := "-->"
			if choice.Condition != "" {
				// Mermaid edge labels cannot hold double quotes.
				safeCondition := strings.ReplaceAll(choice.Condition, "\"", "'")
				arrow = fmt.Sprintf("-- \"%s\" -->", safeCondition)
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, safeTo))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeID(id)
			if safeID != "" && !visitedSet[safeID] {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func sanitizeID(id string) string {
	replacer := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return replacer.Replace(id)
}
