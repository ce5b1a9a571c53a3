package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/storyline/pkg/domain"
)

// GraphOverlay contains session state to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart from a story graph.
// Shapes:
// - Root: ((Circle))
// - Choice: {Rhombus}
// - Dead end dialog: ([Stadium])
// - Dialog: [Rectangle]
// Targets missing from the graph are drawn as a dashed "missing" node.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var rootID string
	if root := g.Root(); root != nil {
		rootID = root.ID
	}
	missing := map[string]bool{}

	for _, node := range g.Nodes() {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		label := node.ID
		switch {
		case node.ID == rootID:
			opener, closer = "((", "))"
		case node.IsChoice():
			opener, closer = "{", "}"
		case node.IsDialog() && node.Dialog.NextNodeID == "":
			opener, closer = "([", "])"
		}
		if node.IsDialog() {
			label = fmt.Sprintf("%s <br/> %d lines", node.ID, len(node.Dialog.Lines))
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(label), closer))

		switch {
		case node.IsDialog() && node.Dialog.NextNodeID != "":
			next := node.Dialog.NextNodeID
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(next)))
			if _, ok := g.GetNode(next); !ok {
				missing[next] = true
			}
		case node.IsChoice():
			for _, c := range node.Choice.Choices {
				sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, escapeLabel(c.Text), sanitizeMermaidID(c.NextNodeID)))
				if _, ok := g.GetNode(c.NextNodeID); !ok {
					missing[c.NextNodeID] = true
				}
			}
		}
	}

	if len(missing) > 0 {
		sb.WriteString("\n    classDef missing stroke-dasharray: 5 5,stroke:#c62828,color:#c62828;\n")
		for _, id := range sortedKeys(missing) {
			safeID := sanitizeMermaidID(id)
			sb.WriteString(fmt.Sprintf("    %s[\"%s (missing)\"]\n", safeID, escapeLabel(id)))
			sb.WriteString(fmt.Sprintf("    class %s missing;\n", safeID))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

// sanitizeMermaidID keeps ASCII letters, digits and underscores.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		case r < 128:
			sb.WriteByte('_')
		default:
			// Non-ASCII ids stay distinct through their code point.
			sb.WriteString(fmt.Sprintf("u%x", r))
		}
	}
	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
