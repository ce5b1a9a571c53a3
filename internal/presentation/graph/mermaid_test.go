package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/storyline/internal/presentation/graph"
	"github.com/aretw0/storyline/pkg/dsl"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	b := dsl.New()
	b.Dialog("start").Say("A", "hi").Say("B", "yo").Go("ask")
	b.Choice("ask").Ask("go?").Option(`say "yes"`, "end").Option("no", "ghost")
	b.Dialog("end").Say("C", "bye")
	b.Dialog("path/to-node").Go("start")
	b.Dialog("兔子").Go("end")
	g := b.MustBuild()

	tests := []struct {
		name     string
		overlay  *graph.GraphOverlay
		contains []string
	}{
		{
			name: "Shapes",
			contains: []string{
				`start(("start <br/> 2 lines"))`,
				`ask{"ask"}`,
				`end(["end <br/> 1 lines"])`,
			},
		},
		{
			name: "Edges",
			contains: []string{
				"start --> ask",
				`ask -- "say 'yes'" --> end`,
				`ask -- "no" --> ghost`,
			},
		},
		{
			name: "Missing targets",
			contains: []string{
				`ghost["ghost (missing)"]`,
				"class ghost missing;",
			},
		},
		{
			name: "ID Sanitization",
			contains: []string{
				`path_to_node["path/to-node <br/> 0 lines"]`,
				"u5154u5b50",
			},
		},
		{
			name:    "Overlay",
			overlay: &graph.GraphOverlay{VisitedNodes: []string{"start", "start", "ask"}, CurrentNode: "end"},
			contains: []string{
				"class start visited;",
				"class ask visited;",
				"class end current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(g, tt.overlay)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}

	t.Run("Visited is deduplicated", func(t *testing.T) {
		got := graph.GenerateMermaid(g, &graph.GraphOverlay{VisitedNodes: []string{"start", "start"}})
		assert.Equal(t, 1, strings.Count(got, "class start visited;"))
	})
}
