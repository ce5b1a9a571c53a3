package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/ports"
)

// Report is the outcome of a graph check.
type Report struct {
	// Problems are dangling references and unresolved assets.
	Problems []domain.Diagnostic
	// Unreachable lists node ids no path from the root leads to.
	Unreachable []string
	// Endings lists reachable dialog nodes without a next node.
	Endings []string
}

// Err summarizes the problems as one error, nil when there are none.
func (r Report) Err() error {
	if len(r.Problems) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Problems))
	for i, d := range r.Problems {
		msgs[i] = d.Error()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Problems), strings.Join(msgs, "\n- "))
}

// ValidateGraph walks the graph from its root, reporting broken links,
// unreachable nodes and endings. With a non-nil resolver every background
// and character id must resolve to an asset.
func ValidateGraph(g *domain.Graph, assets ports.AssetResolver) (Report, error) {
	var report Report
	root := g.Root()
	if root == nil {
		return report, domain.ErrEmptyGraph
	}

	visited := map[string]bool{}
	queue := []string{root.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		node, _ := g.GetNode(id)
		if node.IsDialog() && node.Dialog.NextNodeID == "" {
			report.Endings = append(report.Endings, id)
		}
		for _, target := range node.Targets() {
			if _, ok := g.GetNode(target); !ok {
				report.Problems = append(report.Problems,
					domain.NewDiagnostic(domain.DiagDangling, id, "references missing node %q", target))
				continue
			}
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	for _, node := range g.Nodes() {
		if !visited[node.ID] {
			report.Unreachable = append(report.Unreachable, node.ID)
			// Unreachable nodes can still hold broken links worth fixing.
			for _, target := range node.Targets() {
				if _, ok := g.GetNode(target); !ok {
					report.Problems = append(report.Problems,
						domain.NewDiagnostic(domain.DiagDangling, node.ID, "references missing node %q", target))
				}
			}
		}
		if assets != nil {
			report.Problems = append(report.Problems, checkAssets(node, assets)...)
		}
	}
	sort.Strings(report.Endings)
	return report, nil
}

func checkAssets(node *domain.Node, assets ports.AssetResolver) []domain.Diagnostic {
	var out []domain.Diagnostic
	check := func(what, id string) {
		if id == "" {
			return
		}
		if _, err := assets.Resolve(id); err != nil {
			msg := fmt.Sprintf("%s asset %q: %v", what, id, err)
			if !errors.Is(err, domain.ErrAssetNotFound) {
				msg = fmt.Sprintf("%s asset %q could not be checked: %v", what, id, err)
			}
			out = append(out, domain.NewDiagnostic(domain.DiagDangling, node.ID, "%s", msg))
		}
	}
	check("background", node.BackgroundID)
	for _, c := range node.Characters {
		check("character", c.CharacterID)
	}
	return out
}
