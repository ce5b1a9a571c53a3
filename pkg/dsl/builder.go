package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/storyline/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Dialog starts a dialog node. If the id already exists, the existing builder
// is returned.
func (b *Builder) Dialog(id string) *NodeBuilder {
	return b.add(id, domain.KindDialog)
}

// Choice starts a choice node. If the id already exists, the existing builder
// is returned.
func (b *Builder) Choice(id string) *NodeBuilder {
	return b.add(id, domain.KindChoice)
}

func (b *Builder) add(id string, kind domain.NodeKind) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	var node *domain.Node
	if kind == domain.KindChoice {
		node = domain.NewChoiceNode(id, "", nil, "", nil)
	} else {
		node = domain.NewDialogNode(id, "", nil, nil, "")
	}
	nb := &NodeBuilder{node: node}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build assembles the graph in insertion order.
func (b *Builder) Build() (*domain.Graph, error) {
	g := domain.NewGraph()
	var errs []error
	for _, id := range b.order {
		if err := g.AddNode(b.nodes[id].node); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to build graph: %w", errors.Join(errs...))
	}
	return g, nil
}

// MustBuild is Build for static graphs; it panics on error.
func (b *Builder) MustBuild() *domain.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
