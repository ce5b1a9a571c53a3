package domain

import (
	"fmt"
	"sort"
)

// Graph is the story graph produced by ingestion.
// It is never mutated after construction and may be shared by any number
// of sessions.
type Graph struct {
	root  *Node
	nodes map[string]*Node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
	}
}

// AddNode inserts a node. The first node added becomes the root.
// A duplicate id is rejected with ErrDuplicateNodeID and the existing node wins.
// A node whose body does not match its kind is rejected with ErrMalformedNode.
func (g *Graph) AddNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("cannot add nil node")
	}
	if !n.IsDialog() && !n.IsChoice() {
		return fmt.Errorf("%w: %s", ErrMalformedNode, n.ID)
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	g.nodes[n.ID] = n
	if g.root == nil {
		g.root = n
	}
	return nil
}

// GetNode looks a node up by id. An empty id is never found.
func (g *Graph) GetNode(id string) (*Node, bool) {
	if g == nil || id == "" {
		return nil, false
	}
	n, ok := g.nodes[id]
	return n, ok
}

// Root returns the first node encountered during ingestion, or nil.
func (g *Graph) Root() *Node {
	if g == nil {
		return nil
	}
	return g.root
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// IDs returns all node ids sorted.
func (g *Graph) IDs() []string {
	if g == nil {
		return nil
	}
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Nodes returns all nodes sorted by id, for introspection.
func (g *Graph) Nodes() []*Node {
	ids := g.IDs()
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.nodes[id])
	}
	return out
}
