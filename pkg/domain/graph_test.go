package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddNode(t *testing.T) {
	g := domain.NewGraph()
	first := domain.NewDialogNode("n1", "BG_Grey", nil, []domain.DialogLine{{Speaker: "A", Content: "hi"}}, "n2")
	second := domain.NewChoiceNode("n2", "BG_Red", nil, "go?", nil)

	require.NoError(t, g.AddNode(first))
	require.NoError(t, g.AddNode(second))

	assert.Same(t, first, g.Root(), "first node added becomes root")
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"n1", "n2"}, g.IDs())

	t.Run("Duplicate keeps the first node", func(t *testing.T) {
		dup := domain.NewChoiceNode("n1", "BG_Other", nil, "dup?", nil)
		err := g.AddNode(dup)
		assert.ErrorIs(t, err, domain.ErrDuplicateNodeID)

		got, ok := g.GetNode("n1")
		require.True(t, ok)
		assert.Same(t, first, got)
	})
}

func TestGraph_AddNode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		node *domain.Node
	}{
		{"Dialog without body", &domain.Node{ID: "x", Kind: domain.KindDialog}},
		{"Choice without body", &domain.Node{ID: "y", Kind: domain.KindChoice}},
		{"Body of the other kind", &domain.Node{ID: "z", Kind: domain.KindChoice, Dialog: &domain.DialogBody{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := domain.NewGraph()
			err := g.AddNode(tt.node)
			assert.ErrorIs(t, err, domain.ErrMalformedNode)
			assert.Zero(t, g.Len())
			assert.Nil(t, g.Root())
		})
	}
}

func TestGraph_GetNode(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddNode(domain.NewDialogNode("start", "", nil, nil, "")))

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"Existing", "start", true},
		{"Missing", "nowhere", false},
		{"Empty id", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := g.GetNode(tt.id)
			assert.Equal(t, tt.want, ok)
		})
	}

	t.Run("Nil graph", func(t *testing.T) {
		var nilGraph *domain.Graph
		_, ok := nilGraph.GetNode("start")
		assert.False(t, ok)
		assert.Nil(t, nilGraph.Root())
	})
}

func TestNode_Targets(t *testing.T) {
	choice := domain.NewChoiceNode("c", "", nil, "where?", []domain.Choice{
		{Text: "left", NextNodeID: "l"},
		{Text: "nowhere", NextNodeID: ""},
		{Text: "right", NextNodeID: "r"},
	})
	assert.Equal(t, []string{"l", "r"}, choice.Targets())

	deadEnd := domain.NewDialogNode("d", "", nil, nil, "")
	assert.Empty(t, deadEnd.Targets())
}

func TestDiagnostic_Unwrap(t *testing.T) {
	d := domain.NewDiagnostic(domain.DiagInvalidOp, "n2", "choice index %d out of range", 5)

	var err error = d
	assert.True(t, errors.Is(err, domain.ErrInvalidOperation))
	assert.False(t, errors.Is(err, domain.ErrDanglingReference))
	assert.Contains(t, err.Error(), "invalid_operation [n2]")
	assert.Contains(t, err.Error(), "choice index 5 out of range")
}
