package dsl

import (
	"testing"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New()

	b.Dialog("start").
		Background("BG_Grey").
		Character("Ch_usagi", -800, -100).
		Say("A", "hi").
		Say("B", "hello").
		Go("ask")

	b.Choice("ask").
		Ask("go?").
		Option("yes", "end").
		Option("no", "start")

	b.Dialog("end").Say("A", "bye")

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, "start", g.Root().ID)

	start, _ := g.GetNode("start")
	assert.Equal(t, domain.KindDialog, start.Kind)
	assert.Equal(t, "BG_Grey", start.BackgroundID)
	assert.Len(t, start.Dialog.Lines, 2)
	assert.Equal(t, "ask", start.Dialog.NextNodeID)
	assert.Equal(t, domain.Position{X: -800, Y: -100}, start.Characters[0].Position)

	ask, _ := g.GetNode("ask")
	assert.Equal(t, domain.KindChoice, ask.Kind)
	assert.Equal(t, "go?", ask.Choice.Question)
	assert.Equal(t, []string{"end", "start"}, ask.Targets())

	end, _ := g.GetNode("end")
	assert.Empty(t, end.Dialog.NextNodeID)
}

func TestBuilder_ReusesExistingNode(t *testing.T) {
	b := New()
	b.Dialog("a").Say("A", "one")
	b.Dialog("a").Say("A", "two")

	g := b.MustBuild()
	a, _ := g.GetNode("a")
	assert.Len(t, a.Dialog.Lines, 2)
}

func TestBuilder_VariantMethodsIgnoreOtherKind(t *testing.T) {
	b := New()
	b.Choice("c").Say("A", "ignored").Go("x").Ask("q")
	b.Dialog("d").Ask("ignored").Option("o", "x")

	g := b.MustBuild()
	c, _ := g.GetNode("c")
	assert.Nil(t, c.Dialog)
	assert.Equal(t, "q", c.Choice.Question)

	d, _ := g.GetNode("d")
	assert.Nil(t, d.Choice)
	assert.Empty(t, d.Dialog.Lines)
}
