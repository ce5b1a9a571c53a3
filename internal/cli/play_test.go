package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/storyline/pkg/adapters/memory"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/dsl"
	"github.com/aretw0/storyline/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playStory() *domain.Graph {
	b := dsl.New()
	b.Dialog("intro").Say("Alice", "Hello").Say("Bob", "Hi there").Go("ask")
	b.Choice("ask").Ask("Tea or coffee?").Option("Tea", "tea").Option("Coffee", "coffee")
	b.Dialog("tea").Say("Alice", "Tea it is.")
	b.Dialog("coffee").Say("Bob", "Coffee!")
	return b.MustBuild()
}

func feed(lines ...string) <-chan string {
	ch := make(chan string, len(lines))
	for _, l := range lines {
		ch <- l
	}
	close(ch)
	return ch
}

func newPlayer(m *session.Manager, out *bytes.Buffer) *Player {
	return &Player{
		Manager: m,
		ID:      "p1",
		Out:     out,
		Now:     func() time.Time { return time.Date(2026, 5, 6, 7, 8, 0, 0, time.UTC) },
	}
}

func TestPlayer_Playthrough(t *testing.T) {
	var out bytes.Buffer
	m := session.NewManager(playStory(), memory.NewStore())
	p := newPlayer(m, &out)

	err := p.Run(context.Background(), -1, feed("", "n", "2", "b", "1", "h", "q", "n"), nil)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "**Alice**: Hello")
	assert.Contains(t, s, "**Bob**: Hi there")
	assert.Contains(t, s, "### Tea or coffee?\n\n1. Tea\n2. Coffee\n")
	assert.Contains(t, s, "**Bob**: Coffee!")
	assert.Contains(t, s, "_(earlier)_ **Bob**: Hi there")
	assert.Contains(t, s, "**Alice**: Tea it is.")
	assert.Contains(t, s, "- **Your choice**: Coffee\n- **Facing a choice**: Tea or coffee?\n- **Your choice**: Tea\n")

	frame, err := m.View(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "tea", frame.NodeID, "input after quit is ignored")
}

func TestPlayer_ErrorsAreReported(t *testing.T) {
	var out bytes.Buffer
	m := session.NewManager(playStory(), memory.NewStore())
	p := newPlayer(m, &out)

	require.NoError(t, p.Run(context.Background(), -1, feed("1", "b", "l 0", "s x", "wat", "?"), nil))

	s := out.String()
	assert.Contains(t, s, ">>> Not now: choice requested while showing_dialog_line")
	assert.Contains(t, s, ">>> Not now: no choice to rewind to")
	assert.Contains(t, s, ">>> That slot is empty.")
	assert.Contains(t, s, ">>> Slot must be a number between 0 and 4.")
	assert.Contains(t, s, `>>> Unknown command "wat"`)
	assert.Contains(t, s, "Commands:")
}

func TestPlayer_Jump(t *testing.T) {
	var out bytes.Buffer
	m := session.NewManager(playStory(), memory.NewStore())
	p := newPlayer(m, &out)

	require.NoError(t, p.Run(context.Background(), -1, feed("jumps", "j coffee", "jump ask", "j nowhere", "j", "jumps"), nil))

	s := out.String()
	assert.Contains(t, s, ">>> No jumps yet.")
	assert.Contains(t, s, ">>> Jumped to coffee.")
	assert.Contains(t, s, "**Bob**: Coffee!")
	assert.Contains(t, s, ">>> Jumped to ask.")
	assert.Contains(t, s, `jump target "nowhere" does not exist`)
	assert.Contains(t, s, ">>> Jump needs a node id.")
	assert.Contains(t, s, "  1. ask\n  2. coffee\n")

	frame, err := m.View(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "ask", frame.NodeID)
}

func TestPlayer_Slots(t *testing.T) {
	var out bytes.Buffer
	store := memory.NewStore()
	m := session.NewManager(playStory(), store)
	p := newPlayer(m, &out)

	require.NoError(t, p.Run(context.Background(), -1, feed("n", "save 1", "slots"), nil))
	s := out.String()
	assert.Contains(t, s, ">>> Saved slot 1: Bob: Hi there")
	assert.Contains(t, s, "[1] 2026-05-06 07:08 Bob: Hi there")
	assert.Contains(t, s, "[0]                  Empty slot")

	out.Reset()
	p2 := newPlayer(session.NewManager(playStory(), store), &out)
	require.NoError(t, p2.Run(context.Background(), 1, feed(), nil))
	assert.Contains(t, out.String(), ">>> Loaded slot 1.")
	assert.Contains(t, out.String(), "**Bob**: Hi there")
}

func TestPlayer_Reload(t *testing.T) {
	var out bytes.Buffer
	m := session.NewManager(playStory(), memory.NewStore())
	p := newPlayer(m, &out)

	edited := dsl.New()
	edited.Dialog("intro").Say("Alice", "Hello").Say("Bob", "Edited greeting")
	gone := dsl.New()
	gone.Dialog("other").Say("Zed", "Fresh start")

	input := make(chan string)
	reloads := make(chan *domain.Graph)
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), -1, input, reloads) }()

	input <- "n"
	reloads <- edited.MustBuild()
	reloads <- gone.MustBuild()
	close(input)
	require.NoError(t, <-done)

	s := out.String()
	assert.Contains(t, s, ">>> Story changed, resuming in place.")
	assert.Contains(t, s, "**Bob**: Edited greeting")
	assert.Contains(t, s, ">>> Story changed and the current node is gone, starting over.")
	assert.Contains(t, s, "**Zed**: Fresh start")
}

func TestPlayer_ContextCancel(t *testing.T) {
	m := session.NewManager(playStory(), memory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := newPlayer(m, &out).Run(ctx, -1, make(chan string), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, HandleExecutionError(err))
}

func TestReadLines(t *testing.T) {
	var got []string
	for l := range ReadLines(context.Background(), strings.NewReader("  a \nb\n\nc")) {
		got = append(got, l)
	}
	assert.Equal(t, []string{"a", "b", "", "c"}, got)
}
