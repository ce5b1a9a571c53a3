package persistence_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/storyline/internal/runtime"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/dsl"
	"github.com/aretw0/storyline/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func story(t *testing.T) *domain.Graph {
	t.Helper()
	b := dsl.New()
	b.Dialog("intro").
		Say("Usagi", "Nice weather today, isn't it? Let's go outside!").
		Say("Hachi", "Sure.").
		Go("ask")
	b.Choice("ask").Ask("Where shall we go this afternoon?").Option("Forest", "forest").Option("Home", "home")
	b.Dialog("forest").Say("Hachi", "Mushrooms!")
	b.Dialog("home").Say("Chiikawa", "Home.")
	b.Dialog("empty")
	return b.MustBuild()
}

var savedAt = time.Date(2024, 3, 9, 14, 5, 59, 0, time.UTC)

func TestSnapshot_RoundTrip(t *testing.T) {
	g := story(t)
	s, err := runtime.NewSession(g)
	require.NoError(t, err)
	require.NoError(t, s.NextLine())
	require.NoError(t, s.NextLine())
	require.NoError(t, s.SelectChoice(1))

	rec := persistence.Snapshot(s, savedAt, domain.DefaultLabels())
	assert.Equal(t, "home", rec.NodeID)
	assert.Equal(t, 0, rec.DialogIndex)
	assert.Equal(t, "2024-03-09 14:05", rec.SaveTime)
	assert.Len(t, rec.History, 4)

	// The record survives the wire.
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nodeId":"home"`)
	assert.Contains(t, string(data), `"dialogIndex":0`)
	var decoded domain.SaveRecord
	require.NoError(t, json.Unmarshal(data, &decoded))

	restored, err := persistence.Restore(&decoded, g)
	require.NoError(t, err)
	assert.Equal(t, s.CurrentNode().ID, restored.CurrentNode().ID)
	assert.Equal(t, s.LineIndex(), restored.LineIndex())
	assert.Equal(t, s.History(), restored.History())
	assert.False(t, restored.CanRewind())
}

func TestSnapshot_Preview(t *testing.T) {
	g := story(t)

	tests := []struct {
		name   string
		node   string
		line   int
		labels domain.Labels
		want   string
	}{
		{"Long dialog line is cut", "intro", 0, domain.Labels{}, "Usagi: Nice weather today, is..."},
		{"Short dialog line is kept", "intro", 1, domain.Labels{}, "Hachi: Sure."},
		{"Choice uses the question label", "ask", 0, domain.Labels{}, "Facing a choice: Where shall we go this..."},
		{"Custom label", "ask", 0, domain.Labels{Question: "面临选择"}, "面临选择: Where shall we go this..."},
		{"Empty dialog node", "empty", 0, domain.Labels{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := runtime.NewSession(g)
			require.NoError(t, err)
			require.NoError(t, s.RestoreFromSnapshot(tt.node, tt.line, nil))

			assert.Equal(t, tt.want, persistence.Snapshot(s, savedAt, tt.labels).PreviewText)
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", persistence.Preview("short", 22))
	assert.Equal(t, "exactly-twenty-two-chr", persistence.Preview("exactly-twenty-two-chr", 22))
	assert.Equal(t, "exactly-twenty-two-chr...", persistence.Preview("exactly-twenty-two-chrs", 22))
	assert.Equal(t, "今天天气...", persistence.Preview("今天天气不错", 4))
}

func TestRestore_Errors(t *testing.T) {
	g := story(t)

	_, err := persistence.Restore(nil, g)
	assert.ErrorIs(t, err, domain.ErrSaveNotFound)

	_, err = persistence.Restore(&domain.SaveRecord{NodeID: "deleted"}, g)
	assert.ErrorIs(t, err, domain.ErrDanglingReference)
}

func TestRestore_ParkedOnDanglingNext(t *testing.T) {
	b := dsl.New()
	b.Dialog("n1").Say("A", "hi").Go("missing")
	g := b.MustBuild()

	s, err := runtime.NewSession(g)
	require.NoError(t, err)
	assert.ErrorIs(t, s.NextLine(), domain.ErrDanglingReference)
	require.Equal(t, runtime.Terminal, s.State())

	rec := persistence.Snapshot(s, savedAt, domain.DefaultLabels())
	restored, err := persistence.Restore(&rec, g)
	require.NoError(t, err, "a save parked on a broken link still loads")

	assert.Equal(t, runtime.Terminal, restored.State())
	assert.Equal(t, "n1", restored.CurrentNode().ID)
	assert.Equal(t, 1, restored.LineIndex())
	assert.Equal(t, s.History(), restored.History())
}

func TestRestore_EntersOnlySavedNode(t *testing.T) {
	b := dsl.New()
	b.Dialog("root").Go("gone")
	b.Choice("c").Ask("Which?").Option("Back", "root")
	g := b.MustBuild()

	var entered, left []string
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { entered = append(entered, e.NodeID) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { left = append(left, e.NodeID) },
	}

	s, err := persistence.Restore(&domain.SaveRecord{NodeID: "c"}, g, runtime.WithLifecycleHooks(hooks))
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, entered)
	assert.Empty(t, left)
	assert.Empty(t, s.Diagnostics(), "the unreachable root leaves nothing behind")
	assert.Equal(t, runtime.ShowingChoice, s.State())
}
