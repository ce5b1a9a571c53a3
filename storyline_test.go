package storyline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/storyline"
	"github.com/aretw0/storyline/pkg/adapters/memory"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "#,type,nodeId,nextNodeId,backgroundId,character,position,speaker,content,questionText,choices,choiceNext\n"

const story = header +
	"#,DialogNode,intro,ask,BG_Room,,,Alice,Good morning.,,,\n" +
	",,,,,,,Bob,Morning.,,,\n" +
	"#,ChoiceNode,ask,,,,,,,Tea or coffee?,Tea,tea\n" +
	",,,,,,,,,,Coffee,coffee\n" +
	"#,DialogNode,tea,,,,,Alice,Tea it is.,,,\n" +
	"#,DialogNode,coffee,,,,,Alice,Coffee it is.,,,\n"

func TestNew(t *testing.T) {
	eng, err := storyline.New(story)
	require.NoError(t, err)
	assert.Equal(t, 4, eng.Graph().Len())
	assert.Equal(t, "intro", eng.Graph().Root().ID)
	assert.Empty(t, eng.Diagnostics())
}

func TestNew_Errors(t *testing.T) {
	_, err := storyline.New("")
	assert.ErrorIs(t, err, domain.ErrEmptyGraph)

	broken := story + "#,Unknown,ghost,,,,,,,,,\n"
	eng, err := storyline.New(broken)
	require.NoError(t, err)
	assert.NotEmpty(t, eng.Diagnostics())

	_, err = storyline.New(broken, storyline.WithStrict(true))
	assert.Error(t, err)
}

func TestNew_Marker(t *testing.T) {
	text := "@,type,nodeId,nextNodeId,backgroundId,character,position,speaker,content,questionText,choices,choiceNext\n" +
		"@,DialogNode,only,,,,,Alice,Hi,,,\n"
	eng, err := storyline.New(text, storyline.WithMarker("@"))
	require.NoError(t, err)
	assert.Equal(t, "only", eng.Graph().Root().ID)
}

func TestEngine_Playthrough(t *testing.T) {
	ctx := context.Background()
	var entered []string
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			entered = append(entered, e.NodeID)
		},
	}
	eng, err := storyline.New(story, storyline.WithLifecycleHooks(hooks))
	require.NoError(t, err)

	m := eng.NewManager(memory.NewStore())
	frame, err := m.Start(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Good morning.", frame.Content)

	frame, err = m.Next(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Morning.", frame.Content)

	frame, err = m.Next(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tea", "Coffee"}, frame.Choices)

	frame, err = m.Choose(ctx, "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, "Coffee it is.", frame.Content)
	assert.True(t, frame.Terminal)

	assert.Equal(t, []string{"intro", "ask", "coffee"}, entered)
}

func TestOpen_Reload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "story.csv")
	require.NoError(t, os.WriteFile(path, []byte(story), 0o644))

	eng, err := storyline.Open(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "story.csv", eng.Name)
	assert.Equal(t, 4, eng.Graph().Len())

	extra := story + "#,DialogNode,juice,,,,,Alice,Juice?,,,\n"
	require.NoError(t, os.WriteFile(path, []byte(extra), 0o644))
	require.NoError(t, eng.Reload(ctx))
	assert.Equal(t, 5, eng.Graph().Len())

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.ErrorIs(t, eng.Reload(ctx), domain.ErrEmptyGraph)
	assert.Equal(t, 5, eng.Graph().Len(), "previous graph is kept")
}

func TestEngine_Watch(t *testing.T) {
	eng, err := storyline.New(story)
	require.NoError(t, err)
	_, err = eng.Watch(context.Background())
	assert.Error(t, err)

	src := memory.NewSource("story.csv", []byte(story))
	eng, err = storyline.Load(context.Background(), src)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := eng.Watch(ctx)
	require.NoError(t, err)

	src.Update([]byte(story))
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change signalled")
	}
}
