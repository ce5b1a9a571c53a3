package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/storyline/pkg/adapters/file"
	shttp "github.com/aretw0/storyline/pkg/adapters/http"
	"github.com/aretw0/storyline/pkg/adapters/memory"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/dsl"
	"github.com/aretw0/storyline/pkg/observability"
	"github.com/aretw0/storyline/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storyGraph() *domain.Graph {
	b := dsl.New()
	b.Dialog("intro").Background("forest").Character("alice", 10, 20).
		Say("Alice", "Hello").Say("Bob", "Hi").Go("ask")
	b.Choice("ask").Ask("Where to?").Option("Left", "left").Option("Nowhere", "void")
	b.Dialog("left").Say("Alice", "We went left.")
	return b.MustBuild()
}

var fixedNow = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func newServer(t *testing.T, opts ...shttp.Option) (*shttp.Server, http.Handler) {
	t.Helper()
	m := session.NewManager(storyGraph(), memory.NewStore())
	opts = append([]shttp.Option{shttp.WithClock(func() time.Time { return fixedNow })}, opts...)
	srv := shttp.NewServer(m, opts...)
	return srv, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeFrame(t *testing.T, w *httptest.ResponseRecorder) shttp.FrameResponse {
	t.Helper()
	var f shttp.FrameResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&f))
	return f
}

func TestHealthAndInfo(t *testing.T) {
	_, h := newServer(t, shttp.WithVersion("1.2.3"))

	w := do(t, h, "GET", "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "intro", info["root"])
	assert.EqualValues(t, 3, info["nodes"])
	assert.EqualValues(t, session.DefaultSlots, info["slots"])
}

func TestPlaythrough(t *testing.T) {
	_, h := newServer(t)

	w := do(t, h, "POST", "/sessions/p1")
	require.Equal(t, http.StatusOK, w.Code)
	f := decodeFrame(t, w)
	assert.Equal(t, "p1", f.Player)
	assert.Equal(t, "intro", f.NodeID)
	assert.Equal(t, "Alice", f.Speaker)

	w = do(t, h, "POST", "/sessions/p1/next")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bob", decodeFrame(t, w).Speaker)

	w = do(t, h, "POST", "/sessions/p1/next")
	require.Equal(t, http.StatusOK, w.Code)
	f = decodeFrame(t, w)
	assert.Equal(t, domain.KindChoice, f.Kind)
	assert.Equal(t, []string{"Left", "Nowhere"}, f.Choices)

	w = do(t, h, "POST", "/sessions/p1/choices/0")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "left", decodeFrame(t, w).NodeID)

	w = do(t, h, "POST", "/sessions/p1/rewind")
	require.Equal(t, http.StatusOK, w.Code)
	f = decodeFrame(t, w)
	assert.Equal(t, "ask", f.NodeID)
	assert.True(t, f.Replay)
	assert.Equal(t, "Hi", f.Content)

	w = do(t, h, "GET", "/sessions/p1/history")
	require.Equal(t, http.StatusOK, w.Code)
	var history []domain.HistoryEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&history))
	assert.Equal(t, []domain.HistoryEntry{
		{Speaker: "Alice", Content: "Hello"},
		{Speaker: "Bob", Content: "Hi"},
		{Speaker: domain.DefaultQuestionLabel, Content: "Where to?"},
		{Speaker: domain.DefaultAnswerLabel, Content: "Left"},
	}, history)

	w = do(t, h, "GET", "/sessions/p1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ask", decodeFrame(t, w).NodeID)

	w = do(t, h, "DELETE", "/sessions/p1")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "GET", "/sessions/p1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartAnonymous(t *testing.T) {
	srv, h := newServer(t)
	w := do(t, h, "POST", "/sessions")
	require.Equal(t, http.StatusCreated, w.Code)
	f := decodeFrame(t, w)
	assert.Len(t, f.Player, 36)
	assert.Contains(t, srv.Manager.Players(), f.Player)
}

func TestErrorStatuses(t *testing.T) {
	_, h := newServer(t)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/sessions/p1").Code)

	tests := []struct {
		name   string
		method string
		path   string
		status int
		kind   string
	}{
		{"unknown player", "POST", "/sessions/ghost/next", http.StatusNotFound, ""},
		{"invalid player", "POST", "/sessions/bad.id/next", http.StatusBadRequest, ""},
		{"choice on dialog", "POST", "/sessions/p1/choices/0", http.StatusConflict, string(domain.DiagInvalidOp)},
		{"rewind without choice", "POST", "/sessions/p1/rewind", http.StatusConflict, string(domain.DiagInvalidOp)},
		{"non numeric choice", "POST", "/sessions/p1/choices/x", http.StatusBadRequest, ""},
		{"slot out of range", "PUT", "/sessions/p1/slots/99", http.StatusNotFound, ""},
		{"non numeric slot", "PUT", "/sessions/p1/slots/a", http.StatusBadRequest, ""},
		{"empty slot load", "POST", "/sessions/p1/slots/1/load", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path)
			assert.Equal(t, tt.status, w.Code)
			var resp shttp.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.kind, resp.Kind)
		})
	}
}

func TestDanglingChoice(t *testing.T) {
	_, h := newServer(t)
	do(t, h, "POST", "/sessions/p1")
	do(t, h, "POST", "/sessions/p1/next")
	do(t, h, "POST", "/sessions/p1/next")

	w := do(t, h, "POST", "/sessions/p1/choices/1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.DiagDangling))

	w = do(t, h, "POST", "/sessions/p1/choices/5")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestJump(t *testing.T) {
	_, h := newServer(t)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/sessions/p1").Code)

	w := do(t, h, "GET", "/sessions/p1/jumps")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, h, "POST", "/sessions/p1/jump/ask")
	require.Equal(t, http.StatusOK, w.Code)
	f := decodeFrame(t, w)
	assert.Equal(t, "ask", f.NodeID)
	assert.Equal(t, "p1", f.Player)

	require.Equal(t, http.StatusOK, do(t, h, "POST", "/sessions/p1/jump/left").Code)

	w = do(t, h, "POST", "/sessions/p1/jump/nowhere")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.DiagDangling))

	w = do(t, h, "GET", "/sessions/p1/jumps")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["left","ask"]`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/sessions/ghost/jump/ask").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/sessions/ghost/jumps").Code)
}

func TestSlots(t *testing.T) {
	_, h := newServer(t)
	do(t, h, "POST", "/sessions/p1")
	do(t, h, "POST", "/sessions/p1/next")

	w := do(t, h, "PUT", "/sessions/p1/slots/2")
	require.Equal(t, http.StatusOK, w.Code)
	var rec domain.SaveRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	assert.Equal(t, "intro", rec.NodeID)
	assert.Equal(t, 1, rec.DialogIndex)
	assert.Equal(t, fixedNow.Format(domain.SaveTimeLayout), rec.SaveTime)

	w = do(t, h, "GET", "/sessions/p1/slots")
	require.Equal(t, http.StatusOK, w.Code)
	var slots []session.SlotInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&slots))
	require.Len(t, slots, session.DefaultSlots)
	assert.True(t, slots[0].Empty)
	assert.False(t, slots[2].Empty)
	assert.Equal(t, "p1.Save_2", slots[2].Key)

	do(t, h, "POST", "/sessions/p1/next")
	w = do(t, h, "POST", "/sessions/p1/slots/2/load")
	require.Equal(t, http.StatusOK, w.Code)
	f := decodeFrame(t, w)
	assert.Equal(t, "intro", f.NodeID)
	assert.Equal(t, "Bob", f.Speaker)

	w = do(t, h, "DELETE", "/sessions/p1/slots/2")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "POST", "/sessions/p1/slots/2/load")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGraphRoutes(t *testing.T) {
	_, h := newServer(t)

	w := do(t, h, "GET", "/graph")
	require.Equal(t, http.StatusOK, w.Code)
	var nodes []domain.Node
	require.NoError(t, json.NewDecoder(w.Body).Decode(&nodes))
	assert.Len(t, nodes, 3)

	w = do(t, h, "GET", "/graph/mermaid")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD"))
	assert.Contains(t, w.Body.String(), "class void missing;")

	do(t, h, "POST", "/sessions/p1")
	w = do(t, h, "GET", "/graph/mermaid?player=p1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "class intro current;")

	w = do(t, h, "GET", "/graph/mermaid?player=ghost")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forest.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice.png"), []byte("x"), 0o644))
	_, h := newServer(t, shttp.WithAssets(file.NewAssetResolver(dir)))

	f := decodeFrame(t, do(t, h, "POST", "/sessions/p1"))
	assert.Equal(t, filepath.Join(dir, "forest.jpg"), f.BackgroundPath)
	assert.Equal(t, map[string]string{"alice": filepath.Join(dir, "alice.png")}, f.CharacterPaths)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	m := session.NewManager(storyGraph(), memory.NewStore(), session.WithHooks(metrics.Hooks()))
	h := shttp.NewHandler(m, shttp.WithMetrics(reg))

	do(t, h, "POST", "/sessions/p1")
	do(t, h, "POST", "/sessions/p1/next")

	w := do(t, h, "GET", "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storyline_lines_shown_total 1")
	assert.Contains(t, w.Body.String(), `storyline_node_visits_total{kind="DialogNode",node_id="intro"} 1`)
}

func TestMetricsNotMounted(t *testing.T) {
	_, h := newServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/metrics").Code)
}

func TestCORS(t *testing.T) {
	_, h := newServer(t)
	w := do(t, h, "OPTIONS", "/sessions/p1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// readEvent skips SSE lines until the named event and returns its data.
func readEvent(t *testing.T, r *bufio.Reader, want string) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) != "event: "+want {
			continue
		}
		data, err := r.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimPrefix(strings.TrimSpace(data), "data: ")
	}
}

func openStream(t *testing.T, ts *httptest.Server, path string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+path, nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	// The ping is written after the subscription is registered.
	assert.Equal(t, "connected", readEvent(t, r, "ping"))
	return r
}

func TestSubscribeEvents_Session(t *testing.T) {
	_, h := newServer(t)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	do(t, h, "POST", "/sessions/p1")
	do(t, h, "POST", "/sessions/other")

	r := openStream(t, ts, "/sessions/p1/events")

	do(t, h, "POST", "/sessions/other/next")
	do(t, h, "POST", "/sessions/p1/next")

	var f shttp.FrameResponse
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, r, "frame")), &f))
	assert.Equal(t, "p1", f.Player)
	assert.Equal(t, "Bob", f.Speaker)
}

func TestSubscribeEvents_InvalidPlayer(t *testing.T) {
	_, h := newServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/sessions/bad.id/events").Code)
}

func TestSubscribeEvents_Global(t *testing.T) {
	srv, h := newServer(t)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	r := openStream(t, ts, "/events")
	srv.NotifyReload()
	assert.Equal(t, "reload", readEvent(t, r, "reload"))
}

func TestStreamManager(t *testing.T) {
	sm := shttp.NewStreamManager()
	ch, cancel := sm.Subscribe("a")
	sm.Broadcast("a", "one")
	sm.Broadcast("b", "ignored")
	assert.Equal(t, "one", <-ch)

	for i := 0; i < 20; i++ {
		sm.Broadcast("a", "flood")
	}
	assert.Len(t, ch, 10)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("a"))
}
