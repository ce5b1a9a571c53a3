package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/storyline/internal/runtime"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/dsl"
	"github.com/aretw0/storyline/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graph() *domain.Graph {
	b := dsl.New()
	b.Dialog("n1").Say("A", "hi").Go("n2")
	b.Choice("n2").Ask("go?").Option("yes", "n3").Option("no", "n4")
	b.Dialog("n3").Say("C", "end")
	return b.MustBuild()
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	s, err := runtime.NewSession(graph(), runtime.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, err)
	require.NoError(t, s.NextLine())
	require.NoError(t, s.SelectChoice(0))
	require.NoError(t, s.RewindToLastChoice())
	_ = s.SelectChoice(1) // dangling

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodeVisits.WithLabelValues("n1", "DialogNode")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodeVisits.WithLabelValues("n2", "ChoiceNode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lines))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Choices.WithLabelValues("n2", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Choices.WithLabelValues("n2", "1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rewinds))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Diagnostics.WithLabelValues("dangling_reference")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestMetrics_NilRegisterer(t *testing.T) {
	assert.NotPanics(t, func() { observability.NewMetrics(nil) })
}

func TestChainHooks(t *testing.T) {
	var order []string
	first := domain.LifecycleHooks{
		OnNodeEnter: func(context.Context, *domain.NodeEvent) { order = append(order, "first") },
	}
	second := domain.LifecycleHooks{
		OnNodeEnter: func(context.Context, *domain.NodeEvent) { order = append(order, "second") },
		OnLine:      func(context.Context, *domain.LineEvent) { order = append(order, "line") },
	}

	hooks := observability.ChainHooks(first, domain.LifecycleHooks{}, second)
	assert.Nil(t, hooks.OnChoice)

	hooks.OnNodeEnter(context.Background(), &domain.NodeEvent{})
	hooks.OnLine(context.Background(), &domain.LineEvent{})
	assert.Equal(t, []string{"first", "second", "line"}, order)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, err := runtime.NewSession(graph(), runtime.WithLifecycleHooks(observability.LoggingHooks(logger)))
	require.NoError(t, err)
	require.NoError(t, s.NextLine())

	out := buf.String()
	assert.Contains(t, out, "node_enter")
	assert.Contains(t, out, "node_id=n2")
	assert.Contains(t, out, "speaker=A")
}
