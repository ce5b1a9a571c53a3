package observability

import (
	"context"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by the traversal hooks.
type Metrics struct {
	NodeVisits  *prometheus.CounterVec
	Lines       prometheus.Counter
	Choices     *prometheus.CounterVec
	Rewinds     prometheus.Counter
	Diagnostics *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"node_id", "kind"},
		),
		Lines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyline_lines_shown_total",
			Help: "Dialog lines advanced past",
		}),
		Choices: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_choices_total",
				Help: "Choices made, by node and choice index",
			},
			[]string{"node_id", "index"},
		),
		Rewinds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyline_rewinds_total",
			Help: "Rewinds to the last choice",
		}),
		Diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_diagnostics_total",
				Help: "Traversal diagnostics by kind",
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.NodeVisits, m.Lines, m.Choices, m.Rewinds, m.Diagnostics)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID, string(e.NodeKind)).Inc()
		},
		OnLine: func(context.Context, *domain.LineEvent) {
			m.Lines.Inc()
		},
		OnChoice: func(_ context.Context, e *domain.ChoiceEvent) {
			m.Choices.WithLabelValues(e.NodeID, itoa(e.Index)).Inc()
		},
		OnRewind: func(context.Context, *domain.ChoiceEvent) {
			m.Rewinds.Inc()
		},
		OnDiagnostic: func(_ context.Context, d *domain.Diagnostic) {
			m.Diagnostics.WithLabelValues(string(d.Kind)).Inc()
		},
	}
}
