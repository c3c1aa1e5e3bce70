// Package observability exposes engine metrics through Prometheus.
//
// Metrics are registered against an injected Registerer so hosts embedding
// several engines (or none at all) keep full control over the registry; no
// global state is touched.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the per-engine Prometheus collectors. A nil *Metrics is
// valid and turns every recording method into a no-op.
type Metrics struct {
	mutations   *prometheus.CounterVec
	autosaves   *prometheus.CounterVec
	checkpoints prometheus.Gauge
	undoDepth   prometheus.Gauge
	redoDepth   prometheus.Gauge
}

// New creates and registers the engine collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_mutations_total",
				Help: "Total number of applied state mutations",
			},
			[]string{"kind"},
		),
		autosaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_autosaves_total",
				Help: "Autosave attempts by outcome (saved, throttled, failed)",
			},
			[]string{"outcome"},
		),
		checkpoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_checkpoints",
			Help: "Number of checkpoints currently held by the engine",
		}),
		undoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_undo_depth",
			Help: "Current depth of the undo stack",
		}),
		redoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_redo_depth",
			Help: "Current depth of the redo stack",
		}),
	}

	reg.MustRegister(m.mutations, m.autosaves, m.checkpoints, m.undoDepth, m.redoDepth)
	return m
}

// MutationApplied records a committed mutation of the given kind.
func (m *Metrics) MutationApplied(kind string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(kind).Inc()
}

// AutosaveOutcome records an autosave attempt result.
func (m *Metrics) AutosaveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.autosaves.WithLabelValues(outcome).Inc()
}

// SetCheckpoints tracks the checkpoint registry size.
func (m *Metrics) SetCheckpoints(n int) {
	if m == nil {
		return
	}
	m.checkpoints.Set(float64(n))
}

// SetHistoryDepths tracks the undo and redo stack depths.
func (m *Metrics) SetHistoryDepths(undo, redo int) {
	if m == nil {
		return
	}
	m.undoDepth.Set(float64(undo))
	m.redoDepth.Set(float64(redo))
}
