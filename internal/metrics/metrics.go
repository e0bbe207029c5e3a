// Package metrics exposes the observer's counters to Prometheus. It
// implements lifecycle.Observer so the engine stays free of any
// instrumentation imports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/modwatch/citywatch/internal/lifecycle"
)

// Metrics holds the registered collectors. Construct one per registry;
// tests pass a fresh prometheus.NewRegistry().
type Metrics struct {
	transitionsAccepted *prometheus.CounterVec
	transitionsRejected *prometheus.CounterVec
	hookFirings         *prometheus.CounterVec
	mismatches          prometheus.Counter
	currentState        *prometheus.GaugeVec
}

// New registers the observer collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitionsAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citywatch_transitions_accepted_total",
			Help: "Accepted lifecycle transitions by source and target state",
		}, []string{"from", "to"}),
		transitionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citywatch_transitions_rejected_total",
			Help: "Rejected lifecycle transitions by source and target state",
		}, []string{"from", "to"}),
		hookFirings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citywatch_hook_firings_total",
			Help: "Host hook firings by hook kind",
		}, []string{"hook"}),
		mismatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "citywatch_correlation_mismatches_total",
			Help: "Load results that did not match the pending user action",
		}),
		currentState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "citywatch_lifecycle_state",
			Help: "Current lifecycle state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),
	}
}

// TransitionAccepted implements lifecycle.Observer.
func (m *Metrics) TransitionAccepted(from, to lifecycle.State) {
	m.transitionsAccepted.WithLabelValues(string(from), string(to)).Inc()
	m.currentState.WithLabelValues(string(from)).Set(0)
	m.currentState.WithLabelValues(string(to)).Set(1)
}

// TransitionRejected implements lifecycle.Observer.
func (m *Metrics) TransitionRejected(from, to lifecycle.State) {
	m.transitionsRejected.WithLabelValues(string(from), string(to)).Inc()
}

// HookFired implements lifecycle.Observer.
func (m *Metrics) HookFired(kind string) {
	m.hookFirings.WithLabelValues(kind).Inc()
}

// CorrelationMismatch implements lifecycle.Observer.
func (m *Metrics) CorrelationMismatch() {
	m.mismatches.Inc()
}
