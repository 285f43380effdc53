// Package metrics exposes Prometheus collectors for Monte Carlo runs.
//
// Collectors are registered on an injected registry so tests and
// concurrent drivers never share the global one. A nil *Metrics is valid
// and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "casm_monte"

// Metrics holds the driver collectors.
type Metrics struct {
	// StepsTotal counts proposed events.
	StepsTotal prometheus.Counter

	// AcceptedTotal counts accepted events.
	AcceptedTotal prometheus.Counter

	// SamplesTotal counts recorded samples.
	SamplesTotal prometheus.Counter

	// ConditionsTotal counts finished conditions by outcome
	// (converged, complete, skipped).
	ConditionsTotal *prometheus.CounterVec

	// ConditionIndex is the index of the condition being run.
	ConditionIndex prometheus.Gauge

	// ArchiveSize is the number of configurations in the enumeration archive.
	ArchiveSize prometheus.Gauge

	// ConditionDuration records wall time per condition in seconds.
	ConditionDuration prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StepsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total Monte Carlo steps proposed",
		}),
		AcceptedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepted_total",
			Help:      "Total Monte Carlo steps accepted",
		}),
		SamplesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Total samples recorded",
		}),
		ConditionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conditions_total",
			Help:      "Finished conditions by outcome",
		}, []string{"outcome"}),
		ConditionIndex: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "condition_index",
			Help:      "Index of the condition being run",
		}),
		ArchiveSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "enum",
			Name:      "archive_size",
			Help:      "Configurations held in the enumeration archive",
		}),
		ConditionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "condition_duration_seconds",
			Help:      "Wall time spent per condition",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Step records one proposed event.
func (m *Metrics) Step(accepted bool) {
	if m == nil {
		return
	}
	m.StepsTotal.Inc()
	if accepted {
		m.AcceptedTotal.Inc()
	}
}

// Sample records one sample.
func (m *Metrics) Sample() {
	if m == nil {
		return
	}
	m.SamplesTotal.Inc()
}

// BeginCondition marks condition index as running.
func (m *Metrics) BeginCondition(index int) {
	if m == nil {
		return
	}
	m.ConditionIndex.Set(float64(index))
}

// EndCondition records a finished condition.
func (m *Metrics) EndCondition(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ConditionsTotal.WithLabelValues(outcome).Inc()
	m.ConditionDuration.Observe(seconds)
}

// SetArchiveSize records the archive size.
func (m *Metrics) SetArchiveSize(n int) {
	if m == nil {
		return
	}
	m.ArchiveSize.Set(float64(n))
}
