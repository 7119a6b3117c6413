// Package metrics holds the prometheus collectors exported by the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "etl"

// Outcome labels for RunsTotal
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeNoop      = "noop"
)

// Metrics groups the pipeline collectors
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	Rows            *prometheus.GaugeVec
	ObjectsArchived prometheus.Counter
	LastSuccess     prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses a fresh registry so
// tests never collide on the global one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		Rows: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows",
			Help:      "Row counts of the last run per stage.",
		}, []string{"stage"}),
		ObjectsArchived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_archived_total",
			Help:      "Source objects moved to the archive tier.",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
}

// ObserveStage records d against stage
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetRows sets the row gauge for stage
func (m *Metrics) SetRows(stage string, n int) {
	m.Rows.WithLabelValues(stage).Set(float64(n))
}

// RunFinished counts a run and, on success, stamps LastSuccess
func (m *Metrics) RunFinished(outcome string, at time.Time) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeFailed {
		m.LastSuccess.Set(float64(at.Unix()))
	}
}
