// Package metrics provides Prometheus metrics for qualification runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/qualification"
)

type Metrics struct {
	// Verdicts assigned per status
	VerdictsTotal *prometheus.CounterVec

	// Records read per run
	RecordsTotal prometheus.Counter

	// Records left provisional because the run stopped early
	InterruptedTotal prometheus.Counter

	// Wall-clock time of a full run
	RunDuration prometheus.Histogram

	// Downstream sink failures (store, publish)
	SinkErrors *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		VerdictsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualifier_verdicts_total",
			Help: "Qualification verdicts by status",
		}, []string{"status"}),

		RecordsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "qualifier_records_total",
			Help: "Registration records processed",
		}),

		InterruptedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "qualifier_records_interrupted_total",
			Help: "Records finalized without evidence because the run was interrupted",
		}),

		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "qualifier_run_duration_seconds",
			Help:    "Duration of a qualification run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),

		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualifier_sink_errors_total",
			Help: "Failures writing outcomes to a sink",
		}, []string{"sink"}),
	}
}

// ObserveOutcome records a single finalized record.
func (m *Metrics) ObserveOutcome(o qualification.Outcome) {
	if m == nil {
		return
	}
	m.RecordsTotal.Inc()
	m.VerdictsTotal.WithLabelValues(string(o.Verdict.Status)).Inc()
	if o.ProfileStatus == profile.StatusInterrupted {
		m.InterruptedTotal.Inc()
	}
}

func (m *Metrics) ObserveRun(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementSinkError(sink string) {
	if m != nil {
		m.SinkErrors.WithLabelValues(sink).Inc()
	}
}
