package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsStarted       *prometheus.CounterVec
	runsCompleted     *prometheus.CounterVec
	runsFailed        *prometheus.CounterVec
	rebalances        *prometheus.CounterVec
	rebalancesSkipped *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	lastMeanIC        prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsStarted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphawalk_runs_started_total",
				Help: "Total number of simulation runs started",
			},
			[]string{"kind"},
		),
		runsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphawalk_runs_completed_total",
				Help: "Total number of simulation runs completed",
			},
			[]string{"kind"},
		),
		runsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphawalk_runs_failed_total",
				Help: "Total number of simulation runs that failed fatally",
			},
			[]string{"kind"},
		),
		rebalances: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphawalk_rebalances_total",
				Help: "Total number of successful rebalances",
			},
			[]string{"kind"},
		),
		rebalancesSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphawalk_rebalances_skipped_total",
				Help: "Total number of skipped rebalances by cause",
			},
			[]string{"kind", "reason"},
		),
		runDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alphawalk_run_duration_seconds",
				Help:    "Duration of simulation runs in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		lastMeanIC: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "alphawalk_last_mean_ic",
				Help: "Cross-validated mean information coefficient of the most recent model fit",
			},
		),
	}
}

// RecordRunStarted counts a run start for the given simulator kind.
func (r *Recorder) RecordRunStarted(kind string) {
	r.runsStarted.WithLabelValues(kind).Inc()
}

// RecordRunCompleted counts a completed run and observes its duration.
func (r *Recorder) RecordRunCompleted(kind string, seconds float64) {
	r.runsCompleted.WithLabelValues(kind).Inc()
	r.runDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordRunFailed counts a fatally failed run.
func (r *Recorder) RecordRunFailed(kind string) {
	r.runsFailed.WithLabelValues(kind).Inc()
}

// RecordRebalance counts a successful rebalance.
func (r *Recorder) RecordRebalance(kind string) {
	r.rebalances.WithLabelValues(kind).Inc()
}

// RecordRebalanceSkipped counts a skipped rebalance by cause.
func (r *Recorder) RecordRebalanceSkipped(kind, reason string) {
	r.rebalancesSkipped.WithLabelValues(kind, reason).Inc()
}

// RecordMeanIC publishes the latest cross-validated mean IC.
func (r *Recorder) RecordMeanIC(ic float64) {
	r.lastMeanIC.Set(ic)
}
