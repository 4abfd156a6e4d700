package sweeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	runs       *prometheus.CounterVec
	marked     prometheus.Counter
	failures   prometheus.Counter
	candidates prometheus.Gauge
	duration   prometheus.Histogram
}

// newMetrics registers on reg; nil reg → private registry (test / multi-instance).
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Subsystem: "sweeper",
			Name:      "runs_total",
			Help:      "Sweep runs by outcome (ok, partial, failed, skipped).",
		}, []string{"outcome"}),
		marked: f.NewCounter(prometheus.CounterOpts{
			Namespace: "attendance",
			Subsystem: "sweeper",
			Name:      "marked_absent_total",
			Help:      "Records moved from left to absent by the sweeper.",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "attendance",
			Subsystem: "sweeper",
			Name:      "record_failures_total",
			Help:      "Per-record failures during sweeps.",
		}),
		candidates: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "attendance",
			Subsystem: "sweeper",
			Name:      "last_candidates",
			Help:      "Overdue left records found by the last sweep.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "attendance",
			Subsystem: "sweeper",
			Name:      "run_duration_seconds",
			Help:      "Duration of sweep runs.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
