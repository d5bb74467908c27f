package calculator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of a Reserves service.
type Metrics struct {
	computed         *prometheus.CounterVec
	errors           *prometheus.CounterVec
	computeDuration  prometheus.Histogram
	vaults           prometheus.Gauge
	crossCheckFailed prometheus.Counter
}

// NewMetrics registers the service collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		computed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sir",
			Subsystem: "reserves",
			Name:      "computed_total",
			Help:      "Reserve splits computed, by zone.",
		}, []string{"zone"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sir",
			Subsystem: "reserves",
			Name:      "errors_total",
			Help:      "Failed reserve lookups, by stage.",
		}, []string{"stage"}),
		computeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sir",
			Subsystem: "reserves",
			Name:      "compute_duration_seconds",
			Help:      "Time spent computing a reserve split, oracle call included.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		vaults: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sir",
			Subsystem: "reserves",
			Name:      "vaults",
			Help:      "Vaults in the current snapshot.",
		}),
		crossCheckFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sir",
			Subsystem: "reserves",
			Name:      "cross_check_failures_total",
			Help:      "Splits where the integer and floating-point evaluations disagreed beyond tolerance.",
		}),
	}
}
