package convert

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/docforge/internal/model"
)

var (
	conversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docforge_conversions_total",
			Help: "Total number of conversion jobs by terminal status.",
		},
		[]string{"status", "extension"},
	)

	conversionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docforge_conversion_duration_seconds",
			Help:    "Engine conversion time from invocation to exit, in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	queueWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docforge_queue_wait_seconds",
			Help:    "Time a job waited for a free conversion slot, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	activeConversions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docforge_active_conversions",
			Help: "Number of engine invocations currently running.",
		},
	)

	rejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docforge_rejected_total",
			Help: "Uploads rejected before any resource allocation.",
		},
	)
)

func init() {
	prometheus.MustRegister(conversionsTotal)
	prometheus.MustRegister(conversionDuration)
	prometheus.MustRegister(queueWaitDuration)
	prometheus.MustRegister(activeConversions)
	prometheus.MustRegister(rejectedTotal)

	// Pre-initialize counter label combinations so they appear in /metrics
	// with value 0 from startup, rather than only after first observation.
	for _, ext := range model.SupportedExtensions() {
		conversionsTotal.WithLabelValues(model.StatusSucceeded, ext)
		conversionsTotal.WithLabelValues(model.StatusFailed, ext)
		conversionsTotal.WithLabelValues(model.StatusTimedOut, ext)
	}
}
