// Package observability registers and records prometheus metrics for the
// dispatch engine.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	requestsPosted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quickaid",
			Subsystem: "dispatch",
			Name:      "requests_posted_total",
			Help:      "Requests posted, by outcome.",
		},
		[]string{"outcome"},
	)
	fanoutReached = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "quickaid",
			Subsystem: "dispatch",
			Name:      "fanout_reached",
			Help:      "Helpers reached per dispatch round.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25},
		},
	)
	accepts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quickaid",
			Subsystem: "dispatch",
			Name:      "accepts_total",
			Help:      "Accept attempts, by outcome.",
		},
		[]string{"outcome"},
	)
	eventDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quickaid",
			Subsystem: "dispatch",
			Name:      "event_duration_seconds",
			Help:      "Engine event processing duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"event"},
	)
	reopens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "quickaid",
			Subsystem: "dispatch",
			Name:      "reopens_total",
			Help:      "Accepted requests reopened after helper loss.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestsPosted, fanoutReached, accepts, eventDuration, reopens)
	})
}

func RecordPost(outcome string) {
	RegisterMetrics()
	requestsPosted.WithLabelValues(outcome).Inc()
}

func RecordFanout(reached int) {
	RegisterMetrics()
	fanoutReached.Observe(float64(reached))
}

func RecordAccept(outcome string) {
	RegisterMetrics()
	accepts.WithLabelValues(outcome).Inc()
}

func RecordEvent(event string, duration time.Duration) {
	RegisterMetrics()
	eventDuration.WithLabelValues(event).Observe(duration.Seconds())
}

func RecordReopen() {
	RegisterMetrics()
	reopens.Inc()
}
