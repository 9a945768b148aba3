package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	SourceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "farepull",
			Subsystem: "source",
			Name:      "request_seconds",
			Help:      "Latency of pricing-source requests",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"op"},
	)

	SourceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farepull",
			Subsystem: "source",
			Name:      "requests_total",
			Help:      "Pricing-source requests by outcome",
		},
		[]string{"op", "result"},
	)

	SourceParseWarnings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "farepull",
			Subsystem: "source",
			Name:      "parse_warnings_total",
			Help:      "Fare records skipped because they failed to decode",
		},
	)
)

// Register adds the source metrics to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(SourceLatency, SourceRequests, SourceParseWarnings)
	})
}
