// Package metrics records engine-level Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	cycles    *prometheus.CounterVec
	cycleTime *prometheus.HistogramVec
	pairs     *prometheus.CounterVec
	anomalies *prometheus.CounterVec
	alerts    *prometheus.CounterVec
	errors    *prometheus.CounterVec
	bestTotal *prometheus.GaugeVec
	latency   *prometheus.HistogramVec
}

// New registers on the default registry. Call it once per process.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers on reg, which lets tests use a private registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farepull",
			Name:      "cycles_total",
			Help:      "Completed runs per stream.",
		}, []string{"stream"}),
		cycleTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "farepull",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one run per stream.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stream"}),
		pairs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farepull",
			Name:      "pairs_total",
			Help:      "Date pairs processed by result.",
		}, []string{"result"}),
		anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farepull",
			Name:      "anomalies_total",
			Help:      "Anomalies detected by kind and severity.",
		}, []string{"kind", "severity"}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farepull",
			Name:      "alerts_total",
			Help:      "Notifications attempted by result.",
		}, []string{"result"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farepull",
			Name:      "errors_total",
			Help:      "Errors by kind.",
		}, []string{"type"}),
		bestTotal: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "farepull",
			Name:      "best_total",
			Help:      "Cheapest round-trip total of the last cycle.",
		}, []string{"route"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "farepull",
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine stages in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordCycle(stream string, d time.Duration) {
	r.cycles.WithLabelValues(stream).Inc()
	r.cycleTime.WithLabelValues(stream).Observe(d.Seconds())
}

func (r *Recorder) RecordPair(result string) {
	r.pairs.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordAnomaly(kind, severity string) {
	r.anomalies.WithLabelValues(kind, severity).Inc()
}

func (r *Recorder) RecordAlert(result string) {
	r.alerts.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordBestTotal(route string, total float64) {
	r.bestTotal.WithLabelValues(route).Set(total)
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
