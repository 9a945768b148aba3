package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	default:
		return float64(out.Histogram.GetSampleCount())
	}
}

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordCycle("prices", 3*time.Second)
	r.RecordPair("ok")
	r.RecordPair("ok")
	r.RecordPair("failed")
	r.RecordAnomaly("ZERO_PRICE", "CRITICAL")
	r.RecordBestTotal("BUE-FLN", 380000)

	assert.Equal(t, 1.0, value(t, r.cycles.WithLabelValues("prices")))
	assert.Equal(t, 2.0, value(t, r.pairs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, value(t, r.pairs.WithLabelValues("failed")))
	assert.Equal(t, 1.0, value(t, r.anomalies.WithLabelValues("ZERO_PRICE", "CRITICAL")))
	assert.Equal(t, 380000.0, value(t, r.bestTotal.WithLabelValues("BUE-FLN")))
}

func TestRecordersDoNotCollideOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}
