package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImportMetrics records price list import runs and their row outcomes.
type ImportMetrics struct {
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
}

// NewImportMetrics registers the import metrics on the provided registerer.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		return &ImportMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricelist_import_duration_seconds",
		Help:    "Duration of price list import runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricelist_import_rows_total",
		Help: "Imported price list rows by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, rows)
	return &ImportMetrics{
		duration: duration,
		rows:     rows,
	}
}

// ObserveRun records how long a run took and whether it completed.
func (m *ImportMetrics) ObserveRun(result string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// AddRows increments the row counter for outcome (created, updated, skipped, failed).
func (m *ImportMetrics) AddRows(outcome string, n int) {
	if m == nil || m.rows == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
