package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReviewMetrics counts batch review actions and the items they changed.
type ReviewMetrics struct {
	batches *prometheus.CounterVec
	items   *prometheus.CounterVec
}

// NewReviewMetrics registers the review metrics on the provided registerer.
func NewReviewMetrics(reg prometheus.Registerer) *ReviewMetrics {
	if reg == nil {
		return &ReviewMetrics{}
	}
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricelist_review_batches_total",
		Help: "Batch review actions executed.",
	}, []string{"action"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricelist_review_items_total",
		Help: "Price list items changed by batch review actions.",
	}, []string{"action"})
	reg.MustRegister(batches, items)
	return &ReviewMetrics{batches: batches, items: items}
}

// ObserveBatch records one batch action that changed n items.
func (m *ReviewMetrics) ObserveBatch(action string, n int) {
	if m == nil || m.batches == nil {
		return
	}
	label := normalizeLabel(action)
	m.batches.WithLabelValues(label).Inc()
	if n > 0 {
		m.items.WithLabelValues(label).Add(float64(n))
	}
}
