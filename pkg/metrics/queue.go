package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics records checkout queue drain outcomes.
type QueueMetrics struct {
	processed       *prometheus.CounterVec
	drainDuration   prometheus.Histogram
	restoreFailures prometheus.Counter
}

// NewQueueMetrics registers the queue metrics on the provided registerer.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	if reg == nil {
		return &QueueMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_queue_items_processed",
		Help: "Checkout queue items processed, labelled by outcome.",
	}, []string{"outcome"})
	drainDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_queue_drain_seconds",
		Help:    "Duration of full queue drain passes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	restoreFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_restore_failures",
		Help: "Stock restorations that failed during order cancellation.",
	})
	reg.MustRegister(processed, drainDuration, restoreFailures)
	return &QueueMetrics{
		processed:       processed,
		drainDuration:   drainDuration,
		restoreFailures: restoreFailures,
	}
}

// IncProcessed counts one processed item with its outcome label.
func (q *QueueMetrics) IncProcessed(outcome string) {
	if q == nil || q.processed == nil {
		return
	}
	q.processed.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDrain records how long one drain pass took.
func (q *QueueMetrics) ObserveDrain(duration time.Duration) {
	if q == nil || q.drainDuration == nil {
		return
	}
	q.drainDuration.Observe(duration.Seconds())
}

// IncRestoreFailure counts a failed stock restoration.
func (q *QueueMetrics) IncRestoreFailure() {
	if q == nil || q.restoreFailures == nil {
		return
	}
	q.restoreFailures.Inc()
}
