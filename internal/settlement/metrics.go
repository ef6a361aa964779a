package settlement

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	replaysTotal      *prometheus.CounterVec
	sweepResolved     *prometheus.CounterVec
	reconcileMismatch prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskona",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Settlement operations partitioned by operation and result code.",
			},
			[]string{"operation", "result"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskona",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Wall time of settlement operations including lock wait.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		replaysTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskona",
				Subsystem: "ledger",
				Name:      "idempotent_replays_total",
				Help:      "Requests answered from a completed idempotency key.",
			},
			[]string{"operation"},
		),
		sweepResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskona",
				Subsystem: "ledger_sweep",
				Name:      "resolved_total",
				Help:      "Stale pending idempotency keys resolved by the sweep, by final status.",
			},
			[]string{"status"},
		),
		reconcileMismatch: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "taskona",
				Subsystem: "ledger",
				Name:      "reconcile_mismatches_total",
				Help:      "Accounts whose stored balance disagreed with their entries.",
			},
		),
	}
}

func (m *Metrics) observe(operation, result string, replayed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if replayed {
		m.replaysTotal.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) swept(status string) {
	if m == nil {
		return
	}
	m.sweepResolved.WithLabelValues(status).Inc()
}

func (m *Metrics) mismatch() {
	if m == nil {
		return
	}
	m.reconcileMismatch.Inc()
}
