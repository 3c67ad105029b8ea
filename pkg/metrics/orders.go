package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics covers the order lifecycle core.
type OrderMetrics struct {
	created            *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	conflicts          prometheus.Counter
	invalidTransitions prometheus.Counter
	totalsMismatch     *prometheus.CounterVec
	persistenceFailure *prometheus.CounterVec
	writeDuration      *prometheus.HistogramVec
	taxCache           *prometheus.CounterVec
}

// NewOrderMetrics registers order metrics on reg. A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floorops_orders_created_total",
			Help: "Orders created, by order type.",
		}, []string{"type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floorops_order_transitions_total",
			Help: "Successful order status transitions.",
		}, []string{"from", "to"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "floorops_order_version_conflicts_total",
			Help: "Status updates rejected by the version guard.",
		}),
		invalidTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "floorops_order_invalid_transitions_total",
			Help: "Status updates rejected by the state machine.",
		}),
		totalsMismatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floorops_order_totals_mismatch_total",
			Help: "Caller-supplied totals that disagreed with the computed total.",
		}, []string{"type"}),
		persistenceFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floorops_order_persistence_failures_total",
			Help: "Order writes that failed to commit.",
		}, []string{"op"}),
		writeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "floorops_order_write_duration_seconds",
			Help:    "Duration of order write transactions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		taxCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floorops_tax_rate_lookups_total",
			Help: "Tax rate lookups by cache result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.created,
		m.transitions,
		m.conflicts,
		m.invalidTransitions,
		m.totalsMismatch,
		m.persistenceFailure,
		m.writeDuration,
		m.taxCache,
	)
	return m
}

func (m *OrderMetrics) IncCreated(orderType string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(orderType)).Inc()
}

func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *OrderMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *OrderMetrics) IncInvalidTransition() {
	if m == nil || m.invalidTransitions == nil {
		return
	}
	m.invalidTransitions.Inc()
}

func (m *OrderMetrics) IncTotalsMismatch(orderType string) {
	if m == nil || m.totalsMismatch == nil {
		return
	}
	m.totalsMismatch.WithLabelValues(normalizeLabel(orderType)).Inc()
}

func (m *OrderMetrics) IncPersistenceFailure(op string) {
	if m == nil || m.persistenceFailure == nil {
		return
	}
	m.persistenceFailure.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *OrderMetrics) ObserveWrite(op string, d time.Duration) {
	if m == nil || m.writeDuration == nil {
		return
	}
	m.writeDuration.WithLabelValues(normalizeLabel(op)).Observe(d.Seconds())
}

// IncTaxLookup records a tax rate lookup; result is "hit", "miss" or "error".
func (m *OrderMetrics) IncTaxLookup(result string) {
	if m == nil || m.taxCache == nil {
		return
	}
	m.taxCache.WithLabelValues(normalizeLabel(result)).Inc()
}
