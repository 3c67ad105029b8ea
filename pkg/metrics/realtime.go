package metrics

import "github.com/prometheus/client_golang/prometheus"

// RealtimeMetrics covers the broadcast pipeline.
type RealtimeMetrics struct {
	published   prometheus.Counter
	dropped     *prometheus.CounterVec
	failed      prometheus.Counter
	subscribers prometheus.Gauge
}

func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	m := &RealtimeMetrics{
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "floorops_realtime_delivered_total",
			Help: "Order events handed to the transport.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floorops_realtime_dropped_total",
			Help: "Order events dropped before delivery, by reason.",
		}, []string{"reason"}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "floorops_realtime_delivery_failures_total",
			Help: "Transport errors while delivering order events.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "floorops_realtime_subscribers",
			Help: "Connected realtime subscribers on this instance.",
		}),
	}
	reg.MustRegister(m.published, m.dropped, m.failed, m.subscribers)
	return m
}

func (m *RealtimeMetrics) IncDelivered() {
	if m == nil || m.published == nil {
		return
	}
	m.published.Inc()
}

func (m *RealtimeMetrics) IncDropped(reason string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *RealtimeMetrics) IncFailed() {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.Inc()
}

func (m *RealtimeMetrics) AddSubscribers(delta int) {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Add(float64(delta))
}
