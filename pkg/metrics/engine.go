package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records transaction-engine activity per terminal.
type EngineMetrics struct {
	ordersCompleted *prometheus.CounterVec
	ordersVoided    *prometheus.CounterVec
	orderTotal      *prometheus.HistogramVec
	payments        *prometheus.CounterVec
	cashVariance    *prometheus.GaugeVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	ordersCompleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_completed_total",
		Help: "Completed orders.",
	}, []string{"terminal"})
	ordersVoided := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_voided_total",
		Help: "Voided orders.",
	}, []string{"terminal"})
	orderTotal := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_total_amount",
		Help:    "Distribution of completed order totals.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	}, []string{"terminal"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Payments recorded by tender method.",
	}, []string{"method"})
	cashVariance := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "session_cash_variance",
		Help: "Cash variance of the most recently closed session per terminal.",
	}, []string{"terminal"})
	reg.MustRegister(ordersCompleted, ordersVoided, orderTotal, payments, cashVariance)
	return &EngineMetrics{
		ordersCompleted: ordersCompleted,
		ordersVoided:    ordersVoided,
		orderTotal:      orderTotal,
		payments:        payments,
		cashVariance:    cashVariance,
	}
}

// IncOrderCompleted increments the completed-order counter and records the total.
func (m *EngineMetrics) IncOrderCompleted(terminal string, total float64) {
	if m == nil || m.ordersCompleted == nil {
		return
	}
	m.ordersCompleted.WithLabelValues(normalizeLabel(terminal)).Inc()
	m.orderTotal.WithLabelValues(normalizeLabel(terminal)).Observe(total)
}

// IncOrderVoided increments the voided-order counter.
func (m *EngineMetrics) IncOrderVoided(terminal string) {
	if m == nil || m.ordersVoided == nil {
		return
	}
	m.ordersVoided.WithLabelValues(normalizeLabel(terminal)).Inc()
}

// IncPayment increments the payment counter for the tender method.
func (m *EngineMetrics) IncPayment(method string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(method)).Inc()
}

// SetCashVariance records the variance from a session close.
func (m *EngineMetrics) SetCashVariance(terminal string, variance float64) {
	if m == nil || m.cashVariance == nil {
		return
	}
	m.cashVariance.WithLabelValues(normalizeLabel(terminal)).Set(variance)
}

// PublisherMetrics records outbox dispatch activity.
type PublisherMetrics struct {
	published *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewPublisherMetrics registers the outbox publisher metrics.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published.",
	}, []string{"event_type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish failures.",
	}, []string{"event_type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Duration of outbox publish attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	reg.MustRegister(published, failures, duration)
	return &PublisherMetrics{
		published: published,
		failures:  failures,
		duration:  duration,
	}
}

// IncPublished increments the publish counter for the event type.
func (p *PublisherMetrics) IncPublished(eventType string) {
	if p == nil || p.published == nil {
		return
	}
	p.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailure increments the failure counter for the event type.
func (p *PublisherMetrics) IncFailure(eventType string) {
	if p == nil || p.failures == nil {
		return
	}
	p.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// ObserveDuration records the publish duration for the event type.
func (p *PublisherMetrics) ObserveDuration(eventType string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
