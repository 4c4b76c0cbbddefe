package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records payment gateway calls and settlement outcomes.
type SettlementMetrics struct {
	gatewayDuration *prometheus.HistogramVec
	charges         *prometheus.CounterVec
	webhooks        *prometheus.CounterVec
	transitions     *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_duration_seconds",
		Help:    "Duration of payment gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	charges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_charges_total",
		Help: "Charge attempts by resulting payment status.",
	}, []string{"method", "status"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Gateway webhook events by action and handling result.",
	}, []string{"action", "result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions by event type.",
	}, []string{"event"})
	reg.MustRegister(gatewayDuration, charges, webhooks, transitions)
	return &SettlementMetrics{
		gatewayDuration: gatewayDuration,
		charges:         charges,
		webhooks:        webhooks,
		transitions:     transitions,
	}
}

// ObserveGatewayCall records the duration for the named gateway operation.
func (m *SettlementMetrics) ObserveGatewayCall(operation string, duration time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncCharge counts one charge attempt with its resulting status.
func (m *SettlementMetrics) IncCharge(method, status string) {
	if m == nil || m.charges == nil {
		return
	}
	m.charges.WithLabelValues(normalizeLabel(method), normalizeLabel(status)).Inc()
}

// IncWebhook counts one webhook event with its handling result.
func (m *SettlementMetrics) IncWebhook(action, result string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(action), normalizeLabel(result)).Inc()
}

// IncTransition counts one applied order transition.
func (m *SettlementMetrics) IncTransition(event string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(event)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
