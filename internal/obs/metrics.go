package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersCreatedTotal counts checkouts that produced an order.
	OrdersCreatedTotal prometheus.Counter
	// WorkflowTransitionsTotal counts workflow advancement attempts by result.
	WorkflowTransitionsTotal *prometheus.CounterVec
	// WhatsAppSendTotal counts outbound WhatsApp message outcomes.
	WhatsAppSendTotal *prometheus.CounterVec
	// CheckoutDuration records checkout transaction latency in seconds.
	CheckoutDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Number of orders materialized at checkout.",
		})
		WorkflowTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Workflow advancement attempts by result.",
		}, []string{"result"})
		WhatsAppSendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "whatsapp_send_total",
			Help:      "Outbound WhatsApp message outcomes.",
		}, []string{"outcome"})
		CheckoutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "Latency of the checkout transaction.",
			Buckets:   prometheus.DefBuckets,
		})

		reg.MustRegister(OrdersCreatedTotal, WorkflowTransitionsTotal, WhatsAppSendTotal, CheckoutDuration)
	})
}
