// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters updated across the payment bridge
type Metrics struct {
	ReconciliationsApplied  *prometheus.CounterVec
	ReconciliationsFailed   *prometheus.CounterVec
	WebhookSignatureRejects prometheus.Counter
	GatewayCalls            *prometheus.CounterVec
	GatewayCallErrors       *prometheus.CounterVec
	EmailsSent              *prometheus.CounterVec
	EventsPublished         prometheus.Counter
	EventPublishErrors      prometheus.Counter
}

// New registers the bridge's metrics with the given registerer. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReconciliationsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_reconciliations_applied_total",
			Help: "Gateway status updates successfully applied to orders.",
		}, []string{"status"}),
		ReconciliationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_reconciliations_failed_total",
			Help: "Gateway status updates that could not be applied.",
		}, []string{"reason"}),
		WebhookSignatureRejects: factory.NewCounter(prometheus.CounterOpts{
			Name: "payment_webhook_signature_rejects_total",
			Help: "Webhook deliveries rejected for a bad or missing signature.",
		}),
		GatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_gateway_calls_total",
			Help: "Outbound gateway API calls by operation.",
		}, []string{"operation"}),
		GatewayCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_gateway_call_errors_total",
			Help: "Outbound gateway API calls that failed, by operation and kind.",
		}, []string{"operation", "kind"}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_notification_emails_total",
			Help: "Status notification emails sent, by template.",
		}, []string{"template"}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "payment_status_events_published_total",
			Help: "Payment status events published to the broker.",
		}),
		EventPublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "payment_status_event_publish_errors_total",
			Help: "Payment status events that failed to publish.",
		}),
	}
}
