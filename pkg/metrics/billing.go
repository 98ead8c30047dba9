package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics records Stripe webhook ingestion and quota decisions.
type BillingMetrics struct {
	webhookEvents   *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
	quotaDenials    *prometheus.CounterVec
}

// NewBillingMetrics registers the billing metrics on the provided registerer.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events",
		Help: "Stripe webhook events grouped by type and outcome.",
	}, []string{"type", "outcome"})
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stripe_webhook_duration_seconds",
		Help:    "Duration of Stripe webhook handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	quotaDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_quota_denials",
		Help: "Bot creation attempts rejected by the quota enforcer.",
	}, []string{"plan"})
	reg.MustRegister(webhookEvents, webhookDuration, quotaDenials)
	return &BillingMetrics{
		webhookEvents:   webhookEvents,
		webhookDuration: webhookDuration,
		quotaDenials:    quotaDenials,
	}
}

// IncWebhookEvent increments the webhook counter for the event type and outcome.
func (b *BillingMetrics) IncWebhookEvent(eventType, outcome string) {
	if b == nil || b.webhookEvents == nil {
		return
	}
	b.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveWebhookDuration records the handling duration for the event type.
func (b *BillingMetrics) ObserveWebhookDuration(eventType string, duration time.Duration) {
	if b == nil || b.webhookDuration == nil {
		return
	}
	b.webhookDuration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncQuotaDenial increments the quota denial counter for the plan.
func (b *BillingMetrics) IncQuotaDenial(plan string) {
	if b == nil || b.quotaDenials == nil {
		return
	}
	b.quotaDenials.WithLabelValues(normalizeLabel(plan)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
