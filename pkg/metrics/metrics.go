package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the idempotency and reconciliation paths. Registered on the
// default registry and exposed at /metrics.
var (
	PaymentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylite_payments_created_total",
		Help: "Payments created (first execution per idempotency key).",
	})

	PaymentsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylite_payments_replayed_total",
		Help: "Creation requests answered from the idempotency cache.",
	})

	IdempotencyConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylite_idempotency_conflicts_total",
		Help: "Idempotency keys reused with a different request fingerprint.",
	})

	CacheWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylite_idempotency_cache_write_failures_total",
		Help: "Best-effort cache writes that failed after a committed creation.",
	})

	WebhooksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylite_webhooks_processed_total",
		Help: "Webhook events applied, by event type.",
	}, []string{"event"})

	WebhooksDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylite_webhooks_duplicate_total",
		Help: "Webhook deliveries recognized as already processed.",
	})

	WebhooksUnknownEvent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylite_webhooks_unknown_event_total",
		Help: "Webhook deliveries rejected for an unknown event type.",
	})
)
