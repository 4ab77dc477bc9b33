package domain

import "time"

// WebhookEvent records a provider event that has been fully applied.
// A row existing for EventID implies the corresponding status transition
// was committed, so the table doubles as the dedup ledger.
type WebhookEvent struct {
	EventID     string    `json:"event_id"` // paymentID + "_" + eventType
	PaymentID   string    `json:"payment_id"`
	EventType   string    `json:"event_type"`
	RawPayload  []byte    `json:"raw_payload"`
	ProcessedAt time.Time `json:"processed_at"`
}

// BuildEventID derives the deterministic event identity. The provider sends
// no event nonce, so identity comes from the two immutable request fields.
func BuildEventID(paymentID, eventType string) string {
	return paymentID + "_" + eventType
}
