package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// IsValid reports whether s is a known payment status.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is expected out of s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed
}

// Payment represents a payment created through the gateway facade.
// PaymentID is the externally visible identifier, assigned exactly once at
// creation; the row never carries a second identity.
type Payment struct {
	PaymentID     string          `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customer_email"`
	Reference     string          `json:"reference"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CanTransitionTo reports whether moving from the payment's current status
// to target is legal. PENDING may move to either terminal status. A terminal
// status re-accepts only itself (idempotent no-op for replayed events).
func (p *Payment) CanTransitionTo(target PaymentStatus) bool {
	if !target.IsValid() || target == PaymentStatusPending {
		return false
	}
	if p.Status == PaymentStatusPending {
		return true
	}
	return p.Status == target
}
