package ports

import (
	"context"

	"paylite-payment-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PaymentRepository defines persistence operations for payments.
// Methods accepting pgx.Tx run inside transaction blocks so that the
// creation path and the webhook path each commit as a single unit of work.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, paymentID string, status domain.PaymentStatus) error
}

// IdempotencyRepository defines persistence for idempotency records.
// Create must be unique-constrained on the key; a violation surfaces as
// domain.ErrAlreadyExists so the caller can resolve the race by re-reading.
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, record *domain.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// WebhookEventRepository defines persistence for processed webhook events.
// Create must be unique-constrained on the event identity.
type WebhookEventRepository interface {
	Create(ctx context.Context, tx pgx.Tx, event *domain.WebhookEvent) error
	Exists(ctx context.Context, eventID string) (bool, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
