package postgres

import (
	"context"
	"errors"
	"fmt"

	"paylite-payment-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WebhookEventRepo implements ports.WebhookEventRepository.
type WebhookEventRepo struct {
	pool Pool
}

// NewWebhookEventRepo creates a new WebhookEventRepo.
func NewWebhookEventRepo(pool Pool) *WebhookEventRepo {
	return &WebhookEventRepo{pool: pool}
}

// Create inserts a processed-event record within a database transaction.
// The event_id column carries a unique constraint; a violation comes back
// as domain.ErrAlreadyExists, meaning a concurrent delivery won the insert.
func (r *WebhookEventRepo) Create(ctx context.Context, tx pgx.Tx, ev *domain.WebhookEvent) error {
	query := `INSERT INTO webhook_events (event_id, payment_id, event_type, raw_payload, processed_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, ev.EventID, ev.PaymentID, ev.EventType, ev.RawPayload, ev.ProcessedAt)
	if err != nil {
		if err = translateError(err); errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

// Exists reports whether an event with the given identity was already
// processed.
func (r *WebhookEventRepo) Exists(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM webhook_events WHERE event_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check webhook event exists: %w", err)
	}
	return exists, nil
}
