package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paylite-payment-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts a new payment within a database transaction. The
// payment_id column carries a unique constraint.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	query := `INSERT INTO payments (payment_id, amount, currency, customer_email, reference, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		p.PaymentID, p.Amount, p.Currency, p.CustomerEmail,
		p.Reference, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if err = translateError(err); errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByPaymentID fetches a payment by its external identifier.
// Returns nil, nil when no row exists.
func (r *PaymentRepo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	query := `SELECT payment_id, amount, currency, customer_email, reference, status, created_at, updated_at
		FROM payments WHERE payment_id = $1`

	p := &domain.Payment{}
	var status string
	err := r.pool.QueryRow(ctx, query, paymentID).Scan(
		&p.PaymentID, &p.Amount, &p.Currency, &p.CustomerEmail,
		&p.Reference, &status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	p.Status = domain.PaymentStatus(status)
	return p, nil
}

// UpdateStatus persists a status change within a database transaction.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, paymentID string, status domain.PaymentStatus) error {
	query := `UPDATE payments SET status = $1, updated_at = $2 WHERE payment_id = $3`

	tag, err := tx.Exec(ctx, query, status, time.Now().UTC(), paymentID)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment not found: %s", paymentID)
	}
	return nil
}
