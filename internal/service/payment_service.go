package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"paylite-payment-service/internal/core/domain"
	"paylite-payment-service/internal/core/ports"
	"paylite-payment-service/pkg/apperror"
	"paylite-payment-service/pkg/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// PaymentServiceImpl implements ports.PaymentService: the payment state
// machine plus the idempotent creation orchestrator.
type PaymentServiceImpl struct {
	paymentRepo ports.PaymentRepository
	idemSvc     ports.IdempotencyService
	idGen       ports.IDGenerator
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	paymentRepo ports.PaymentRepository,
	idemSvc ports.IdempotencyService,
	idGen ports.IDGenerator,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		paymentRepo: paymentRepo,
		idemSvc:     idemSvc,
		idGen:       idGen,
		transactor:  transactor,
		log:         log,
	}
}

// CreatePayment creates a payment at most once per idempotency key.
// A replay with an identical body returns the original result; a replay
// with a different body fails with a conflict and creates nothing.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, req ports.CreatePaymentRequest, idempotencyKey string) (*ports.CreatePaymentResult, error) {
	// Request validation runs upstream too, but the state machine does not
	// assume it: PENDING-only initial state and a positive amount are
	// enforced here regardless.
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if len(req.Currency) != 3 {
		return nil, apperror.Validation("currency must be a 3-letter code")
	}

	fp, err := s.idemSvc.Fingerprint(req)
	if err != nil {
		return nil, err
	}

	prior, err := s.idemSvc.Lookup(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		if prior.RequestHash == fp {
			metrics.PaymentsReplayed.Inc()
			s.log.Info().Str("idempotency_key", idempotencyKey).Msg("returning cached creation result")
			return unmarshalResult(prior.ResponseBody)
		}
		metrics.IdempotencyConflicts.Inc()
		s.log.Warn().Str("idempotency_key", idempotencyKey).Msg("idempotency key conflict")
		return nil, apperror.ErrIdempotencyConflict()
	}

	result, err := s.executeCreate(ctx, req, idempotencyKey, fp)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Lost the insert race: a concurrent caller committed the canonical
		// record between our lookup and our insert. Their result stands.
		winner, lerr := s.idemSvc.Lookup(ctx, idempotencyKey)
		if lerr != nil {
			return nil, lerr
		}
		if winner == nil {
			return nil, apperror.InternalError(fmt.Errorf("idempotency record missing after duplicate insert, key %s", idempotencyKey))
		}
		if winner.RequestHash != fp {
			metrics.IdempotencyConflicts.Inc()
			return nil, apperror.ErrIdempotencyConflict()
		}
		metrics.PaymentsReplayed.Inc()
		s.log.Info().Str("idempotency_key", idempotencyKey).Msg("concurrent duplicate creation, returning winner's result")
		return unmarshalResult(winner.ResponseBody)
	}
	return result, err
}

// executeCreate performs the first execution for a key: payment row and
// idempotency record commit as one unit of work, so a crash between the two
// can never leave a payment without its record.
func (s *PaymentServiceImpl) executeCreate(ctx context.Context, req ports.CreatePaymentRequest, idempotencyKey, fp string) (*ports.CreatePaymentResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	payment := &domain.Payment{
		PaymentID:     s.idGen.NewPaymentID(),
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		Reference:     req.Reference,
		Status:        domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.paymentRepo.Create(ctx, dbTx, payment); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	result := &ports.CreatePaymentResult{
		PaymentID: payment.PaymentID,
		Status:    string(payment.Status),
	}
	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal creation result: %w", err))
	}

	if err := s.idemSvc.Store(ctx, dbTx, idempotencyKey, fp, respJSON); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-commit: best-effort fast-path cache.
	s.idemSvc.CacheResult(ctx, idempotencyKey, fp, respJSON)

	metrics.PaymentsCreated.Inc()
	s.log.Info().
		Str("payment_id", payment.PaymentID).
		Str("idempotency_key", idempotencyKey).
		Str("amount", payment.Amount.String()).
		Str("currency", payment.Currency).
		Msg("payment created")

	return result, nil
}

// GetPayment fetches a payment by its external identifier.
func (s *PaymentServiceImpl) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrPaymentNotFound(paymentID)
	}
	return payment, nil
}

// UpdateStatus applies a status transition inside the caller's database
// transaction. Re-applying the status a payment already has is a no-op;
// any other transition out of a terminal state is rejected.
func (s *PaymentServiceImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, paymentID string, status domain.PaymentStatus) error {
	payment, err := s.paymentRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load payment for transition: %w", err))
	}
	if payment == nil {
		return apperror.ErrPaymentNotFound(paymentID)
	}

	if payment.Status == status {
		s.log.Debug().
			Str("payment_id", paymentID).
			Str("status", string(status)).
			Msg("status already applied, skipping")
		return nil
	}
	if !payment.CanTransitionTo(status) {
		return apperror.ErrInvalidStatusTransition(string(payment.Status), string(status))
	}

	if err := s.paymentRepo.UpdateStatus(ctx, tx, paymentID, status); err != nil {
		return apperror.InternalError(fmt.Errorf("update payment status: %w", err))
	}

	s.log.Info().
		Str("payment_id", paymentID).
		Str("from", string(payment.Status)).
		Str("to", string(status)).
		Msg("payment status updated")
	return nil
}

// unmarshalResult deserializes a cached creation result.
func unmarshalResult(data []byte) (*ports.CreatePaymentResult, error) {
	result := &ports.CreatePaymentResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached result: %w", err))
	}
	return result, nil
}
