package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paylite-payment-service/internal/core/domain"
	"paylite-payment-service/internal/core/ports"
	"paylite-payment-service/pkg/apperror"
	"paylite-payment-service/pkg/metrics"

	"github.com/rs/zerolog"
)

// Provider event types and the statuses they map to. Any other value is
// rejected without touching payment state.
var eventStatus = map[string]domain.PaymentStatus{
	"payment.succeeded": domain.PaymentStatusSucceeded,
	"payment.failed":    domain.PaymentStatusFailed,
}

// WebhookServiceImpl implements ports.WebhookService: signature gate plus
// the event reconciler.
type WebhookServiceImpl struct {
	eventRepo  ports.WebhookEventRepository
	paymentSvc ports.PaymentService
	sigSvc     ports.SignatureService
	transactor ports.DBTransactor
	secret     string
	log        zerolog.Logger
}

// NewWebhookService creates a new WebhookServiceImpl. The shared webhook
// secret is injected here, at construction time.
func NewWebhookService(
	eventRepo ports.WebhookEventRepository,
	paymentSvc ports.PaymentService,
	sigSvc ports.SignatureService,
	transactor ports.DBTransactor,
	secret string,
	log zerolog.Logger,
) *WebhookServiceImpl {
	return &WebhookServiceImpl{
		eventRepo:  eventRepo,
		paymentSvc: paymentSvc,
		sigSvc:     sigSvc,
		transactor: transactor,
		secret:     secret,
		log:        log,
	}
}

// VerifySignature checks the provider signature over the exact raw body
// bytes, before any JSON decoding.
func (s *WebhookServiceImpl) VerifySignature(signature string, rawBody []byte) bool {
	ok := s.sigSvc.Verify(s.secret, rawBody, signature)
	if !ok {
		s.log.Warn().Msg("webhook signature verification failed")
	}
	return ok
}

// ProcessWebhook reconciles one provider event into payment status, at most
// once per distinct (payment, event type) identity.
func (s *WebhookServiceImpl) ProcessWebhook(ctx context.Context, req ports.WebhookRequest) (*ports.WebhookResult, error) {
	eventID := domain.BuildEventID(req.PaymentID, req.Event)

	exists, err := s.eventRepo.Exists(ctx, eventID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check webhook dedup: %w", err))
	}
	if exists {
		metrics.WebhooksDuplicate.Inc()
		s.log.Info().Str("event_id", eventID).Msg("duplicate webhook ignored")
		return &ports.WebhookResult{Status: "SUCCESS", Message: "Webhook already processed", Duplicate: true}, nil
	}

	target, known := eventStatus[req.Event]
	if !known {
		metrics.WebhooksUnknownEvent.Inc()
		s.log.Error().Str("event", req.Event).Str("payment_id", req.PaymentID).Msg("unknown webhook event type")
		return nil, apperror.ErrUnknownEvent(req.Event)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Transition first: a committed event record must imply the status was
	// applied. A failed transition aborts before the record is written, so
	// a corrected retry can still succeed.
	if err := s.paymentSvc.UpdateStatus(ctx, dbTx, req.PaymentID, target); err != nil {
		return nil, err
	}

	event := &domain.WebhookEvent{
		EventID:     eventID,
		PaymentID:   req.PaymentID,
		EventType:   req.Event,
		RawPayload:  req.RawPayload,
		ProcessedAt: time.Now().UTC(),
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Concurrent delivery won the insert; its transition committed.
			metrics.WebhooksDuplicate.Inc()
			s.log.Info().Str("event_id", eventID).Msg("concurrent duplicate webhook, winner's record stands")
			return &ports.WebhookResult{Status: "SUCCESS", Message: "Webhook already processed", Duplicate: true}, nil
		}
		return nil, apperror.InternalError(fmt.Errorf("record webhook event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	metrics.WebhooksProcessed.WithLabelValues(req.Event).Inc()
	s.log.Info().
		Str("event_id", eventID).
		Str("payment_id", req.PaymentID).
		Str("event", req.Event).
		Msg("webhook processed")

	return &ports.WebhookResult{Status: "SUCCESS", Message: "Webhook processed successfully"}, nil
}
