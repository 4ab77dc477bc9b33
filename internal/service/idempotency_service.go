package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
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

// cacheTTL bounds the Redis fast path only; the Postgres record has no TTL.
const cacheTTL = 24 * time.Hour

// IdempotencyServiceImpl implements ports.IdempotencyService.
type IdempotencyServiceImpl struct {
	repo  ports.IdempotencyRepository
	cache ports.IdempotencyCache
	log   zerolog.Logger
}

// NewIdempotencyService creates a new IdempotencyServiceImpl.
func NewIdempotencyService(
	repo ports.IdempotencyRepository,
	cache ports.IdempotencyCache,
	log zerolog.Logger,
) *IdempotencyServiceImpl {
	return &IdempotencyServiceImpl{repo: repo, cache: cache, log: log}
}

// canonicalRequest is the stable serialization used for fingerprinting.
// Field order is fixed by the struct; the amount is rendered through
// decimal's string form so "100.50" and "100.500" hash identically.
type canonicalRequest struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	Reference     string `json:"reference"`
}

// Fingerprint returns the SHA-256 hash (Base64) of the canonical request.
func (s *IdempotencyServiceImpl) Fingerprint(req ports.CreatePaymentRequest) (string, error) {
	payload, err := json.Marshal(canonicalRequest{
		Amount:        req.Amount.String(),
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		Reference:     req.Reference,
	})
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("fingerprint request: %w", err))
	}
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// Lookup returns the stored record for key, or nil if none exists.
// Checks the Redis fast path first and falls through to Postgres.
func (s *IdempotencyServiceImpl) Lookup(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency cache read failed, falling through to DB")
	}
	if entry != nil {
		return &domain.IdempotencyRecord{
			Key:          key,
			RequestHash:  entry.RequestHash,
			ResponseBody: entry.ResponseBody,
		}, nil
	}

	rec, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency lookup: %w", err))
	}
	return rec, nil
}

// HasIdenticalPriorRequest reports whether a record exists for key with the
// same fingerprint.
func (s *IdempotencyServiceImpl) HasIdenticalPriorRequest(ctx context.Context, key, fingerprint string) (bool, error) {
	rec, err := s.Lookup(ctx, key)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.RequestHash == fingerprint, nil
}

// HasConflictingPriorRequest reports whether a record exists for key with a
// different fingerprint.
func (s *IdempotencyServiceImpl) HasConflictingPriorRequest(ctx context.Context, key, fingerprint string) (bool, error) {
	rec, err := s.Lookup(ctx, key)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.RequestHash != fingerprint, nil
}

// Store persists a new record inside the caller's database transaction.
// A unique violation surfaces as domain.ErrAlreadyExists untouched so the
// caller can resolve the race.
func (s *IdempotencyServiceImpl) Store(ctx context.Context, tx pgx.Tx, key, fingerprint string, responseBody []byte) error {
	rec := &domain.IdempotencyRecord{
		Key:          key,
		RequestHash:  fingerprint,
		ResponseBody: responseBody,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, tx, rec); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
		return apperror.InternalError(fmt.Errorf("store idempotency record: %w", err))
	}
	return nil
}

// CacheResult writes the committed result to the Redis fast path.
// Best-effort: the creation already succeeded, so a cache failure is logged
// and counted but never surfaced to the caller.
func (s *IdempotencyServiceImpl) CacheResult(ctx context.Context, key, fingerprint string, responseBody []byte) {
	entry := &ports.CachedResponse{RequestHash: fingerprint, ResponseBody: responseBody}
	if err := s.cache.Set(ctx, key, entry, cacheTTL); err != nil {
		metrics.CacheWriteFailures.Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency result")
	}
}
