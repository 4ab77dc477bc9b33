package ports

import (
	"context"
	"time"

	"paylite-payment-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SignatureService handles HMAC-SHA256 signing and verification over raw
// payload bytes. Verification must run before any JSON decoding, since
// re-serialization would change the byte layout.
type SignatureService interface {
	Sign(secret string, payload []byte) string
	Verify(secret string, payload []byte, signature string) bool
}

// IDGenerator produces externally visible payment identifiers.
type IDGenerator interface {
	NewPaymentID() string
}

// IdempotencyService coordinates at-most-once creation per idempotency key.
type IdempotencyService interface {
	// Fingerprint returns the canonical hash of a creation request. The
	// serialization is deterministic, so semantically identical requests
	// always hash identically.
	Fingerprint(req CreatePaymentRequest) (string, error)
	// Lookup returns the stored record for key, or nil if none exists.
	Lookup(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	// HasIdenticalPriorRequest reports whether a record exists for key with
	// the same fingerprint.
	HasIdenticalPriorRequest(ctx context.Context, key, fingerprint string) (bool, error)
	// HasConflictingPriorRequest reports whether a record exists for key
	// with a different fingerprint.
	HasConflictingPriorRequest(ctx context.Context, key, fingerprint string) (bool, error)
	// Store persists a new record inside the caller's database transaction.
	Store(ctx context.Context, tx pgx.Tx, key, fingerprint string, responseBody []byte) error
	// CacheResult writes the committed result to the fast-path cache.
	// Best-effort: failures are logged and reported, never returned.
	CacheResult(ctx context.Context, key, fingerprint string, responseBody []byte)
}

// CachedResponse is the fast-path cache entry. The fingerprint travels with
// the response so conflicting replays are detectable without a DB read.
type CachedResponse struct {
	RequestHash  string `json:"request_hash"`
	ResponseBody []byte `json:"response_body"`
}

// IdempotencyCache is the Redis-layer idempotency check. Postgres remains
// the source of truth; a cache miss only costs a DB read.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) (*CachedResponse, error) // nil, nil on miss
	Set(ctx context.Context, key string, entry *CachedResponse, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// PaymentService owns the payment lifecycle: idempotent creation,
// retrieval, and the status state machine.
type PaymentService interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest, idempotencyKey string) (*CreatePaymentResult, error)
	GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error)
	// UpdateStatus applies a status transition inside the caller's database
	// transaction. Same-status terminal re-application is a no-op; any other
	// transition out of a terminal state fails.
	UpdateStatus(ctx context.Context, tx pgx.Tx, paymentID string, status domain.PaymentStatus) error
}

// CreatePaymentRequest holds validated input for payment creation.
type CreatePaymentRequest struct {
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	Reference     string
}

// CreatePaymentResult is the cached-and-returned outcome of a creation.
type CreatePaymentResult struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// WebhookService reconciles provider events into payment status, at most
// once per distinct event identity.
type WebhookService interface {
	// VerifySignature checks the provider signature over the exact raw body.
	VerifySignature(signature string, rawBody []byte) bool
	ProcessWebhook(ctx context.Context, req WebhookRequest) (*WebhookResult, error)
}

// WebhookRequest holds a decoded provider event plus the raw bytes it was
// decoded from.
type WebhookRequest struct {
	PaymentID  string
	Event      string
	RawPayload []byte
}

// WebhookResult is the reconciliation outcome.
type WebhookResult struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Duplicate bool   `json:"-"`
}
