package integration

import (
	"context"
	"sync"

	"paylite-payment-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// memTx is an in-memory pgx.Tx stand-in with real commit/rollback semantics:
// inserts reserve their unique key immediately and register an undo, updates
// are staged and applied only on Commit. This is enough to exercise the
// winner/loser insert races the services resolve.
type memTx struct {
	pgx.Tx
	mu   sync.Mutex
	ops  []func() // applied on Commit
	undo []func() // run on Rollback, reverse order
	done bool
}

func (t *memTx) stage(op func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ops = append(t.ops, op)
}

func (t *memTx) onRollback(u func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, u)
}

func (t *memTx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	for _, op := range t.ops {
		op()
	}
	t.done = true
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.done = true
	return nil
}

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(_ context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[string]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) Create(_ context.Context, tx pgx.Tx, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.PaymentID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	r.payments[p.PaymentID] = &cp
	if mt, ok := tx.(*memTx); ok {
		id := p.PaymentID
		mt.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.payments, id)
		})
	}
	return nil
}

func (r *inMemoryPaymentRepo) GetByPaymentID(_ context.Context, paymentID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) UpdateStatus(_ context.Context, tx pgx.Tx, paymentID string, status domain.PaymentStatus) error {
	apply := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if p, ok := r.payments[paymentID]; ok {
			p.Status = status
		}
	}
	if mt, ok := tx.(*memTx); ok {
		mt.stage(apply)
		return nil
	}
	apply()
	return nil
}

func (r *inMemoryPaymentRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.payments)
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.IdempotencyRecord
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{records: make(map[string]*domain.IdempotencyRecord)}
}

func (r *inMemoryIdempotencyRepo) Create(_ context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.Key]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *rec
	r.records[rec.Key] = &cp
	if mt, ok := tx.(*memTx); ok {
		key := rec.Key
		mt.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.records, key)
		})
	}
	return nil
}

func (r *inMemoryIdempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *inMemoryIdempotencyRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// --- In-Memory Webhook Event Repo ---

type inMemoryWebhookEventRepo struct {
	mu     sync.RWMutex
	events map[string]*domain.WebhookEvent
}

func newInMemoryWebhookEventRepo() *inMemoryWebhookEventRepo {
	return &inMemoryWebhookEventRepo{events: make(map[string]*domain.WebhookEvent)}
}

func (r *inMemoryWebhookEventRepo) Create(_ context.Context, tx pgx.Tx, ev *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[ev.EventID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *ev
	r.events[ev.EventID] = &cp
	if mt, ok := tx.(*memTx); ok {
		id := ev.EventID
		mt.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.events, id)
		})
	}
	return nil
}

func (r *inMemoryWebhookEventRepo) Exists(_ context.Context, eventID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.events[eventID]
	return ok, nil
}

func (r *inMemoryWebhookEventRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
