package domain

import (
	"errors"
	"time"
)

// ErrAlreadyExists is returned by storage adapters when an insert hits a
// uniqueness constraint. Services treat it as "a concurrent caller already
// wrote the canonical record" and re-read instead of failing.
var ErrAlreadyExists = errors.New("record already exists")

// IdempotencyRecord caches the outcome of the first successful execution
// under a client-supplied idempotency key. Records are immutable once
// written and retained indefinitely.
type IdempotencyRecord struct {
	Key          string    `json:"key"`
	RequestHash  string    `json:"request_hash"`  // SHA-256 (Base64) of the canonical request body
	ResponseBody []byte    `json:"response_body"` // JSON of the first successful response
	CreatedAt    time.Time `json:"created_at"`
}
