package service

import "github.com/google/uuid"

// UUIDGenerator implements ports.IDGenerator.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewPaymentID returns an externally visible payment identifier:
// "pl_" followed by the first 8 hex characters of a fresh UUID.
func (g *UUIDGenerator) NewPaymentID() string {
	return "pl_" + uuid.New().String()[:8]
}
