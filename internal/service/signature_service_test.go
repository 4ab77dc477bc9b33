package service

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "whsec_test_secret"
	payload := []byte(`{"payment_id":"pl_a1b2c3d4","event":"payment.succeeded"}`)

	sig := svc.Sign(secret, payload)
	require.NotEmpty(t, sig)

	// Signature must be valid Base64.
	_, err := base64.StdEncoding.DecodeString(sig)
	require.NoError(t, err)

	assert.True(t, svc.Verify(secret, payload, sig))
}

func TestSignatureService_Verify_TamperedPayload(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "whsec_test_secret"
	payload := []byte(`{"payment_id":"pl_a1b2c3d4","event":"payment.succeeded"}`)

	sig := svc.Sign(secret, payload)

	// Flipping a single byte of the signed body must invalidate it.
	tampered := make([]byte, len(payload))
	copy(tampered, payload)
	tampered[len(tampered)-2] ^= 0x01

	assert.False(t, svc.Verify(secret, tampered, sig))
}

func TestSignatureService_Verify_WrongSecret(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := []byte(`{"payment_id":"pl_a1b2c3d4","event":"payment.failed"}`)

	sig := svc.Sign("whsec_correct", payload)
	assert.False(t, svc.Verify("whsec_wrong", payload, sig))
}

func TestSignatureService_Verify_EmptySignature(t *testing.T) {
	svc := NewHMACSignatureService()

	// Fail closed: an absent signature never verifies, even for an empty body.
	assert.False(t, svc.Verify("whsec_test_secret", []byte(`{}`), ""))
	assert.False(t, svc.Verify("whsec_test_secret", nil, ""))
}

func TestSignatureService_Sign_Deterministic(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := []byte(`{"a":1}`)

	assert.Equal(t, svc.Sign("s", payload), svc.Sign("s", payload))
	assert.NotEqual(t, svc.Sign("s", payload), svc.Sign("s2", payload))
}
