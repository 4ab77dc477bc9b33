package redis

import (
	"context"
	"testing"
	"time"

	"paylite-payment-service/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	entry := &ports.CachedResponse{
		RequestHash:  "hash-a",
		ResponseBody: []byte(`{"payment_id":"pl_abc12345","status":"PENDING"}`),
	}

	// Get before set => nil
	got, err := cache.Get(ctx, "idem-1")
	assert.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, "idem-1", entry, 24*time.Hour))

	got, err = cache.Get(ctx, "idem-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hash-a", got.RequestHash)
	assert.Equal(t, entry.ResponseBody, got.ResponseBody)
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	entry := &ports.CachedResponse{RequestHash: "h", ResponseBody: []byte(`{}`)}
	require.NoError(t, cache.Set(ctx, "idem-2", entry, 1*time.Second))

	s.FastForward(2 * time.Second)

	got, err := cache.Get(ctx, "idem-2")
	assert.NoError(t, err)
	assert.Nil(t, got, "expired key should return nil")
}

func TestIdempotencyCache_CorruptEntry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, s.Set("idempotency:idem-3", "not-json"))

	got, err := cache.Get(ctx, "idem-3")
	assert.Error(t, err)
	assert.Nil(t, got)
}
