package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementDedupStore_MarkAndCheck(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewSettlementDedupStore(client)
	ctx := context.Background()

	// Unknown reference => not settled
	seen, err := store.AlreadySettled(ctx, "ref_abc123")
	assert.NoError(t, err)
	assert.False(t, seen)

	err = store.MarkSettled(ctx, "ref_abc123", 24*time.Hour)
	require.NoError(t, err)

	seen, err = store.AlreadySettled(ctx, "ref_abc123")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestSettlementDedupStore_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewSettlementDedupStore(client)
	ctx := context.Background()

	err := store.MarkSettled(ctx, "ref_shortlived", time.Second)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	seen, err := store.AlreadySettled(ctx, "ref_shortlived")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestSettlementDedupStore_KeysAreNamespaced(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewSettlementDedupStore(client)
	ctx := context.Background()

	err := store.MarkSettled(ctx, "ref_ns", time.Hour)
	require.NoError(t, err)

	assert.True(t, s.Exists("settlement:ref_ns"))
}

func TestRedisHealthCheck(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	hc := NewHealthCheck(client)

	assert.NoError(t, hc.Ping(context.Background()))
	assert.Equal(t, "redis", hc.Name())
}
