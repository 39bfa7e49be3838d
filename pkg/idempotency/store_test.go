package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Minute, WithPendingLease(5*time.Second)), mr
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	key := s.Key("/products/1/checkout", "abc")
	assert.Equal(t, "idem:/products/1/checkout:abc", key)

	_, _, found, err := s.Lookup(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := s.Reserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "second reserve must lose")

	_, pending, found, err := s.Lookup(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, pending)

	require.NoError(t, s.Complete(ctx, key, []byte(`{"status":200}`)))
	assert.Equal(t, time.Minute, mr.TTL(key), "completed entries keep the full ttl")
	value, pending, found, err := s.Lookup(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, pending)
	assert.JSONEq(t, `{"status":200}`, string(value))

	mr.FastForward(2 * time.Minute)
	_, _, found, err = s.Lookup(ctx, key)
	require.NoError(t, err)
	assert.False(t, found, "entry should expire with ttl")
}

func TestStoreRelease(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	key := s.Key("scope", "k")

	ok, err := s.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Release(ctx, key))

	ok, err = s.Reserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreReservationExpiresAfterLease(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	key := s.Key("scope", "crashed")

	ok, err := s.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, mr.TTL(key))

	mr.FastForward(6 * time.Second)
	ok, err = s.Reserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "abandoned reservation must not block retries")
}

func TestStoreLeaseCappedByTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewStore(rdb, time.Second, WithPendingLease(time.Hour))

	ok, err := s.Reserve(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Second, mr.TTL("k"))
}
