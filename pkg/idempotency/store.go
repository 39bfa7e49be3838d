package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingMarker       = "-"
	defaultPendingLease = time.Minute
)

// Store keeps completed responses for ttl. An in-flight reservation only
// lives for the pending lease so a crashed request frees its key quickly.
type Store struct {
	rdb   *redis.Client
	ttl   time.Duration
	lease time.Duration
}

type StoreOption func(*Store)

// WithPendingLease bounds how long a reservation survives without Complete
// or Release. It should cover the slowest request, e.g. the server write
// timeout.
func WithPendingLease(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.lease = d
		}
	}
}

func NewStore(rdb *redis.Client, ttl time.Duration, opts ...StoreOption) *Store {
	s := &Store{rdb: rdb, ttl: ttl, lease: defaultPendingLease}
	for _, opt := range opts {
		opt(s)
	}
	if s.lease > s.ttl {
		s.lease = s.ttl
	}
	return s
}

func (s *Store) Key(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}

// Reserve claims key for an in-flight request. It reports false when the key
// is already claimed or completed.
func (s *Store) Reserve(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, key, pendingMarker, s.lease).Result()
}

// Complete stores the final response for the full ttl.
func (s *Store) Complete(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, key, value, s.ttl).Err()
}

func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Lookup returns the stored value. pending is true while the original
// request has not completed yet.
func (s *Store) Lookup(ctx context.Context, key string) (value []byte, pending bool, found bool, err error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, false, nil
	}
	if err != nil {
		return nil, false, false, err
	}
	if string(raw) == pendingMarker {
		return nil, true, true, nil
	}
	return raw, false, true, nil
}
