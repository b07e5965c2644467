package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed cache backend.
type Store struct {
	rdb   redis.Cmdable
	keyNS string
}

// New creates a Redis store. keyPrefix is prepended to every key on top of
// the cache's own prefix, so several applications can share one database.
func New(rdb redis.Cmdable, keyPrefix string) *Store {
	return &Store{rdb: rdb, keyNS: keyPrefix}
}

func (s *Store) key(k string) string { return s.keyNS + k }

// Set stores a value with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(key), value, ttl).Err()
}

// Get retrieves a value; a missing key is not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Del removes a value.
func (s *Store) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}
