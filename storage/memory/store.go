package memorystore

import (
	"context"
	"sync"
	"time"
)

// Store is an in-memory cache backend with per-entry TTL.
type Store struct {
	mu     sync.Mutex
	data   map[string]item
	now    func() time.Time
	closed chan struct{}
	once   sync.Once
}

type item struct {
	v   []byte
	exp time.Time
}

// New creates an in-memory store.
// Starts a background goroutine to clean up expired entries every minute.
func New() *Store {
	s := &Store{data: make(map[string]item), now: time.Now, closed: make(chan struct{})}
	go s.cleanupLoop()
	return s
}

func (s *Store) Set(ctx context.Context, key string, v []byte, ttl time.Duration) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), v...)
	s.data[key] = item{v: cp, exp: s.now().Add(ttl)}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(it.exp) {
		delete(s.data, key)
		return nil, false, nil
	}
	return append([]byte(nil), it.v...), true, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// cleanupLoop runs in the background and removes expired entries every minute.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.closed:
			return
		}
	}
}

// cleanup removes all expired entries from the cache.
func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.data {
		if !now.Before(v.exp) {
			delete(s.data, k)
		}
	}
}

// Close stops the background cleanup goroutine.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
