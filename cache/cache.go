// Package cachekit namespaces and hashes keys in front of an external cache
// store and persists token records and certificate sets through it.
package cachekit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	jwtkit "github.com/PaulFidika/tokenkit/jwt"
	tokenkit "github.com/PaulFidika/tokenkit/token"
)

// Store is the backing cache capability. A miss is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const (
	DefaultPrefix   = "tokenkit_"
	DefaultLifetime = 1500 * time.Second
)

// Config controls key derivation and entry lifetime.
type Config struct {
	Prefix       string
	Lifetime     time.Duration // fixed TTL for every entry
	MaxKeyLength int
}

// Cache wraps a Store. A nil *Cache or a Cache without a store is valid and
// behaves as an always-empty cache. Cache operations never return errors:
// store failures are logged and treated as misses.
type Cache struct {
	store  Store
	cfg    Config
	logger logrus.FieldLogger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for swallowed store failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a Cache over store. Zero config fields take their defaults.
func New(store Store, cfg Config, opts ...Option) *Cache {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.MaxKeyLength == 0 {
		cfg.MaxKeyLength = DefaultMaxKeyLength
	}
	c := &Cache{store: store, cfg: cfg, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the store key for raw, or "" when raw is empty.
func (c *Cache) Key(raw string) string {
	if raw == "" {
		return ""
	}
	return Key(c.cfg.Prefix, raw, c.cfg.MaxKeyLength)
}

// Lifetime returns the configured entry TTL.
func (c *Cache) Lifetime() time.Duration { return c.cfg.Lifetime }

// Lookup returns the raw bytes cached for raw.
func (c *Cache) Lookup(ctx context.Context, raw string) ([]byte, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	key := c.Key(raw)
	if key == "" {
		return nil, false
	}
	val, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).WithField("cache_key", key).Warn("cache lookup failed")
		return nil, false
	}
	return val, ok
}

// Save stores value under raw for the configured lifetime.
func (c *Cache) Save(ctx context.Context, raw string, value []byte) {
	if c == nil || c.store == nil {
		return
	}
	key := c.Key(raw)
	if key == "" {
		return
	}
	if err := c.store.Set(ctx, key, value, c.cfg.Lifetime); err != nil {
		c.logger.WithError(err).WithField("cache_key", key).Warn("cache store failed")
	}
}

// LookupToken returns the cached record for raw. Callers must still check
// IsExpired: the entry lifetime is independent of the token's expiry.
func (c *Cache) LookupToken(ctx context.Context, raw string) (tokenkit.Record, bool) {
	b, ok := c.Lookup(ctx, raw)
	if !ok {
		return tokenkit.Record{}, false
	}
	var rec tokenkit.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		c.logger.WithError(err).Warn("discarding undecodable cached token")
		return tokenkit.Record{}, false
	}
	return rec, true
}

// StoreToken caches rec under raw.
func (c *Cache) StoreToken(ctx context.Context, raw string, rec tokenkit.Record) {
	if c == nil || c.store == nil {
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		c.logger.WithError(err).Warn("encode token for cache")
		return
	}
	c.Save(ctx, raw, b)
}

// LookupCerts returns a cached certificate set for location.
func (c *Cache) LookupCerts(ctx context.Context, location string) ([]jwtkit.Certificate, bool) {
	b, ok := c.Lookup(ctx, location)
	if !ok {
		return nil, false
	}
	var cs jwtkit.CertSet
	if err := json.Unmarshal(b, &cs); err != nil || len(cs.Keys) == 0 {
		return nil, false
	}
	return cs.Keys, true
}

// StoreCerts caches a certificate set for location.
func (c *Cache) StoreCerts(ctx context.Context, location string, certs []jwtkit.Certificate) {
	if c == nil || c.store == nil {
		return
	}
	b, err := json.Marshal(jwtkit.CertSet{Keys: certs})
	if err != nil {
		return
	}
	c.Save(ctx, location, b)
}
