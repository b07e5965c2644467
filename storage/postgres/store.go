// Package pgstore is a Postgres cache backend. The migrations in
// migrations/postgres create the table in the default "tokenkit" schema;
// stores using another schema call EnsureSchema instead.
package pgstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps cache entries in <schema>.token_cache. An empty schema means
// "tokenkit".
type Store struct {
	pg     *pgxpool.Pool
	schema string
	now    func() time.Time
}

func New(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "tokenkit"
	}
	return &Store{pg: pg, schema: s, now: time.Now}
}

func (s *Store) table() string { return pgx.Identifier{s.schema, "token_cache"}.Sanitize() }

// EnsureSchema creates the schema and cache table when they do not exist. It
// mirrors the token_cache migration for stores outside the default schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pg.Exec(ctx, ddl(s.schema))
	return err
}

func ddl(schema string) string {
	table := pgx.Identifier{schema, "token_cache"}.Sanitize()
	index := pgx.Identifier{"token_cache_expires_at_idx"}.Sanitize()
	return `CREATE SCHEMA IF NOT EXISTS ` + pgx.Identifier{schema}.Sanitize() + `;
CREATE TABLE IF NOT EXISTS ` + table + ` (
    key        text PRIMARY KEY,
    value      bytea NOT NULL,
    expires_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS ` + index + ` ON ` + table + ` (expires_at);`
}

// Set upserts value with an expiry of now+ttl.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.pg.Exec(ctx, `INSERT INTO `+s.table()+` (key, value, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, s.now().Add(ttl))
	return err
}

// Get returns the value for key. Missing and expired rows are misses.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		exp   time.Time
	)
	err := s.pg.QueryRow(ctx, `SELECT value, expires_at FROM `+s.table()+` WHERE key=$1`, key).Scan(&value, &exp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !s.now().Before(exp) {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	_, err := s.pg.Exec(ctx, `DELETE FROM `+s.table()+` WHERE key=$1`, key)
	return err
}

// Purge deletes expired rows and reports how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	tag, err := s.pg.Exec(ctx, `DELETE FROM `+s.table()+` WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
