package pgstore

import (
	"context"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migrations "github.com/PaulFidika/tokenkit/migrations/postgres"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TOKENKIT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TOKENKIT_TEST_POSTGRES_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	pool := newTestPool(t)

	up, err := fs.ReadFile(migrations.FS, "20251019000000_token_cache.up.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(up))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE tokenkit.token_cache`)
	require.NoError(t, err)
	return New(pool, "")
}

func TestDDLUsesSchema(t *testing.T) {
	sql := ddl("cache_alt")
	assert.Contains(t, sql, `CREATE SCHEMA IF NOT EXISTS "cache_alt"`)
	assert.Contains(t, sql, `CREATE TABLE IF NOT EXISTS "cache_alt"."token_cache"`)
	assert.Equal(t, `"tokenkit"."token_cache"`, New(nil, "").table())
}

func TestStoreCustomSchema(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	s := New(pool, "tokenkit_alt")
	require.NoError(t, s.EnsureSchema(ctx))
	t.Cleanup(func() { _, _ = pool.Exec(ctx, `DROP SCHEMA tokenkit_alt CASCADE`) })

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestStoreUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v1"), time.Minute))
	require.NoError(t, s.Set(ctx, "k", []byte("v2"), time.Minute))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(v))

	require.NoError(t, s.Del(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
