package redisstore

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
	return New(rdb, "app:"), mr
}

func TestStoreRoundTripWithTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "tokenkit_abc", []byte(`{"access_token":"x"}`), 30*time.Second))
	assert.True(t, mr.Exists("app:tokenkit_abc"))
	assert.Equal(t, 30*time.Second, mr.TTL("app:tokenkit_abc"))

	v, ok, err := s.Get(ctx, "tokenkit_abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"access_token":"x"}`, string(v))

	mr.FastForward(31 * time.Second)
	_, ok, err = s.Get(ctx, "tokenkit_abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreMissAndDel(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, s.Del(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreErrorWhenServerDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()
	_, _, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
}
