package redislimiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter is a Redis-backed sliding window limiter using ZSETs, shared by
// every replica pointing at the same Redis.
type Limiter struct {
	rdb    redis.Cmdable
	limits map[string]Limit
	now    func() time.Time
}

func New(rdb redis.Cmdable, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{rdb: rdb, limits: limits, now: time.Now}
}

func (l *Limiter) get(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}

// AllowNamed records one attempt for key in bucket and reports whether it
// fits in the window.
func (l *Limiter) AllowNamed(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := l.get(bucket)
	now := l.now().UnixMilli()
	start := now - lim.Window.Milliseconds()
	limitKey := "ratelimit:" + key + ":" + bucket
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, limitKey, "-inf", strconv.FormatInt(start, 10))
	pipe.ZAdd(ctx, limitKey, redis.Z{Score: float64(now), Member: member})
	countCmd := pipe.ZCard(ctx, limitKey)
	pipe.Expire(ctx, limitKey, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	if count > int64(lim.Limit) {
		l.rdb.ZRem(ctx, limitKey, member)
		return false, nil
	}
	return true, nil
}
