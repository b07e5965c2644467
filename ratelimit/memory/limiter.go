package memorylimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

type bucketState struct {
	// timestamps holds request times in Unix ms, newest last.
	timestamps []int64
}

// Limiter is an in-memory sliding-window rate limiter.
// It is intended as a single-node fallback when Redis is unavailable.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	buckets map[string]*bucketState
	now     func() time.Time
}

// New constructs a new in-memory limiter with the provided per-bucket limits.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string]*bucketState),
		now:     time.Now,
	}
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
// fits in the bucket's sliding window. Denied attempts are not recorded.
func (l *Limiter) AllowNamed(_ context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := l.get(bucket)
	nowMs := l.now().UnixMilli()
	windowStart := nowMs - lim.Window.Milliseconds()
	limitKey := key + ":" + bucket

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[limitKey]
	if !ok {
		b = &bucketState{}
		l.buckets[limitKey] = b
	}

	ts := b.timestamps
	pruneIdx := 0
	for pruneIdx < len(ts) && ts[pruneIdx] <= windowStart {
		pruneIdx++
	}
	ts = ts[pruneIdx:]

	if len(ts) >= lim.Limit {
		b.timestamps = ts
		return false, nil
	}
	b.timestamps = append(ts, nowMs)
	return true, nil
}

// Prune drops buckets with no attempts inside their window.
func (l *Limiter) Prune() {
	nowMs := l.now().UnixMilli()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		n := len(b.timestamps)
		if n == 0 {
			delete(l.buckets, k)
			continue
		}
		// The newest attempt decides; buckets share the longest window we know.
		if nowMs-b.timestamps[n-1] > l.maxWindow().Milliseconds() {
			delete(l.buckets, k)
		}
	}
}

func (l *Limiter) maxWindow() time.Duration {
	longest := time.Minute
	for _, lim := range l.limits {
		if lim.Window > longest {
			longest = lim.Window
		}
	}
	return longest
}
