package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-demo/roomchat/internal/pkg/clock"
)

// TokenBucket keeps one token bucket per key.
type TokenBucket struct {
	mu       sync.Mutex
	limiters map[string]*bucketEntry
	rate     rate.Limit
	burst    int
	clock    clock.Clock
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucket creates a keyed limiter refilling at r tokens per second
// with the given burst.
func NewTokenBucket(r rate.Limit, burst int, clk clock.Clock) *TokenBucket {
	if clk == nil {
		clk = clock.Real()
	}
	return &TokenBucket{
		limiters: make(map[string]*bucketEntry),
		rate:     r,
		burst:    burst,
		clock:    clk,
	}
}

// Allow takes a token from key's bucket.
func (l *TokenBucket) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &bucketEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1), nil
}

// Prune drops buckets that have not been used for idle.
func (l *TokenBucket) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-idle)
	removed := 0
	for key, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *TokenBucket) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
