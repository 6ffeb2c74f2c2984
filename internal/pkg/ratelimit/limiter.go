// Package ratelimit bounds how often a key may perform an action.
//
// SlidingWindow and Redis count discrete actions inside a trailing window and
// back the room-creation limit. TokenBucket smooths request bursts and guards
// the WebSocket endpoint.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/go-demo/roomchat/internal/pkg/clock"
)

// Limiter decides whether key may perform one more action. An allowed call
// is recorded; a denied call is not.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SlidingWindow is an in-memory Limiter that keeps the timestamps of every
// allowed action per key and prunes them lazily on each check.
type SlidingWindow struct {
	mu     sync.Mutex
	log    map[string][]time.Time
	limit  int
	window time.Duration
	clock  clock.Clock
}

// NewSlidingWindow creates a limiter that allows limit actions per window.
func NewSlidingWindow(limit int, window time.Duration, clk clock.Clock) *SlidingWindow {
	if clk == nil {
		clk = clock.Real()
	}
	return &SlidingWindow{
		log:    make(map[string][]time.Time),
		limit:  limit,
		window: window,
		clock:  clk,
	}
}

// Allow prunes entries that fell out of the window, then records now if the
// remaining count is below the limit. Check and record happen under one lock.
func (l *SlidingWindow) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	entries := l.prune(key, now)

	if len(entries) >= l.limit {
		return false, nil
	}

	l.log[key] = append(entries, now)
	return true, nil
}

// Count returns the number of recorded actions for key inside the window.
func (l *SlidingWindow) Count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key, l.clock.Now()))
}

// prune must be called with mu held.
func (l *SlidingWindow) prune(key string, now time.Time) []time.Time {
	entries := l.log[key]
	cutoff := now.Add(-l.window)

	i := 0
	for i < len(entries) && !entries[i].After(cutoff) {
		i++
	}
	entries = entries[i:]

	if len(entries) == 0 {
		delete(l.log, key)
		return nil
	}
	l.log[key] = entries
	return entries
}
