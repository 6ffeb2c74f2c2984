package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/go-demo/roomchat/internal/pkg/clock"
)

// slidingWindowScript prunes, counts and conditionally records in one round
// trip so concurrent callers for the same key cannot both pass the check.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)
	if current >= limit then
		return {0, 0}
	end

	local counter = redis.call('INCR', key .. ':seq')
	redis.call('ZADD', key, now, now .. ':' .. counter)

	local expire_seconds = math.ceil(window_ms / 1000)
	redis.call('EXPIRE', key, expire_seconds)
	redis.call('EXPIRE', key .. ':seq', expire_seconds)

	return {1, limit - current - 1}
`)

// Redis is a Limiter backed by a sorted set per key.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
	clock     clock.Clock
}

// NewRedis creates a Redis-backed limiter. Keys are stored as keyPrefix+key.
func NewRedis(client *redis.Client, keyPrefix string, limit int, window time.Duration, clk clock.Clock) *Redis {
	if clk == nil {
		clk = clock.Real()
	}
	return &Redis{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
		clock:     clk,
	}
}

// Allow runs the sliding window script. Any Redis failure is returned with
// allowed=false.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	now := l.clock.Now()
	nowMs := now.UnixMilli()
	windowStartMs := now.Add(-l.window).UnixMilli()

	result, err := slidingWindowScript.Run(ctx, l.client,
		[]string{l.keyPrefix + key},
		nowMs, windowStartMs, l.limit, l.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	if len(result) != 2 {
		return false, fmt.Errorf("rate limit script: unexpected response length %d", len(result))
	}

	return result[0] == 1, nil
}

// Reset clears the recorded actions for key.
func (l *Redis) Reset(ctx context.Context, key string) error {
	redisKey := l.keyPrefix + key
	return l.client.Del(ctx, redisKey, redisKey+":seq").Err()
}
