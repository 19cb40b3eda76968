package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/issuetracker/issues-api/internal/core/ports"
)

// tokenBucketScript refills the bucket in whole intervals, takes one token if
// available and reports {allowed, tokens, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + (intervals * refill_tokens))
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// TokenBucketConfig sizes the shared bucket. PerMinute tokens are refilled
// one at a time, evenly spread over the minute.
type TokenBucketConfig struct {
	Prefix    string
	PerMinute int
	Burst     int
}

// TokenBucket is a rate limiter whose state lives in Redis, so every API
// instance shares the same budget per key.
// Key format: <prefix>:<caller key>
type TokenBucket struct {
	client   *redis.Client
	prefix   string
	capacity int
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenBucket(client *redis.Client, cfg TokenBucketConfig) *TokenBucket {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.PerMinute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit"
	}

	interval := time.Minute / time.Duration(cfg.PerMinute)
	return &TokenBucket{
		client:   client,
		prefix:   cfg.Prefix,
		capacity: cfg.Burst,
		interval: interval,
		// long enough for an idle bucket to refill completely
		ttl: interval*time.Duration(cfg.Burst) + time.Minute,
		now: time.Now,
	}
}

func (b *TokenBucket) Allow(ctx context.Context, key string) (ports.RateDecision, error) {
	args := []interface{}{
		b.now().UnixMilli(),
		b.capacity,
		1,
		b.interval.Milliseconds(),
		int64(b.ttl / time.Second),
	}

	vals, err := tokenBucketScript.Run(ctx, b.client, []string{b.prefix + ":" + key}, args...).Slice()
	if err != nil {
		return ports.RateDecision{}, fmt.Errorf("token bucket: %w", err)
	}
	if len(vals) != 3 {
		return ports.RateDecision{}, fmt.Errorf("token bucket: unexpected script result %v", vals)
	}

	return ports.RateDecision{
		Allowed:    asInt64(vals[0]) == 1,
		Limit:      b.capacity,
		Remaining:  int(asInt64(vals[1])),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
