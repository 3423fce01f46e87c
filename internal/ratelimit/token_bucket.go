// Package ratelimit bounds how fast an account can submit reel requests. The
// bucket lives in Redis so every API replica enforces the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBucket is a distributed token bucket keyed per account. Capacity and
// refill are expressed per minute to match the submission budget.
type TokenBucket struct {
	client    *redis.Client
	capacity  int
	refillPer float64 // tokens per second
	ttl       time.Duration
}

// NewPerMinuteBucket builds a bucket holding perMinute tokens that refills
// smoothly over the minute. Idle buckets expire after two refill windows.
func NewPerMinuteBucket(client *redis.Client, perMinute int) *TokenBucket {
	return &TokenBucket{
		client:    client,
		capacity:  perMinute,
		refillPer: float64(perMinute) / 60.0,
		ttl:       2 * time.Minute,
	}
}

// Allow consumes one token for the account if available. The check and the
// decrement run in a single Lua script, so concurrent replicas cannot both
// spend the last token.
func (b *TokenBucket) Allow(ctx context.Context, accountID string) (bool, error) {
	key := "ratelimit:submit:" + accountID
	now := time.Now().UnixMilli()

	res, err := submitScript.Run(ctx, b.client, []string{key}, b.capacity, b.refillPer, now, b.ttl.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: run bucket script: %w", err)
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) < 1 {
		return false, fmt.Errorf("ratelimit: unexpected script result %T", res)
	}
	allowed, ok := arr[0].(int64)
	if !ok {
		return false, fmt.Errorf("ratelimit: unexpected allowed flag %T", arr[0])
	}
	return allowed == 1, nil
}

var submitScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2]) -- tokens per second
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local data = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(data[1])
local last = tonumber(data[2])
if tokens == nil then tokens = capacity end
if last == nil then last = now end

local delta = math.max(0, now - last)
tokens = math.min(capacity, tokens + delta / 1000 * refill)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call('HMSET', key, 'tokens', tokens, 'last_ms', now)
if ttl > 0 then redis.call('PEXPIRE', key, ttl) end
return {allowed, tokens}
`)
