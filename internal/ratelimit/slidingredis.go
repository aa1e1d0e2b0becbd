package ratelimit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims events older than the window and records the new one
// only when it fits. Returns {admitted, count, oldest score in ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
local admitted = 0
if count < max then
  redis.call("ZADD", key, now, ARGV[4])
  count = count + 1
  admitted = 1
end
redis.call("PEXPIRE", key, window)
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
local first = now
if oldest[2] then
  first = tonumber(oldest[2])
end
return {admitted, count, first}
`)

// RedisLimiter is a sliding window limiter backed by a Redis sorted set per
// key, shared by every API replica pointing at the same Redis.
type RedisLimiter struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

// Allow records an event for key when fewer than max events happened in the
// trailing window. Rejected events are not recorded.
func (l RedisLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}

	res, err := slidingWindow.Run(ctx, l.Client, []string{l.Prefix + key},
		now.UnixMilli(), window.Milliseconds(), max, uuid.NewString()).Int64Slice()
	if err != nil {
		return false, 0, now.Add(window), err
	}
	remaining = max - int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	reset = time.UnixMilli(res[2]).Add(window)
	return res[0] == 1, remaining, reset, nil
}
