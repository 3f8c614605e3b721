package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// slidingWindowScript counts requests in the trailing window and admits the
// caller only while the count is under the limit. Atomic on the Redis side so
// concurrent callers cannot both sneak under the limit.
const slidingWindowScript = `
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local member = ARGV[3]

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)
local cutoff = now - window

redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", cutoff)

local count = redis.call("ZCARD", KEYS[1])
local allowed = 0
if count < limit then
  allowed = 1
  redis.call("ZADD", KEYS[1], now, member)
end
redis.call("PEXPIRE", KEYS[1], window)

local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
local resetAt = now
if oldest[2] ~= nil then
  resetAt = tonumber(oldest[2]) + window
end

return {allowed, limit - count - allowed, resetAt}
`

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// SlidingWindow is a Redis-backed sliding window rate limiter.
type SlidingWindow struct {
	client *redis.Client
	script *redis.Script
}

func NewSlidingWindow(client *redis.Client) *SlidingWindow {
	if client == nil {
		return nil
	}
	return &SlidingWindow{
		client: client,
		script: redis.NewScript(slidingWindowScript),
	}
}

// Enabled reports whether the limiter is backed by a live client. A nil
// limiter fails open; enforcement is opt-in by configuration.
func (s *SlidingWindow) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *SlidingWindow) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if !s.Enabled() {
		return &Result{Allowed: true}, nil
	}
	if key == "" {
		return nil, errors.New("rate limiter key is empty")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter limit and window must be positive")
	}

	values, err := s.script.Run(ctx, s.client, []string{key},
		limit,
		window.Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, errors.New("unexpected rate limiter script reply")
	}

	result := &Result{
		Allowed:   values[0] == 1,
		Remaining: int(values[1]),
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if !result.Allowed {
		nowMS := time.Now().UnixMilli()
		if values[2] > nowMS {
			result.RetryAfter = time.Duration(values[2]-nowMS) * time.Millisecond
		} else {
			result.RetryAfter = time.Second
		}
	}
	return result, nil
}
