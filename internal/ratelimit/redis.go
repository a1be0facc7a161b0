package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/lead-intake/pkg/logging"
)

const defaultKeyPrefix = "intake:ratelimit:"

// slidingLogScript trims the sorted set to the window, then records the
// attempt only when the remaining count is below the limit. Returns 1 when
// blocked.
var slidingLogScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local max_attempts = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])
redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
if count >= max_attempts then
  return 1
end
redis.call('ZADD', key, now, ARGV[5])
redis.call('PEXPIRE', key, ttl_ms)
return 0
`)

// RedisGuard shares the sliding log between instances through a Redis sorted
// set per identity. Keys expire with the window so no sweep is needed.
type RedisGuard struct {
	rdb    redis.Scripter
	prefix string
	now    func() time.Time
	logger *logging.Logger
}

// NewRedisGuard builds a guard on top of an existing Redis client.
func NewRedisGuard(rdb redis.Scripter, logger *logging.Logger) *RedisGuard {
	if rdb == nil {
		panic("ratelimit: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisGuard{
		rdb:    rdb,
		prefix: defaultKeyPrefix,
		now:    time.Now,
		logger: logger,
	}
}

var _ Guard = (*RedisGuard)(nil)

// Check implements Guard. Redis errors fail open.
func (g *RedisGuard) Check(ctx context.Context, identity string, maxAttempts int, window time.Duration) bool {
	if maxAttempts <= 0 {
		return true
	}
	if window <= 0 {
		return false
	}

	now := g.now()
	nowMs := now.UnixMilli()
	windowStart := now.Add(-window).UnixMilli()

	blocked, err := slidingLogScript.Run(ctx, g.rdb,
		[]string{g.prefix + identity},
		nowMs,
		windowStart,
		maxAttempts,
		window.Milliseconds(),
		strconv.FormatInt(nowMs, 10)+"-"+uuid.NewString(),
	).Int()
	if err != nil {
		g.logger.Warn("rate limit check failed; allowing request", "error", err, "client_ip", identity)
		return false
	}
	return blocked == 1
}
