package middleware

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"eventos/config"
	"eventos/internal/delivery/api/response"
	deliverycontext "eventos/internal/delivery/context"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// tokenBucketScript refills refill_tokens every interval_ms up to capacity and
// takes one token. Returns {allowed, remaining, retry_after_ms}.
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

// RateLimiterParams holds dependencies for RateLimiter, injected by Fx.
type RateLimiterParams struct {
	fx.In

	Config *config.Config
	Redis  *redis.Client `optional:"true"`
	Logger *slog.Logger
}

// RateLimiter throttles endpoints per client IP with a redis token bucket.
// It fails open: no redis, or a redis error, lets the request through.
type RateLimiter struct {
	cfg    *config.RateLimitConfig
	rdb    *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewRateLimiter(params RateLimiterParams) *RateLimiter {
	return &RateLimiter{
		cfg:    params.Config.RateLimit,
		rdb:    params.Redis,
		logger: params.Logger,
		now:    time.Now,
	}
}

// Limit returns the middleware enforcing the named policy.
func (l *RateLimiter) Limit(policyName string) echo.MiddlewareFunc {
	policy, ok := l.policy(policyName)
	if !ok || l.rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	interval := policy.Window / time.Duration(policy.Limit)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ttlSeconds := int64(math.Ceil(policy.Window.Seconds()))
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := l.key(policyName, c)
			ctx := c.Request().Context()

			vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{key},
				l.now().UnixMilli(),
				policy.Limit,
				1,
				interval.Milliseconds(),
				ttlSeconds,
			).Int64Slice()
			if err != nil || len(vals) != 3 {
				deliverycontext.GetLoggerOrDefault(ctx, l.logger).
					Warn("Rate limiter unavailable, allowing request", slog.String("key", key), slog.Any("error", err))

				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(policy.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))

			if vals[0] != 1 {
				retryAfter := int(math.Ceil(float64(vals[2]) / 1000.0))
				if retryAfter < 1 {
					retryAfter = 1
				}

				return response.TooManyRequests(c, retryAfter)
			}

			return next(c)
		}
	}
}

func (l *RateLimiter) policy(name string) (config.RateLimitPolicy, bool) {
	if l.cfg == nil || !l.cfg.Enabled {
		return config.RateLimitPolicy{}, false
	}
	policy, ok := l.cfg.Policies[name]
	if !ok {
		// koanf may hand back lower-cased map keys
		for key, candidate := range l.cfg.Policies {
			if strings.EqualFold(key, name) {
				policy, ok = candidate, true

				break
			}
		}
	}
	if !ok || policy.Limit <= 0 || policy.Window <= 0 {
		return config.RateLimitPolicy{}, false
	}

	return policy, true
}

func (l *RateLimiter) key(policyName string, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}

	return strings.Join([]string{l.cfg.Prefix, policyName, ip}, ":")
}
