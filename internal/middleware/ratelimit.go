package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// windowScript counts a hit and arms the window's TTL in one atomic
// call.  The TTL is also re-armed whenever it is found missing, so a
// counter key can never outlive its window and throttle a caller
// forever.  Returns {count, remaining ttl in ms}.
var windowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// NewRateLimiter returns a fixed-window rate limiter backed by Redis.
// Each caller gets cfg.Limit requests per cfg.Window; windows are keyed
// by authenticated user when available, else client IP.  The limiter
// fails open when Redis is unreachable: throttling is protection, not a
// correctness requirement, and booking must keep working without it.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	return newRateLimiter(cfg, rdb)
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error { return next(c) }
}

// newRateLimiter takes the Scripter interface so tests can substitute
// an in-memory double for the Redis client.
func newRateLimiter(cfg config.RateLimitConfig, rdb redis.Scripter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg.Prefix, c)

			vals, err := windowScript.Run(ctx, rdb, []string{key}, cfg.Window.Milliseconds()).Slice()
			if err != nil || len(vals) != 2 {
				c.Logger().Warnf("ratelimit: script failed for key=%s: %v", key, err)
				return next(c)
			}
			count := asInt64(vals[0])
			ttlMs := asInt64(vals[1])

			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Limit) {
				secs := int((ttlMs + 999) / 1000)
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// rateKey builds the window key: per user when authenticated, per IP
// otherwise.
func rateKey(prefix string, c echo.Context) string {
	if uid, ok := UserID(c); ok {
		return prefix + ":user:" + strconv.FormatUint(uid, 10)
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return prefix + ":ip:" + ip
}
