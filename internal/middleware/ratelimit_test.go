package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// fakeWindow executes the limiter script's semantics in memory: one
// counter with a TTL that is armed on the first hit and re-armed
// whenever it is found missing.
type fakeWindow struct {
	count int64
	ttlMs int64 // -1 models a key whose expiry was never armed
	fail  bool
}

func (f *fakeWindow) run(args []interface{}) *redis.Cmd {
	if f.fail {
		return redis.NewCmdResult(nil, errors.New("redis: connection refused"))
	}
	windowMs, _ := args[0].(int64)
	f.count++
	if f.count == 1 || f.ttlMs < 0 {
		f.ttlMs = windowMs
	}
	return redis.NewCmdResult([]interface{}{f.count, f.ttlMs}, nil)
}

func (f *fakeWindow) Eval(_ context.Context, _ string, _ []string, args ...interface{}) *redis.Cmd {
	return f.run(args)
}

func (f *fakeWindow) EvalSha(_ context.Context, _ string, _ []string, args ...interface{}) *redis.Cmd {
	return f.run(args)
}

func (f *fakeWindow) EvalRO(_ context.Context, _ string, _ []string, args ...interface{}) *redis.Cmd {
	return f.run(args)
}

func (f *fakeWindow) EvalShaRO(_ context.Context, _ string, _ []string, args ...interface{}) *redis.Cmd {
	return f.run(args)
}

func (f *fakeWindow) ScriptExists(context.Context, ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}

func (f *fakeWindow) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func limiterConfig(limit int) config.RateLimitConfig {
	return config.RateLimitConfig{Enabled: true, Limit: limit, Window: time.Minute, Prefix: "rl"}
}

// hit sends one request through the limiter and returns the recorder.
func hit(t *testing.T, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(42))
	h := mw(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	require.NoError(t, h(c))
	return rec
}

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	fake := &fakeWindow{ttlMs: -1}
	mw := newRateLimiter(limiterConfig(3), fake)

	for i := 0; i < 3; i++ {
		rec := hit(t, mw)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := hit(t, mw)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiterReArmsMissingWindow(t *testing.T) {
	// A counter over the limit whose expiry was lost: without re-arming
	// the key would be immortal and the caller throttled forever.
	fake := &fakeWindow{count: 10, ttlMs: -1}
	mw := newRateLimiter(limiterConfig(3), fake)

	rec := hit(t, mw)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, time.Minute.Milliseconds(), fake.ttlMs)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiterFailsOpen(t *testing.T) {
	fake := &fakeWindow{fail: true}
	mw := newRateLimiter(limiterConfig(1), fake)

	for i := 0; i < 5; i++ {
		rec := hit(t, mw)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterDisabledPassesThrough(t *testing.T) {
	mw := NewRateLimiter(config.RateLimitConfig{Enabled: false}, nil)

	rec := hit(t, mw)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
