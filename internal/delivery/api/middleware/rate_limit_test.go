package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventos/config"
	"eventos/internal/delivery/api/response"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitConfig(limit int, window time.Duration) *config.Config {
	return &config.Config{
		RateLimit: &config.RateLimitConfig{
			Enabled: true,
			Prefix:  "ratelimit",
			Policies: map[string]config.RateLimitPolicy{
				config.RateLimitLogin: {Limit: limit, Window: window},
			},
		},
	}
}

func newTestLimiter(t *testing.T, cfg *config.Config) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := NewRateLimiter(RateLimiterParams{Config: cfg, Redis: rdb, Logger: newDiscardLogger()})

	return limiter, mr
}

func hitLimited(limiter *RateLimiter, policy, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, ip)
	c, rec := newGuardContext(req)

	err := limiter.Limit(policy)(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c)
	if err != nil {
		c.Error(err)
	}

	return rec
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	limiter, mr := newTestLimiter(t, newRateLimitConfig(2, time.Minute))
	fixed := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }

	first := hitLimited(limiter, config.RateLimitLogin, "203.0.113.7")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	second := hitLimited(limiter, config.RateLimitLogin, "203.0.113.7")
	assert.Equal(t, http.StatusNoContent, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := hitLimited(limiter, config.RateLimitLogin, "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "30", third.Header().Get("Retry-After"))

	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(third.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)

	other := hitLimited(limiter, config.RateLimitLogin, "198.51.100.1")
	assert.Equal(t, http.StatusNoContent, other.Code, "buckets are per client IP")

	assert.True(t, mr.Exists("ratelimit:login:203.0.113.7"))
}

func TestRateLimiter_Refills(t *testing.T) {
	limiter, _ := newTestLimiter(t, newRateLimitConfig(1, time.Minute))
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.Equal(t, http.StatusNoContent, hitLimited(limiter, config.RateLimitLogin, "203.0.113.7").Code)
	assert.Equal(t, http.StatusTooManyRequests, hitLimited(limiter, config.RateLimitLogin, "203.0.113.7").Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, hitLimited(limiter, config.RateLimitLogin, "203.0.113.7").Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	t.Run("no redis", func(t *testing.T) {
		limiter := NewRateLimiter(RateLimiterParams{Config: newRateLimitConfig(1, time.Minute), Logger: newDiscardLogger()})

		for range 3 {
			assert.Equal(t, http.StatusNoContent, hitLimited(limiter, config.RateLimitLogin, "203.0.113.7").Code)
		}
	})

	t.Run("redis down", func(t *testing.T) {
		limiter, mr := newTestLimiter(t, newRateLimitConfig(1, time.Minute))
		mr.Close()

		for range 3 {
			rec := hitLimited(limiter, config.RateLimitLogin, "203.0.113.7")
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		}
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := newRateLimitConfig(1, time.Minute)
		cfg.RateLimit.Enabled = false
		limiter, _ := newTestLimiter(t, cfg)

		for range 3 {
			assert.Equal(t, http.StatusNoContent, hitLimited(limiter, config.RateLimitLogin, "203.0.113.7").Code)
		}
	})

	t.Run("unknown policy", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, newRateLimitConfig(1, time.Minute))

		for range 3 {
			assert.Equal(t, http.StatusNoContent, hitLimited(limiter, "search", "203.0.113.7").Code)
		}
	})
}

func hitThrough(e *echo.Echo, limiter *RateLimiter, remoteAddr string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remoteAddr
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := limiter.Limit(config.RateLimitLogin)(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c); err != nil {
		c.Error(err)
	}

	return rec.Code
}

func TestRateLimiter_ForwardingHeadersIgnoredWithoutTrustedProxy(t *testing.T) {
	limiter, _ := newTestLimiter(t, newRateLimitConfig(2, time.Minute))
	extractor, err := NewIPExtractor(nil)
	require.NoError(t, err)
	e := echo.New()
	e.IPExtractor = extractor

	spoofed := []map[string]string{
		{echo.HeaderXForwardedFor: "192.0.2.1"},
		{echo.HeaderXForwardedFor: "192.0.2.2", echo.HeaderXRealIP: "192.0.2.3"},
		{echo.HeaderXRealIP: "192.0.2.4"},
	}
	codes := make([]int, 0, len(spoofed))
	for _, headers := range spoofed {
		codes = append(codes, hitThrough(e, limiter, "203.0.113.7:51000", headers))
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_TrustedProxyForwardsClientIP(t *testing.T) {
	limiter, _ := newTestLimiter(t, newRateLimitConfig(2, time.Minute))
	extractor, err := NewIPExtractor([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	e := echo.New()
	e.IPExtractor = extractor

	const proxy = "10.0.0.2:443"
	assert.Equal(t, http.StatusNoContent, hitThrough(e, limiter, proxy, map[string]string{echo.HeaderXForwardedFor: "198.51.100.1"}))
	assert.Equal(t, http.StatusNoContent, hitThrough(e, limiter, proxy, map[string]string{echo.HeaderXForwardedFor: "198.51.100.2"}))
	assert.Equal(t, http.StatusNoContent, hitThrough(e, limiter, proxy, map[string]string{echo.HeaderXForwardedFor: "198.51.100.1"}))

	// A client-prepended hop does not change the address the proxy appended.
	prepended := map[string]string{echo.HeaderXForwardedFor: "192.0.2.99, 198.51.100.1"}
	assert.Equal(t, http.StatusTooManyRequests, hitThrough(e, limiter, proxy, prepended))

	// Direct hits from outside the proxy range keep their own address.
	direct := map[string]string{echo.HeaderXForwardedFor: "198.51.100.2"}
	assert.Equal(t, http.StatusNoContent, hitThrough(e, limiter, "203.0.113.9:40000", direct))
}

func TestNewIPExtractor_RejectsBadRange(t *testing.T) {
	_, err := NewIPExtractor([]string{"not-a-cidr"})
	assert.Error(t, err)
}
