package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLimited(t *testing.T, limit int) (http.Handler, *miniredis.Miniredis) {
	return newLimitedProxy(t, limit, false)
}

func newLimitedProxy(t *testing.T, limit int, trustProxy bool) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mw := RateLimiter(rdb, limit, time.Minute, 10*time.Minute, "rl:send", trustProxy, zap.NewNop())
	return mw(ok), mr
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/send-message", nil)
	req.RemoteAddr = ip + ":40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	h, _ := newLimited(t, 2)

	first := hit(h, "10.0.0.1")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", first.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	h, mr := newLimited(t, 2)
	hit(h, "10.0.0.1")
	hit(h, "10.0.0.1")

	over := hit(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, over.Code)
	assert.Equal(t, "600", over.Header().Get("Retry-After"))
	assert.True(t, mr.Exists("rl:send:ip:10.0.0.1:blocked"))

	// still blocked after the counting window resets
	mr.Del("rl:send:ip:10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1").Code)

	mr.FastForward(10 * time.Minute)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	h, _ := newLimited(t, 1)
	hit(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2").Code)
}

func TestRateLimiter_UsesForwardedForBehindProxy(t *testing.T) {
	h, mr := newLimitedProxy(t, 5, true)
	req := httptest.NewRequest(http.MethodPost, "/send-message", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, mr.Exists("rl:send:ip:203.0.113.7"))
}

func TestRateLimiter_IgnoresForwardedForByDefault(t *testing.T) {
	h, _ := newLimited(t, 1)

	spoof := func(fwd string) int {
		req := httptest.NewRequest(http.MethodPost, "/send-message", nil)
		req.RemoteAddr = "10.0.0.1:40000"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, spoof("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, spoof("203.0.113.2"), "a new header must not reset the limit")
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	h, mr := newLimited(t, 1)
	mr.Close()

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
}
