package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/souq-labs/backend-souq/internal/common"
	"github.com/souq-labs/backend-souq/internal/tenant"
)

func testLimiter(t *testing.T) (Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Limiter{Client: client, Prefix: "rl:"}, mr
}

func TestLimiterAllowWithinWindow(t *testing.T) {
	limiter, _ := testLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "shop:u:alice", time.Minute, 3)
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, 3-(i+1), remaining)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "shop:u:alice", time.Minute, 3)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter, _ := testLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, _, err := limiter.Allow(ctx, "shop:u:alice", time.Minute, 2)
		require.NoError(t, err)
	}
	allowed, _, _, err := limiter.Allow(ctx, "shop:u:alice", time.Minute, 2)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, _, _, err = limiter.Allow(ctx, "shop:u:bob", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestLimiterWindowSlides(t *testing.T) {
	limiter, _ := testLimiter(t)
	ctx := context.Background()
	window := 100 * time.Millisecond

	allowed, _, _, err := limiter.Allow(ctx, "shop:1.2.3.4", window, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, _, err = limiter.Allow(ctx, "shop:1.2.3.4", window, 1)
	require.NoError(t, err)
	require.False(t, allowed)

	// entries fall out of the window by score, not by key TTL
	time.Sleep(3 * window)

	allowed, _, _, err = limiter.Allow(ctx, "shop:1.2.3.4", window, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	limiter, _ := testLimiter(t)
	h := Handler{
		Limiter: limiter,
		Config:  Config{Key: StoreScopedKey, Window: time.Minute, Max: 2},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := h.Middleware(next)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		req.RemoteAddr = "10.0.0.9:51234"
		req = req.WithContext(tenant.WithStore(req.Context(), "bab-al-yemen"))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do().Code)
	require.Equal(t, http.StatusOK, do().Code)

	rec := do()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestMiddlewareFailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := testLimiter(t)
	mr.Close()

	var seen error
	h := Handler{
		Limiter: limiter,
		Config:  Config{Key: StoreScopedKey, Window: time.Minute, Max: 1},
		OnError: func(err error) { seen = err },
	}
	srv := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Error(t, seen)
}

func TestStoreScopedKeyPrefersUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:51234"
	ctx := tenant.WithStore(req.Context(), "bab-al-yemen")

	require.Equal(t, "bab-al-yemen:10.0.0.9", StoreScopedKey(req.WithContext(ctx)))

	ctx = common.WithUserID(ctx, "4f2c")
	require.Equal(t, "bab-al-yemen:u:4f2c", StoreScopedKey(req.WithContext(ctx)))
}

func TestStoreScopedKeyUsesForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:51234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	require.Equal(t, "-:203.0.113.7", StoreScopedKey(req))
}
