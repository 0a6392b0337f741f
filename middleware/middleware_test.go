package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGatewayAuth(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("secret", zap.NewNop().Sugar()))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "Bearer nope", fiber.StatusUnauthorized},
		{"bearer", "Bearer secret", fiber.StatusOK},
		{"raw", "secret", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestGatewayAuthDisabledWithoutToken(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("", zap.NewNop().Sugar()))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func newIdempotentApp(cache ResponseCache, status int, calls *int32) *fiber.App {
	app := fiber.New()
	app.Use(Idempotency(cache, time.Hour, zap.NewNop().Sugar()))
	app.Post("/points/credit", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(calls, 1)
		return c.Status(status).JSON(fiber.Map{"call": n})
	})
	return app
}

func post(t *testing.T, app *fiber.App, key string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/points/credit", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	var calls int32
	app := newIdempotentApp(NewMemoryResponseCache(), fiber.StatusOK, &calls)

	first, body1 := post(t, app, "abc")
	second, body2 := post(t, app, "abc")

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first.StatusCode, second.StatusCode)
	assert.JSONEq(t, body1, body2)
	assert.Equal(t, "true", second.Header.Get("X-Idempotency-Hit"))
	assert.Contains(t, second.Header.Get("Content-Type"), "application/json")

	post(t, app, "other")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	var calls int32
	app := newIdempotentApp(NewMemoryResponseCache(), fiber.StatusOK, &calls)

	post(t, app, "")
	post(t, app, "")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencySkipsServerErrors(t *testing.T) {
	var calls int32
	app := newIdempotentApp(NewMemoryResponseCache(), fiber.StatusInternalServerError, &calls)

	post(t, app, "abc")
	post(t, app, "abc")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMemoryResponseCacheExpiry(t *testing.T) {
	cache := NewMemoryResponseCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", CachedResponse{Status: 200, Body: []byte("ok")}, time.Minute))
	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte("ok"), got.Body)

	now = now.Add(2 * time.Minute)
	got, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdempotencyServesThroughCacheOutage(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	var calls int32
	app := newIdempotentApp(NewRedisResponseCache(client), fiber.StatusOK, &calls)

	resp, _ := post(t, app, "abc")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyConcurrentDuplicatesApplyOnce(t *testing.T) {
	var calls int32
	app := fiber.New()
	app.Use(Idempotency(NewMemoryResponseCache(), time.Hour, zap.NewNop().Sugar()))
	app.Post("/points/credit", func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return c.JSON(fiber.Map{"ok": true})
	})

	const workers = 4
	statuses := make([]int, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			req := httptest.NewRequest(http.MethodPost, "/points/credit", nil)
			req.Header.Set("Idempotency-Key", "k1")
			resp, err := app.Test(req, -1)
			if assert.NoError(t, err) {
				statuses[i] = resp.StatusCode
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	ok := 0
	for _, st := range statuses {
		assert.Contains(t, []int{fiber.StatusOK, fiber.StatusConflict}, st)
		if st == fiber.StatusOK {
			ok++
		}
	}
	assert.GreaterOrEqual(t, ok, 1)
}

func TestMemoryResponseCacheReserve(t *testing.T) {
	cache := NewMemoryResponseCache()
	ctx := context.Background()

	ok, err := cache.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Pending)

	require.NoError(t, cache.Release(ctx, "k"))
	ok, err = cache.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyPendingKeyConflicts(t *testing.T) {
	cache := NewMemoryResponseCache()
	_, err := cache.Reserve(context.Background(), "POST /points/credit busy", time.Minute)
	require.NoError(t, err)

	var calls int32
	app := newIdempotentApp(cache, fiber.StatusOK, &calls)
	resp, _ := post(t, app, "busy")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Zero(t, atomic.LoadInt32(&calls))
}
