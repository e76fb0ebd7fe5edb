package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRateLimitBypass(t *testing.T) {
	for _, env := range []string{"test", "development"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv("APP_ENV", env)
			allowed, err := CheckRateLimit(context.Background(), nil, "generate", "session:x", 1, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}

func TestCheckRateLimitNilRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	allowed, err := CheckRateLimit(context.Background(), nil, "generate", "session:x", 1, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestCheckRateLimitWindow(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "generate", "session:a", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i)
	}

	allowed, err := CheckRateLimit(ctx, rdb, "generate", "session:a", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different session has its own window.
	allowed, err = CheckRateLimit(ctx, rdb, "generate", "session:b", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	// The window expires and the counter resets.
	mr.FastForward(2 * time.Minute)
	allowed, err = CheckRateLimit(ctx, rdb, "generate", "session:a", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("bypass in test mode", func(t *testing.T) {
		app := fiber.New()
		t.Setenv("APP_ENV", "test")
		app.Get("/test", RateLimit(nil, 1, time.Minute), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("enforces limit against redis", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

		app := fiber.New()
		app.Post("/generate", RateLimit(rdb, 2, time.Minute, "generate"), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		for i := 0; i < 2; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/generate", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			_ = resp.Body.Close()
		}

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/generate", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("fail-closed with nil redis in production", func(t *testing.T) {
		app := fiber.New()
		t.Setenv("APP_ENV", "production")
		app.Get("/sensitive", RateLimitWithPolicy(nil, 1, time.Minute, FailClosed), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/sensitive", nil)
		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		_ = resp.Body.Close()
	})
}
