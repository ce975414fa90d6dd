package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mada-pay/mada_pay/internal/logging"
)

func TestRateLimitPerWallet(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/wallets/:walletId/withdraw",
		RateLimit(cache, RateLimitConfig{Prefix: "rl:withdraw:", Limit: 2, Window: time.Minute, Key: ByParam("walletId")}, logging.Discard()),
		func(c *fiber.Ctx) error { return c.SendStatus(http.StatusCreated) })

	do := func(path string) *http.Response {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, path, nil))
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusCreated, do("/wallets/1/withdraw").StatusCode)
	second := do("/wallets/1/withdraw")
	assert.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, "0", second.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusTooManyRequests, do("/wallets/1/withdraw").StatusCode)
	assert.Equal(t, http.StatusCreated, do("/wallets/2/withdraw").StatusCode)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusCreated, do("/wallets/1/withdraw").StatusCode)
}

func TestRateLimitWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Post("/x", RateLimit(nil, RateLimitConfig{Limit: 1}, logging.Discard()),
		func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/x", nil))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
}
