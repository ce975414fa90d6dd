package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig describes a fixed-window limit.
type RateLimitConfig struct {
	// Prefix namespaces the Redis counters, e.g. "rl:withdraw:".
	Prefix string
	Limit  int
	Window time.Duration
	// Key picks the bucket of a request. Defaults to the client IP.
	Key func(c *fiber.Ctx) string
}

// RateLimit caps requests per bucket and window using Redis counters. It is a
// no-op without Redis and fails open when Redis errors.
func RateLimit(cache *redis.Client, cfg RateLimitConfig, logger *slog.Logger) fiber.Handler {
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Key == nil {
		cfg.Key = func(c *fiber.Ctx) string { return c.IP() }
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		key := cfg.Prefix + cfg.Key(c)

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		count, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limit check failed", slog.String("key", key), slog.Any("error", err))
			return c.Next()
		}
		if count == 1 {
			if err := cache.Expire(ctx, key, cfg.Window).Err(); err != nil {
				logger.Warn("rate limit expiry failed", slog.String("key", key), slog.Any("error", err))
			}
		}

		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if count > int64(cfg.Limit) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}

// ByParam buckets requests by a route parameter, falling back to the client IP.
func ByParam(name string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if v := c.Params(name); v != "" {
			return v
		}
		return c.IP()
	}
}
