package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Abdulkalam-AIML/titanbot/internal/metrics"
)

// Counter records a hit against key and reports how many hits the current
// window already held.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter implements Counter with a Redis sorted set per window.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a counter backed by client.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Hit implements Counter.
func (r *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()
	windowStart := now.Add(-window)
	windowKey := fmt.Sprintf("%s:%d", key, now.Unix()/int64(window.Seconds()))

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, windowKey, "-inf", strconv.FormatInt(windowStart.UnixMilli(), 10))
	countCmd := pipe.ZCard(ctx, windowKey)
	pipe.ZAdd(ctx, windowKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, windowKey, window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return countCmd.Val(), nil
}

// RateLimiter applies per-route request budgets.
type RateLimiter struct {
	counter Counter
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRateLimiter creates a limiter. A nil counter disables limiting.
func NewRateLimiter(counter Counter, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{counter: counter, logger: logger, now: time.Now}
}

// Limit allows requests per window for the named endpoint. Authenticated
// callers are keyed by user id, everyone else by client IP. Counter failures
// let the request through.
func (rl *RateLimiter) Limit(name string, requests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !rl.enabled(requests) {
			return next
		}
		return func(c echo.Context) error {
			key := rl.key(c, name)
			count, ok := rl.hit(c.Request().Context(), key, window)
			if !ok {
				return next(c)
			}

			remaining := max(requests-int(count)-1, 0)
			resetAt := rl.now().Add(window)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(requests))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if count >= int64(requests) {
				h.Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				rl.exceeded(name, key, c.RealIP())
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}

// AllowUser spends one request of userID's budget for the named endpoint
// outside the HTTP middleware chain, e.g. per WebSocket exchange. It shares
// keys with Limit, so both paths draw on the same budget.
func (rl *RateLimiter) AllowUser(ctx context.Context, name string, userID int64, requests int, window time.Duration) bool {
	if !rl.enabled(requests) {
		return true
	}
	key := userKey(name, userID)
	count, ok := rl.hit(ctx, key, window)
	if !ok || count < int64(requests) {
		return true
	}
	rl.exceeded(name, key, "")
	return false
}

func (rl *RateLimiter) enabled(requests int) bool {
	return rl != nil && rl.counter != nil && requests > 0
}

// hit records one request. ok is false when the counter failed.
func (rl *RateLimiter) hit(ctx context.Context, key string, window time.Duration) (int64, bool) {
	count, err := rl.counter.Hit(ctx, key, window)
	if err != nil {
		rl.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		return 0, false
	}
	return count, true
}

func (rl *RateLimiter) exceeded(name, key, ip string) {
	metrics.RateLimitHits.WithLabelValues(name).Inc()
	rl.logger.Warn().
		Str("event", "rate_limit_exceeded").
		Str("ip", ip).
		Str("endpoint", name).
		Str("key", key).
		Msg("rate limit exceeded")
}

func (rl *RateLimiter) key(c echo.Context, name string) string {
	if user := CurrentUser(c); user != nil {
		return userKey(name, user.ID)
	}
	return fmt.Sprintf("ratelimit:%s:ip:%s", name, c.RealIP())
}

func userKey(name string, userID int64) string {
	return fmt.Sprintf("ratelimit:%s:user:%d", name, userID)
}
