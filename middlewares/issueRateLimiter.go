package middlewares

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"rms-be/models"
	"rms-be/utils"
)

// RateCounter counts hits per key inside a fixed window.
type RateCounter interface {
	// Hit records one hit and returns the count in the current window and
	// the time left until the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisRateCounter keeps one expiring counter per key in redis.
type RedisRateCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisRateCounter creates a new RedisRateCounter.
func NewRedisRateCounter(client *redis.Client, prefix string) *RedisRateCounter {
	return &RedisRateCounter{client: client, prefix: prefix}
}

func (r *RedisRateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	key = r.prefix + ":" + key

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("incr %s: %w", key, err)
	}

	// Set TTL only for the first increment (when count = 1)
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("expire %s: %w", key, err)
		}
		return count, window, nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ttl %s: %w", key, err)
	}
	if ttl < 0 {
		// A crash between INCR and EXPIRE leaves a key that never resets.
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("expire %s: %w", key, err)
		}
		ttl = window
	}
	return count, ttl, nil
}

// IssueRateLimiter caps how many issues one user may report per window.
// It must run after AuthMiddleware.
func IssueRateLimiter(counter RateCounter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			utils.RespondError(c, models.ErrUnauthorized)
			return
		}

		count, retryAfter, err := counter.Hit(c.Request.Context(), "issues:"+user.ID.Hex(), window)
		if err != nil {
			slog.Error("rate limiter unavailable", "user_id", user.ID.Hex(), "error", err)
			utils.RespondError(c, fmt.Errorf("%w: %v", models.ErrDependency, err))
			return
		}

		if count > int64(limit) {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", fmt.Sprint(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"message":     "Too many issues reported, please try again later",
				"retry_after": seconds,
			})
			return
		}

		c.Next()
	}
}
