package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/verisafe/humancheck/internal/common/errors"
)

const rateLimitKeyPrefix = "hc:ratelimit"

// RateLimitConfig holds per-IP rate limiting configuration for nonce
// issuance.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
}

// DefaultIssueRateLimit returns the default throttle for /nonce:
// 30 requests per minute per client IP.
func DefaultIssueRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 30,
		Window:            time.Minute,
	}
}

// RateLimitByIP throttles requests per client IP with a fixed window
// counter in Redis (INCR + EXPIRE), so the limit holds across instances
// sharing the same Redis. Redis failures fail open: issuance throttling
// is protection, not a correctness requirement.
func RateLimitByIP(client *redis.Client, cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if cfg.RequestsPerWindow <= 0 {
		cfg = DefaultIssueRateLimit()
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", rateLimitKeyPrefix, c.ClientIP())

		count, err := client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limit check failed, allowing request",
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(c.Request.Context(), key, cfg.Window)
		}

		if count > int64(cfg.RequestsPerWindow) {
			logger.Warn("nonce issuance throttled",
				zap.String("client_ip", c.ClientIP()),
				zap.Int64("count", count),
			)
			RespondError(c, errors.RateLimited())
			c.Abort()
			return
		}

		c.Next()
	}
}
