package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/go-demo/roomchat/internal/dto/response"
	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
	"github.com/go-demo/roomchat/internal/pkg/ratelimit"
)

// RateLimitConfig represents rate limit configuration
type RateLimitConfig struct {
	RetryAfter time.Duration // advertised in the Retry-After header
	KeyFunc    func(*gin.Context) string
	Logger     *zap.Logger
}

// ClientIPKey returns a key function that limits by client IP.
func ClientIPKey(prefix string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		return "ratelimit:" + prefix + ":" + c.ClientIP()
	}
}

// RateLimit limits requests per client IP under prefix.
func RateLimit(limiter ratelimit.Limiter, prefix string, retryAfter time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return RateLimitWithConfig(limiter, &RateLimitConfig{
		RetryAfter: retryAfter,
		KeyFunc:    ClientIPKey(prefix),
		Logger:     logger,
	})
}

// RateLimitWithConfig creates a rate limiting middleware with custom
// configuration. Limiter failures let the request through.
func RateLimitWithConfig(limiter ratelimit.Limiter, config *RateLimitConfig) gin.HandlerFunc {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retryAfter := int(math.Ceil(config.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("Rate limiter unavailable",
				zap.String("key", key),
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.Abort(c, apperrors.ErrRateLimitExceeded.WithMessage("too many requests, try again later"))
			return
		}

		c.Next()
	}
}
