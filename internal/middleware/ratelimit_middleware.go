package middleware

import (
	"context"
	"net/http"
	"strconv"

	"agency-portal/internal/redis"
	"agency-portal/internal/services"
	"agency-portal/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type allowFunc func(ctx context.Context, userID string) (redis.RateLimitResult, error)

// MessageRateLimitMiddleware throttles message mutation endpoints per user.
// Apply after the auth middleware.
func MessageRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return limitWith(limiter.AllowMessage, "message rate limit exceeded")
}

// UploadRateLimitMiddleware throttles attachment uploads per user.
func UploadRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return limitWith(limiter.AllowUpload, "upload rate limit exceeded")
}

func limitWith(allow allowFunc, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := services.IdentityFromContext(c.Request.Context())
		if !ok {
			// no identity, let the auth middleware reject it
			c.Next()
			return
		}

		result, err := allow(c.Request.Context(), identity.ID.String())
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", "INTERNAL_ERROR"))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(msg, "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
