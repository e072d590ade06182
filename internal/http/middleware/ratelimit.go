// Package middleware contains shared Gin middleware used by the admin HTTP
// API.
//
// This file adapts a throttle.Limiter (process-local token buckets or the
// shared Redis window) into Gin middleware. Limiting is edge-level cost
// protection for export queries, not an authorization mechanism.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/tg-message-logger/internal/throttle"
)

// KeyFunc selects the identity used to key a rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByAdminOrIP prefers the token fingerprint set by AdminAuth and falls
// back to the client IP. Prefixes keep the two namespaces apart.
func KeyByAdminOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if fp := AdminFrom(c); fp != "" {
			return "admin:" + fp
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimit rejects requests over the limiter's budget with 429 and a
// Retry-After header. When the limiter itself fails (e.g. Redis is down) the
// request is let through and the failure logged.
func RateLimit(lim throttle.Limiter, keyFn KeyFunc) gin.HandlerFunc {
	if keyFn == nil {
		keyFn = KeyByAdminOrIP()
	}
	return func(c *gin.Context) {
		ok, err := lim.Allow(c.Request.Context(), keyFn(c))
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if ok {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": GetRequestID(c),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
