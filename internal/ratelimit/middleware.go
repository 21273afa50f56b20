package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Middleware rejects requests over the budget with 429. A store failure fails
// open: losing rate limiting briefly is better than refusing sales.
func Middleware(limiter *Limiter, maxRequests int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ClientID(c)

		d, err := limiter.Allow(c.Request.Context(), id, maxRequests, window)
		if err != nil {
			log.Warn("rate limit store unavailable, allowing request",
				zap.String("client", id),
				zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", d.ResetAt.UTC().Format(time.RFC3339))

		if !d.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "too many requests, try again later",
				"resetAt": d.ResetAt.UTC().Format(time.RFC3339),
			})
			return
		}
		c.Next()
	}
}

// ClientID identifies a caller for counting purposes. IP alone is too coarse
// behind carrier NAT, so the User-Agent is folded in.
func ClientID(c *gin.Context) string {
	ip := c.ClientIP()
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found {
			ip = strings.TrimSpace(first)
		} else {
			ip = strings.TrimSpace(fwd)
		}
	}
	return ip + "|" + c.GetHeader("User-Agent")
}
