package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kingraph/kingraph/pkg/kingraph/cache"
	"go.uber.org/zap"
)

const (
	// RateLimit is the number of requests allowed per client per window
	RateLimit = 120
	// RateWindow is the length of the rate-limiting window
	RateWindow = 60 * time.Second
)

// RateLimitMiddleware limits each client IP to RateLimit requests per
// RateWindow, counted in the shared cache. Fails open when the cache is
// unreachable.
func RateLimitMiddleware(c cache.Cache, logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := "rl:" + ctx.ClientIP()
		count, err := c.Incr(ctx.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limit counter unavailable", zap.Error(err))
			ctx.Next()
			return
		}
		if count == 1 {
			if err := c.Expire(ctx.Request.Context(), key, RateWindow); err != nil {
				logger.Warn("rate limit expiry failed", zap.Error(err))
			}
		}
		if count > RateLimit {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		ctx.Next()
	}
}
