package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agentforge/llm-gateway/pkg/api"
)

// RateLimit applies a per-client-IP token bucket to the inbound surface.
// Outbound per-endpoint limiting lives in the dispatcher; this only guards
// the gateway itself.
func RateLimit(rps float64, burst int, logger *zap.Logger) gin.HandlerFunc {
	var (
		mu       sync.RWMutex
		limiters = make(map[string]*rate.Limiter)
	)

	getLimiter := func(ip string) *rate.Limiter {
		mu.RLock()
		limiter, exists := limiters[ip]
		mu.RUnlock()
		if exists {
			return limiter
		}

		mu.Lock()
		defer mu.Unlock()
		if limiter, exists = limiters[ip]; exists {
			return limiter
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
		limiters[ip] = limiter
		return limiter
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !getLimiter(ip).Allow() {
			logger.Warn("rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				api.NewError(http.StatusTooManyRequests, "Rate Limit Exceeded", "Too many requests"))
			return
		}
		c.Next()
	}
}
