package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Varaprasad-34/college-job-portal/internal/pkg/metrics"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/ratelimit"
)

// RateLimit 按客户端 IP 限制未认证接口（注册/登录）的请求速率。
//
// 限流器故障时放行（fail open），只记录日志。
func RateLimit(limiter *ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil && logger != nil {
			logger.Warn("rate limit check failed", slog.String("error", err.Error()))
		}
		if !ok {
			if metrics.AuthRateLimitedTotal != nil {
				metrics.AuthRateLimitedTotal.Inc()
			}
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "too many requests, try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}
