package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"refine-ai-api/internal/config"
	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// KeyFunc 由限流主体与接口名构造限流键
type KeyFunc func(subject, endpoint string) string

// RateLimit 滑动窗口限流中间件。已登录按用户计数，匿名按客户端 IP 计数
func RateLimit(cfg config.RateLimitConfig, limiter RateLimiter, endpoint string, key KeyFunc) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return func(c *gin.Context) {
		subject := GetUserIDFromGin(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}

		allowed, err := limiter.Allow(c.Request.Context(), key(subject, endpoint), cfg.Limit, cfg.Window)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "endpoint", endpoint, "error", err.Error())
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": apperrors.ErrTooManyRequests.Message,
				"error": gin.H{
					"error_code": apperrors.CodeTooManyRequests,
				},
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}
