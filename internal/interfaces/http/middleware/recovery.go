// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
)

// Recovery Panic 恢复中间件。响应已开始写出（流式输出）时只终止请求
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", rec),
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":     http.StatusInternalServerError,
				"message":  apperrors.ErrInternalError.Message,
				"error":    gin.H{"error_code": apperrors.CodeInternalError},
				"trace_id": c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}
