// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"refine-ai-api/internal/domain/service"
	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/utils"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret JWT 密钥
	Secret string
	// Issuer JWT 签发者
	Issuer string
}

// OptionalAuth 携带访问令牌时解析身份并写入请求上下文；未携带时匿名放行，令牌无效时拒绝
func OptionalAuth(cfg AuthConfig) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, apperrors.ErrTokenInvalid.WithDetail("invalid authorization format"))
			return
		}

		claims, err := jwtManager.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				abortUnauthorized(c, apperrors.ErrTokenExpired)
				return
			}
			abortUnauthorized(c, apperrors.ErrTokenInvalid)
			return
		}
		if claims.Type != utils.TokenTypeAccess {
			abortUnauthorized(c, apperrors.ErrTokenInvalid.WithDetail("invalid token type"))
			return
		}

		c.Set("user_id", claims.UserID)
		ctx := service.WithIdentity(c.Request.Context(), service.Identity{
			UserID: claims.UserID,
			Email:  claims.Email,
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireAuth 要求已认证身份，须位于 OptionalAuth 之后
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := service.IdentityFromContext(c.Request.Context()); !ok {
			abortUnauthorized(c, apperrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// GetUserIDFromGin 当前用户 ID，匿名时为空
func GetUserIDFromGin(c *gin.Context) string {
	return c.GetString("user_id")
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": err.Message,
		"error": gin.H{
			"error_code": err.Code,
			"details":    err.Detail,
		},
		"trace_id": c.GetString("trace_id"),
	})
}
