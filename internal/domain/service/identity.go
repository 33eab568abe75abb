package service

import (
	"context"

	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
)

type identityCtxKey struct{}

// Identity 当前请求的已认证用户
type Identity struct {
	UserID string
	Email  string
}

// WithIdentity 将身份写入上下文，同时供日志使用
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if id.UserID == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, identityCtxKey{}, id)
	return logger.WithContext(ctx, logger.UserIDKey, id.UserID)
}

// IdentityFromContext 读取身份
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// RequireIdentity 读取身份，缺失时返回未认证错误
func RequireIdentity(ctx context.Context) (Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return Identity{}, apperrors.ErrUnauthorized
	}
	return id, nil
}
