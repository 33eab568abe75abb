package node

import (
	"context"
	"errors"
	"strings"
)

// IsProviderConfigError 判断错误是否源于提供商配置（缺少或无效的凭证、未知模型）
func IsProviderConfigError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api_key is empty"):
		return true
	case strings.Contains(msg, "api key"):
		return true
	case strings.Contains(msg, "not found in llm config"):
		return true
	case strings.Contains(msg, "unsupported provider type"):
		return true
	case strings.Contains(msg, "401") && strings.Contains(msg, "unauthorized"):
		return true
	case strings.Contains(msg, "invalid_api_key"):
		return true
	case strings.Contains(msg, "authentication_error"):
		return true
	default:
		return false
	}
}

// IsTimeoutError 判断错误是否为超时
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout")
}
