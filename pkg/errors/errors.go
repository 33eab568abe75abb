// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 认证授权错误 (2xxx)
	CodeTokenExpired       ErrorCode = "2001"
	CodeTokenInvalid       ErrorCode = "2002"
	CodeTokenMissing       ErrorCode = "2003"
	CodeInvalidCredentials ErrorCode = "2004"
	CodeEmailTaken         ErrorCode = "2005"

	// 资源错误 (3xxx)
	CodeTemplateNotFound ErrorCode = "3001"
	CodePromptNotFound   ErrorCode = "3002"
	CodeSessionNotFound  ErrorCode = "3003"
	CodeUserNotFound     ErrorCode = "3004"

	// 业务错误 (4xxx)
	CodeWizardValidation  ErrorCode = "4001"
	CodeGenerationFailed  ErrorCode = "4002"
	CodeGenerationTimeout ErrorCode = "4003"
	CodeTestRunFailed     ErrorCode = "4004"
	CodeTestRunTimeout    ErrorCode = "4005"
	CodeLLMCallFailed     ErrorCode = "4006"
	CodeLLMNotConfigured  ErrorCode = "4007"
	CodeSessionConflict   ErrorCode = "4008"

	// 外部服务错误 (5xxx)
	CodeDatabaseError    ErrorCode = "5001"
	CodeCacheError       ErrorCode = "5002"
	CodeStreamError      ErrorCode = "5003"
	CodeLLMProviderError ErrorCode = "5004"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使预定义错误可用于 errors.Is
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail 返回附带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeTokenExpired, CodeTokenInvalid, CodeTokenMissing, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeTemplateNotFound, CodePromptNotFound, CodeSessionNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeEmailTaken, CodeSessionConflict:
		return http.StatusConflict
	case CodeWizardValidation:
		return http.StatusUnprocessableEntity
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodeLLMNotConfigured:
		return http.StatusServiceUnavailable
	case CodeTestRunFailed, CodeLLMProviderError:
		return http.StatusBadGateway
	case CodeGenerationTimeout, CodeTestRunTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized       = New(CodeUnauthorized, "unauthenticated")
	ErrForbidden          = New(CodeForbidden, "forbidden")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrTokenExpired       = New(CodeTokenExpired, "token expired")
	ErrTokenInvalid       = New(CodeTokenInvalid, "token invalid")
	ErrTokenMissing       = New(CodeTokenMissing, "token missing")
	ErrInvalidCredentials = New(CodeInvalidCredentials, "invalid email or password")
	ErrEmailTaken         = New(CodeEmailTaken, "email already registered")

	ErrTemplateNotFound = New(CodeTemplateNotFound, "template not found")
	ErrPromptNotFound   = New(CodePromptNotFound, "saved prompt not found")
	ErrSessionNotFound  = New(CodeSessionNotFound, "wizard session not found")
	ErrUserNotFound     = New(CodeUserNotFound, "user not found")

	ErrWizardValidation  = New(CodeWizardValidation, "wizard step is incomplete")
	ErrGenerationFailed  = New(CodeGenerationFailed, "Failed to generate prompt")
	ErrGenerationTimeout = New(CodeGenerationTimeout, "prompt generation timed out")
	ErrTestRunFailed     = New(CodeTestRunFailed, "test run failed")
	ErrTestRunTimeout    = New(CodeTestRunTimeout, "test run timed out")
	ErrLLMCallFailed     = New(CodeLLMCallFailed, "LLM call failed")
	ErrLLMNotConfigured  = New(CodeLLMNotConfigured, "LLM provider not configured")
	ErrSessionConflict   = New(CodeSessionConflict, "wizard session was modified concurrently")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// Is 透传标准库 errors.Is
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
