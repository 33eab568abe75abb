package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"refine-ai-api/internal/interfaces/http/dto"
	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
)

// respondError 按应用错误码返回错误，服务端错误先记录日志
func respondError(c *gin.Context, msg string, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError || appErr.HTTPStatus == 0 {
		logger.Error(c.Request.Context(), msg, err)
	}
	dto.AppError(c, appErr)
}

// respondContractError 生成与试运行接口的错误体 {error, details, success:false}
func respondContractError(c *gin.Context, msg string, err error) {
	appErr := apperrors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), msg, err)
	}
	c.JSON(status, dto.ContractError{
		Error:   appErr.Message,
		Details: appErr.Detail,
		Success: false,
	})
}
