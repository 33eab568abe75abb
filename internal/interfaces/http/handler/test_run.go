package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"refine-ai-api/internal/application/testrun"
	"refine-ai-api/internal/interfaces/http/dto"
	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
)

const textPlainUTF8 = "text/plain; charset=utf-8"

// TestRunHandler 试运行接口
type TestRunHandler struct {
	runner *testrun.Runner
}

// NewTestRunHandler 创建试运行处理器
func NewTestRunHandler(runner *testrun.Runner) *TestRunHandler {
	return &TestRunHandler{runner: runner}
}

// TestRun 将精炼提示交给配置的模型，以分块 text/plain 返回输出
// @Summary 试运行
// @Description 图像生成请求返回 200 与 refused 提示；首个片段前失败返回 502/503；中途失败在末尾追加错误标记
// @Tags Generate
// @Accept json
// @Produce plain
// @Param body body dto.TestRunRequest true "试运行参数"
// @Success 200 {string} string "chunked text"
// @Failure 400 {object} dto.ContractError
// @Failure 502 {object} dto.ContractError
// @Failure 503 {object} dto.ContractError
// @Router /api/test-run [post]
func (h *TestRunHandler) TestRun(c *gin.Context) {
	var req dto.TestRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondContractError(c, "invalid test run request", apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}
	streamTestRun(c, h.runner, req.Request())
}

// streamTestRun 首个片段到达时才写出响应头，因此首个片段之前的失败仍可返回 JSON 错误
func streamTestRun(c *gin.Context, runner *testrun.Runner, req testrun.Request) {
	ctx := c.Request.Context()
	started := false

	_, err := runner.Run(ctx, req, func(chunk string) error {
		if !started {
			started = true
			c.Header("Content-Type", textPlainUTF8)
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Content-Type-Options", "nosniff")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})

	switch {
	case errors.Is(err, testrun.ErrRefused):
		c.JSON(http.StatusOK, dto.NewTestRunRefusal())
	case started:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn(ctx, "test run stream ended with error", "error", err.Error())
		}
	case err != nil:
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		respondContractError(c, "test run failed", err)
	default:
		c.Data(http.StatusOK, textPlainUTF8, nil)
	}
}
