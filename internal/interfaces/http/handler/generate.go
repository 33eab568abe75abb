package handler

import (
	"github.com/gin-gonic/gin"

	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/interfaces/http/dto"
	apperrors "refine-ai-api/pkg/errors"
)

// GenerateHandler 无状态生成接口
type GenerateHandler struct {
	generator *promptgen.Generator
}

// NewGenerateHandler 创建生成处理器
func NewGenerateHandler(generator *promptgen.Generator) *GenerateHandler {
	return &GenerateHandler{generator: generator}
}

// GeneratePrompt 根据表单字段生成精炼提示
// @Summary 生成精炼提示
// @Description tone 可为数字或数字字符串，缺失时为 50，并限制在 0 到 100
// @Tags Generate
// @Accept json
// @Produce json
// @Param body body dto.GeneratePromptRequest true "生成参数"
// @Success 200 {object} dto.GeneratePromptResponse
// @Failure 400 {object} dto.ContractError
// @Failure 500 {object} dto.ContractError
// @Failure 504 {object} dto.ContractError
// @Router /api/generate-prompt [post]
func (h *GenerateHandler) GeneratePrompt(c *gin.Context) {
	var req dto.GeneratePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondContractError(c, "invalid generate request", apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	out, err := h.generator.Generate(c.Request.Context(), req.Input())
	if err != nil {
		respondContractError(c, "prompt generation failed", err)
		return
	}

	c.JSON(200, dto.GeneratePromptResponse{
		RefinedPrompt: out.Text,
		Success:       true,
		Source:        out.Source,
	})
}
