package handler

import (
	"github.com/gin-gonic/gin"

	"refine-ai-api/internal/application/testrun"
	"refine-ai-api/internal/application/wizard"
	"refine-ai-api/internal/interfaces/http/dto"
)

// WizardHandler 基于会话的向导
type WizardHandler struct {
	wizard *wizard.Service
	runner *testrun.Runner
}

// NewWizardHandler 创建向导处理器
func NewWizardHandler(svc *wizard.Service, runner *testrun.Runner) *WizardHandler {
	return &WizardHandler{wizard: svc, runner: runner}
}

// Create 创建会话
// @Summary 创建向导会话
// @Description 查询参数 category/objective/persona/model/format/tone 预填并跳到第二步；templateId 载入模板；remixId 载入历史提示
// @Tags Wizard
// @Produce json
// @Param category query string false "分类 id 或名称"
// @Param objective query string false "目标"
// @Param templateId query string false "模板 ID（需登录）"
// @Param remixId query string false "历史提示 ID（需登录）"
// @Success 201 {object} dto.Response[dto.WizardSessionResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/wizard/sessions [post]
func (h *WizardHandler) Create(c *gin.Context) {
	var req wizard.CreateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		dto.BadRequest(c, "invalid query: "+err.Error())
		return
	}

	view, err := h.wizard.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, "failed to create wizard session", err)
		return
	}
	dto.Created(c, dto.ToWizardSessionResponse(view))
}

// Get 获取会话
// @Summary 获取向导会话
// @Tags Wizard
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.WizardSessionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/wizard/sessions/{sid} [get]
func (h *WizardHandler) Get(c *gin.Context) {
	view, err := h.wizard.Get(c.Request.Context(), dto.BindSessionID(c))
	h.respond(c, "failed to load wizard session", view, err)
}

// Delete 删除会话
// @Summary 删除向导会话
// @Tags Wizard
// @Param sid path string true "会话 ID"
// @Success 204
// @Router /v1/wizard/sessions/{sid} [delete]
func (h *WizardHandler) Delete(c *gin.Context) {
	if err := h.wizard.Delete(c.Request.Context(), dto.BindSessionID(c)); err != nil {
		respondError(c, "failed to delete wizard session", err)
		return
	}
	dto.NoContent(c)
}

// SelectCategory 选择分类并进入第二步
// @Summary 选择分类
// @Tags Wizard
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.SelectCategoryRequest true "分类"
// @Success 200 {object} dto.Response[dto.WizardSessionResponse]
// @Router /v1/wizard/sessions/{sid}/category [post]
func (h *WizardHandler) SelectCategory(c *gin.Context) {
	var req dto.SelectCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	view, err := h.wizard.SelectCategory(c.Request.Context(), dto.BindSessionID(c), req.Category)
	h.respond(c, "failed to select category", view, err)
}

// Next 无条件前进一步（最后一步保持不变）
// @Summary 下一步
// @Tags Wizard
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.WizardSessionResponse]
// @Router /v1/wizard/sessions/{sid}/next [post]
func (h *WizardHandler) Next(c *gin.Context) {
	view, err := h.wizard.Next(c.Request.Context(), dto.BindSessionID(c))
	h.respond(c, "failed to advance wizard", view, err)
}

// Advance 校验当前步骤后前进
// @Summary 校验并前进
// @Tags Wizard
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.WizardSessionResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/wizard/sessions/{sid}/advance [post]
func (h *WizardHandler) Advance(c *gin.Context) {
	view, err := h.wizard.Advance(c.Request.Context(), dto.BindSessionID(c))
	h.respond(c, "failed to advance wizard", view, err)
}

// Prev 后退一步（第一步保持不变）
// @Summary 上一步
// @Tags Wizard
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.WizardSessionResponse]
// @Router /v1/wizard/sessions/{sid}/prev [post]
func (h *WizardHandler) Prev(c *gin.Context) {
	view, err := h.wizard.Prev(c.Request.Context(), dto.BindSessionID(c))
	h.respond(c, "failed to step back", view, err)
}

// UpdateField 修改单个字段
// @Summary 修改字段
// @Description field 取 category/objective/persona/targetModel/format/tone
// @Tags Wizard
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.UpdateFieldRequest true "字段与值"
// @Success 200 {object} dto.Response[dto.WizardSessionResponse]
// @Router /v1/wizard/sessions/{sid}/fields [patch]
func (h *WizardHandler) UpdateField(c *gin.Context) {
	var req dto.UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	view, err := h.wizard.UpdateField(c.Request.Context(), dto.BindSessionID(c), req.WizardField(), req.Value)
	h.respond(c, "failed to update field", view, err)
}

// Reset 回到初始状态
// @Summary 重置会话
// @Tags Wizard
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.WizardSessionResponse]
// @Router /v1/wizard/sessions/{sid}/reset [post]
func (h *WizardHandler) Reset(c *gin.Context) {
	view, err := h.wizard.Reset(c.Request.Context(), dto.BindSessionID(c))
	h.respond(c, "failed to reset wizard", view, err)
}

// LoadParams 按深链接参数预填
// @Summary 载入参数
// @Tags Wizard
// @Accept json
// @Param sid path string true "会话 ID"
// @Param body body dto.LoadParamsRequest true "参数"
// @Success 200 {object} dto.Response[dto.WizardSessionResponse]
// @Router /v1/wizard/sessions/{sid}/load [post]
func (h *WizardHandler) LoadParams(c *gin.Context) {
	var req dto.LoadParamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	view, err := h.wizard.LoadParams(c.Request.Context(), dto.BindSessionID(c), req.Params())
	h.respond(c, "failed to load params", view, err)
}

// LoadTemplate 载入已保存的模板
// @Summary 载入模板
// @Tags Wizard
// @Accept json
// @Param sid path string true "会话 ID"
// @Param body body dto.LoadTemplateRequest true "模板"
// @Success 200 {object} dto.Response[dto.WizardSessionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/wizard/sessions/{sid}/load-template [post]
func (h *WizardHandler) LoadTemplate(c *gin.Context) {
	var req dto.LoadTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	view, err := h.wizard.LoadTemplate(c.Request.Context(), dto.BindSessionID(c), req.TemplateID)
	h.respond(c, "failed to load template", view, err)
}

// LoadPrompt 载入历史提示（remix）
// @Summary 载入历史提示
// @Tags Wizard
// @Accept json
// @Param sid path string true "会话 ID"
// @Param body body dto.LoadPromptRequest true "历史提示"
// @Success 200 {object} dto.Response[dto.WizardSessionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/wizard/sessions/{sid}/load-prompt [post]
func (h *WizardHandler) LoadPrompt(c *gin.Context) {
	var req dto.LoadPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	view, err := h.wizard.LoadPrompt(c.Request.Context(), dto.BindSessionID(c), req.PromptID)
	h.respond(c, "failed to load prompt", view, err)
}

// Generate 生成精炼提示；同一会话的并发请求共享一次生成
// @Summary 会话内生成
// @Tags Wizard
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.WizardGenerateResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse
// @Router /v1/wizard/sessions/{sid}/generate [post]
func (h *WizardHandler) Generate(c *gin.Context) {
	res, err := h.wizard.Generate(c.Request.Context(), dto.BindSessionID(c))
	if err != nil {
		respondError(c, "wizard generation failed", err)
		return
	}
	dto.Success(c, dto.ToWizardGenerateResponse(res))
}

// SaveTemplate 将当前配置保存为模板
// @Summary 保存为模板
// @Tags Wizard
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.SaveSessionTemplateRequest true "模板名称"
// @Success 201 {object} dto.Response[entity.PromptTemplate]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/wizard/sessions/{sid}/templates [post]
func (h *WizardHandler) SaveTemplate(c *gin.Context) {
	var req dto.SaveSessionTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	tpl, err := h.wizard.SaveTemplate(c.Request.Context(), dto.BindSessionID(c), req.Name, req.Description)
	if err != nil {
		respondError(c, "failed to save template", err)
		return
	}
	dto.Created(c, tpl)
}

// TestRun 试运行会话中的结果
// @Summary 会话内试运行
// @Tags Wizard
// @Produce plain
// @Param sid path string true "会话 ID"
// @Success 200 {string} string "chunked text"
// @Router /v1/wizard/sessions/{sid}/test-run [post]
func (h *WizardHandler) TestRun(c *gin.Context) {
	req, err := h.wizard.TestRunRequest(c.Request.Context(), dto.BindSessionID(c))
	if err != nil {
		respondContractError(c, "failed to prepare test run", err)
		return
	}
	streamTestRun(c, h.runner, req)
}

func (h *WizardHandler) respond(c *gin.Context, msg string, view *wizard.View, err error) {
	if err != nil {
		respondError(c, msg, err)
		return
	}
	dto.Success(c, dto.ToWizardSessionResponse(view))
}
