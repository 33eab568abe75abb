package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"refine-ai-api/internal/application/library"
	"refine-ai-api/internal/interfaces/http/dto"
	"refine-ai-api/pkg/logger"
)

// watchHeartbeat SSE 心跳间隔
const watchHeartbeat = 25 * time.Second

// LibraryHandler 提示历史、模板、偏好设置与账户数据
type LibraryHandler struct {
	library *library.Service
}

// NewLibraryHandler 创建资料库处理器
func NewLibraryHandler(svc *library.Service) *LibraryHandler {
	return &LibraryHandler{library: svc}
}

// ListPrompts 历史列表，按创建时间倒序
// @Summary 提示历史
// @Tags Prompts
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[[]entity.SavedPrompt]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/prompts [get]
func (h *LibraryHandler) ListPrompts(c *gin.Context) {
	res, err := h.library.ListPrompts(c.Request.Context(), dto.BindPage(c).Pagination())
	if err != nil {
		respondError(c, "failed to list prompts", err)
		return
	}
	dto.SuccessWithPage(c, res.Items, dto.PageMetaOf(res))
}

// SavePrompt 保存提示到历史
// @Summary 保存提示
// @Tags Prompts
// @Accept json
// @Produce json
// @Param body body dto.SavePromptRequest true "提示"
// @Success 201 {object} dto.Response[entity.SavedPrompt]
// @Router /v1/prompts [post]
func (h *LibraryHandler) SavePrompt(c *gin.Context) {
	var req dto.SavePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	p, err := h.library.SavePrompt(c.Request.Context(), req.ToEntity())
	if err != nil {
		respondError(c, "failed to save prompt", err)
		return
	}
	dto.Created(c, p)
}

// GetPrompt 获取一条历史
// @Summary 获取提示
// @Tags Prompts
// @Param id path string true "提示 ID"
// @Success 200 {object} dto.Response[entity.SavedPrompt]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/prompts/{id} [get]
func (h *LibraryHandler) GetPrompt(c *gin.Context) {
	p, err := h.library.GetPrompt(c.Request.Context(), dto.BindID(c))
	if err != nil {
		respondError(c, "failed to load prompt", err)
		return
	}
	dto.Success(c, p)
}

// DeletePrompt 删除一条历史
// @Summary 删除提示
// @Tags Prompts
// @Param id path string true "提示 ID"
// @Success 204
// @Router /v1/prompts/{id} [delete]
func (h *LibraryHandler) DeletePrompt(c *gin.Context) {
	if err := h.library.DeletePrompt(c.Request.Context(), dto.BindID(c)); err != nil {
		respondError(c, "failed to delete prompt", err)
		return
	}
	dto.NoContent(c)
}

// WatchPrompts 以 SSE 推送历史列表：连接时一次，之后每次变更一次
// @Summary 订阅提示历史
// @Tags Prompts
// @Produce text/event-stream
// @Success 200 "SSE stream"
// @Router /v1/prompts/watch [get]
func (h *LibraryHandler) WatchPrompts(c *gin.Context) {
	ch, err := h.library.WatchPrompts(c.Request.Context())
	if err != nil {
		respondError(c, "failed to watch prompts", err)
		return
	}
	streamList(c, "prompts", ch)
}

// ListTemplates 模板列表
// @Summary 模板列表
// @Tags Templates
// @Produce json
// @Success 200 {object} dto.Response[[]entity.PromptTemplate]
// @Router /v1/templates [get]
func (h *LibraryHandler) ListTemplates(c *gin.Context) {
	res, err := h.library.ListTemplates(c.Request.Context(), dto.BindPage(c).Pagination())
	if err != nil {
		respondError(c, "failed to list templates", err)
		return
	}
	dto.SuccessWithPage(c, res.Items, dto.PageMetaOf(res))
}

// SaveTemplate 保存模板
// @Summary 保存模板
// @Tags Templates
// @Accept json
// @Produce json
// @Param body body dto.SaveTemplateRequest true "模板"
// @Success 201 {object} dto.Response[entity.PromptTemplate]
// @Router /v1/templates [post]
func (h *LibraryHandler) SaveTemplate(c *gin.Context) {
	var req dto.SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	t, err := h.library.SaveTemplate(c.Request.Context(), req.ToEntity())
	if err != nil {
		respondError(c, "failed to save template", err)
		return
	}
	dto.Created(c, t)
}

// GetTemplate 获取模板
// @Summary 获取模板
// @Tags Templates
// @Param id path string true "模板 ID"
// @Success 200 {object} dto.Response[entity.PromptTemplate]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/templates/{id} [get]
func (h *LibraryHandler) GetTemplate(c *gin.Context) {
	t, err := h.library.GetTemplate(c.Request.Context(), dto.BindID(c))
	if err != nil {
		respondError(c, "failed to load template", err)
		return
	}
	dto.Success(c, t)
}

// DeleteTemplate 删除模板
// @Summary 删除模板
// @Tags Templates
// @Param id path string true "模板 ID"
// @Success 204
// @Router /v1/templates/{id} [delete]
func (h *LibraryHandler) DeleteTemplate(c *gin.Context) {
	if err := h.library.DeleteTemplate(c.Request.Context(), dto.BindID(c)); err != nil {
		respondError(c, "failed to delete template", err)
		return
	}
	dto.NoContent(c)
}

// WatchTemplates 以 SSE 推送模板列表
// @Summary 订阅模板列表
// @Tags Templates
// @Produce text/event-stream
// @Success 200 "SSE stream"
// @Router /v1/templates/watch [get]
func (h *LibraryHandler) WatchTemplates(c *gin.Context) {
	ch, err := h.library.WatchTemplates(c.Request.Context())
	if err != nil {
		respondError(c, "failed to watch templates", err)
		return
	}
	streamList(c, "templates", ch)
}

// GetSettings 读取偏好
// @Summary 偏好设置
// @Tags Settings
// @Success 200 {object} dto.Response[entity.UserSettings]
// @Router /v1/settings [get]
func (h *LibraryHandler) GetSettings(c *gin.Context) {
	st, err := h.library.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, "failed to load settings", err)
		return
	}
	dto.Success(c, st)
}

// UpdateSettings 部分更新偏好
// @Summary 更新偏好设置
// @Tags Settings
// @Accept json
// @Param body body dto.UpdateSettingsRequest true "偏好"
// @Success 200 {object} dto.Response[entity.UserSettings]
// @Router /v1/settings [patch]
func (h *LibraryHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	st, err := h.library.UpdateSettings(c.Request.Context(), req.Patch())
	if err != nil {
		respondError(c, "failed to update settings", err)
		return
	}
	dto.Success(c, st)
}

// ExportAccount 导出账户数据
// @Summary 导出账户数据
// @Tags Account
// @Produce json
// @Success 200 {object} entity.AccountExport
// @Router /v1/account/export [get]
func (h *LibraryHandler) ExportAccount(c *gin.Context) {
	export, err := h.library.ExportAccount(c.Request.Context())
	if err != nil {
		respondError(c, "failed to export account", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="refine-ai-export.json"`)
	c.JSON(200, export)
}

// DeleteAccount 删除账户及全部数据
// @Summary 删除账户
// @Tags Account
// @Success 204
// @Router /v1/account [delete]
func (h *LibraryHandler) DeleteAccount(c *gin.Context) {
	if err := h.library.DeleteAccount(c.Request.Context()); err != nil {
		respondError(c, "failed to delete account", err)
		return
	}
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", false, true)
	dto.NoContent(c)
}

// streamList 将列表快照写为 SSE 事件，直到通道关闭或客户端断开
func streamList[T any](c *gin.Context, event string, ch <-chan []T) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(watchHeartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case items, ok := <-ch:
			if !ok {
				return false
			}
			if items == nil {
				items = []T{}
			}
			c.SSEvent(event, items)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-ctx.Done():
			logger.Debug(ctx, "watch client disconnected", "event", event)
			return false
		}
	})
}
