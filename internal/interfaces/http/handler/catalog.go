package handler

import (
	"github.com/gin-gonic/gin"

	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/interfaces/http/dto"
)

// CatalogHandler 向导目录
type CatalogHandler struct {
	resp *dto.CatalogResponse
}

// NewCatalogHandler 创建目录处理器；目录不可变，响应只构造一次
func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{resp: dto.ToCatalogResponse(cat)}
}

// Get 获取分类、模型与输出格式
// @Summary 向导目录
// @Tags Catalog
// @Produce json
// @Success 200 {object} dto.Response[dto.CatalogResponse]
// @Router /v1/catalog [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	dto.Success(c, h.resp)
}
