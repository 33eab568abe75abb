// Package testrun 将精炼后的提示交给配置的模型试运行，并以流的形式返回结果
package testrun

import (
	"strings"

	"refine-ai-api/internal/domain/catalog"
)

// RefusalNotice 图像生成请求的提示语
const RefusalNotice = "Image generation test runs are not supported yet"

// imageCategoryID 图像生成分类
const imageCategoryID = "art"

var imageKeywords = []string{"image", "picture", "photo"}

// Request 试运行请求
type Request struct {
	Prompt    string `json:"prompt"`
	Objective string `json:"objective"`
	// Category 与 TargetModel 仅用于拒绝判断，可为空
	Category    string `json:"category,omitempty"`
	TargetModel string `json:"targetModel,omitempty"`
}

// IsImageRequest 请求是否面向图像生成：图像分类、图像模型，或目标包含关键词（不区分大小写）
func IsImageRequest(cat *catalog.Catalog, req Request) bool {
	if c, ok := cat.CategoryByIDOrLabel(req.Category); ok && c.ID == imageCategoryID {
		return true
	}
	if m, ok := cat.ModelByIDOrName(req.TargetModel); ok && m.IsImage() {
		return true
	}
	objective := strings.ToLower(req.Objective)
	for _, kw := range imageKeywords {
		if strings.Contains(objective, kw) {
			return true
		}
	}
	return false
}
