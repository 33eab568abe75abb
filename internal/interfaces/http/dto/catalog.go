package dto

import (
	"refine-ai-api/internal/domain/catalog"
)

// CatalogResponse 向导目录
type CatalogResponse struct {
	Categories          []catalog.Category       `json:"categories"`
	Models              []catalog.ProviderModels `json:"models"`
	Formats             []string                 `json:"formats"`
	DefaultModel        string                   `json:"default_model"`
	DefaultFormat       string                   `json:"default_format"`
	FallbackPlaceholder string                   `json:"fallback_placeholder"`
}

// ToCatalogResponse 转换目录
func ToCatalogResponse(c *catalog.Catalog) *CatalogResponse {
	formats := c.Formats()
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, f.Name)
	}
	return &CatalogResponse{
		Categories:          c.Categories(),
		Models:              c.ModelsByProvider(),
		Formats:             names,
		DefaultModel:        c.DefaultModel().Name,
		DefaultFormat:       c.DefaultFormat(),
		FallbackPlaceholder: c.FallbackPlaceholder,
	}
}
