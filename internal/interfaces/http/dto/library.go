package dto

import (
	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/domain/entity"
)

// SavePromptRequest 保存提示到历史
type SavePromptRequest struct {
	Category      string   `json:"category" binding:"max=64"`
	Objective     string   `json:"objective"`
	Persona       string   `json:"persona"`
	TargetModel   string   `json:"target_model" binding:"max=128"`
	Format        string   `json:"format" binding:"max=64"`
	Tone          *int     `json:"tone"`
	RefinedOutput string   `json:"refined_output" binding:"required"`
	Tags          []string `json:"tags"`
}

// ToEntity 转换为实体
func (r SavePromptRequest) ToEntity() *entity.SavedPrompt {
	tone := promptgen.DefaultTone
	if r.Tone != nil {
		tone = *r.Tone
	}
	return &entity.SavedPrompt{
		Category:      r.Category,
		Objective:     r.Objective,
		Persona:       r.Persona,
		TargetModel:   r.TargetModel,
		Format:        r.Format,
		Tone:          tone,
		RefinedOutput: r.RefinedOutput,
		Tags:          r.Tags,
	}
}

// TemplateConstraintsRequest 模板约束
type TemplateConstraintsRequest struct {
	Model  string `json:"model"`
	Format string `json:"format"`
	Tone   *int   `json:"tone"`
}

// SaveTemplateRequest 保存模板
type SaveTemplateRequest struct {
	Name        string                     `json:"name" binding:"required,max=255"`
	Description string                     `json:"description" binding:"max=2000"`
	Category    string                     `json:"category" binding:"required"`
	Persona     string                     `json:"persona"`
	Constraints TemplateConstraintsRequest `json:"constraints"`
}

// ToEntity 转换为实体
func (r SaveTemplateRequest) ToEntity() *entity.PromptTemplate {
	tone := promptgen.DefaultTone
	if r.Constraints.Tone != nil {
		tone = *r.Constraints.Tone
	}
	return &entity.PromptTemplate{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Persona:     r.Persona,
		Constraints: entity.TemplateConstraints{
			Model:  r.Constraints.Model,
			Format: r.Constraints.Format,
			Tone:   tone,
		},
	}
}

// UpdateSettingsRequest 部分更新偏好，省略的字段保持不变
type UpdateSettingsRequest struct {
	DefaultModel *string `json:"default_model"`
	DefaultTone  *int    `json:"default_tone"`
	Theme        *string `json:"theme"`
}

// Patch 转换为设置补丁
func (r UpdateSettingsRequest) Patch() entity.SettingsPatch {
	p := entity.SettingsPatch{
		DefaultModel: r.DefaultModel,
		DefaultTone:  r.DefaultTone,
	}
	if r.Theme != nil {
		theme := entity.Theme(*r.Theme)
		p.Theme = &theme
	}
	return p
}
