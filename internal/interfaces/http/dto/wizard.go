package dto

import (
	"fmt"
	"time"

	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/application/wizard"
	"refine-ai-api/internal/domain/catalog"
)

// SelectCategoryRequest 选择分类
type SelectCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

// UpdateFieldRequest 修改单个字段
type UpdateFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value any    `json:"value"`
}

// WizardField 字段名，兼容 snake_case 写法
func (r UpdateFieldRequest) WizardField() wizard.Field {
	if r.Field == "target_model" {
		return wizard.FieldTargetModel
	}
	return wizard.Field(r.Field)
}

// LoadParamsRequest 按深链接参数预填
type LoadParamsRequest struct {
	Category  string `json:"category"`
	Objective string `json:"objective"`
	Persona   string `json:"persona"`
	Model     string `json:"model"`
	Format    string `json:"format"`
	Tone      any    `json:"tone"`
}

// Params 转换为向导参数
func (r LoadParamsRequest) Params() wizard.Params {
	p := wizard.Params{
		Category:  r.Category,
		Objective: r.Objective,
		Persona:   r.Persona,
		Model:     r.Model,
		Format:    r.Format,
	}
	if r.Tone != nil {
		p.Tone = fmt.Sprint(r.Tone)
	}
	return p
}

// LoadTemplateRequest 载入模板
type LoadTemplateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// LoadPromptRequest 载入历史提示
type LoadPromptRequest struct {
	PromptID string `json:"prompt_id" binding:"required"`
}

// SaveSessionTemplateRequest 将当前会话配置保存为模板
type SaveSessionTemplateRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"max=2000"`
}

// WizardSessionResponse 向导会话
type WizardSessionResponse struct {
	ID                 string            `json:"id"`
	Step               int               `json:"step"`
	StepName           string            `json:"step_name"`
	Category           *catalog.Category `json:"category,omitempty"`
	Objective          string            `json:"objective"`
	Persona            string            `json:"persona"`
	TargetModel        catalog.Model     `json:"target_model"`
	Format             string            `json:"format"`
	Tone               int               `json:"tone"`
	ToneLabel          string            `json:"tone_label"`
	RefinedOutput      string            `json:"refined_output"`
	HasGenerated       bool              `json:"has_generated"`
	ConfigChanged      bool              `json:"config_changed"`
	PersonaSuggestions []string          `json:"persona_suggestions"`
	Placeholder        string            `json:"placeholder"`
	CanAdvance         bool              `json:"can_advance"`
	NeedsGeneration    bool              `json:"needs_generation"`
	SavedPromptID      string            `json:"saved_prompt_id,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ToWizardSessionResponse 转换会话视图
func ToWizardSessionResponse(v *wizard.View) *WizardSessionResponse {
	if v == nil || v.Session == nil {
		return nil
	}
	st := v.Session.State
	return &WizardSessionResponse{
		ID:                 v.Session.ID,
		Step:               int(st.Step),
		StepName:           st.Step.String(),
		Category:           v.Category,
		Objective:          st.Objective,
		Persona:            st.Persona,
		TargetModel:        v.TargetModel,
		Format:             st.Format,
		Tone:               st.Tone,
		ToneLabel:          string(promptgen.BucketOf(st.Tone)),
		RefinedOutput:      st.RefinedOutput,
		HasGenerated:       st.HasGenerated,
		ConfigChanged:      st.ConfigChanged,
		PersonaSuggestions: v.PersonaSuggestions,
		Placeholder:        v.Placeholder,
		CanAdvance:         v.CanAdvance,
		NeedsGeneration:    v.NeedsGeneration,
		SavedPromptID:      v.Session.SavedPromptID,
		CreatedAt:          v.Session.CreatedAt,
		UpdatedAt:          v.Session.UpdatedAt,
	}
}

// WizardGenerateResponse 会话内生成结果
type WizardGenerateResponse struct {
	Session       *WizardSessionResponse `json:"session"`
	RefinedPrompt string                 `json:"refined_prompt"`
	Source        string                 `json:"source"`
	SavedPromptID string                 `json:"saved_prompt_id,omitempty"`
}

// ToWizardGenerateResponse 转换生成结果
func ToWizardGenerateResponse(r *wizard.GenerateResult) *WizardGenerateResponse {
	if r == nil {
		return nil
	}
	resp := &WizardGenerateResponse{
		Session:       ToWizardSessionResponse(r.View),
		SavedPromptID: r.SavedPromptID,
	}
	if r.Output != nil {
		resp.RefinedPrompt = r.Output.Text
		resp.Source = r.Output.Source
	}
	return resp
}
