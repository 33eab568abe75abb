package promptgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/workflow/prompt"
)

// Renderer 本地模板渲染器，相同输入总是得到相同输出
type Renderer struct {
	catalog  *catalog.Catalog
	registry *prompt.Registry
}

// NewRenderer 创建渲染器
func NewRenderer(cat *catalog.Catalog, registry *prompt.Registry) *Renderer {
	return &Renderer{catalog: cat, registry: registry}
}

// Render 渲染包含 Role/Context/Objective/Constraints/Output Format 的指令文档
func (r *Renderer) Render(ctx context.Context, in Input) (string, error) {
	res := resolve(r.catalog, in)
	msgs, err := r.registry.Format(ctx, prompt.PromptRefinedDocumentV1, map[string]any{
		"role_expertise":     res.Expertise,
		"persona":            res.Persona,
		"category":           res.CategoryLabel,
		"target_model":       res.TargetModel,
		"model_guidance":     res.modelNote(),
		"objective":          res.Objective,
		"tone_phrase":        ToneDescription(res.Tone),
		"category_guidance":  res.CategoryGuidance,
		"format":             res.Format,
		"format_instruction": res.FormatInstruction,
	})
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("refined document template produced no message")
	}
	return strings.TrimSpace(msgs[0].Content), nil
}

// MetaMessages 构造交给 LLM 改写的 system/user 消息对
func (r *Renderer) MetaMessages(ctx context.Context, in Input) ([]*schema.Message, error) {
	res := resolve(r.catalog, in)
	return r.registry.Format(ctx, prompt.PromptRefineMetaV1, map[string]any{
		"category":     res.CategoryLabel,
		"target_model": res.TargetModel,
		"format":       res.Format,
		"tone_phrase":  ToneDescription(res.Tone),
		"objective":    res.Objective,
		"persona":      res.Persona,
	})
}
