// Package wizard 实现四步提示向导：状态机与基于会话的应用服务
package wizard

import (
	"fmt"
	"strings"

	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/domain/entity"
	apperrors "refine-ai-api/pkg/errors"
)

// Step 向导步骤
type Step int

const (
	StepCategory Step = iota + 1
	StepObjective
	StepPersona
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepCategory:
		return "category"
	case StepObjective:
		return "objective"
	case StepPersona:
		return "persona"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

func clampStep(s Step) Step {
	if s < StepCategory {
		return StepCategory
	}
	if s > StepReview {
		return StepReview
	}
	return s
}

// Field 可由 UpdateField 修改的字段
type Field string

const (
	FieldCategory    Field = "category"
	FieldObjective   Field = "objective"
	FieldPersona     Field = "persona"
	FieldTargetModel Field = "targetModel"
	FieldFormat      Field = "format"
	FieldTone        Field = "tone"
)

// constraint 生成后修改会标记 configChanged 的字段
func (f Field) constraint() bool {
	return f == FieldTargetModel || f == FieldFormat || f == FieldTone
}

// State 可序列化的向导状态
type State struct {
	Step          Step   `json:"currentStep"`
	CategoryID    string `json:"categoryId,omitempty"`
	Objective     string `json:"objective"`
	Persona       string `json:"persona"`
	TargetModelID string `json:"targetModelId"`
	Format        string `json:"format"`
	Tone          int    `json:"tone"`
	RefinedOutput string `json:"refinedOutput"`
	HasGenerated  bool   `json:"hasGenerated"`
	ConfigChanged bool   `json:"configChanged"`
}

// InitialState 初始状态：无分类、默认模型、Markdown、语气 50、第一步
func InitialState(cat *catalog.Catalog) State {
	return State{
		Step:          StepCategory,
		TargetModelID: cat.DefaultModel().ID,
		Format:        cat.DefaultFormat(),
		Tone:          promptgen.DefaultTone,
	}
}

// Params 深链接查询参数
type Params struct {
	Category  string `form:"category" json:"category"`
	Objective string `form:"objective" json:"objective"`
	Persona   string `form:"persona" json:"persona"`
	Model     string `form:"model" json:"model"`
	Format    string `form:"format" json:"format"`
	Tone      string `form:"tone" json:"tone"`
}

// Machine 向导状态机。只做边界钳制，步骤门禁由 CanAdvance/Advance 提供
type Machine struct {
	catalog *catalog.Catalog
	state   State
}

// New 创建处于初始状态的状态机
func New(cat *catalog.Catalog) *Machine {
	return &Machine{catalog: cat, state: InitialState(cat)}
}

// Restore 从快照恢复，修正越界或失效的字段
func Restore(cat *catalog.Catalog, s State) *Machine {
	m := &Machine{catalog: cat, state: s}
	m.state.Step = clampStep(s.Step)
	m.state.Tone = promptgen.ClampTone(s.Tone)
	if _, ok := cat.Category(s.CategoryID); !ok {
		m.state.CategoryID = ""
	}
	if _, ok := cat.ModelByIDOrName(s.TargetModelID); !ok {
		m.state.TargetModelID = cat.DefaultModel().ID
	}
	if !cat.IsFormat(s.Format) {
		m.state.Format = cat.DefaultFormat()
	}
	if !m.state.HasGenerated {
		m.state.ConfigChanged = false
	}
	return m
}

// Snapshot 当前状态的副本
func (m *Machine) Snapshot() State {
	return m.state
}

// Step 当前步骤
func (m *Machine) Step() Step {
	return m.state.Step
}

// Category 当前分类
func (m *Machine) Category() (catalog.Category, bool) {
	if m.state.CategoryID == "" {
		return catalog.Category{}, false
	}
	return m.catalog.Category(m.state.CategoryID)
}

// TargetModel 当前目标模型
func (m *Machine) TargetModel() catalog.Model {
	if model, ok := m.catalog.ModelByIDOrName(m.state.TargetModelID); ok {
		return model
	}
	return m.catalog.DefaultModel()
}

// SelectCategory 选择分类并无条件跳到第二步
func (m *Machine) SelectCategory(id string) error {
	c, ok := m.catalog.CategoryByIDOrLabel(id)
	if !ok {
		return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown category %q", id))
	}
	m.state.CategoryID = c.ID
	m.state.Step = StepObjective
	return nil
}

// NextStep 前进一步，在第四步钳制
func (m *Machine) NextStep() {
	m.state.Step = clampStep(m.state.Step + 1)
}

// PrevStep 后退一步，在第一步钳制
func (m *Machine) PrevStep() {
	m.state.Step = clampStep(m.state.Step - 1)
}

// UpdateField 设置单个字段。生成后修改模型、格式或语气会标记 configChanged，
// 修改目标与人设不会
func (m *Machine) UpdateField(field Field, value any) error {
	switch field {
	case FieldCategory:
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		c, ok := m.catalog.CategoryByIDOrLabel(s)
		if !ok {
			return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown category %q", s))
		}
		m.state.CategoryID = c.ID
	case FieldObjective:
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		m.state.Objective = s
	case FieldPersona:
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		m.state.Persona = s
	case FieldTargetModel:
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		model, ok := m.catalog.ModelByIDOrName(s)
		if !ok {
			return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown target model %q", s))
		}
		m.state.TargetModelID = model.ID
	case FieldFormat:
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		f, ok := m.catalog.Format(s)
		if !ok {
			return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown format %q", s))
		}
		m.state.Format = f.Name
	case FieldTone:
		m.state.Tone = promptgen.CoerceTone(value)
	default:
		return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown field %q", field))
	}

	if m.state.HasGenerated && field.constraint() {
		m.state.ConfigChanged = true
	}
	return nil
}

func stringValue(field Field, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("%s must be a string", field))
	}
	return s, nil
}

// Reset 回到初始状态与第一步
func (m *Machine) Reset() {
	m.state = InitialState(m.catalog)
}

// LoadFromParams 用深链接参数预填。仅当分类可解析且目标非空时生效，返回是否已加载
func (m *Machine) LoadFromParams(p Params) bool {
	objective := strings.TrimSpace(p.Objective)
	if p.Category == "" || objective == "" {
		return false
	}
	c, ok := m.catalog.Category(p.Category)
	if !ok {
		return false
	}

	m.load(c.ID, p.Objective, p.Persona, p.Model, p.Format, promptgen.CoerceTone(p.Tone))
	return true
}

// LoadFromTemplate 用模板预填，目标留空由用户重新输入
func (m *Machine) LoadFromTemplate(tpl *entity.PromptTemplate) error {
	if tpl == nil {
		return apperrors.ErrTemplateNotFound
	}
	c, ok := m.catalog.Category(tpl.Category)
	if !ok {
		return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("template references unknown category %q", tpl.Category))
	}

	m.load(c.ID, "", tpl.Persona, tpl.Constraints.Model, tpl.Constraints.Format, promptgen.ClampTone(tpl.Constraints.Tone))
	return nil
}

// LoadFromPrompt 用历史提示预填，保留原目标以便编辑后重新生成
func (m *Machine) LoadFromPrompt(p *entity.SavedPrompt) error {
	if p == nil {
		return apperrors.ErrPromptNotFound
	}
	categoryID := ""
	if c, ok := m.catalog.CategoryByIDOrLabel(p.Category); ok {
		categoryID = c.ID
	}

	m.load(categoryID, p.Objective, p.Persona, p.TargetModel, p.Format, promptgen.ClampTone(p.Tone))
	return nil
}

// load 写入加载字段，清空旧结果并跳到第二步
func (m *Machine) load(categoryID, objective, persona, model, format string, tone int) {
	target := m.catalog.DefaultModel()
	if found, ok := m.catalog.ModelByIDOrName(model); ok {
		target = found
	}
	if f, ok := m.catalog.Format(format); ok {
		format = f.Name
	} else {
		format = m.catalog.DefaultFormat()
	}

	m.state = State{
		Step:          StepObjective,
		CategoryID:    categoryID,
		Objective:     objective,
		Persona:       persona,
		TargetModelID: target.ID,
		Format:        format,
		Tone:          tone,
	}
}

// ApplyGenerated 记录生成结果
func (m *Machine) ApplyGenerated(output string) {
	m.state.RefinedOutput = output
	m.state.HasGenerated = true
	m.state.ConfigChanged = false
}

// ApplyGeneratedFor 记录基于 in 生成的结果。生成期间状态已被修改时保留结果，
// 约束字段不一致则标记 configChanged，提示需要重新生成
func (m *Machine) ApplyGeneratedFor(in promptgen.Input, output string) {
	current := m.GenerateInput()
	if current == in {
		m.ApplyGenerated(output)
		return
	}
	m.state.RefinedOutput = output
	m.state.HasGenerated = true
	if current.TargetModel != in.TargetModel || current.Format != in.Format || current.Tone != in.Tone {
		m.state.ConfigChanged = true
	}
}

// CanAdvance 检查当前步骤是否已填写完整
func (m *Machine) CanAdvance() error {
	switch m.state.Step {
	case StepCategory:
		if _, ok := m.Category(); !ok {
			return apperrors.ErrWizardValidation.WithDetail("select a category to continue")
		}
	case StepObjective:
		if strings.TrimSpace(m.state.Objective) == "" {
			return apperrors.ErrWizardValidation.WithDetail("objective is required")
		}
	case StepPersona:
		if strings.TrimSpace(m.state.Persona) == "" {
			return apperrors.ErrWizardValidation.WithDetail("persona is required")
		}
	case StepReview:
		return apperrors.ErrWizardValidation.WithDetail("already at the review step")
	}
	return nil
}

// Advance 带门禁的前进
func (m *Machine) Advance() error {
	if err := m.CanAdvance(); err != nil {
		return err
	}
	m.NextStep()
	return nil
}

// NeedsGeneration 到达第四步且字段齐全但尚无结果时为 true
func (m *Machine) NeedsGeneration() bool {
	if m.state.Step != StepReview || m.state.RefinedOutput != "" {
		return false
	}
	_, ok := m.Category()
	return ok && strings.TrimSpace(m.state.Objective) != "" && strings.TrimSpace(m.state.Persona) != ""
}

// GenerateInput 组装生成请求
func (m *Machine) GenerateInput() promptgen.Input {
	in := promptgen.Input{
		Objective:   m.state.Objective,
		Persona:     m.state.Persona,
		TargetModel: m.TargetModel().Name,
		Format:      m.state.Format,
		Tone:        m.state.Tone,
	}
	if c, ok := m.Category(); ok {
		in.Category = c.ID
	}
	return in
}

// PersonaSuggestions 当前分类的人设建议，未选分类时为空
func (m *Machine) PersonaSuggestions() []string {
	if m.state.CategoryID == "" {
		return []string{}
	}
	return m.catalog.PersonaSuggestions(m.state.CategoryID)
}

// Placeholder 当前分类的输入提示
func (m *Machine) Placeholder() string {
	return m.catalog.Placeholder(m.state.CategoryID)
}
