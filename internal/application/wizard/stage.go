package wizard

import (
	"strings"

	"refine-ai-api/internal/domain/catalog"
	apperrors "refine-ai-api/pkg/errors"
)

// Stage 按步骤区分的状态视图，每个变体只携带该步骤必需且已校验的字段
type Stage interface {
	Step() Step
	isStage()
}

// ChoosingCategory 第一步
type ChoosingCategory struct{}

// WritingObjective 第二步，分类已确定
type WritingObjective struct {
	Category  catalog.Category
	Objective string
}

// ChoosingPersona 第三步，分类与目标已确定
type ChoosingPersona struct {
	Category  catalog.Category
	Objective string
	Persona   string
}

// Reviewing 第四步，全部字段已确定
type Reviewing struct {
	Category      catalog.Category
	Objective     string
	Persona       string
	TargetModel   catalog.Model
	Format        string
	Tone          int
	RefinedOutput string
	ConfigChanged bool
}

func (ChoosingCategory) Step() Step { return StepCategory }
func (WritingObjective) Step() Step { return StepObjective }
func (ChoosingPersona) Step() Step  { return StepPersona }
func (Reviewing) Step() Step        { return StepReview }

func (ChoosingCategory) isStage() {}
func (WritingObjective) isStage() {}
func (ChoosingPersona) isStage()  {}
func (Reviewing) isStage()        {}

// Stage 将当前状态转换为步骤变体。状态机不做门禁，
// 因此未填完整就前进的状态会在这里返回校验错误
func (m *Machine) Stage() (Stage, error) {
	s := m.state
	if s.Step == StepCategory {
		return ChoosingCategory{}, nil
	}

	c, ok := m.Category()
	if !ok {
		return nil, apperrors.ErrWizardValidation.WithDetail("step " + s.Step.String() + " requires a category")
	}
	if s.Step == StepObjective {
		return WritingObjective{Category: c, Objective: s.Objective}, nil
	}

	if strings.TrimSpace(s.Objective) == "" {
		return nil, apperrors.ErrWizardValidation.WithDetail("step " + s.Step.String() + " requires an objective")
	}
	if s.Step == StepPersona {
		return ChoosingPersona{Category: c, Objective: s.Objective, Persona: s.Persona}, nil
	}

	if strings.TrimSpace(s.Persona) == "" {
		return nil, apperrors.ErrWizardValidation.WithDetail("step " + s.Step.String() + " requires a persona")
	}
	return Reviewing{
		Category:      c,
		Objective:     s.Objective,
		Persona:       s.Persona,
		TargetModel:   m.TargetModel(),
		Format:        s.Format,
		Tone:          s.Tone,
		RefinedOutput: s.RefinedOutput,
		ConfigChanged: s.ConfigChanged,
	}, nil
}
