package wizard

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/application/testrun"
	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/domain/entity"
	"refine-ai-api/internal/domain/service"
	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
	"refine-ai-api/pkg/metrics"
)

// Session 服务端保存的向导实例
type Session struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId,omitempty"`
	State   State  `json:"state"`
	// SavedPromptID 最近一次生成后自动保存的历史记录
	SavedPromptID string    `json:"savedPromptId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SessionStore 会话存储。Update 必须原子地执行读取、修改与写回
type SessionStore interface {
	Create(ctx context.Context, sess *Session) error
	// Get 不存在时返回 ErrSessionNotFound
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(sess *Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Generator 精炼提示生成
type Generator interface {
	Generate(ctx context.Context, in promptgen.Input) (*promptgen.Output, error)
}

// Library 向导依赖的持久化契约：保存与按 id 读取
type Library interface {
	SavePrompt(ctx context.Context, p *entity.SavedPrompt) (*entity.SavedPrompt, error)
	GetPrompt(ctx context.Context, id string) (*entity.SavedPrompt, error)
	SaveTemplate(ctx context.Context, t *entity.PromptTemplate) (*entity.PromptTemplate, error)
	GetTemplate(ctx context.Context, id string) (*entity.PromptTemplate, error)
}

// CreateRequest 创建会话的预填来源，TemplateID 优先于 RemixID，二者都为空时使用 Params
type CreateRequest struct {
	Params
	TemplateID string `form:"templateId" json:"templateId"`
	RemixID    string `form:"remixId" json:"remixId"`
}

// View 会话及由目录派生的展示字段
type View struct {
	Session            *Session
	Category           *catalog.Category
	TargetModel        catalog.Model
	PersonaSuggestions []string
	Placeholder        string
	CanAdvance         bool
	NeedsGeneration    bool
}

// GenerateResult 一次生成的结果
type GenerateResult struct {
	View   *View
	Output *promptgen.Output
	// SavedPromptID 自动保存的历史记录，未登录或保存失败时为空
	SavedPromptID string
}

// Service 基于会话的向导服务
type Service struct {
	catalog   *catalog.Catalog
	store     SessionStore
	generator Generator
	library   Library
	group     singleflight.Group
}

// NewService 创建向导服务
func NewService(cat *catalog.Catalog, store SessionStore, generator Generator, library Library) *Service {
	return &Service{
		catalog:   cat,
		store:     store,
		generator: generator,
		library:   library,
	}
}

// Create 创建会话，可从模板、历史提示或深链接参数预填
func (s *Service) Create(ctx context.Context, req CreateRequest) (*View, error) {
	m := New(s.catalog)
	switch {
	case req.TemplateID != "":
		tpl, err := s.library.GetTemplate(ctx, req.TemplateID)
		if err != nil {
			return nil, err
		}
		if err := m.LoadFromTemplate(tpl); err != nil {
			return nil, err
		}
	case req.RemixID != "":
		p, err := s.library.GetPrompt(ctx, req.RemixID)
		if err != nil {
			return nil, err
		}
		if err := m.LoadFromPrompt(p); err != nil {
			return nil, err
		}
	default:
		m.LoadFromParams(req.Params)
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		State:     m.Snapshot(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if id, ok := service.IdentityFromContext(ctx); ok {
		sess.OwnerID = id.UserID
	}

	err := s.store.Create(ctx, sess)
	metrics.WizardTransitionsTotal.WithLabelValues("create", metrics.StatusLabel(err)).Inc()
	if err != nil {
		return nil, err
	}
	metrics.WizardActiveSessions.Inc()
	logger.Info(logger.WithContext(ctx, logger.SessionIDKey, sess.ID), "wizard session created",
		"step", sess.State.Step.String(),
		"category", sess.State.CategoryID,
	)
	return s.view(sess), nil
}

// Get 读取会话
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// SelectCategory 选择分类并跳到第二步
func (s *Service) SelectCategory(ctx context.Context, id, categoryID string) (*View, error) {
	return s.mutate(ctx, id, "select_category", func(m *Machine) error {
		return m.SelectCategory(categoryID)
	})
}

// Next 无门禁前进一步
func (s *Service) Next(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, "next", func(m *Machine) error {
		m.NextStep()
		return nil
	})
}

// Advance 当前步骤填写完整时前进一步
func (s *Service) Advance(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, "advance", func(m *Machine) error {
		return m.Advance()
	})
}

// Prev 后退一步
func (s *Service) Prev(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, "prev", func(m *Machine) error {
		m.PrevStep()
		return nil
	})
}

// UpdateField 修改单个字段
func (s *Service) UpdateField(ctx context.Context, id string, field Field, value any) (*View, error) {
	return s.mutate(ctx, id, "update_field", func(m *Machine) error {
		return m.UpdateField(field, value)
	})
}

// Reset 回到初始状态
func (s *Service) Reset(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, "reset", func(m *Machine) error {
		m.Reset()
		return nil
	})
}

// LoadParams 用深链接参数预填；缺少分类或目标时不修改状态
func (s *Service) LoadParams(ctx context.Context, id string, p Params) (*View, error) {
	return s.mutate(ctx, id, "load_params", func(m *Machine) error {
		if !m.LoadFromParams(p) {
			return apperrors.ErrInvalidParam.WithDetail("a known category and a non-empty objective are required")
		}
		return nil
	})
}

// LoadTemplate 用已保存的模板预填
func (s *Service) LoadTemplate(ctx context.Context, id, templateID string) (*View, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	tpl, err := s.library.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "load_template", func(m *Machine) error {
		return m.LoadFromTemplate(tpl)
	})
}

// LoadPrompt 用历史提示预填
func (s *Service) LoadPrompt(ctx context.Context, id, promptID string) (*View, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	p, err := s.library.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "load_prompt", func(m *Machine) error {
		return m.LoadFromPrompt(p)
	})
}

// Generate 生成精炼提示并写回会话。同一会话同时只进行一次生成，
// 并发调用方共享同一结果；已登录时每次生成自动保存一次到历史
func (s *Service) Generate(ctx context.Context, id string) (*GenerateResult, error) {
	ctx = logger.WithContext(ctx, logger.SessionIDKey, id)
	// 加入进行中的生成前先校验归属
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	// 共享的生成不随某个调用方断开而取消，由生成器自身的超时约束
	ch := s.group.DoChan(id, func() (interface{}, error) {
		return s.generate(context.WithoutCancel(ctx), id)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		metrics.WizardTransitionsTotal.WithLabelValues("generate", metrics.StatusLabel(ctx.Err())).Inc()
		return nil, ctx.Err()
	}
	metrics.WizardTransitionsTotal.WithLabelValues("generate", metrics.StatusLabel(res.Err)).Inc()
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		logger.Debug(ctx, "joined in-flight generation")
	}
	return res.Val.(*GenerateResult), nil
}

func (s *Service) generate(ctx context.Context, id string) (*GenerateResult, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	m := Restore(s.catalog, sess.State)
	in := m.GenerateInput()

	out, err := s.generator.Generate(ctx, in)
	if err != nil {
		logger.Error(ctx, "wizard generation failed", err)
		return nil, err
	}

	savedID := ""
	if _, ok := service.IdentityFromContext(ctx); ok {
		savedID = s.autoSave(ctx, m, out.Text)
	}

	updated, err := s.store.Update(ctx, id, func(sess *Session) error {
		m := Restore(s.catalog, sess.State)
		m.ApplyGeneratedFor(in, out.Text)
		sess.State = m.Snapshot()
		if savedID != "" {
			sess.SavedPromptID = savedID
		}
		sess.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &GenerateResult{View: s.view(updated), Output: out, SavedPromptID: savedID}, nil
}

// autoSave 保存到历史；失败只记录日志，不影响生成结果
func (s *Service) autoSave(ctx context.Context, m *Machine, output string) string {
	st := m.Snapshot()
	saved, err := s.library.SavePrompt(ctx, &entity.SavedPrompt{
		Category:      st.CategoryID,
		Objective:     st.Objective,
		Persona:       st.Persona,
		TargetModel:   m.TargetModel().Name,
		Format:        st.Format,
		Tone:          st.Tone,
		RefinedOutput: output,
	})
	if err != nil {
		logger.Warn(ctx, "failed to auto-save generated prompt", "error", err.Error())
		return ""
	}
	return saved.ID
}

// SaveTemplate 将当前配置保存为模板（不含目标）
func (s *Service) SaveTemplate(ctx context.Context, id, name, description string) (*entity.PromptTemplate, error) {
	if _, err := service.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	m := Restore(s.catalog, sess.State)
	c, ok := m.Category()
	if !ok {
		return nil, apperrors.ErrWizardValidation.WithDetail("select a category before saving a template")
	}
	st := m.Snapshot()
	return s.library.SaveTemplate(ctx, &entity.PromptTemplate{
		Name:        name,
		Description: description,
		Category:    c.ID,
		Persona:     st.Persona,
		Constraints: entity.TemplateConstraints{
			Model:  m.TargetModel().Name,
			Format: st.Format,
			Tone:   st.Tone,
		},
	})
}

// TestRunRequest 用会话中的结果与目标组装试运行请求
func (s *Service) TestRunRequest(ctx context.Context, id string) (testrun.Request, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return testrun.Request{}, err
	}
	st := sess.State
	if strings.TrimSpace(st.RefinedOutput) == "" || strings.TrimSpace(st.Objective) == "" {
		return testrun.Request{}, apperrors.ErrWizardValidation.WithDetail("generate a prompt first")
	}
	m := Restore(s.catalog, st)
	return testrun.Request{
		Prompt:      st.RefinedOutput,
		Objective:   st.Objective,
		Category:    st.CategoryID,
		TargetModel: m.TargetModel().Name,
	}, nil
}

// Delete 删除会话
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	err := s.store.Delete(ctx, id)
	metrics.WizardTransitionsTotal.WithLabelValues("delete", metrics.StatusLabel(err)).Inc()
	if err == nil {
		metrics.WizardActiveSessions.Dec()
	}
	return err
}

func (s *Service) load(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) mutate(ctx context.Context, id, op string, fn func(m *Machine) error) (*View, error) {
	ctx = logger.WithContext(ctx, logger.SessionIDKey, id)
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		if err := authorize(ctx, sess); err != nil {
			return err
		}
		m := Restore(s.catalog, sess.State)
		if err := fn(m); err != nil {
			return err
		}
		sess.State = m.Snapshot()
		sess.UpdatedAt = time.Now().UTC()
		return nil
	})
	metrics.WizardTransitionsTotal.WithLabelValues(op, metrics.StatusLabel(err)).Inc()
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// authorize 归属某个用户的会话只对该用户可见
func authorize(ctx context.Context, sess *Session) error {
	if sess.OwnerID == "" {
		return nil
	}
	id, ok := service.IdentityFromContext(ctx)
	if !ok || id.UserID != sess.OwnerID {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

func (s *Service) view(sess *Session) *View {
	m := Restore(s.catalog, sess.State)
	v := &View{
		Session:            sess,
		TargetModel:        m.TargetModel(),
		PersonaSuggestions: m.PersonaSuggestions(),
		Placeholder:        m.Placeholder(),
		CanAdvance:         m.CanAdvance() == nil,
		NeedsGeneration:    m.NeedsGeneration(),
	}
	if c, ok := m.Category(); ok {
		v.Category = &c
	}
	return v
}
