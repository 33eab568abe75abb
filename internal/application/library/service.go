// Package library 管理用户的提示历史、模板、偏好设置与账户数据
package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/domain/entity"
	"refine-ai-api/internal/domain/repository"
	"refine-ai-api/internal/domain/service"
	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
	"refine-ai-api/pkg/metrics"
)

const maxTags = 16

// Service 用户资料库服务。所有操作要求上下文中存在身份
type Service struct {
	catalog   *catalog.Catalog
	users     repository.UserRepository
	prompts   repository.SavedPromptRepository
	templates repository.PromptTemplateRepository
	settings  repository.UserSettingsRepository
	tx        repository.Transactor
	feed      repository.ChangeFeed
}

// NewService 创建资料库服务；feed 可为 nil，此时不发布变更
func NewService(
	cat *catalog.Catalog,
	users repository.UserRepository,
	prompts repository.SavedPromptRepository,
	templates repository.PromptTemplateRepository,
	settings repository.UserSettingsRepository,
	tx repository.Transactor,
	feed repository.ChangeFeed,
) *Service {
	return &Service{
		catalog:   cat,
		users:     users,
		prompts:   prompts,
		templates: templates,
		settings:  settings,
		tx:        tx,
		feed:      feed,
	}
}

// SavePrompt 保存一条提示到历史
func (s *Service) SavePrompt(ctx context.Context, p *entity.SavedPrompt) (*entity.SavedPrompt, error) {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil || strings.TrimSpace(p.RefinedOutput) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("refined output is required")
	}

	p.ID = uuid.NewString()
	p.UserID = id.UserID
	p.Tone = promptgen.ClampTone(p.Tone)
	p.Tags = normalizeTags(p.Tags)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	err = s.prompts.Create(ctx, p)
	record("prompt", "create", err)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save prompt")
	}
	s.publish(ctx, id.UserID, repository.TopicPrompts, repository.ActionCreated, p.ID)
	return p, nil
}

// ListPrompts 按创建时间倒序列出历史
func (s *Service) ListPrompts(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.SavedPrompt], error) {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.prompts.ListByUser(ctx, id.UserID, pagination)
	record("prompt", "list", err)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list prompts")
	}
	return res, nil
}

// GetPrompt 获取一条历史
func (s *Service) GetPrompt(ctx context.Context, promptID string) (*entity.SavedPrompt, error) {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.prompts.GetByID(ctx, id.UserID, promptID)
	record("prompt", "get", err)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load prompt")
	}
	if p == nil {
		return nil, apperrors.ErrPromptNotFound
	}
	return p, nil
}

// DeletePrompt 删除一条历史
func (s *Service) DeletePrompt(ctx context.Context, promptID string) error {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return err
	}
	found, err := s.prompts.Delete(ctx, id.UserID, promptID)
	record("prompt", "delete", err)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to delete prompt")
	}
	if !found {
		return apperrors.ErrPromptNotFound
	}
	s.publish(ctx, id.UserID, repository.TopicPrompts, repository.ActionDeleted, promptID)
	return nil
}

// SaveTemplate 保存模板。模板只保存配置，不保存目标内容
func (s *Service) SaveTemplate(ctx context.Context, t *entity.PromptTemplate) (*entity.PromptTemplate, error) {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validateTemplate(t); err != nil {
		return nil, err
	}

	t.ID = uuid.NewString()
	t.UserID = id.UserID
	t.Name = strings.TrimSpace(t.Name)
	t.Description = strings.TrimSpace(t.Description)
	t.Constraints.Tone = promptgen.ClampTone(t.Constraints.Tone)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	err = s.templates.Create(ctx, t)
	record("template", "create", err)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save template")
	}
	s.publish(ctx, id.UserID, repository.TopicTemplates, repository.ActionCreated, t.ID)
	return t, nil
}

func (s *Service) validateTemplate(t *entity.PromptTemplate) error {
	if t == nil || strings.TrimSpace(t.Name) == "" {
		return apperrors.ErrInvalidParam.WithDetail("template name is required")
	}
	c, ok := s.catalog.CategoryByIDOrLabel(t.Category)
	if !ok {
		return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown category %q", t.Category))
	}
	t.Category = c.ID

	if m, ok := s.catalog.ModelByIDOrName(t.Constraints.Model); ok {
		t.Constraints.Model = m.Name
	} else {
		t.Constraints.Model = s.catalog.DefaultModel().Name
	}
	if f, ok := s.catalog.Format(t.Constraints.Format); ok {
		t.Constraints.Format = f.Name
	} else {
		t.Constraints.Format = s.catalog.DefaultFormat()
	}
	return nil
}

// ListTemplates 按创建时间倒序列出模板
func (s *Service) ListTemplates(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.PromptTemplate], error) {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.templates.ListByUser(ctx, id.UserID, pagination)
	record("template", "list", err)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list templates")
	}
	return res, nil
}

// GetTemplate 按 id 获取模板
func (s *Service) GetTemplate(ctx context.Context, templateID string) (*entity.PromptTemplate, error) {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.templates.GetByID(ctx, id.UserID, templateID)
	record("template", "get", err)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load template")
	}
	if t == nil {
		return nil, apperrors.ErrTemplateNotFound
	}
	return t, nil
}

// DeleteTemplate 删除模板
func (s *Service) DeleteTemplate(ctx context.Context, templateID string) error {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return err
	}
	found, err := s.templates.Delete(ctx, id.UserID, templateID)
	record("template", "delete", err)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to delete template")
	}
	if !found {
		return apperrors.ErrTemplateNotFound
	}
	s.publish(ctx, id.UserID, repository.TopicTemplates, repository.ActionDeleted, templateID)
	return nil
}

// GetSettings 读取偏好，首次读取时写入默认值
func (s *Service) GetSettings(ctx context.Context) (*entity.UserSettings, error) {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.settings.Get(ctx, id.UserID)
	record("settings", "get", err)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load settings")
	}
	return st, nil
}

// UpdateSettings 合并更新偏好
func (s *Service) UpdateSettings(ctx context.Context, patch entity.SettingsPatch) (*entity.UserSettings, error) {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if patch.DefaultModel != nil {
		m, ok := s.catalog.ModelByIDOrName(*patch.DefaultModel)
		if !ok {
			return nil, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown model %q", *patch.DefaultModel))
		}
		patch.DefaultModel = &m.Name
	}
	if patch.DefaultTone != nil {
		tone := promptgen.ClampTone(*patch.DefaultTone)
		patch.DefaultTone = &tone
	}
	if patch.Theme != nil && !patch.Theme.IsValid() {
		return nil, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown theme %q", *patch.Theme))
	}

	st, err := s.settings.Update(ctx, id.UserID, patch)
	record("settings", "update", err)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to update settings")
	}
	return st, nil
}

// ExportAccount 导出用户的全部数据
func (s *Service) ExportAccount(ctx context.Context) (*entity.AccountExport, error) {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load user")
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	settings, err := s.settings.Get(ctx, id.UserID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load settings")
	}
	prompts, err := listAll(ctx, func(ctx context.Context, p repository.Pagination) (*repository.PagedResult[*entity.SavedPrompt], error) {
		return s.prompts.ListByUser(ctx, id.UserID, p)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list prompts")
	}
	templates, err := listAll(ctx, func(ctx context.Context, p repository.Pagination) (*repository.PagedResult[*entity.PromptTemplate], error) {
		return s.templates.ListByUser(ctx, id.UserID, p)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list templates")
	}

	record("account", "export", nil)
	return &entity.AccountExport{
		User:       user,
		Settings:   settings,
		Prompts:    prompts,
		Templates:  templates,
		ExportedAt: time.Now().UTC(),
	}, nil
}

// DeleteAccount 在一个事务中删除用户及其全部数据
func (s *Service) DeleteAccount(ctx context.Context) error {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return err
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.prompts.DeleteAllByUser(ctx, id.UserID); err != nil {
			return err
		}
		if err := s.templates.DeleteAllByUser(ctx, id.UserID); err != nil {
			return err
		}
		if err := s.settings.Delete(ctx, id.UserID); err != nil {
			return err
		}
		return s.users.Delete(ctx, id.UserID)
	})
	record("account", "delete", err)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to delete account")
	}

	logger.Info(ctx, "account deleted")
	s.publish(ctx, id.UserID, repository.TopicPrompts, repository.ActionCleared, "")
	s.publish(ctx, id.UserID, repository.TopicTemplates, repository.ActionCleared, "")
	return nil
}

// publish 发布变更；失败只记录日志，列表订阅方会在下次变更时追上
func (s *Service) publish(ctx context.Context, userID string, topic repository.Topic, action, entityID string) {
	if s.feed == nil {
		return
	}
	err := s.feed.Publish(ctx, repository.ChangeEvent{
		ID:       uuid.NewString(),
		UserID:   userID,
		Topic:    topic,
		Action:   action,
		EntityID: entityID,
		At:       time.Now().UTC(),
	})
	metrics.ChangeFeedPublished.WithLabelValues(string(topic), metrics.StatusLabel(err)).Inc()
	if err != nil {
		logger.Warn(ctx, "failed to publish change event",
			"topic", string(topic),
			"action", action,
			"error", err.Error(),
		)
	}
}

func record(entityName, op string, err error) {
	metrics.PersistenceOpsTotal.WithLabelValues(entityName, op, metrics.StatusLabel(err)).Inc()
}

// listAll 逐页读取全部记录
func listAll[T any](ctx context.Context, list func(context.Context, repository.Pagination) (*repository.PagedResult[T], error)) ([]T, error) {
	out := make([]T, 0)
	for page := 1; ; page++ {
		res, err := list(ctx, repository.NewPagination(page, 100))
		if err != nil {
			return nil, err
		}
		out = append(out, res.Items...)
		if len(res.Items) == 0 || page >= res.TotalPages {
			return out, nil
		}
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
