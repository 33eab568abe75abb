package repository

import (
	"context"

	"refine-ai-api/internal/domain/entity"
)

// SavedPromptRepository 提示历史仓储接口，所有操作限定在用户范围内
type SavedPromptRepository interface {
	// Create 保存一条提示
	Create(ctx context.Context, prompt *entity.SavedPrompt) error

	// GetByID 获取用户的一条提示，不存在时返回 nil, nil
	GetByID(ctx context.Context, userID, id string) (*entity.SavedPrompt, error)

	// ListByUser 按创建时间倒序列出
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.SavedPrompt], error)

	// Delete 删除用户的一条提示，返回是否存在
	Delete(ctx context.Context, userID, id string) (bool, error)

	// DeleteAllByUser 删除用户全部提示
	DeleteAllByUser(ctx context.Context, userID string) error
}

// PromptTemplateRepository 模板仓储接口，所有操作限定在用户范围内
type PromptTemplateRepository interface {
	// Create 保存模板
	Create(ctx context.Context, tpl *entity.PromptTemplate) error

	// GetByID 获取用户的模板，不存在时返回 nil, nil
	GetByID(ctx context.Context, userID, id string) (*entity.PromptTemplate, error)

	// ListByUser 按创建时间倒序列出
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.PromptTemplate], error)

	// Delete 删除用户的模板，返回是否存在
	Delete(ctx context.Context, userID, id string) (bool, error)

	// DeleteAllByUser 删除用户全部模板
	DeleteAllByUser(ctx context.Context, userID string) error
}

// UserSettingsRepository 用户设置仓储接口
type UserSettingsRepository interface {
	// Get 获取设置，首次读取时写入默认值
	Get(ctx context.Context, userID string) (*entity.UserSettings, error)

	// Update 合并更新并返回最新设置
	Update(ctx context.Context, userID string, patch entity.SettingsPatch) (*entity.UserSettings, error)

	// Delete 删除设置
	Delete(ctx context.Context, userID string) error
}
