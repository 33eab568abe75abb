package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"refine-ai-api/internal/domain/entity"
	"refine-ai-api/internal/domain/repository"
)

// SavedPromptRepository 提示历史仓储实现
type SavedPromptRepository struct {
	client *Client
}

// NewSavedPromptRepository 创建提示历史仓储
func NewSavedPromptRepository(client *Client) *SavedPromptRepository {
	return &SavedPromptRepository{client: client}
}

// Create 保存提示
func (r *SavedPromptRepository) Create(ctx context.Context, prompt *entity.SavedPrompt) error {
	ctx, span := tracer.Start(ctx, "postgres.SavedPromptRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(prompt).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create saved prompt: %w", err)
	}
	return nil
}

// GetByID 获取用户的一条提示
func (r *SavedPromptRepository) GetByID(ctx context.Context, userID, id string) (*entity.SavedPrompt, error) {
	ctx, span := tracer.Start(ctx, "postgres.SavedPromptRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var prompt entity.SavedPrompt
	if err := db.First(&prompt, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get saved prompt: %w", err)
	}
	return &prompt, nil
}

// ListByUser 按创建时间倒序列出用户的提示
func (r *SavedPromptRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.SavedPrompt], error) {
	ctx, span := tracer.Start(ctx, "postgres.SavedPromptRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.SavedPrompt{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count saved prompts: %w", err)
	}

	var prompts []*entity.SavedPrompt
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&prompts).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list saved prompts: %w", err)
	}

	return repository.NewPagedResult(prompts, total, pagination), nil
}

// Delete 删除用户的一条提示
func (r *SavedPromptRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.SavedPromptRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Delete(&entity.SavedPrompt{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		span.RecordError(res.Error)
		return false, fmt.Errorf("failed to delete saved prompt: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteAllByUser 删除用户全部提示
func (r *SavedPromptRepository) DeleteAllByUser(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "postgres.SavedPromptRepository.DeleteAllByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.SavedPrompt{}, "user_id = ?", userID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete saved prompts: %w", err)
	}
	return nil
}
