package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"refine-ai-api/internal/domain/entity"
	"refine-ai-api/internal/domain/repository"
)

// PromptTemplateRepository 模板仓储实现
type PromptTemplateRepository struct {
	client *Client
}

// NewPromptTemplateRepository 创建模板仓储
func NewPromptTemplateRepository(client *Client) *PromptTemplateRepository {
	return &PromptTemplateRepository{client: client}
}

// Create 保存模板
func (r *PromptTemplateRepository) Create(ctx context.Context, tpl *entity.PromptTemplate) error {
	ctx, span := tracer.Start(ctx, "postgres.PromptTemplateRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(tpl).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetByID 获取用户的模板
func (r *PromptTemplateRepository) GetByID(ctx context.Context, userID, id string) (*entity.PromptTemplate, error) {
	ctx, span := tracer.Start(ctx, "postgres.PromptTemplateRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var tpl entity.PromptTemplate
	if err := db.First(&tpl, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tpl, nil
}

// ListByUser 按创建时间倒序列出用户的模板
func (r *PromptTemplateRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.PromptTemplate], error) {
	ctx, span := tracer.Start(ctx, "postgres.PromptTemplateRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.PromptTemplate{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	var templates []*entity.PromptTemplate
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&templates).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return repository.NewPagedResult(templates, total, pagination), nil
}

// Delete 删除用户的模板
func (r *PromptTemplateRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.PromptTemplateRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Delete(&entity.PromptTemplate{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		span.RecordError(res.Error)
		return false, fmt.Errorf("failed to delete template: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteAllByUser 删除用户全部模板
func (r *PromptTemplateRepository) DeleteAllByUser(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "postgres.PromptTemplateRepository.DeleteAllByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.PromptTemplate{}, "user_id = ?", userID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete templates: %w", err)
	}
	return nil
}
