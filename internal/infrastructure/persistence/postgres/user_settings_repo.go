package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"refine-ai-api/internal/domain/entity"
)

// UserSettingsRepository 用户设置仓储实现
type UserSettingsRepository struct {
	client *Client
}

// NewUserSettingsRepository 创建用户设置仓储
func NewUserSettingsRepository(client *Client) *UserSettingsRepository {
	return &UserSettingsRepository{client: client}
}

// Get 获取设置，不存在时写入默认值
func (r *UserSettingsRepository) Get(ctx context.Context, userID string) (*entity.UserSettings, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserSettingsRepository.Get")
	defer span.End()

	db := getDB(ctx, r.client.db)
	settings, err := r.getOrInit(db, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return settings, nil
}

// Update 合并更新
func (r *UserSettingsRepository) Update(ctx context.Context, userID string, patch entity.SettingsPatch) (*entity.UserSettings, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserSettingsRepository.Update")
	defer span.End()

	var out *entity.UserSettings
	err := getDB(ctx, r.client.db).Transaction(func(tx *gorm.DB) error {
		settings, err := r.getOrInit(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
		if err != nil {
			return err
		}
		settings.Apply(patch)
		if err := tx.Save(settings).Error; err != nil {
			return fmt.Errorf("failed to update user settings: %w", err)
		}
		out = settings
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// Delete 删除设置
func (r *UserSettingsRepository) Delete(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "postgres.UserSettingsRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.UserSettings{}, "user_id = ?", userID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete user settings: %w", err)
	}
	return nil
}

func (r *UserSettingsRepository) getOrInit(db *gorm.DB, userID string) (*entity.UserSettings, error) {
	var settings entity.UserSettings
	err := db.First(&settings, "user_id = ?", userID).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get user settings: %w", err)
	}

	defaults := entity.NewDefaultUserSettings(userID)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(defaults).Error; err != nil {
		return nil, fmt.Errorf("failed to init user settings: %w", err)
	}
	return defaults, nil
}
