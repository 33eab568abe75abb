package postgres

import (
	"context"
	"fmt"

	"refine-ai-api/internal/domain/entity"
	"refine-ai-api/pkg/logger"
)

// Models 需要迁移的全部表
func Models() []interface{} {
	return []interface{}{
		&entity.User{},
		&entity.UserSettings{},
		&entity.SavedPrompt{},
		&entity.PromptTemplate{},
	}
}

// AutoMigrate 创建或更新表结构
func (c *Client) AutoMigrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.AutoMigrate")
	defer span.End()

	// gen_random_uuid 在 PostgreSQL 13 以下需要 pgcrypto
	if err := c.db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto").Error; err != nil {
		logger.Warn(ctx, "failed to create pgcrypto extension", "error", err.Error())
	}
	if err := c.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	logger.Info(ctx, "database schema migrated", "tables", len(Models()))
	return nil
}
