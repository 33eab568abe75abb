package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"

	"refine-ai-api/internal/domain/entity"
)

func TestParseGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, parseGormLevel("silent"))
	assert.Equal(t, gormlogger.Error, parseGormLevel("ERROR"))
	assert.Equal(t, gormlogger.Info, parseGormLevel("debug"))
	assert.Equal(t, gormlogger.Warn, parseGormLevel(""))
	assert.Equal(t, gormlogger.Warn, parseGormLevel("warn"))
}

func TestModelsCoverAllTables(t *testing.T) {
	names := map[string]bool{}
	for _, m := range Models() {
		if tn, ok := m.(interface{ TableName() string }); ok {
			names[tn.TableName()] = true
		}
	}
	assert.True(t, names[entity.User{}.TableName()])
	assert.True(t, names["user_settings"])
	assert.True(t, names["saved_prompts"])
	assert.True(t, names["prompt_templates"])
}
