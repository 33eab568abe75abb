package entity

import (
	"time"

	"github.com/lib/pq"
)

// SavedPrompt 提示历史记录
type SavedPrompt struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        string         `json:"user_id" gorm:"type:uuid;index:idx_saved_prompts_user_created,priority:1;not null"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime;index:idx_saved_prompts_user_created,priority:2,sort:desc"`
	Category      string         `json:"category" gorm:"type:varchar(64)"`
	Objective     string         `json:"objective" gorm:"type:text"`
	Persona       string         `json:"persona" gorm:"type:text"`
	TargetModel   string         `json:"target_model" gorm:"type:varchar(128)"`
	Format        string         `json:"format" gorm:"type:varchar(64)"`
	Tone          int            `json:"tone" gorm:"default:50"`
	RefinedOutput string         `json:"refined_output" gorm:"type:text"`
	Tags          pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`
}

// TableName 指定表名
func (SavedPrompt) TableName() string {
	return "saved_prompts"
}
