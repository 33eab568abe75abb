package entity

import (
	"time"
)

// TemplateConstraints 模板保存的输出约束
type TemplateConstraints struct {
	Model  string `json:"model"`
	Format string `json:"format"`
	Tone   int    `json:"tone"`
}

// PromptTemplate 可复用的向导配置，不包含目标内容
type PromptTemplate struct {
	ID          string              `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID      string              `json:"user_id" gorm:"type:uuid;index;not null"`
	CreatedAt   time.Time           `json:"created_at" gorm:"autoCreateTime"`
	Name        string              `json:"name" gorm:"type:varchar(255);not null"`
	Description string              `json:"description,omitempty" gorm:"type:text"`
	Category    string              `json:"category" gorm:"type:varchar(64)"`
	Persona     string              `json:"persona" gorm:"type:text"`
	Constraints TemplateConstraints `json:"constraints" gorm:"type:jsonb;serializer:json"`
}

// TableName 指定表名
func (PromptTemplate) TableName() string {
	return "prompt_templates"
}
