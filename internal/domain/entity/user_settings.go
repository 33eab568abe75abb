package entity

import (
	"time"
)

// Theme 界面主题
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// IsValid 是否为已知主题
func (t Theme) IsValid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// 首次读取设置时写入的默认值
const (
	DefaultSettingsModel = "GPT-4o"
	DefaultSettingsTone  = 50
	DefaultSettingsTheme = ThemeDark
)

// UserSettings 用户偏好
type UserSettings struct {
	UserID       string    `json:"user_id" gorm:"type:uuid;primaryKey"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	DefaultModel string    `json:"default_model" gorm:"type:varchar(128)"`
	DefaultTone  int       `json:"default_tone"`
	Theme        Theme     `json:"theme" gorm:"type:varchar(16)"`
}

// TableName 指定表名
func (UserSettings) TableName() string {
	return "user_settings"
}

// NewDefaultUserSettings 创建默认设置
func NewDefaultUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:       userID,
		UpdatedAt:    time.Now(),
		DefaultModel: DefaultSettingsModel,
		DefaultTone:  DefaultSettingsTone,
		Theme:        DefaultSettingsTheme,
	}
}

// SettingsPatch 设置的部分更新，nil 字段保持不变
type SettingsPatch struct {
	DefaultModel *string
	DefaultTone  *int
	Theme        *Theme
}

// Apply 合并到现有设置
func (s *UserSettings) Apply(p SettingsPatch) {
	if p.DefaultModel != nil {
		s.DefaultModel = *p.DefaultModel
	}
	if p.DefaultTone != nil {
		s.DefaultTone = *p.DefaultTone
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
}

// AccountExport 账户数据导出
type AccountExport struct {
	User       *User             `json:"user"`
	Settings   *UserSettings     `json:"settings"`
	Prompts    []*SavedPrompt    `json:"prompts"`
	Templates  []*PromptTemplate `json:"templates"`
	ExportedAt time.Time         `json:"exported_at"`
}
