package repository

import (
	"context"
	"time"
)

// Topic 变更主题
type Topic string

const (
	TopicPrompts   Topic = "prompts"
	TopicTemplates Topic = "templates"
)

// ChangeEvent 列表变更通知，只携带变更类型，订阅方重新拉取完整列表
type ChangeEvent struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Topic    Topic     `json:"topic"`
	Action   string    `json:"action"`
	EntityID string    `json:"entity_id,omitempty"`
	At       time.Time `json:"at"`
}

// 变更动作
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
	ActionCleared = "cleared"
)

// ChangeFeed 按用户与主题发布、订阅列表变更
type ChangeFeed interface {
	// Publish 发布变更
	Publish(ctx context.Context, event ChangeEvent) error

	// Subscribe 订阅变更，ctx 结束时关闭返回的通道
	Subscribe(ctx context.Context, userID string, topic Topic) (<-chan ChangeEvent, error)
}
