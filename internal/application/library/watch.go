package library

import (
	"context"

	"refine-ai-api/internal/domain/entity"
	"refine-ai-api/internal/domain/repository"
	"refine-ai-api/internal/domain/service"
	apperrors "refine-ai-api/pkg/errors"
	"refine-ai-api/pkg/logger"
	"refine-ai-api/pkg/metrics"
)

// watchPageSize 实时列表返回的最大条数
const watchPageSize = 100

// WatchPrompts 连接时推送完整历史列表，之后每次变更再推送一次。ctx 结束时关闭通道
func (s *Service) WatchPrompts(ctx context.Context) (<-chan []*entity.SavedPrompt, error) {
	return watch(ctx, s, repository.TopicPrompts, func(ctx context.Context, userID string) ([]*entity.SavedPrompt, error) {
		res, err := s.prompts.ListByUser(ctx, userID, repository.NewPagination(1, watchPageSize))
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	})
}

// WatchTemplates 连接时推送完整模板列表，之后每次变更再推送一次
func (s *Service) WatchTemplates(ctx context.Context) (<-chan []*entity.PromptTemplate, error) {
	return watch(ctx, s, repository.TopicTemplates, func(ctx context.Context, userID string) ([]*entity.PromptTemplate, error) {
		res, err := s.templates.ListByUser(ctx, userID, repository.NewPagination(1, watchPageSize))
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	})
}

func watch[T any](ctx context.Context, s *Service, topic repository.Topic, list func(context.Context, string) ([]T, error)) (<-chan []T, error) {
	id, err := service.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if s.feed == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("change feed is not configured")
	}

	// 先订阅再读取初始列表，避免错过两者之间的变更
	events, err := s.feed.Subscribe(ctx, id.UserID, topic)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStreamError, "failed to subscribe to changes")
	}
	initial, err := list(ctx, id.UserID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list "+string(topic))
	}

	out := make(chan []T, 1)
	out <- initial

	gauge := metrics.ChangeFeedSubscribers.WithLabelValues(string(topic))
	gauge.Inc()
	go func() {
		defer close(out)
		defer gauge.Dec()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				items, err := list(ctx, id.UserID)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Warn(ctx, "failed to refresh watched list",
						"topic", string(topic),
						"error", err.Error(),
					)
					continue
				}
				select {
				case out <- items:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
