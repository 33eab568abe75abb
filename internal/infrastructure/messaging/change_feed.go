package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"refine-ai-api/internal/domain/repository"
	"refine-ai-api/pkg/logger"
)

// ChangeFeed 基于 Redis Stream 的变更推送。每个订阅者独立 XREAD，不使用消费者组
type ChangeFeed struct {
	client       *redis.Client
	producer     *Producer
	blockTimeout time.Duration
}

// NewChangeFeed 创建变更推送
func NewChangeFeed(client *redis.Client, maxLen int64, blockTimeout time.Duration) *ChangeFeed {
	if blockTimeout <= 0 {
		blockTimeout = 5 * time.Second
	}
	return &ChangeFeed{
		client:       client,
		producer:     NewProducer(client, maxLen),
		blockTimeout: blockTimeout,
	}
}

// Publish 发布变更
func (f *ChangeFeed) Publish(ctx context.Context, event repository.ChangeEvent) error {
	_, err := f.producer.PublishChange(ctx, event)
	return err
}

// Subscribe 订阅用户某个主题的变更。返回前确定起始位置，之后发布的变更都会送达
func (f *ChangeFeed) Subscribe(ctx context.Context, userID string, topic repository.Topic) (<-chan repository.ChangeEvent, error) {
	stream := ChangeStream(userID, topic)
	ctx, span := tracer.Start(ctx, "changefeed.Subscribe",
		trace.WithAttributes(attribute.String("stream", string(stream))))
	lastID, err := f.lastID(ctx, stream)
	span.End()
	if err != nil {
		return nil, err
	}

	out := make(chan repository.ChangeEvent, 16)
	go f.run(ctx, stream, lastID, out)
	return out, nil
}

func (f *ChangeFeed) lastID(ctx context.Context, stream Stream) (string, error) {
	msgs, err := f.client.XRevRangeN(ctx, string(stream), "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read stream tail: %w", err)
	}
	if len(msgs) == 0 {
		return "0-0", nil
	}
	return msgs[0].ID, nil
}

func (f *ChangeFeed) run(ctx context.Context, stream Stream, lastID string, out chan<- repository.ChangeEvent) {
	defer close(out)
	log := logger.FromContext(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := f.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{string(stream), lastID},
			Count:   10,
			Block:   f.blockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Error("failed to read from stream", "error", err, "stream", stream)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, xmsg := range s.Messages {
				lastID = xmsg.ID
				event, ok := decodeChange(ctx, xmsg)
				if !ok {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func decodeChange(ctx context.Context, xmsg redis.XMessage) (repository.ChangeEvent, bool) {
	var event repository.ChangeEvent
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		logger.FromContext(ctx).Error("invalid message format", "message_id", xmsg.ID)
		return event, false
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		logger.FromContext(ctx).Error("failed to unmarshal message", "error", err, "message_id", xmsg.ID)
		return event, false
	}
	if msg.Type != MessageTypeChange {
		return event, false
	}
	if err := msg.UnmarshalPayload(&event); err != nil {
		logger.FromContext(ctx).Error("failed to unmarshal change event", "error", err, "message_id", xmsg.ID)
		return event, false
	}
	return event, true
}
