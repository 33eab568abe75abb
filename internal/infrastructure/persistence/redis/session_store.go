package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"refine-ai-api/internal/application/wizard"
	apperrors "refine-ai-api/pkg/errors"
)

const (
	defaultSessionTTL = 24 * time.Hour
	maxUpdateRetries  = 5
)

// SessionStore 向导会话存储。每次写入刷新过期时间
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "wizard:session:" + id
}

// Create 保存新会话
func (s *SessionStore) Create(ctx context.Context, sess *wizard.Session) error {
	ctx, span := tracer.Start(ctx, "redis.SessionStore.Create",
		trace.WithAttributes(attribute.String("wizard.session_id", sess.ID)))
	defer span.End()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ok, err := s.client.rdb.SetNX(ctx, sessionKey(sess.ID), data, s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to save wizard session")
	}
	if !ok {
		return apperrors.ErrConflict.WithDetail("wizard session already exists")
	}
	return nil
}

// Get 读取会话
func (s *SessionStore) Get(ctx context.Context, id string) (*wizard.Session, error) {
	ctx, span := tracer.Start(ctx, "redis.SessionStore.Get",
		trace.WithAttributes(attribute.String("wizard.session_id", id)))
	defer span.End()

	data, err := s.client.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if IsNil(err) {
			return nil, apperrors.ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load wizard session")
	}
	return decodeSession(data)
}

// Update 乐观锁读改写：WATCH 键，事务内写回，冲突时重试
func (s *SessionStore) Update(ctx context.Context, id string, fn func(sess *wizard.Session) error) (*wizard.Session, error) {
	ctx, span := tracer.Start(ctx, "redis.SessionStore.Update",
		trace.WithAttributes(attribute.String("wizard.session_id", id)))
	defer span.End()

	key := sessionKey(id)
	var updated *wizard.Session
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if IsNil(err) {
				return apperrors.ErrSessionNotFound
			}
			return err
		}
		sess, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		out, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err == nil {
			updated = sess
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.rdb.Watch(ctx, txf, key)
		if err == nil {
			span.SetAttributes(attribute.Int("wizard.update_attempts", i+1))
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to update wizard session")
	}
	return nil, apperrors.ErrSessionConflict
}

// Delete 删除会话
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "redis.SessionStore.Delete",
		trace.WithAttributes(attribute.String("wizard.session_id", id)))
	defer span.End()

	if err := s.client.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to delete wizard session")
	}
	return nil
}

func decodeSession(data []byte) (*wizard.Session, error) {
	var sess wizard.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "corrupted wizard session")
	}
	return &sess, nil
}
