package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refine-ai-api/internal/application/wizard"
	"refine-ai-api/internal/domain/catalog"
	apperrors "refine-ai-api/pkg/errors"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

func newSession(id string) *wizard.Session {
	now := time.Now().UTC()
	return &wizard.Session{ID: id, State: wizard.InitialState(catalog.Default()), CreatedAt: now, UpdatedAt: now}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	c, mr := newTestClient(t)
	store := NewSessionStore(c, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1")))
	assert.Equal(t, time.Hour, mr.TTL("wizard:session:s1"))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, wizard.StepCategory, got.State.Step)

	updated, err := store.Update(ctx, "s1", func(s *wizard.Session) error {
		s.State.Objective = "fix my bug"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fix my bug", updated.State.Objective)

	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "fix my bug", got.State.Objective)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestSessionStoreExpires(t *testing.T) {
	c, mr := newTestClient(t)
	store := NewSessionStore(c, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1")))
	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestSessionStoreUpdateErrors(t *testing.T) {
	c, _ := newTestClient(t)
	store := NewSessionStore(c, time.Hour)
	ctx := context.Background()

	_, err := store.Update(ctx, "missing", func(*wizard.Session) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	require.NoError(t, store.Create(ctx, newSession("s1")))
	boom := apperrors.ErrWizardValidation.WithDetail("nope")
	_, err = store.Update(ctx, "s1", func(s *wizard.Session) error {
		s.State.Objective = "should not persist"
		return boom
	})
	assert.ErrorIs(t, err, apperrors.ErrWizardValidation)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.State.Objective)

	assert.Error(t, store.Create(ctx, newSession("s1")))
}

func TestSessionStoreConcurrentUpdates(t *testing.T) {
	c, _ := newTestClient(t)
	store := NewSessionStore(c, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newSession("s1")))

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "s1", func(s *wizard.Session) error {
				s.State.Tone++
				return nil
			})
			if err == nil {
				ok.Add(1)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrSessionConflict)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	// 成功的更新不会丢失
	assert.Equal(t, 50+int(ok.Load()), got.State.Tone)
}

func TestCacheGetOrLoadSafe(t *testing.T) {
	c, _ := newTestClient(t)
	cache := NewCache(c)
	ctx := context.Background()

	var calls atomic.Int32
	loader := func() (interface{}, error) {
		calls.Add(1)
		return "refined", nil
	}

	v, err := cache.GetOrLoadSafe(ctx, "promptgen:k", time.Minute, loader)
	require.NoError(t, err)
	assert.JSONEq(t, `"refined"`, string(v))

	v, err = cache.GetOrLoadSafe(ctx, "promptgen:k", time.Minute, loader)
	require.NoError(t, err)
	assert.JSONEq(t, `"refined"`, string(v))
	assert.EqualValues(t, 1, calls.Load())

	_, err = cache.GetOrLoadSafe(ctx, "promptgen:err", time.Minute, func() (interface{}, error) {
		return nil, errors.New("llm down")
	})
	assert.Error(t, err)

	n, err := cache.InvalidatePattern(ctx, "promptgen:*")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRateLimiterAllow(t *testing.T) {
	c, _ := newTestClient(t)
	limiter := NewRateLimiter(c)
	ctx := context.Background()
	key := BuildRateLimitKey("u1", "generate")

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	remaining, err := limiter.Remaining(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	other, err := limiter.Allow(ctx, BuildRateLimitKey("u2", "generate"), 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other)
}
