package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refine-ai-api/internal/domain/repository"
)

func newTestFeed(t *testing.T) (*ChangeFeed, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewChangeFeed(rdb, 100, 50*time.Millisecond), rdb
}

func receive(t *testing.T, ch <-chan repository.ChangeEvent) repository.ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	return repository.ChangeEvent{}
}

func TestChangeFeedDeliversOnlyNewEvents(t *testing.T) {
	feed, _ := newTestFeed(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 订阅前的变更不重放
	require.NoError(t, feed.Publish(ctx, repository.ChangeEvent{ID: "old", UserID: "u1", Topic: repository.TopicPrompts, Action: repository.ActionCreated}))

	ch, err := feed.Subscribe(ctx, "u1", repository.TopicPrompts)
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, repository.ChangeEvent{ID: "e1", UserID: "u1", Topic: repository.TopicPrompts, Action: repository.ActionDeleted, EntityID: "p1"}))

	ev := receive(t, ch)
	assert.Equal(t, "e1", ev.ID)
	assert.Equal(t, repository.ActionDeleted, ev.Action)
	assert.Equal(t, "p1", ev.EntityID)
}

func TestChangeFeedIsScopedByUserAndTopic(t *testing.T) {
	feed, _ := newTestFeed(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx, "u1", repository.TopicTemplates)
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, repository.ChangeEvent{ID: "x", UserID: "u2", Topic: repository.TopicTemplates}))
	require.NoError(t, feed.Publish(ctx, repository.ChangeEvent{ID: "y", UserID: "u1", Topic: repository.TopicPrompts}))
	require.NoError(t, feed.Publish(ctx, repository.ChangeEvent{ID: "z", UserID: "u1", Topic: repository.TopicTemplates}))

	assert.Equal(t, "z", receive(t, ch).ID)
}

func TestChangeFeedClosesOnCancel(t *testing.T) {
	feed, _ := newTestFeed(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := feed.Subscribe(ctx, "u1", repository.TopicPrompts)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestProducerTrimsStream(t *testing.T) {
	_, rdb := newTestFeed(t)
	p := NewProducer(rdb, 5)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		_, err := p.PublishChange(ctx, repository.ChangeEvent{UserID: "u1", Topic: repository.TopicPrompts})
		require.NoError(t, err)
	}
	n, err := rdb.XLen(ctx, string(ChangeStream("u1", repository.TopicPrompts))).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, n, int64(20))
	assert.Greater(t, n, int64(0))
}
