package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/mindwell/backend/internal/model/chat"
	"github.com/zhouzirui/mindwell/backend/internal/store"
)

func newMiniRedisStore(t *testing.T, mr *miniredis.Miniredis, clock clockwork.Clock) *store.RedisStore {
	t.Helper()
	s, err := store.NewRedisStore(context.Background(), "redis://"+mr.Addr(), store.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStoreOnMiniredis(t *testing.T) {
	runSuite(t, func(t *testing.T, clock clockwork.Clock) store.Store {
		return newMiniRedisStore(t, miniredis.RunT(t), clock)
	})
}

// hookClock runs hook once, the first time the store asks for the time.
type hookClock struct {
	clockwork.Clock
	once sync.Once
	hook func()
}

func (c *hookClock) Now() time.Time {
	c.once.Do(c.hook)
	return c.Clock.Now()
}

func TestRedisStoreClampsAgainstOtherWriters(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	other := newMiniRedisStore(t, mr, clockwork.NewFakeClockAt(epoch))

	var otherMsg chat.Message
	var otherErr error
	clock := &hookClock{
		Clock: clockwork.NewFakeClockAt(epoch),
		hook: func() {
			// another process lands between this writer's tail read and its write
			otherMsg, otherErr = other.Append(ctx, "conv-a", chat.Message{
				Sender:    chat.SenderUser,
				Content:   "other",
				CreatedAt: epoch.Add(time.Second),
			})
		},
	}
	s := newMiniRedisStore(t, mr, clock)

	// a supplied id keeps the id generator off the clock, so the hook fires
	// while created-at is stamped
	mine, err := s.Append(ctx, "conv-a", chat.Message{ID: "mine", Sender: chat.SenderSystem, Content: "mine"})
	require.NoError(t, err)
	require.NoError(t, otherErr)

	assert.True(t, mine.CreatedAt.Equal(epoch.Add(time.Second)), "created-at %s", mine.CreatedAt)

	msgs, err := s.List(ctx, "conv-a")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, otherMsg.ID, msgs[0].ID)
	assert.Equal(t, "mine", msgs[1].ID)
	assert.False(t, msgs[1].CreatedAt.Before(msgs[0].CreatedAt),
		"created-at order %s then %s disagrees with insertion order", msgs[0].CreatedAt, msgs[1].CreatedAt)
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newMiniRedisStore(t, mr, clockwork.NewFakeClockAt(epoch))
	mr.Close()

	_, err := s.Append(context.Background(), "conv-a", chat.Message{Sender: chat.SenderUser, Content: "x"})
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.ErrorIs(t, s.Ping(context.Background()), store.ErrUnavailable)
}
