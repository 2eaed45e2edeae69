package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/mindwell/backend/internal/analysis/triage"
	"github.com/zhouzirui/mindwell/backend/internal/model/chat"
	"github.com/zhouzirui/mindwell/backend/internal/store"
)

var epoch = time.Date(2025, 9, 12, 8, 30, 0, 0, time.UTC)

// factory opens a fresh, empty store reading time from clock.
type factory func(t *testing.T, clock clockwork.Clock) store.Store

// runSuite exercises the Store contract shared by every driver.
func runSuite(t *testing.T, open factory) {
	t.Run("unknown conversation lists empty", func(t *testing.T) {
		s := open(t, clockwork.NewFakeClockAt(epoch))
		msgs, err := s.List(context.Background(), "never-seen")
		require.NoError(t, err)
		assert.NotNil(t, msgs)
		assert.Empty(t, msgs)
	})

	t.Run("append stamps id and created-at", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(epoch)
		s := open(t, clock)

		got, err := s.Append(context.Background(), "conv-a", chat.Message{Sender: chat.SenderUser, Content: "hello"})
		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "conv-a", got.ConversationID)
		assert.True(t, got.CreatedAt.Equal(epoch), "created-at %s", got.CreatedAt)

		msgs, err := s.List(context.Background(), "conv-a")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, got.ID, msgs[0].ID)
		assert.Equal(t, "hello", msgs[0].Content)
		assert.Equal(t, chat.SenderUser, msgs[0].Sender)
		assert.True(t, msgs[0].CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("insertion order is preserved and conversations are isolated", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(epoch)
		s := open(t, clock)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			_, err := s.Append(ctx, "conv-a", chat.Message{Sender: chat.SenderUser, Content: fmt.Sprintf("a%d", i)})
			require.NoError(t, err)
			_, err = s.Append(ctx, "conv-b", chat.Message{
				Sender:   chat.SenderSystem,
				Content:  fmt.Sprintf("b%d", i),
				Category: triage.Neutral,
			})
			require.NoError(t, err)
			if i%2 == 0 {
				clock.Advance(time.Millisecond)
			}
		}

		a, err := s.List(ctx, "conv-a")
		require.NoError(t, err)
		b, err := s.List(ctx, "conv-b")
		require.NoError(t, err)
		require.Len(t, a, 5)
		require.Len(t, b, 5)
		for i := 0; i < 5; i++ {
			assert.Equal(t, fmt.Sprintf("a%d", i), a[i].Content)
			assert.Equal(t, fmt.Sprintf("b%d", i), b[i].Content)
			assert.Equal(t, triage.Neutral, b[i].Category)
			if i > 0 {
				assert.False(t, a[i].CreatedAt.Before(a[i-1].CreatedAt))
			}
		}
	})

	t.Run("earlier created-at is raised to the tail", func(t *testing.T) {
		s := open(t, clockwork.NewFakeClockAt(epoch))
		ctx := context.Background()

		_, err := s.Append(ctx, "conv-a", chat.Message{Sender: chat.SenderUser, Content: "first"})
		require.NoError(t, err)

		late, err := s.Append(ctx, "conv-a", chat.Message{
			Sender:    chat.SenderUser,
			Content:   "backdated",
			CreatedAt: epoch.Add(-time.Hour),
		})
		require.NoError(t, err)
		assert.True(t, late.CreatedAt.Equal(epoch))

		msgs, err := s.List(ctx, "conv-a")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "backdated", msgs[1].Content)
	})

	t.Run("caller supplied id is kept", func(t *testing.T) {
		s := open(t, clockwork.NewFakeClockAt(epoch))
		id := uuid.NewString()
		got, err := s.Append(context.Background(), "conv-a", chat.Message{ID: id, Sender: chat.SenderUser, Content: "x"})
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
	})

	t.Run("duplicate id is rejected in every conversation", func(t *testing.T) {
		s := open(t, clockwork.NewFakeClockAt(epoch))
		ctx := context.Background()
		id := uuid.NewString()

		_, err := s.Append(ctx, "conv-a", chat.Message{ID: id, Sender: chat.SenderUser, Content: "first"})
		require.NoError(t, err)

		_, err = s.Append(ctx, "conv-a", chat.Message{ID: id, Sender: chat.SenderUser, Content: "again"})
		require.ErrorIs(t, err, store.ErrDuplicateID)
		assert.NotErrorIs(t, err, store.ErrUnavailable)

		_, err = s.Append(ctx, "conv-b", chat.Message{ID: id, Sender: chat.SenderUser, Content: "elsewhere"})
		require.ErrorIs(t, err, store.ErrDuplicateID)

		a, err := s.List(ctx, "conv-a")
		require.NoError(t, err)
		require.Len(t, a, 1)
		assert.Equal(t, "first", a[0].Content)
		b, err := s.List(ctx, "conv-b")
		require.NoError(t, err)
		assert.Empty(t, b)

		// the rejected append must not block the conversation
		next, err := s.Append(ctx, "conv-a", chat.Message{Sender: chat.SenderUser, Content: "next"})
		require.NoError(t, err)
		assert.NotEqual(t, id, next.ID)
	})

	t.Run("empty conversation id is rejected", func(t *testing.T) {
		s := open(t, clockwork.NewFakeClockAt(epoch))
		_, err := s.Append(context.Background(), "", chat.Message{Sender: chat.SenderUser, Content: "x"})
		assert.ErrorIs(t, err, store.ErrInvalidConversation)
	})

	t.Run("listing twice is idempotent", func(t *testing.T) {
		s := open(t, clockwork.NewFakeClockAt(epoch))
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			_, err := s.Append(ctx, "conv-a", chat.Message{Sender: chat.SenderUser, Content: fmt.Sprint(i)})
			require.NoError(t, err)
		}

		first, err := s.List(ctx, "conv-a")
		require.NoError(t, err)
		first[0].Content = "mutated by caller"

		second, err := s.List(ctx, "conv-a")
		require.NoError(t, err)
		third, err := s.List(ctx, "conv-a")
		require.NoError(t, err)
		assert.Equal(t, "0", second[0].Content)
		assert.Equal(t, second, third)
	})

	t.Run("concurrent appends to distinct conversations", func(t *testing.T) {
		s := open(t, clockwork.NewRealClock())
		ctx := context.Background()

		var g errgroup.Group
		for c := 0; c < 4; c++ {
			conv := fmt.Sprintf("conv-%d", c)
			g.Go(func() error {
				for i := 0; i < 10; i++ {
					if _, err := s.Append(ctx, conv, chat.Message{Sender: chat.SenderUser, Content: fmt.Sprint(i)}); err != nil {
						return err
					}
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		for c := 0; c < 4; c++ {
			msgs, err := s.List(ctx, fmt.Sprintf("conv-%d", c))
			require.NoError(t, err)
			require.Len(t, msgs, 10)
			for i, m := range msgs {
				assert.Equal(t, fmt.Sprint(i), m.Content)
			}
		}
	})

	t.Run("closed store reports unavailable", func(t *testing.T) {
		s := open(t, clockwork.NewFakeClockAt(epoch))
		require.NoError(t, s.Close())

		_, err := s.Append(context.Background(), "conv-a", chat.Message{Sender: chat.SenderUser, Content: "x"})
		assert.ErrorIs(t, err, store.ErrUnavailable)
		_, err = s.List(context.Background(), "conv-a")
		assert.ErrorIs(t, err, store.ErrUnavailable)
		assert.ErrorIs(t, s.Ping(context.Background()), store.ErrUnavailable)
	})
}
