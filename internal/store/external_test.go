package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/mindwell/backend/internal/model/chat"
	"github.com/zhouzirui/mindwell/backend/internal/store"
)

// namespaced keeps runs against a shared server from seeing each other.
type namespaced struct {
	store.Store
	prefix string
}

func (n namespaced) Append(ctx context.Context, id string, msg chat.Message) (chat.Message, error) {
	if id == "" {
		return n.Store.Append(ctx, id, msg)
	}
	stored, err := n.Store.Append(ctx, n.prefix+id, msg)
	stored.ConversationID = id
	return stored, err
}

func (n namespaced) List(ctx context.Context, id string) ([]chat.Message, error) {
	msgs, err := n.Store.List(ctx, n.prefix+id)
	for i := range msgs {
		msgs[i].ConversationID = id
	}
	return msgs, err
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	runSuite(t, func(t *testing.T, clock clockwork.Clock) store.Store {
		s, err := store.NewRedisStore(context.Background(), url, store.WithClock(clock))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return namespaced{Store: s, prefix: uuid.NewString() + ":"}
	})
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	runSuite(t, func(t *testing.T, clock clockwork.Clock) store.Store {
		s, err := store.NewPostgresStore(context.Background(), url, store.WithClock(clock))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return namespaced{Store: s, prefix: uuid.NewString() + ":"}
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := store.Open(context.Background(), "cassandra", "")
	require.Error(t, err)

	s, err := store.Open(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, "memory", s.Driver())
}
