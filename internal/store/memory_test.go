package store_test

import (
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/zhouzirui/mindwell/backend/internal/store"
)

func TestMemoryStore(t *testing.T) {
	runSuite(t, func(t *testing.T, clock clockwork.Clock) store.Store {
		return store.NewMemoryStore(store.WithClock(clock))
	})
}
