package triage

import (
	"context"
	"sync"
)

// lockTable hands out one exclusive slot per conversation. Entries are
// dropped once nobody holds or waits for them.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*conversationLock
}

type conversationLock struct {
	slot chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*conversationLock)}
}

// acquire blocks until the conversation is free or ctx is done.
func (t *lockTable) acquire(ctx context.Context, conversationID string) (func(), error) {
	t.mu.Lock()
	l, ok := t.entries[conversationID]
	if !ok {
		l = &conversationLock{slot: make(chan struct{}, 1)}
		t.entries[conversationID] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.slot
				t.release(conversationID, l)
			})
		}, nil
	case <-ctx.Done():
		t.release(conversationID, l)
		return nil, ctx.Err()
	}
}

func (t *lockTable) release(conversationID string, l *conversationLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.entries, conversationID)
	}
}

func (t *lockTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
