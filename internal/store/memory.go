package store

import (
	"context"
	"sync"
	"time"

	"github.com/zhouzirui/mindwell/backend/internal/model/chat"
)

const driverMemory = "memory"

// MemoryStore keeps conversations in process memory. It is the degenerate
// single-process implementation of Store.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message
	ids      map[string]struct{}
	closed   bool
	stamper  stamper
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		messages: make(map[string][]chat.Message),
		ids:      make(map[string]struct{}),
		stamper:  newStamper(o.clock, 0),
	}
}

// Driver implements Store.
func (s *MemoryStore) Driver() string { return driverMemory }

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, conversationID string, msg chat.Message) (stored chat.Message, err error) {
	defer func(start time.Time) { observe(driverMemory, "append", start, err) }(time.Now())

	if conversationID == "" {
		return chat.Message{}, ErrInvalidConversation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return chat.Message{}, unavailable("append", errClosed)
	}
	if _, taken := s.ids[msg.ID]; msg.ID != "" && taken {
		return chat.Message{}, duplicateID(msg.ID)
	}

	log := s.messages[conversationID]
	var tail time.Time
	if n := len(log); n > 0 {
		tail = log[n-1].CreatedAt
	}

	stored = s.stamper.stamp(conversationID, msg, tail)
	s.messages[conversationID] = append(log, stored)
	s.ids[stored.ID] = struct{}{}
	return stored, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, conversationID string) (out []chat.Message, err error) {
	defer func(start time.Time) { observe(driverMemory, "list", start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, unavailable("list", errClosed)
	}

	messages := s.messages[conversationID]
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return unavailable("ping", errClosed)
	}
	return nil
}

// Close drops all conversations; later calls fail with ErrUnavailable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.messages = nil
	s.ids = nil
	return nil
}
