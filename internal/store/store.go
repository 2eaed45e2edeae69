// Package store holds the append-only conversation log and its backing drivers.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zhouzirui/mindwell/backend/internal/metrics"
	"github.com/zhouzirui/mindwell/backend/internal/model/chat"
)

var (
	// ErrUnavailable marks every failure to reach the backing medium.
	ErrUnavailable = errors.New("conversation store unavailable")
	// ErrInvalidConversation is returned for an empty conversation id.
	ErrInvalidConversation = errors.New("conversation id is required")
	// ErrDuplicateID is returned when a caller-supplied message id is already
	// stored, in any conversation. Nothing is written.
	ErrDuplicateID = errors.New("message id already exists")

	errClosed = errors.New("store closed")
)

// Store is an append-only, per-conversation ordered message log.
type Store interface {
	// Append stamps msg with an id and created-at when absent and inserts it
	// at the tail of the conversation.
	Append(ctx context.Context, conversationID string, msg chat.Message) (chat.Message, error)
	// List returns the conversation in insertion order; unknown ids yield an
	// empty slice.
	List(ctx context.Context, conversationID string) ([]chat.Message, error)
	Ping(ctx context.Context) error
	Close() error
	Driver() string
}

// Option configures a Store driver.
type Option func(*options)

type options struct {
	clock   clockwork.Clock
	timeout time.Duration
}

// WithClock overrides the clock used for created-at and ULID timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithTimeout bounds every backing-medium call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

// stamper fills in identity and created-at before a message is written.
type stamper struct {
	clock     clockwork.Clock
	ids       *IDGenerator
	precision time.Duration
}

func newStamper(clock clockwork.Clock, precision time.Duration) stamper {
	return stamper{clock: clock, ids: NewIDGenerator(clock), precision: precision}
}

// stamp never lets created-at fall behind the conversation tail, so that
// insertion order and created-at order agree.
func (s stamper) stamp(conversationID string, msg chat.Message, tail time.Time) chat.Message {
	msg.ConversationID = conversationID
	if msg.ID == "" {
		msg.ID = s.ids.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.clock.Now()
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	if s.precision > 0 {
		msg.CreatedAt = msg.CreatedAt.Truncate(s.precision)
	}
	if msg.CreatedAt.Before(tail) {
		msg.CreatedAt = tail
	}
	return msg
}

func duplicateID(id string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateID, id)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func observe(driver, op string, start time.Time, err error) {
	metrics.StoreLatency.WithLabelValues(driver, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreFailures.WithLabelValues(driver, op).Inc()
	}
}
