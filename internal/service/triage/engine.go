// Package triage runs one conversation turn: store the utterance, classify
// it, pick a reply and store that reply.
package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	analysis "github.com/zhouzirui/mindwell/backend/internal/analysis/triage"
	"github.com/zhouzirui/mindwell/backend/internal/metrics"
	"github.com/zhouzirui/mindwell/backend/internal/model/chat"
	"github.com/zhouzirui/mindwell/backend/internal/model/resource"
	"github.com/zhouzirui/mindwell/backend/internal/service/reply"
	"github.com/zhouzirui/mindwell/backend/internal/store"
)

// DefaultConversationID is used when the caller names no conversation.
const DefaultConversationID = "default"

// ErrInvalidInput rejects empty or whitespace-only utterances.
var ErrInvalidInput = errors.New("message must not be empty")

// ClassificationFault is the panic value raised when classification yields
// something outside the known categories. It is a programming error.
type ClassificationFault struct {
	Category analysis.Category
	Err      error
}

func (f ClassificationFault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("classification fault for %q: %v", f.Category, f.Err)
	}
	return fmt.Sprintf("classification fault: unknown category %q", f.Category)
}

// State is a step of the per-turn state machine.
type State string

const (
	StateIdle        State = "idle" // no turn in flight; never reported
	StateSubmitted   State = "submitted"
	StateClassifying State = "classifying"
	StateReplying    State = "replying"
	StateSettled     State = "settled"
)

// Event is reported to an Observer on every state transition. Message is the
// stored user message for Submitted and the stored reply for Settled.
type Event struct {
	State          State
	ConversationID string
	Category       analysis.Category
	Message        *chat.Message
}

// Observer receives turn events synchronously, on the submitting goroutine.
type Observer func(Event)

// Turn is the outcome of a settled submission.
type Turn struct {
	User      chat.Message              `json:"-"`
	Reply     chat.Message              `json:"reply"`
	Resources []resource.CrisisResource `json:"resources"`
}

// Config tunes the engine.
type Config struct {
	DefaultConversation string
	// TypingDelay plus a draw from [0, TypingJitter) is waited before the
	// reply is stored.
	TypingDelay  time.Duration
	TypingJitter time.Duration
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the clock driving the typing delay.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine orchestrates turns. Turns of one conversation are serialized;
// different conversations proceed independently.
type Engine struct {
	store    store.Store
	selector *reply.Selector
	classify func(string) analysis.Category
	clock    clockwork.Clock
	cfg      Config
	locks    *lockTable
	logger   zerolog.Logger
}

// NewEngine wires the engine to its store and reply selector.
func NewEngine(st store.Store, selector *reply.Selector, cfg Config, opts ...Option) *Engine {
	if cfg.DefaultConversation == "" {
		cfg.DefaultConversation = DefaultConversationID
	}
	if selector == nil {
		selector = reply.NewSelector(nil, nil)
	}

	e := &Engine{
		store:    st,
		selector: selector,
		classify: analysis.Classify,
		clock:    clockwork.NewRealClock(),
		cfg:      cfg,
		locks:    newLockTable(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ResolveConversation maps an empty id to the default conversation.
func (e *Engine) ResolveConversation(conversationID string) string {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return e.cfg.DefaultConversation
	}
	return conversationID
}

// Submit runs one turn and returns the stored reply.
func (e *Engine) Submit(ctx context.Context, conversationID, text string) (Turn, error) {
	return e.SubmitWithObserver(ctx, conversationID, text, nil)
}

// SubmitWithObserver is Submit with progress reporting. The user message is
// stored before any reply work starts; a later failure or cancellation
// leaves it in place and returns an error instead of a reply.
func (e *Engine) SubmitWithObserver(ctx context.Context, conversationID, text string, observe Observer) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		metrics.RejectedSubmissions.WithLabelValues("invalid_input").Inc()
		return Turn{}, ErrInvalidInput
	}
	if observe == nil {
		observe = func(Event) {}
	}

	conversationID = e.ResolveConversation(conversationID)

	unlock, err := e.locks.acquire(ctx, conversationID)
	if err != nil {
		e.reject(conversationID, "waiting for conversation", err)
		return Turn{}, err
	}
	defer unlock()

	user, err := e.store.Append(ctx, conversationID, chat.Message{
		Sender:  chat.SenderUser,
		Content: text,
	})
	if err != nil {
		e.reject(conversationID, "storing user message", err)
		return Turn{}, fmt.Errorf("failed to store user message: %w", err)
	}
	observe(Event{State: StateSubmitted, ConversationID: conversationID, Message: &user})

	observe(Event{State: StateClassifying, ConversationID: conversationID})
	category := e.classify(user.Content)
	if !category.Valid() {
		panic(ClassificationFault{Category: category})
	}

	selected, err := e.selector.Select(category)
	if err != nil {
		panic(ClassificationFault{Category: category, Err: err})
	}

	observe(Event{State: StateReplying, ConversationID: conversationID, Category: category})
	if err := e.typing(ctx); err != nil {
		e.reject(conversationID, "waiting to reply", err)
		return Turn{User: user}, err
	}

	sys, err := e.store.Append(ctx, conversationID, chat.Message{
		Sender:   chat.SenderSystem,
		Content:  selected.Text,
		Category: category,
	})
	if err != nil {
		e.reject(conversationID, "storing reply", err)
		return Turn{User: user}, fmt.Errorf("failed to store reply: %w", err)
	}

	resources := selected.Resources
	if resources == nil {
		resources = []resource.CrisisResource{}
	}

	metrics.TurnsTotal.WithLabelValues(string(category)).Inc()
	logEvent := e.logger.Info()
	if category == analysis.Crisis {
		metrics.CrisisEscalations.Inc()
		logEvent = e.logger.Warn()
	}
	logEvent.
		Str("conversation_id", conversationID).
		Str("category", string(category)).
		Str("user_message_id", user.ID).
		Str("reply_id", sys.ID).
		Msg("turn settled")

	observe(Event{State: StateSettled, ConversationID: conversationID, Category: category, Message: &sys})
	return Turn{User: user, Reply: sys, Resources: resources}, nil
}

// History returns the conversation in creation order.
func (e *Engine) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	return e.store.List(ctx, e.ResolveConversation(conversationID))
}

// CrisisResources returns the table attached to crisis replies.
func (e *Engine) CrisisResources() []resource.CrisisResource {
	return e.selector.CrisisResources()
}

// typing waits out the reply delay; ctx cancellation drops the reply.
func (e *Engine) typing(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	delay := e.cfg.TypingDelay + e.selector.Jitter(e.cfg.TypingJitter)
	if delay <= 0 {
		return nil
	}

	timer := e.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) reject(conversationID, stage string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = "canceled"
	case errors.Is(err, store.ErrUnavailable):
		reason = "store_unavailable"
	case errors.Is(err, store.ErrDuplicateID):
		reason = "duplicate_id"
	}
	metrics.RejectedSubmissions.WithLabelValues(reason).Inc()

	e.logger.Error().
		Err(err).
		Str("conversation_id", conversationID).
		Str("stage", stage).
		Msg("turn did not settle")
}
