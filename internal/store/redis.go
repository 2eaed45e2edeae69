package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/mindwell/backend/internal/model/chat"
)

const driverRedis = "redis"

// maxAppendRetries bounds how often an append is retried after another
// writer touched the conversation between WATCH and EXEC.
const maxAppendRetries = 32

// RedisStore keeps each conversation as a sorted set scored by sequence.
type RedisStore struct {
	client  *redis.Client
	opts    options
	stamper stamper
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string, opts ...Option) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, unavailable("open", err)
	}

	o := buildOptions(opts)
	return &RedisStore{client: client, opts: o, stamper: newStamper(o.clock, 0)}, nil
}

// conversationMessagesKey returns the key for a conversation's sorted set.
func conversationMessagesKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

// conversationSeqKey returns the key for a conversation's sequence counter.
func conversationSeqKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:seq", conversationID)
}

// messageIDKey marks a message id as taken, across all conversations.
func messageIDKey(messageID string) string {
	return fmt.Sprintf("message:%s", messageID)
}

// Driver implements Store.
func (s *RedisStore) Driver() string { return driverRedis }

// Append implements Store. The tail read, the clamp and the write run under
// WATCH, so a writer in another process that lands in between aborts the
// transaction and the append is retried against the new tail.
func (s *RedisStore) Append(ctx context.Context, conversationID string, msg chat.Message) (stored chat.Message, err error) {
	defer func(start time.Time) { observe(driverRedis, "append", start, err) }(time.Now())

	if conversationID == "" {
		return chat.Message{}, ErrInvalidConversation
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	// id is fixed up front so every retry watches the same key
	if msg.ID == "" {
		msg.ID = s.stamper.ids.New()
	}
	key := conversationMessagesKey(conversationID)
	seqKey := conversationSeqKey(conversationID)
	idKey := messageIDKey(msg.ID)

	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			stored, err = s.appendTx(ctx, tx, conversationID, msg, key, seqKey, idKey)
			return err
		}, key, seqKey, idKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	var encodeErr *json.MarshalerError
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, ErrDuplicateID):
		return chat.Message{}, err
	case errors.As(err, &encodeErr):
		return chat.Message{}, fmt.Errorf("failed to encode message: %w", err)
	default:
		return chat.Message{}, unavailable("append", err)
	}
}

// appendTx runs inside WATCH; the queued writes only apply if none of the
// watched keys changed since the reads below.
func (s *RedisStore) appendTx(ctx context.Context, tx *redis.Tx, conversationID string, msg chat.Message, key, seqKey, idKey string) (chat.Message, error) {
	taken, err := tx.Exists(ctx, idKey).Result()
	if err != nil {
		return chat.Message{}, err
	}
	if taken > 0 {
		return chat.Message{}, duplicateID(msg.ID)
	}

	var tail time.Time
	last, err := tx.ZRevRange(ctx, key, 0, 0).Result()
	if err != nil {
		return chat.Message{}, err
	}
	if len(last) == 1 {
		var prev chat.Message
		if err := json.Unmarshal([]byte(last[0]), &prev); err == nil {
			tail = prev.CreatedAt
		}
	}

	seq, err := tx.Get(ctx, seqKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return chat.Message{}, err
	}

	stored := s.stamper.stamp(conversationID, msg, tail)
	data, err := json.Marshal(stored)
	if err != nil {
		return chat.Message{}, err
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, seqKey, seq+1, 0)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(seq + 1), Member: string(data)})
		pipe.Set(ctx, idKey, conversationID, 0)
		return nil
	})
	if err != nil {
		return chat.Message{}, err
	}
	return stored, nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context, conversationID string) (out []chat.Message, err error) {
	defer func(start time.Time) { observe(driverRedis, "list", start, err) }(time.Now())

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	results, err := s.client.ZRange(ctx, conversationMessagesKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, unavailable("list", err)
	}

	out = make([]chat.Message, 0, len(results))
	for _, data := range results {
		var msg chat.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return nil, fmt.Errorf("corrupt message in %s: %w", conversationID, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
