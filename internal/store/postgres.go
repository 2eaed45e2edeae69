package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhouzirui/mindwell/backend/internal/analysis/triage"
	"github.com/zhouzirui/mindwell/backend/internal/model/chat"
)

const driverPostgres = "postgres"

// uniqueViolation is the SQLSTATE for a UNIQUE constraint failure.
const uniqueViolation = "23505"

// PostgresStore persists conversations in PostgreSQL through a connection pool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	opts    options
	stamper stamper
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string, opts ...Option) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable("open", err)
	}

	o := buildOptions(opts)
	// timestamptz keeps microseconds
	store := &PostgresStore{pool: pool, opts: o, stamper: newStamper(o.clock, time.Microsecond)}

	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversation_messages (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_conversation_messages_conversation
			ON conversation_messages (conversation_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("failed to init postgres schema: %w", err)
	}
	return nil
}

// Driver implements Store.
func (s *PostgresStore) Driver() string { return driverPostgres }

// Append implements Store. Appends to the same conversation are serialized
// across processes by a transaction-scoped advisory lock.
func (s *PostgresStore) Append(ctx context.Context, conversationID string, msg chat.Message) (stored chat.Message, err error) {
	defer func(start time.Time) { observe(driverPostgres, "append", start, err) }(time.Now())

	if conversationID == "" {
		return chat.Message{}, ErrInvalidConversation
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, conversationID); err != nil {
			return err
		}

		var tail time.Time
		err := tx.QueryRow(ctx, `
			SELECT created_at FROM conversation_messages
			WHERE conversation_id = $1
			ORDER BY seq DESC LIMIT 1
		`, conversationID).Scan(&tail)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		stored = s.stamper.stamp(conversationID, msg, tail.UTC())

		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_messages (id, conversation_id, sender, content, category, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, stored.ID, stored.ConversationID, string(stored.Sender), stored.Content, string(stored.Category), stored.CreatedAt)
		return err
	})
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return chat.Message{}, duplicateID(stored.ID)
	case err != nil:
		return chat.Message{}, unavailable("append", err)
	}
	return stored, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, conversationID string) (out []chat.Message, err error) {
	defer func(start time.Time) { observe(driverPostgres, "list", start, err) }(time.Now())

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender, content, category, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY seq ASC
	`, conversationID)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	out = make([]chat.Message, 0, 16)
	for rows.Next() {
		var (
			msg      chat.Message
			sender   string
			category string
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &sender, &msg.Content, &category, &msg.CreatedAt); err != nil {
			return nil, unavailable("list", err)
		}
		msg.Sender = chat.Sender(sender)
		msg.Category = triage.Category(category)
		msg.CreatedAt = msg.CreatedAt.UTC()
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	return out, nil
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
