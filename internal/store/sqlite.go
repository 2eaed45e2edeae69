package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/zhouzirui/mindwell/backend/internal/analysis/triage"
	"github.com/zhouzirui/mindwell/backend/internal/model/chat"
)

const driverSQLite = "sqlite"

// SQLiteStore persists conversations in a local SQLite file.
type SQLiteStore struct {
	db      *sql.DB
	opts    options
	stamper stamper
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// If dbPath is empty, defaults to "./data/mindwell.db".
func NewSQLiteStore(ctx context.Context, dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/mindwell.db"
	}

	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", dbPath, err)
	}
	// one writer keeps the tail read and insert of an append in a single view
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable("open", err)
	}

	o := buildOptions(opts)
	store := &SQLiteStore{db: db, opts: o, stamper: newStamper(o.clock, 0)}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		conversation_id TEXT NOT NULL,
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to init sqlite schema: %w", err)
	}
	return nil
}

// Driver implements Store.
func (s *SQLiteStore) Driver() string { return driverSQLite }

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, conversationID string, msg chat.Message) (stored chat.Message, err error) {
	defer func(start time.Time) { observe(driverSQLite, "append", start, err) }(time.Now())

	if conversationID == "" {
		return chat.Message{}, ErrInvalidConversation
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Message{}, unavailable("append", err)
	}
	defer tx.Rollback()

	var tail time.Time
	var tailNanos int64
	err = tx.QueryRowContext(ctx, `
		SELECT created_at FROM messages
		WHERE conversation_id = ?
		ORDER BY seq DESC LIMIT 1
	`, conversationID).Scan(&tailNanos)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return chat.Message{}, unavailable("append", err)
	default:
		tail = time.Unix(0, tailNanos).UTC()
	}

	stored = s.stamper.stamp(conversationID, msg, tail)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender, content, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, stored.ID, stored.ConversationID, string(stored.Sender), stored.Content, string(stored.Category), stored.CreatedAt.UnixNano())
	var sqliteErr sqlite3.Error
	switch {
	case errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
		return chat.Message{}, duplicateID(stored.ID)
	case err != nil:
		return chat.Message{}, unavailable("append", err)
	}

	if err := tx.Commit(); err != nil {
		return chat.Message{}, unavailable("append", err)
	}
	return stored, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, conversationID string) (out []chat.Message, err error) {
	defer func(start time.Time) { observe(driverSQLite, "list", start, err) }(time.Now())

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, content, category, created_at
		FROM messages
		WHERE conversation_id = ?
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
			nanos    int64
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &sender, &msg.Content, &category, &nanos); err != nil {
			return nil, unavailable("list", err)
		}
		msg.Sender = chat.Sender(sender)
		msg.Category = triage.Category(category)
		msg.CreatedAt = time.Unix(0, nanos).UTC()
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	return out, nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
