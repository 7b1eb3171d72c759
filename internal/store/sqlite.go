// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides user/conversation/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed. Pass ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database exists per connection; cap the pool so every
	// query sees the same data.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name  TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			photo_url  TEXT NOT NULL DEFAULT '',
			role_id    INTEGER NOT NULL DEFAULT 0,
			status     TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS conversations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_low   INTEGER NOT NULL REFERENCES users(id),
			user_high  INTEGER NOT NULL REFERENCES users(id),
			created_at TEXT NOT NULL,

			UNIQUE(user_low, user_high),
			CHECK (user_low < user_high)
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_user_low ON conversations(user_low);
		CREATE INDEX IF NOT EXISTS idx_conversations_user_high ON conversations(user_high);

		CREATE TABLE IF NOT EXISTS messages (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL REFERENCES conversations(id),
			sender_id       INTEGER NOT NULL REFERENCES users(id),
			body            TEXT NOT NULL,
			sent_at         TEXT NOT NULL,
			read            INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);
		CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(conversation_id, read, sender_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// CreateUser inserts a user row and fills in the assigned ID.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Status == "" {
		user.Status = "active"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (first_name, last_name, email, photo_url, role_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PhotoURL,
		user.RoleID,
		user.Status,
		user.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID, "email", user.Email)
	return nil
}

// GetUser retrieves a user by ID.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, photo_url, role_id, status, created_at
		FROM users
		WHERE id = ?
	`, id).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PhotoURL,
		&user.RoleID,
		&user.Status,
		&createdAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &user, nil
}

// CreateConversation inserts a conversation row and fills in the assigned ID.
// The pair must already be canonical (UserLow < UserHigh). If a conversation
// for the pair already exists, it returns ErrDuplicateConversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	if conv.UserLow >= conv.UserHigh {
		return fmt.Errorf("conversation pair not canonical: (%d, %d)", conv.UserLow, conv.UserHigh)
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (user_low, user_high, created_at)
		VALUES (?, ?, ?)
	`,
		conv.UserLow,
		conv.UserHigh,
		conv.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateConversation
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	conv.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading conversation id: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID, "user_low", conv.UserLow, "user_high", conv.UserHigh)
	return nil
}

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	return s.scanConversation(s.db.QueryRowContext(ctx, `
		SELECT id, user_low, user_high, created_at
		FROM conversations
		WHERE id = ?
	`, id))
}

// GetConversationByPair retrieves the conversation for a canonical user pair.
// Returns ErrNotFound if no conversation exists for the pair.
func (s *SQLiteStore) GetConversationByPair(ctx context.Context, userLow, userHigh int64) (*Conversation, error) {
	return s.scanConversation(s.db.QueryRowContext(ctx, `
		SELECT id, user_low, user_high, created_at
		FROM conversations
		WHERE user_low = ? AND user_high = ?
	`, userLow, userHigh))
}

func (s *SQLiteStore) scanConversation(row *sql.Row) (*Conversation, error) {
	var conv Conversation
	var createdAtStr string

	err := row.Scan(&conv.ID, &conv.UserLow, &conv.UserHigh, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	conv.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &conv, nil
}

// ListConversationSummaries returns one summary per conversation the user is a
// member of, ordered by most recent activity first. Unread counts exclude
// messages the user sent themselves.
func (s *SQLiteStore) ListConversationSummaries(ctx context.Context, userID int64) ([]*ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.id,
			other.id,
			other.first_name || ' ' || other.last_name,
			other.photo_url,
			(SELECT COUNT(*) FROM messages
			 WHERE conversation_id = c.id AND read = 0 AND sender_id != ?),
			lm.body,
			lm.sent_at
		FROM conversations c
		JOIN users other ON other.id = CASE WHEN c.user_low = ? THEN c.user_high ELSE c.user_low END
		LEFT JOIN (
			SELECT m.conversation_id, m.body, m.sent_at, m.id
			FROM messages m
			WHERE m.id = (SELECT MAX(id) FROM messages WHERE conversation_id = m.conversation_id)
		) lm ON lm.conversation_id = c.id
		WHERE c.user_low = ? OR c.user_high = ?
		ORDER BY lm.id DESC
	`, userID, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversation summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*ConversationSummary
	for rows.Next() {
		var sum ConversationSummary
		var lastBody sql.NullString
		var lastSentAt sql.NullString

		if err := rows.Scan(
			&sum.ConversationID,
			&sum.OtherUserID,
			&sum.OtherUserName,
			&sum.OtherUserPhotoURL,
			&sum.UnreadCount,
			&lastBody,
			&lastSentAt,
		); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}

		if lastBody.Valid && lastSentAt.Valid {
			sentAt, err := time.Parse(time.RFC3339Nano, lastSentAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing last message sent_at: %w", err)
			}
			sum.LastMessage = &LastMessage{Body: lastBody.String, SentAt: sentAt}
		}

		summaries = append(summaries, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summaries: %w", err)
	}

	return summaries, nil
}

// AppendMessage inserts a message and fills in the assigned ID and server
// timestamp. Within a conversation, history order is id order, which is the
// order appends complete.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	msg.SentAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, body, sent_at, read)
		VALUES (?, ?, ?, ?, 0)
	`,
		msg.ConversationID,
		msg.SenderID,
		msg.Body,
		msg.SentAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	msg.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading message id: %w", err)
	}
	msg.Read = false

	s.logger.Debug("appended message",
		"id", msg.ID,
		"conversation_id", msg.ConversationID,
		"sender_id", msg.SenderID)
	return nil
}

// ListMessages returns all messages in a conversation, oldest first, with the
// sender's display name joined in.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id,
		       u.first_name || ' ' || u.last_name,
		       m.body, m.sent_at, m.read
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ?
		ORDER BY m.id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var sentAtStr string
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.SenderName,
			&msg.Body,
			&sentAtStr,
			&msg.Read,
		); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}

		msg.SentAt, err = time.Parse(time.RFC3339Nano, sentAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing sent_at: %w", err)
		}

		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return messages, nil
}

// MarkConversationRead flags every message in the conversation not sent by
// readerID as read.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, conversationID, readerID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET read = 1
		WHERE conversation_id = ? AND sender_id != ?
	`, conversationID, readerID)
	if err != nil {
		return fmt.Errorf("marking conversation read: %w", err)
	}

	s.logger.Debug("marked conversation read", "conversation_id", conversationID, "reader_id", readerID)
	return nil
}
