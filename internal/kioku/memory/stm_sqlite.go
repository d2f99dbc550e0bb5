package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// STMConfig holds configuration for the sqlite short-term store.
type STMConfig struct {
	// WindowSize is the maximum number of messages retained per chat.
	// Default: 50.
	WindowSize int

	// TTL is the maximum age a message may reach before it stops being
	// returned by reads. Default: 24 h.
	TTL time.Duration
}

// DefaultSTMConfig returns an STMConfig with the documented defaults.
func DefaultSTMConfig() STMConfig {
	return STMConfig{
		WindowSize: 50,
		TTL:        24 * time.Hour,
	}
}

// SQLiteSTM implements ShortTermStore on the conversation_messages table.
// The autoincrement seq column gives every write a monotonic sequence so
// history ordering is defined by write order, not wall-clock alone.
type SQLiteSTM struct {
	db     *sql.DB
	cfg    STMConfig
	logger *slog.Logger
	now    func() time.Time // injectable for tests
}

// NewSQLiteSTM creates a SQLiteSTM backed by the given database connection.
// The caller must ensure the conversation_messages table exists (created by
// migration 0001_init.sql). If logger is nil, the default slog logger is used.
func NewSQLiteSTM(db *sql.DB, cfg STMConfig, logger *slog.Logger) *SQLiteSTM {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultSTMConfig().WindowSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSTMConfig().TTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteSTM{db: db, cfg: cfg, logger: logger, now: time.Now}
}

// AddMessage appends a turn and eagerly trims the chat to the window size.
func (s *SQLiteSTM) AddMessage(ctx context.Context, msg ConversationMessage) (ConversationMessage, error) {
	if strings.TrimSpace(msg.ChatID) == "" {
		return ConversationMessage{}, &ValidationError{Field: "chat_id", Reason: "must not be empty"}
	}
	if msg.Role == "" {
		msg.Role = RoleUser
	}
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	msg.Timestamp = msg.Timestamp.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, chat_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ChatID, string(msg.Role), msg.Content, formatTime(msg.Timestamp),
	)
	if err != nil {
		return ConversationMessage{}, fmt.Errorf("stm sqlite: insert message: %w", err)
	}

	// Keep only the most recent WindowSize rows for this chat.
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM conversation_messages
		WHERE chat_id = ? AND seq NOT IN (
			SELECT seq FROM conversation_messages
			WHERE chat_id = ?
			ORDER BY seq DESC
			LIMIT ?
		)`,
		msg.ChatID, msg.ChatID, s.cfg.WindowSize,
	)
	if err != nil {
		return ConversationMessage{}, fmt.Errorf("stm sqlite: enforce window: %w", err)
	}

	return msg, nil
}

// History returns the live turns of a chat, newest first. Messages past the
// TTL are filtered out at read time.
func (s *SQLiteSTM) History(ctx context.Context, chatID string, opts HistoryOptions) ([]ConversationMessage, error) {
	query := `
		SELECT id, chat_id, role, content, created_at
		FROM conversation_messages
		WHERE chat_id = ? AND created_at >= ?`
	args := []any{chatID, formatTime(s.ttlCutoff())}

	if !opts.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, formatTime(opts.Since))
	}
	query += " ORDER BY created_at DESC, seq DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("stm sqlite: query history: %w", err)
	}
	defer rows.Close()

	var msgs []ConversationMessage
	for rows.Next() {
		var (
			m         ConversationMessage
			role      string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("stm sqlite: scan message: %w", err)
		}
		m.Role = Role(role)
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("stm sqlite: parse created_at: %w", err)
		}
		m.Timestamp = t
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stm sqlite: iterate rows: %w", err)
	}
	return msgs, nil
}

// ClearChat removes every stored turn of a chat.
func (s *SQLiteSTM) ClearChat(ctx context.Context, chatID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM conversation_messages WHERE chat_id = ?", chatID)
	if err != nil {
		return 0, fmt.Errorf("stm sqlite: clear chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stm sqlite: rows affected: %w", err)
	}
	return int(n), nil
}

// Chats returns the IDs of chats with at least one live message.
func (s *SQLiteSTM) Chats(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT chat_id FROM conversation_messages
		WHERE created_at >= ?
		ORDER BY chat_id`,
		formatTime(s.ttlCutoff()),
	)
	if err != nil {
		return nil, fmt.Errorf("stm sqlite: query chats: %w", err)
	}
	defer rows.Close()

	var chats []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("stm sqlite: scan chat id: %w", err)
		}
		chats = append(chats, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stm sqlite: iterate rows: %w", err)
	}
	return chats, nil
}

// MessageCount returns the number of live messages stored for a chat.
func (s *SQLiteSTM) MessageCount(ctx context.Context, chatID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversation_messages
		WHERE chat_id = ? AND created_at >= ?`,
		chatID, formatTime(s.ttlCutoff()),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("stm sqlite: count messages: %w", err)
	}
	return n, nil
}

// SweepExpired deletes messages older than the TTL.
func (s *SQLiteSTM) SweepExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM conversation_messages WHERE created_at < ?",
		formatTime(s.ttlCutoff()),
	)
	if err != nil {
		return 0, fmt.Errorf("stm sqlite: sweep expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stm sqlite: rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Debug("stm sqlite: swept expired messages", "removed", n)
	}
	return int(n), nil
}

// ttlCutoff is the oldest timestamp still considered live.
func (s *SQLiteSTM) ttlCutoff() time.Time {
	return s.now().UTC().Add(-s.cfg.TTL)
}

// sqliteTimeFormat is RFC 3339 UTC with zero-padded nanoseconds. The fixed
// width keeps lexicographic comparison in SQL equal to chronological order,
// and the full precision lets stored timestamps round-trip losslessly.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime renders a timestamp in the fixed-width UTC form stored in sqlite.
func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

// Compile-time interface satisfaction check.
var _ ShortTermStore = (*SQLiteSTM)(nil)
