package memory

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite database with the two memory
// tables and returns the DB handle. The caller should defer db.Close().
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`
		CREATE TABLE conversation_messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX idx_conversation_messages_chat ON conversation_messages(chat_id, seq);
		CREATE TABLE memory_items (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			section TEXT NOT NULL DEFAULT 'note',
			people TEXT,
			tags TEXT,
			location TEXT NOT NULL DEFAULT '',
			event_at TEXT,
			date_bucket TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			embedding TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX idx_memory_items_section ON memory_items(section, status);
	`)
	if err != nil {
		db.Close()
		t.Fatalf("create tables: %v", err)
	}
	return db
}
