// Package memory implements Kioku's two-tier conversation memory: a bounded,
// TTL-limited short-term buffer of recent conversation turns and a durable,
// semantically searchable long-term store of captured facts, notes and events.
// The Facade type unifies writes and searches across both tiers and is the
// single entry point used by the rest of the system.
package memory

import "time"

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationMessage is a single turn in a conversation, owned by the
// short-term store. Immutable once written; the store assigns the ID and
// timestamp when the caller leaves them empty.
type ConversationMessage struct {
	ID        string    // unique message ID (ULID, sortable by creation)
	ChatID    string    // chat the turn belongs to
	Role      Role      // user, assistant or system
	Content   string    // message text
	Timestamp time.Time // when this turn was recorded
}

// HistoryOptions narrows a history read. The zero value returns the full
// retained window for a chat, newest first.
type HistoryOptions struct {
	// Limit truncates the result to at most this many messages, newest
	// first, after the Since filter. Zero means no limit.
	Limit int

	// Since filters to messages with a timestamp at or after this instant.
	// The zero time means no lower bound.
	Since time.Time
}
