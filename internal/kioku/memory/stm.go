package memory

import "context"

// ShortTermStore is the recency-windowed, TTL-bound buffer of recent
// conversation turns, keyed by chat. Retention rule: the per-chat window is
// enforced eagerly on every write; the TTL is enforced lazily on every read
// and reclaimed by a periodic SweepExpired. The observable contract is that
// History never returns a message older than the TTL relative to call time.
type ShortTermStore interface {
	// AddMessage appends a turn and trims the chat to the configured window,
	// oldest excess evicted. Returns the stored message with its assigned ID
	// and timestamp.
	AddMessage(ctx context.Context, msg ConversationMessage) (ConversationMessage, error)

	// History returns the retained turns for a chat, newest first. Equal
	// timestamps are ordered by insertion sequence, newest-inserted first.
	History(ctx context.Context, chatID string, opts HistoryOptions) ([]ConversationMessage, error)

	// ClearChat removes every turn of a chat and returns the removed count.
	ClearChat(ctx context.Context, chatID string) (int, error)

	// Chats returns the IDs of all chats with at least one live (non-expired)
	// message.
	Chats(ctx context.Context) ([]string, error)

	// MessageCount returns the number of live messages stored for a chat.
	MessageCount(ctx context.Context, chatID string) (int, error)

	// SweepExpired deletes messages older than the TTL and returns the
	// number removed. Intended to run periodically from the app loop.
	SweepExpired(ctx context.Context) (int, error)
}
