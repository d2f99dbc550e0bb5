package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bdobrica/Kioku/common/trace"
)

// Facade unifies the two memory tiers for the rest of the system. It is the
// only caller of the stores' mutating operations from outside this package:
// the orchestrator records every turn through it, saves durable facts
// through it, and reads back context and search results through it.
type Facade struct {
	stm    ShortTermStore
	ltm    LongTermStore
	logger *slog.Logger
}

// NewFacade creates a Facade over the given tiers. If logger is nil, the
// default slog logger is used.
func NewFacade(stm ShortTermStore, ltm LongTermStore, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{stm: stm, ltm: ltm, logger: logger}
}

// SaveMemory persists a durable memory item and returns the stored record
// including its assigned ID and timestamps.
func (f *Facade) SaveMemory(ctx context.Context, item MemoryItem) (MemoryItem, error) {
	stored, err := f.ltm.Add(ctx, item)
	if err != nil {
		return MemoryItem{}, err
	}
	f.log(ctx).Info("memory: saved item", "id", stored.ID, "section", stored.Section)
	return stored, nil
}

// SearchMemories runs a ranked long-term search.
func (f *Facade) SearchMemories(ctx context.Context, q MemoryQuery) ([]SearchResult, error) {
	return f.ltm.Search(ctx, q)
}

// GetMemory returns a single long-term item, or (nil, nil) when absent.
func (f *Facade) GetMemory(ctx context.Context, id string) (*MemoryItem, error) {
	return f.ltm.Get(ctx, id)
}

// UpdateMemory replaces an existing long-term item.
func (f *Facade) UpdateMemory(ctx context.Context, item MemoryItem) (MemoryItem, error) {
	return f.ltm.Update(ctx, item)
}

// ForgetMemory logically removes a long-term item. Idempotent.
func (f *Facade) ForgetMemory(ctx context.Context, id string) error {
	return f.ltm.Delete(ctx, id)
}

// CountMemories counts live long-term items, optionally per section.
func (f *Facade) CountMemories(ctx context.Context, section Section) (int, error) {
	return f.ltm.Count(ctx, section)
}

// RecordTurn appends one conversation turn to the short-term buffer. Called
// once per inbound and outbound message.
func (f *Facade) RecordTurn(ctx context.Context, msg ConversationMessage) (ConversationMessage, error) {
	return f.stm.AddMessage(ctx, msg)
}

// History returns the retained recent turns of a chat, newest first.
func (f *Facade) History(ctx context.Context, chatID string, opts HistoryOptions) ([]ConversationMessage, error) {
	return f.stm.History(ctx, chatID, opts)
}

// ClearChat drops the short-term buffer of a chat and returns the removed
// count.
func (f *Facade) ClearChat(ctx context.Context, chatID string) (int, error) {
	n, err := f.stm.ClearChat(ctx, chatID)
	if err != nil {
		return 0, err
	}
	f.log(ctx).Info("memory: cleared chat", "chat_id", chatID, "removed", n)
	return n, nil
}

// Search merges both tiers for callers that want semantic recall and recent
// conversational context in one response. Long-term results come first,
// ranked by score; short-term matches (substring hits within the given
// chat's retained window) are appended after them. Entries are deduplicated
// by content so a fact that was both captured and recently discussed shows
// up once.
func (f *Facade) Search(ctx context.Context, chatID string, q MemoryQuery) ([]SearchResult, error) {
	results, err := f.ltm.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	msgs, err := f.stm.History(ctx, chatID, HistoryOptions{})
	if err != nil {
		return nil, fmt.Errorf("memory: search history: %w", err)
	}

	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		seen[dedupKey(r.Item.Content)] = struct{}{}
	}

	terms := tokenize(q.Query)
	for _, msg := range msgs {
		if !containsAnyTerm(msg.Content, terms) {
			continue
		}
		key := dedupKey(msg.Content)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, SearchResult{
			Item: MemoryItem{
				ID:        msg.ID,
				Source:    SourceConversation,
				Content:   msg.Content,
				Section:   SectionNote,
				Status:    StatusActive,
				CreatedAt: msg.Timestamp,
			},
			// Recency matches carry no similarity score; they rank after
			// every scored long-term result.
			Score:      0,
			Highlights: highlights(msg.Content, terms),
		})
	}
	return results, nil
}

// log returns the facade logger, enriched with the trace ID when the context
// carries one, so every line of a single turn correlates in the output.
func (f *Facade) log(ctx context.Context) *slog.Logger {
	if id := trace.FromContext(ctx); id != "" {
		return f.logger.With("trace_id", id)
	}
	return f.logger
}

// containsAnyTerm reports whether any query term occurs in content,
// case-insensitively.
func containsAnyTerm(content string, terms []string) bool {
	lower := strings.ToLower(content)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// dedupKey normalizes content for duplicate detection across tiers.
func dedupKey(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}
