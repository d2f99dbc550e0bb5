package memory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies how a memory item entered the long-term store.
type Source string

// Memory item sources.
const (
	SourceCapture      Source = "capture"      // explicit "remember this" flow
	SourceDiary        Source = "diary"        // diary entries
	SourceConversation Source = "conversation" // synthesized from chat history
	SourceImport       Source = "import"       // bulk import
)

// Section is the coarse category a memory item is filed under.
type Section string

// Memory item sections.
const (
	SectionNote    Section = "note"
	SectionEvent   Section = "event"
	SectionTask    Section = "task"
	SectionList    Section = "list"
	SectionContact Section = "contact"
)

// Status marks whether an item is live or logically removed.
type Status string

// Memory item statuses.
const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// MemoryItem is a single long-term memory record. People and Tags are
// normalized (lower-cased, trimmed) by the store at write time so that
// filter matching is exact and predictable for every caller.
type MemoryItem struct {
	ID         string     // unique item ID (UUID)
	Source     Source     // required
	Title      string     // short human-readable title
	Content    string     // required; the remembered text
	Section    Section    // defaults to "note"
	People     []string   // normalized people names
	Tags       []string   // normalized tags
	Location   string     // free-form place string
	EventAt    *time.Time // event start, with its original zone offset
	DateBucket string     // coarse "YYYY-MM-DD" bucket for temporal filtering
	Status     Status     // defaults to "active"
	CreatedAt  time.Time  // assigned by the store on Add when zero
}

// Result caps for MemoryQuery.TopK.
const (
	DefaultTopK = 5
	MaxTopK     = 50
)

// MemoryQuery describes a long-term search. All supplied filters are
// conjunctive: an item must satisfy every one of them to be a candidate.
type MemoryQuery struct {
	Query   string    // required query text
	Section Section   // optional section filter
	People  []string  // optional; every listed person must be on the item
	Tags    []string  // optional; every listed tag must be on the item
	From    time.Time // optional created-at lower bound (inclusive)
	To      time.Time // optional created-at upper bound (inclusive)
	TopK    int       // result cap; 0 means DefaultTopK, above MaxTopK is invalid
}

// SearchResult pairs a memory item with its relevance score in [0,1] and
// optional highlighted excerpts from the content.
type SearchResult struct {
	Item       MemoryItem
	Score      float64
	Highlights []string
}

// ValidationError reports malformed input to a store operation. It is
// surfaced synchronously and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("memory: invalid %s: %s", e.Field, e.Reason)
}

// ErrNotFound is returned by Update when the item ID is unknown. Get and
// Delete treat an absent ID as a defined non-error outcome instead.
var ErrNotFound = errors.New("memory: item not found")

// ErrDuplicateID is returned by Add when a caller-supplied ID collides with
// an existing item, live or archived. Overwrites go through Update.
var ErrDuplicateID = errors.New("memory: duplicate item id")

// validate checks the fields required on every write.
func (it *MemoryItem) validate() error {
	if it.Source == "" {
		return &ValidationError{Field: "source", Reason: "must not be empty"}
	}
	if strings.TrimSpace(it.Content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return nil
}

// applyDefaults fills the store-owned fields: ID, section, status,
// created_at, the date bucket, and normalized people/tags lists.
func (it *MemoryItem) applyDefaults(now time.Time) {
	if it.ID == "" {
		it.ID = uuid.New().String()
	}
	if it.Section == "" {
		it.Section = SectionNote
	}
	if it.Status == "" {
		it.Status = StatusActive
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now.UTC()
	}
	it.People = normalizeList(it.People)
	it.Tags = normalizeList(it.Tags)
	if it.DateBucket == "" {
		bucket := it.CreatedAt
		if it.EventAt != nil {
			bucket = *it.EventAt
		}
		it.DateBucket = bucket.Format(time.DateOnly)
	}
}

// embeddingText is the similarity representation source: title and content
// joined so that both contribute to the indexed vector.
func (it *MemoryItem) embeddingText() string {
	if it.Title == "" {
		return it.Content
	}
	return it.Title + "\n" + it.Content
}

// normalize validates the query and fills defaults. Returns a copy so the
// caller's query is never mutated.
func (q MemoryQuery) normalize() (MemoryQuery, error) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return q, &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if q.TopK < 0 || q.TopK > MaxTopK {
		return q, &ValidationError{Field: "top_k", Reason: fmt.Sprintf("must be between 0 and %d", MaxTopK)}
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	q.People = normalizeList(q.People)
	q.Tags = normalizeList(q.Tags)
	return q, nil
}

// normalizeList lower-cases and trims every element, dropping empties and
// duplicates while preserving order. Returns nil for an empty result.
func normalizeList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// containsAll reports whether every element of want is present in have.
// Both sides are expected to be normalized already.
func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, v := range have {
		set[v] = struct{}{}
	}
	for _, v := range want {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

// matchesFilters applies the non-SQL filters (people, tags) of a normalized
// query to an item. Section and date-range filters are applied by the
// backend's candidate scan.
func (it *MemoryItem) matchesFilters(q MemoryQuery) bool {
	return containsAll(it.People, q.People) && containsAll(it.Tags, q.Tags)
}
