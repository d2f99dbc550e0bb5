package memory

import "context"

// LongTermStore is the durable, semantically searchable archive of memory
// items. Implementations index a similarity representation of each item's
// title+content at write time and answer ranked queries with optional
// conjunctive metadata filters.
//
// Absence semantics: Get and Delete treat an unknown ID as a defined,
// silent outcome; only Update reports ErrNotFound. An empty Search result
// is a valid, meaningful signal, not an error.
type LongTermStore interface {
	// Add persists a new item, computing and indexing its similarity
	// representation. Returns the stored record with assigned ID, defaults
	// and timestamps filled in. Missing source or content yields a
	// ValidationError; a caller-supplied ID that already exists yields
	// ErrDuplicateID.
	Add(ctx context.Context, item MemoryItem) (MemoryItem, error)

	// Get returns the item with the given ID, or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*MemoryItem, error)

	// Update replaces an existing item, preserving its ID and created_at
	// and re-indexing the similarity representation when title or content
	// changed. Returns ErrNotFound for an unknown ID.
	Update(ctx context.Context, item MemoryItem) (MemoryItem, error)

	// Delete logically removes the item and its index entry. Idempotent:
	// deleting an absent or already-deleted ID is a no-op.
	Delete(ctx context.Context, id string) error

	// Count returns the number of live items, optionally restricted to one
	// section ("" counts all sections).
	Count(ctx context.Context, section Section) (int, error)

	// Search ranks live items against the query text. Candidates are
	// pre-filtered by every supplied filter, scored in [0,1], sorted by
	// score descending with created_at descending as the tie-break, and
	// truncated to the query's top-k.
	Search(ctx context.Context, q MemoryQuery) ([]SearchResult, error)
}
