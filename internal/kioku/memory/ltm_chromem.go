package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemLTM implements LongTermStore on chromem-go, a pure-Go embedded
// vector database. The collection holds the similarity index; the item
// records themselves live in a mutex-guarded map, which keeps metadata
// filtering and counting exact without round-tripping through the index.
//
// This backend is in-process and ephemeral, meant for dev mode and tests.
// Durable deployments use SQLiteLTM.
type ChromemLTM struct {
	mu       sync.RWMutex
	items    map[string]MemoryItem
	col      *chromem.Collection
	embedder Embedder
	logger   *slog.Logger
	now      func() time.Time // injectable for tests
}

// NewChromemLTM creates an in-memory ChromemLTM. If logger is nil, the
// default slog logger is used.
func NewChromemLTM(embedder Embedder, logger *slog.Logger) (*ChromemLTM, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db := chromem.NewDB()
	// No embedding func: every document is added with a precomputed vector,
	// so chromem never needs to embed on its own.
	col, err := db.CreateCollection("memory_items", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ltm chromem: create collection: %w", err)
	}
	return &ChromemLTM{
		items:    make(map[string]MemoryItem),
		col:      col,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Add persists a new item and indexes its embedding. A caller-supplied ID
// must not collide with an existing record, archived ones included.
func (c *ChromemLTM) Add(ctx context.Context, item MemoryItem) (MemoryItem, error) {
	if err := item.validate(); err != nil {
		return MemoryItem{}, err
	}
	item.applyDefaults(c.now())

	vec, err := c.embedder.Embed(ctx, item.embeddingText())
	if err != nil {
		return MemoryItem{}, fmt.Errorf("ltm chromem: embed item: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[item.ID]; exists {
		return MemoryItem{}, ErrDuplicateID
	}

	if vec != nil {
		if err := c.col.AddDocument(ctx, chromem.Document{
			ID:        item.ID,
			Content:   item.embeddingText(),
			Embedding: vec,
			Metadata: map[string]string{
				"source":  string(item.Source),
				"section": string(item.Section),
			},
		}); err != nil {
			return MemoryItem{}, fmt.Errorf("ltm chromem: index item: %w", err)
		}
	}
	c.items[item.ID] = item
	return item, nil
}

// Get returns the item with the given ID, or (nil, nil) when absent or
// archived.
func (c *ChromemLTM) Get(_ context.Context, id string) (*MemoryItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok || item.Status != StatusActive {
		return nil, nil
	}
	cp := item
	return &cp, nil
}

// Update replaces an existing item, preserving ID and created_at and
// re-indexing only when title or content changed.
func (c *ChromemLTM) Update(ctx context.Context, item MemoryItem) (MemoryItem, error) {
	if item.ID == "" {
		return MemoryItem{}, &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if err := item.validate(); err != nil {
		return MemoryItem{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.items[item.ID]
	if !ok {
		return MemoryItem{}, ErrNotFound
	}

	item.CreatedAt = existing.CreatedAt
	if item.Section == "" {
		item.Section = existing.Section
	}
	if item.Status == "" {
		item.Status = existing.Status
	}
	item.applyDefaults(c.now())

	if item.embeddingText() != existing.embeddingText() {
		vec, err := c.embedder.Embed(ctx, item.embeddingText())
		if err != nil {
			return MemoryItem{}, fmt.Errorf("ltm chromem: embed item: %w", err)
		}
		if vec != nil {
			// AddDocument replaces the previous index entry for the same ID.
			if err := c.col.AddDocument(ctx, chromem.Document{
				ID:        item.ID,
				Content:   item.embeddingText(),
				Embedding: vec,
				Metadata: map[string]string{
					"source":  string(item.Source),
					"section": string(item.Section),
				},
			}); err != nil {
				return MemoryItem{}, fmt.Errorf("ltm chromem: index item: %w", err)
			}
		}
	}
	c.items[item.ID] = item
	return item, nil
}

// Delete archives the item and drops its index entry. Idempotent.
func (c *ChromemLTM) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok || item.Status != StatusActive {
		return nil
	}

	if err := c.col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("ltm chromem: delete index entry: %w", err)
	}
	item.Status = StatusArchived
	c.items[id] = item
	return nil
}

// Count returns the number of live items, optionally for one section.
func (c *ChromemLTM) Count(_ context.Context, section Section) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, item := range c.items {
		if item.Status != StatusActive {
			continue
		}
		if section != "" && item.Section != section {
			continue
		}
		n++
	}
	return n, nil
}

// Search scores live items against the query using the chromem index for
// similarity and the record map for exact filtering.
func (c *ChromemLTM) Search(ctx context.Context, q MemoryQuery) ([]SearchResult, error) {
	q, err := q.normalize()
	if err != nil {
		return nil, err
	}

	queryVec, err := c.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("ltm chromem: embed query: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	simByID := make(map[string]float64)
	if n := c.col.Count(); n > 0 && queryVec != nil {
		hits, err := c.col.QueryEmbedding(ctx, queryVec, n, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("ltm chromem: query index: %w", err)
		}
		for _, hit := range hits {
			simByID[hit.ID] = float64(hit.Similarity)
		}
	}

	terms := tokenize(q.Query)
	var results []SearchResult
	for _, item := range c.items {
		if item.Status != StatusActive {
			continue
		}
		if q.Section != "" && item.Section != q.Section {
			continue
		}
		if !q.From.IsZero() && item.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && item.CreatedAt.After(q.To) {
			continue
		}
		if !item.matchesFilters(q) {
			continue
		}
		results = append(results, SearchResult{
			Item:       item,
			Score:      clampScore(simByID[item.ID]),
			Highlights: highlights(item.Content, terms),
		})
	}

	rankResults(results)
	if len(results) > q.TopK {
		results = results[:q.TopK]
	}
	return results, nil
}

// Compile-time interface satisfaction check.
var _ LongTermStore = (*ChromemLTM)(nil)
