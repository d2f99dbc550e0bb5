package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// SQLiteLTM implements LongTermStore using SQLite with JSON-encoded list
// fields and brute-force cosine similarity for embedding search. Embeddings
// are stored as JSON float32 arrays; similarity is computed Go-side because
// modernc.org/sqlite does not support custom C functions. At the expected
// scale (hundreds to low thousands of items per assistant) loading the
// filtered candidates and scoring them in Go is fast and dependency-free.
type SQLiteLTM struct {
	db       *sql.DB
	embedder Embedder
	logger   *slog.Logger
	now      func() time.Time // injectable for tests
}

// NewSQLiteLTM creates a SQLiteLTM backed by the given database connection.
// The caller must ensure the memory_items table exists (created by migration
// 0001_init.sql). If logger is nil, the default slog logger is used.
func NewSQLiteLTM(db *sql.DB, embedder Embedder, logger *slog.Logger) *SQLiteLTM {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteLTM{db: db, embedder: embedder, logger: logger, now: time.Now}
}

// Add persists a new item with its indexed embedding. A caller-supplied ID
// must not collide with an existing row, archived rows included.
func (s *SQLiteLTM) Add(ctx context.Context, item MemoryItem) (MemoryItem, error) {
	if err := item.validate(); err != nil {
		return MemoryItem{}, err
	}
	item.applyDefaults(s.now())

	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM memory_items WHERE id = ?", item.ID,
	).Scan(&n); err != nil {
		return MemoryItem{}, fmt.Errorf("ltm sqlite: check id: %w", err)
	}
	if n > 0 {
		return MemoryItem{}, ErrDuplicateID
	}

	vec, err := s.embedder.Embed(ctx, item.embeddingText())
	if err != nil {
		return MemoryItem{}, fmt.Errorf("ltm sqlite: embed item: %w", err)
	}

	if err := s.insert(ctx, item, vec, false); err != nil {
		return MemoryItem{}, err
	}

	s.logger.Debug("ltm sqlite: stored item",
		"id", item.ID,
		"source", item.Source,
		"section", item.Section,
		"has_embedding", vec != nil,
	)
	return item, nil
}

// Get returns the item with the given ID, or (nil, nil) when absent or
// archived.
func (s *SQLiteLTM) Get(ctx context.Context, id string) (*MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, selectItemColumns+`
		FROM memory_items
		WHERE id = ? AND status = ?`,
		id, string(StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("ltm sqlite: query item: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("ltm sqlite: iterate rows: %w", err)
		}
		return nil, nil
	}
	item, _, err := scanItem(rows)
	if err != nil {
		return nil, fmt.Errorf("ltm sqlite: %w", err)
	}
	return &item, nil
}

// Update replaces an existing item, preserving ID and created_at. The
// embedding is recomputed only when the similarity-relevant fields (title,
// content) changed.
func (s *SQLiteLTM) Update(ctx context.Context, item MemoryItem) (MemoryItem, error) {
	if item.ID == "" {
		return MemoryItem{}, &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if err := item.validate(); err != nil {
		return MemoryItem{}, err
	}

	existing, vec, err := s.getWithEmbedding(ctx, item.ID)
	if err != nil {
		return MemoryItem{}, err
	}
	if existing == nil {
		return MemoryItem{}, ErrNotFound
	}

	item.CreatedAt = existing.CreatedAt
	if item.Section == "" {
		item.Section = existing.Section
	}
	if item.Status == "" {
		item.Status = existing.Status
	}
	item.applyDefaults(s.now())

	if item.embeddingText() != existing.embeddingText() {
		vec, err = s.embedder.Embed(ctx, item.embeddingText())
		if err != nil {
			return MemoryItem{}, fmt.Errorf("ltm sqlite: embed item: %w", err)
		}
	}

	if err := s.insert(ctx, item, vec, true); err != nil {
		return MemoryItem{}, err
	}
	return item, nil
}

// Delete archives the item. Idempotent: unknown or already-archived IDs are
// a silent no-op.
func (s *SQLiteLTM) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE memory_items SET status = ? WHERE id = ?",
		string(StatusArchived), id,
	)
	if err != nil {
		return fmt.Errorf("ltm sqlite: archive item: %w", err)
	}
	return nil
}

// Count returns the number of live items, optionally for one section.
func (s *SQLiteLTM) Count(ctx context.Context, section Section) (int, error) {
	query := "SELECT COUNT(*) FROM memory_items WHERE status = ?"
	args := []any{string(StatusActive)}
	if section != "" {
		query += " AND section = ?"
		args = append(args, string(section))
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("ltm sqlite: count items: %w", err)
	}
	return n, nil
}

// Search scores live items against the query. Section and date-range
// filters are pushed into SQL; people/tags membership and similarity are
// applied Go-side on the candidate rows.
func (s *SQLiteLTM) Search(ctx context.Context, q MemoryQuery) ([]SearchResult, error) {
	q, err := q.normalize()
	if err != nil {
		return nil, err
	}

	queryVec, err := s.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("ltm sqlite: embed query: %w", err)
	}

	query := selectItemColumns + " FROM memory_items WHERE status = ?"
	args := []any{string(StatusActive)}
	if q.Section != "" {
		query += " AND section = ?"
		args = append(args, string(q.Section))
	}
	if !q.From.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, formatTime(q.From))
	}
	if !q.To.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, formatTime(q.To))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ltm sqlite: query candidates: %w", err)
	}
	defer rows.Close()

	terms := tokenize(q.Query)
	var results []SearchResult
	for rows.Next() {
		item, vec, err := scanItem(rows)
		if err != nil {
			s.logger.Warn("ltm sqlite: skip malformed row", "err", err)
			continue
		}
		if !item.matchesFilters(q) {
			continue
		}
		results = append(results, SearchResult{
			Item:       item,
			Score:      clampScore(cosineSimilarity(queryVec, vec)),
			Highlights: highlights(item.Content, terms),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ltm sqlite: iterate rows: %w", err)
	}

	rankResults(results)
	if len(results) > q.TopK {
		results = results[:q.TopK]
	}
	return results, nil
}

// rankResults sorts by score descending, ties broken by created_at
// descending (most recent first).
func rankResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.CreatedAt.After(results[j].Item.CreatedAt)
	})
}

// insert writes the full row. With replace set it overwrites the previous
// version of the item, which is how Update persists; Add inserts plainly so
// the primary key backs the duplicate-ID check.
func (s *SQLiteLTM) insert(ctx context.Context, item MemoryItem, vec []float32, replace bool) error {
	peopleJSON, err := marshalList(item.People)
	if err != nil {
		return fmt.Errorf("ltm sqlite: marshal people: %w", err)
	}
	tagsJSON, err := marshalList(item.Tags)
	if err != nil {
		return fmt.Errorf("ltm sqlite: marshal tags: %w", err)
	}

	var embeddingJSON []byte
	if vec != nil {
		embeddingJSON, err = json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("ltm sqlite: marshal embedding: %w", err)
		}
	}

	var eventAt any
	if item.EventAt != nil {
		eventAt = item.EventAt.Format(time.RFC3339Nano)
	}

	verb := "INSERT"
	if replace {
		verb = "INSERT OR REPLACE"
	}
	_, err = s.db.ExecContext(ctx, verb+` INTO memory_items
			(id, source, title, content, section, people, tags, location,
			 event_at, date_bucket, status, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		string(item.Source),
		item.Title,
		item.Content,
		string(item.Section),
		peopleJSON,
		tagsJSON,
		item.Location,
		eventAt,
		item.DateBucket,
		string(item.Status),
		embeddingJSON,
		formatTime(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("ltm sqlite: insert item: %w", err)
	}
	return nil
}

// getWithEmbedding loads an item regardless of status, together with its
// stored embedding, for Update's change detection.
func (s *SQLiteLTM) getWithEmbedding(ctx context.Context, id string) (*MemoryItem, []float32, error) {
	rows, err := s.db.QueryContext(ctx, selectItemColumns+" FROM memory_items WHERE id = ?", id)
	if err != nil {
		return nil, nil, fmt.Errorf("ltm sqlite: query item: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, nil, fmt.Errorf("ltm sqlite: iterate rows: %w", err)
		}
		return nil, nil, nil
	}
	item, vec, err := scanItem(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("ltm sqlite: %w", err)
	}
	return &item, vec, nil
}

// selectItemColumns is the shared column list consumed by scanItem.
const selectItemColumns = `
	SELECT id, source, title, content, section, people, tags, location,
	       event_at, date_bucket, status, embedding, created_at`

// scanItem reads a single row from the memory_items table.
func scanItem(rows *sql.Rows) (MemoryItem, []float32, error) {
	var (
		item          MemoryItem
		source        string
		section       string
		peopleJSON    sql.NullString
		tagsJSON      sql.NullString
		eventAtStr    sql.NullString
		status        string
		embeddingJSON sql.NullString
		createdAtStr  string
	)

	err := rows.Scan(
		&item.ID,
		&source,
		&item.Title,
		&item.Content,
		&section,
		&peopleJSON,
		&tagsJSON,
		&item.Location,
		&eventAtStr,
		&item.DateBucket,
		&status,
		&embeddingJSON,
		&createdAtStr,
	)
	if err != nil {
		return MemoryItem{}, nil, fmt.Errorf("scan row: %w", err)
	}

	item.Source = Source(source)
	item.Section = Section(section)
	item.Status = Status(status)

	if peopleJSON.Valid && peopleJSON.String != "" {
		if err := json.Unmarshal([]byte(peopleJSON.String), &item.People); err != nil {
			return MemoryItem{}, nil, fmt.Errorf("unmarshal people: %w", err)
		}
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &item.Tags); err != nil {
			return MemoryItem{}, nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if eventAtStr.Valid && eventAtStr.String != "" {
		t, err := time.Parse(time.RFC3339Nano, eventAtStr.String)
		if err != nil {
			return MemoryItem{}, nil, fmt.Errorf("parse event_at: %w", err)
		}
		item.EventAt = &t
	}

	var vec []float32
	if embeddingJSON.Valid && embeddingJSON.String != "" {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &vec); err != nil {
			return MemoryItem{}, nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}

	t, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return MemoryItem{}, nil, fmt.Errorf("parse created_at: %w", err)
	}
	item.CreatedAt = t

	return item, vec, nil
}

// marshalList encodes a normalized string list as JSON, or nil for empty.
func marshalList(list []string) ([]byte, error) {
	if len(list) == 0 {
		return nil, nil
	}
	return json.Marshal(list)
}

// Compile-time interface satisfaction check.
var _ LongTermStore = (*SQLiteLTM)(nil)
