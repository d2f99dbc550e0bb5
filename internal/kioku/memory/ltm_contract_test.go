package memory

import (
	"context"
	"errors"
	"testing"
	"time"
)

// runLTMContract exercises the LongTermStore behavior every backend must
// share. Backend-specific tests add only what differs.
func runLTMContract(t *testing.T, newStore func(t *testing.T) LongTermStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("AddAssignsDefaults", func(t *testing.T) {
		ltm := newStore(t)

		stored, err := ltm.Add(ctx, MemoryItem{
			Source:  SourceCapture,
			Content: "water the plants on Friday",
			People:  []string{" Alice ", "BOB", "alice"},
			Tags:    []string{"Chores "},
		})
		if err != nil {
			t.Fatalf("Add() error: %v", err)
		}
		if stored.ID == "" {
			t.Error("expected assigned ID")
		}
		if stored.Section != SectionNote {
			t.Errorf("expected default section note, got %q", stored.Section)
		}
		if stored.Status != StatusActive {
			t.Errorf("expected default status active, got %q", stored.Status)
		}
		if stored.CreatedAt.IsZero() {
			t.Error("expected assigned created_at")
		}
		if stored.DateBucket == "" {
			t.Error("expected assigned date bucket")
		}
		if len(stored.People) != 2 || stored.People[0] != "alice" || stored.People[1] != "bob" {
			t.Errorf("expected normalized deduped people, got %v", stored.People)
		}
		if len(stored.Tags) != 1 || stored.Tags[0] != "chores" {
			t.Errorf("expected normalized tags, got %v", stored.Tags)
		}
	})

	t.Run("AddValidation", func(t *testing.T) {
		ltm := newStore(t)

		cases := []struct {
			name  string
			item  MemoryItem
			field string
		}{
			{"missing source", MemoryItem{Content: "text"}, "source"},
			{"missing content", MemoryItem{Source: SourceDiary}, "content"},
			{"blank content", MemoryItem{Source: SourceDiary, Content: "   "}, "content"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := ltm.Add(ctx, tc.item)
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if verr.Field != tc.field {
					t.Errorf("expected field %q, got %q", tc.field, verr.Field)
				}
			})
		}
	})

	t.Run("AddRejectsDuplicateID", func(t *testing.T) {
		ltm := newStore(t)

		stored, err := ltm.Add(ctx, MemoryItem{
			ID:      "pinned-id",
			Source:  SourceImport,
			Content: "first version",
		})
		if err != nil {
			t.Fatalf("Add() error: %v", err)
		}

		_, err = ltm.Add(ctx, MemoryItem{
			ID:      "pinned-id",
			Source:  SourceImport,
			Content: "second version",
		})
		if !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}

		got, err := ltm.Get(ctx, stored.ID)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if got == nil || got.Content != "first version" {
			t.Errorf("expected original item untouched, got %+v", got)
		}
	})

	t.Run("GetAbsentIsSilent", func(t *testing.T) {
		ltm := newStore(t)

		item, err := ltm.Get(ctx, "no-such-id")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if item != nil {
			t.Errorf("expected nil item for unknown ID, got %+v", item)
		}
	})

	t.Run("GetRoundTrip", func(t *testing.T) {
		ltm := newStore(t)

		evt := time.Date(2026, 9, 4, 18, 30, 0, 0, time.FixedZone("CEST", 2*3600))
		stored, err := ltm.Add(ctx, MemoryItem{
			Source:   SourceCapture,
			Title:    "Dinner with Ana",
			Content:  "Dinner at the riverside place",
			Section:  SectionEvent,
			People:   []string{"ana"},
			Location: "riverside",
			EventAt:  &evt,
		})
		if err != nil {
			t.Fatalf("Add() error: %v", err)
		}

		got, err := ltm.Get(ctx, stored.ID)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if got == nil {
			t.Fatal("expected stored item back")
		}
		if got.Title != "Dinner with Ana" || got.Section != SectionEvent || got.Location != "riverside" {
			t.Errorf("round-trip mismatch: %+v", got)
		}
		if got.EventAt == nil || !got.EventAt.Equal(evt) {
			t.Errorf("expected event_at %v, got %v", evt, got.EventAt)
		}
		if got.DateBucket != "2026-09-04" {
			t.Errorf("expected event-derived date bucket, got %q", got.DateBucket)
		}
	})

	t.Run("UpdateUnknownID", func(t *testing.T) {
		ltm := newStore(t)

		_, err := ltm.Update(ctx, MemoryItem{ID: "ghost", Source: SourceCapture, Content: "text"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdatePreservesCreatedAt", func(t *testing.T) {
		ltm := newStore(t)

		stored, err := ltm.Add(ctx, MemoryItem{Source: SourceCapture, Content: "original"})
		if err != nil {
			t.Fatalf("Add() error: %v", err)
		}

		updated, err := ltm.Update(ctx, MemoryItem{
			ID:      stored.ID,
			Source:  stored.Source,
			Content: "revised text",
		})
		if err != nil {
			t.Fatalf("Update() error: %v", err)
		}
		if !updated.CreatedAt.Equal(stored.CreatedAt) {
			t.Errorf("expected created_at preserved, got %v vs %v", updated.CreatedAt, stored.CreatedAt)
		}
		if updated.Section != stored.Section {
			t.Errorf("expected section inherited, got %q", updated.Section)
		}

		got, err := ltm.Get(ctx, stored.ID)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if got == nil || got.Content != "revised text" {
			t.Errorf("expected updated content visible, got %+v", got)
		}
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		ltm := newStore(t)

		stored, err := ltm.Add(ctx, MemoryItem{Source: SourceCapture, Content: "to forget"})
		if err != nil {
			t.Fatalf("Add() error: %v", err)
		}

		if err := ltm.Delete(ctx, stored.ID); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if err := ltm.Delete(ctx, stored.ID); err != nil {
			t.Fatalf("Delete() second call error: %v", err)
		}
		if err := ltm.Delete(ctx, "never-existed"); err != nil {
			t.Fatalf("Delete() unknown id error: %v", err)
		}

		got, err := ltm.Get(ctx, stored.ID)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if got != nil {
			t.Errorf("expected deleted item invisible, got %+v", got)
		}
	})

	t.Run("DeletedItemsLeaveSearchAndCount", func(t *testing.T) {
		ltm := newStore(t)

		kept, err := ltm.Add(ctx, MemoryItem{Source: SourceCapture, Content: "grocery run on Saturday"})
		if err != nil {
			t.Fatalf("Add() error: %v", err)
		}
		dropped, err := ltm.Add(ctx, MemoryItem{Source: SourceCapture, Content: "grocery list for the party"})
		if err != nil {
			t.Fatalf("Add() error: %v", err)
		}
		if err := ltm.Delete(ctx, dropped.ID); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}

		n, err := ltm.Count(ctx, "")
		if err != nil {
			t.Fatalf("Count() error: %v", err)
		}
		if n != 1 {
			t.Errorf("expected count 1 after delete, got %d", n)
		}

		results, err := ltm.Search(ctx, MemoryQuery{Query: "grocery"})
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 1 || results[0].Item.ID != kept.ID {
			t.Errorf("expected only the kept item, got %+v", results)
		}
	})

	t.Run("CountBySection", func(t *testing.T) {
		ltm := newStore(t)

		for _, it := range []MemoryItem{
			{Source: SourceCapture, Content: "a note"},
			{Source: SourceCapture, Content: "a task", Section: SectionTask},
			{Source: SourceCapture, Content: "another task", Section: SectionTask},
		} {
			if _, err := ltm.Add(ctx, it); err != nil {
				t.Fatalf("Add() error: %v", err)
			}
		}

		total, err := ltm.Count(ctx, "")
		if err != nil {
			t.Fatalf("Count() error: %v", err)
		}
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
		tasks, err := ltm.Count(ctx, SectionTask)
		if err != nil {
			t.Fatalf("Count(task) error: %v", err)
		}
		if tasks != 2 {
			t.Errorf("expected 2 tasks, got %d", tasks)
		}
	})

	t.Run("SearchRanking", func(t *testing.T) {
		ltm := newStore(t)

		if _, err := ltm.Add(ctx, MemoryItem{
			Source:  SourceCapture,
			Title:   "Team meeting",
			Content: "Team meeting about Q4 planning and the budget review",
		}); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
		if _, err := ltm.Add(ctx, MemoryItem{
			Source:  SourceCapture,
			Title:   "Lunch break",
			Content: "Lunch break at the noodle shop",
		}); err != nil {
			t.Fatalf("Add() error: %v", err)
		}

		results, err := ltm.Search(ctx, MemoryQuery{Query: "Q4 planning meeting"})
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) == 0 {
			t.Fatal("expected results")
		}
		if results[0].Item.Title != "Team meeting" {
			t.Errorf("expected Team meeting ranked first, got %q", results[0].Item.Title)
		}
		for _, r := range results {
			if r.Score < 0 || r.Score > 1 {
				t.Errorf("score %f outside [0,1] for %q", r.Score, r.Item.Title)
			}
		}
		for i := 1; i < len(results); i++ {
			if results[i].Score > results[i-1].Score {
				t.Errorf("results not sorted by score: %f after %f", results[i].Score, results[i-1].Score)
			}
		}
	})

	t.Run("SearchEqualScoresOrderByRecency", func(t *testing.T) {
		ltm := newStore(t)

		// Identical text embeds identically, so both items score the same
		// and the tie must break on created_at, newest first.
		older := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
		newer := older.Add(48 * time.Hour)
		first, err := ltm.Add(ctx, MemoryItem{
			Source:    SourceCapture,
			Content:   "dentist appointment downtown",
			CreatedAt: older,
		})
		if err != nil {
			t.Fatalf("Add() error: %v", err)
		}
		second, err := ltm.Add(ctx, MemoryItem{
			Source:    SourceCapture,
			Content:   "dentist appointment downtown",
			CreatedAt: newer,
		})
		if err != nil {
			t.Fatalf("Add() error: %v", err)
		}

		results, err := ltm.Search(ctx, MemoryQuery{Query: "dentist appointment"})
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].Score != results[1].Score {
			t.Fatalf("expected equal scores, got %f and %f", results[0].Score, results[1].Score)
		}
		if results[0].Item.ID != second.ID || results[1].Item.ID != first.ID {
			t.Errorf("expected the newer item ranked first, got %q then %q",
				results[0].Item.ID, results[1].Item.ID)
		}
	})

	t.Run("SearchConjunctiveFilters", func(t *testing.T) {
		ltm := newStore(t)

		if _, err := ltm.Add(ctx, MemoryItem{
			Source:  SourceCapture,
			Content: "project sync with the platform team",
			Section: SectionEvent,
			People:  []string{"alice", "bob"},
			Tags:    []string{"work"},
		}); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
		if _, err := ltm.Add(ctx, MemoryItem{
			Source:  SourceCapture,
			Content: "project sync notes",
			Section: SectionEvent,
			People:  []string{"alice"},
			Tags:    []string{"work"},
		}); err != nil {
			t.Fatalf("Add() error: %v", err)
		}

		// Both people must match; only the first item carries bob.
		results, err := ltm.Search(ctx, MemoryQuery{
			Query:   "project sync",
			Section: SectionEvent,
			People:  []string{"Alice", "BOB"},
			Tags:    []string{"work"},
		})
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if !containsAll(results[0].Item.People, []string{"alice", "bob"}) {
			t.Errorf("wrong item matched: %+v", results[0].Item)
		}

		// A section mismatch empties the result despite matching text.
		results, err = ltm.Search(ctx, MemoryQuery{Query: "project sync", Section: SectionTask})
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results for wrong section, got %d", len(results))
		}
	})

	t.Run("SearchQueryValidation", func(t *testing.T) {
		ltm := newStore(t)

		if _, err := ltm.Search(ctx, MemoryQuery{Query: "   "}); err == nil {
			t.Error("expected error for empty query")
		}
		if _, err := ltm.Search(ctx, MemoryQuery{Query: "x", TopK: MaxTopK + 1}); err == nil {
			t.Error("expected error for top-k above the cap")
		}
		if _, err := ltm.Search(ctx, MemoryQuery{Query: "x", TopK: -1}); err == nil {
			t.Error("expected error for negative top-k")
		}
	})

	t.Run("SearchTopKTruncation", func(t *testing.T) {
		ltm := newStore(t)

		for i := 0; i < 8; i++ {
			if _, err := ltm.Add(ctx, MemoryItem{
				Source:  SourceCapture,
				Content: "reading list entry about distributed systems",
			}); err != nil {
				t.Fatalf("Add() error: %v", err)
			}
		}

		results, err := ltm.Search(ctx, MemoryQuery{Query: "distributed systems", TopK: 3})
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 3 {
			t.Errorf("expected 3 results, got %d", len(results))
		}

		// Default top-k caps the full result set at 5.
		results, err = ltm.Search(ctx, MemoryQuery{Query: "distributed systems"})
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != DefaultTopK {
			t.Errorf("expected default top-k %d results, got %d", DefaultTopK, len(results))
		}
	})

	t.Run("SearchEmptyResultIsNotAnError", func(t *testing.T) {
		ltm := newStore(t)

		results, err := ltm.Search(ctx, MemoryQuery{Query: "nothing stored yet"})
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected empty result, got %d", len(results))
		}
	})
}
