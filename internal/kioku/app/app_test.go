package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "kioku.db")
	cfg.SweepInterval = 10 * time.Millisecond

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(a.Stop)
	return a
}

func TestApp_WiresMemoryAndSessions(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	stored, err := a.Memory().SaveMemory(ctx, memory.MemoryItem{
		Source:  memory.SourceCapture,
		Content: "the wifi password is hunter2",
	})
	if err != nil {
		t.Fatalf("SaveMemory() error: %v", err)
	}

	results, err := a.Memory().SearchMemories(ctx, memory.MemoryQuery{Query: "wifi password"})
	if err != nil {
		t.Fatalf("SearchMemories() error: %v", err)
	}
	if len(results) != 1 || results[0].Item.ID != stored.ID {
		t.Errorf("unexpected search results: %+v", results)
	}

	n, err := a.MemoryCount(ctx)
	if err != nil {
		t.Fatalf("MemoryCount() error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 item, got %d", n)
	}

	s := a.Sessions().GetSession("u1", "c1")
	if s == nil {
		t.Fatal("expected a session")
	}
	if a.ActiveSessions() != 1 {
		t.Errorf("expected 1 active session, got %d", a.ActiveSessions())
	}
}

func TestApp_ChromemBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "kioku.db")
	cfg.LTMBackend = "chromem"

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer a.Stop()

	if _, err := a.Memory().SaveMemory(context.Background(), memory.MemoryItem{
		Source:  memory.SourceCapture,
		Content: "ephemeral dev-mode note",
	}); err != nil {
		t.Fatalf("SaveMemory() error: %v", err)
	}
}

func TestApp_RejectsUnknownBackends(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "kioku.db")
	cfg.LTMBackend = "postgres"
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for unknown ltm backend")
	}

	cfg = DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "kioku.db")
	cfg.EmbeddingProvider = "word2vec"
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for unknown embedding provider")
	}
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Give the sweep ticker a few turns, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after context cancellation")
	}
}
