package cache

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadMissingSlot(t *testing.T) {
	store := newTestStore(t)

	value, ok, err := store.Load(context.Background(), SlotExpenses)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok || value != "" {
		t.Errorf("missing slot = (%q, %v), want (\"\", false)", value, ok)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, SlotRevenue, "5000"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	value, ok, err := store.Load(ctx, SlotRevenue)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok || value != "5000" {
		t.Errorf("Load = (%q, %v), want (\"5000\", true)", value, ok)
	}

	// Upsert overwrites.
	if err := store.Save(ctx, SlotRevenue, "6000"); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	value, _, _ = store.Load(ctx, SlotRevenue)
	if value != "6000" {
		t.Errorf("after overwrite = %q, want \"6000\"", value)
	}
}

func TestSlotsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	ctx := context.Background()

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Save(ctx, SlotFilterStart, "2026-01-01"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	value, ok, err := reopened.Load(ctx, SlotFilterStart)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if !ok || value != "2026-01-01" {
		t.Errorf("Load after reopen = (%q, %v), want (\"2026-01-01\", true)", value, ok)
	}
}
