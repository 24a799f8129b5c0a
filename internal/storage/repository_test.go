package storage

import (
	"context"
	"path/filepath"
	"testing"

	"despesas/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "syncd.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleExpenses() []core.Expense {
	return []core.Expense{
		{ID: "e2", Name: "Internet", DueDate: "2026-01-15", Value: core.Money{Cents: 12000}, Category: "Infra", Status: core.StatusPending},
		{ID: "e1", Name: "Rent", DueDate: "2026-01-05", Value: core.Money{Cents: 200000}, Category: "Infra", Status: core.StatusActive},
	}
}

func TestReplaceAndListExpenses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceExpenses(ctx, sampleExpenses()); err != nil {
		t.Fatalf("ReplaceExpenses: %v", err)
	}

	got, err := repo.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("count = %d, want 2", len(got))
	}
	// Listing is ordered by due date, not insertion order.
	if got[0].ID != "e1" || got[1].ID != "e2" {
		t.Errorf("order = [%s %s], want [e1 e2]", got[0].ID, got[1].ID)
	}
	if got[0].Value.Cents != 200000 || got[0].Status != core.StatusActive || got[0].Category != "Infra" {
		t.Errorf("e1 round-trip = %+v", got[0])
	}
	if got[1].DueDate != "2026-01-15" {
		t.Errorf("e2 dueDate = %q", got[1].DueDate)
	}
}

func TestReplaceExpensesIsWholesale(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceExpenses(ctx, sampleExpenses()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	replacement := []core.Expense{
		{ID: "only", Name: "Hosting", DueDate: "2026-02-01", Value: core.Money{Cents: 9900}, Category: "Infra", Status: core.StatusActive},
	}
	if err := repo.ReplaceExpenses(ctx, replacement); err != nil {
		t.Fatalf("ReplaceExpenses: %v", err)
	}

	got, err := repo.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(got) != 1 || got[0].ID != "only" {
		t.Errorf("after replace = %+v, want just the new expense", got)
	}
}

func TestReplaceExpensesEmptyClearsStore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceExpenses(ctx, sampleExpenses()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repo.ReplaceExpenses(ctx, nil); err != nil {
		t.Fatalf("ReplaceExpenses empty: %v", err)
	}

	got, err := repo.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("count = %d, want 0 after empty push", len(got))
	}
}

func TestConfigUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, ok, err := repo.GetConfig(ctx, ConfigRevenue)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if ok {
		t.Error("fresh store reported a revenue config")
	}

	if err := repo.SetConfig(ctx, ConfigRevenue, "5000.00"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if err := repo.SetConfig(ctx, ConfigRevenue, "6000.00"); err != nil {
		t.Fatalf("SetConfig overwrite: %v", err)
	}

	value, ok, err := repo.GetConfig(ctx, ConfigRevenue)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if !ok || value != "6000.00" {
		t.Errorf("GetConfig = (%q, %v), want (\"6000.00\", true)", value, ok)
	}
}
