package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"despesas/internal/cache"
	"despesas/internal/core"
	"despesas/internal/remote"
)

type fakeStore struct {
	slots   map[string]string
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{slots: map[string]string{}}
}

func (s *fakeStore) Load(_ context.Context, key string) (string, bool, error) {
	v, ok := s.slots[key]
	return v, ok, nil
}

func (s *fakeStore) Save(_ context.Context, key, value string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.slots[key] = value
	return nil
}

type fakeRemote struct {
	fetchPayload *remote.Payload
	fetchErr     error
	pushErr      error
	pushed       []remote.Payload
	pingErr      error
}

func (r *fakeRemote) FetchAll(context.Context) (*remote.Payload, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return r.fetchPayload, nil
}

func (r *fakeRemote) PushAll(_ context.Context, p remote.Payload) error {
	if r.pushErr != nil {
		return r.pushErr
	}
	r.pushed = append(r.pushed, p)
	return nil
}

func (r *fakeRemote) Ping(context.Context) error { return r.pingErr }

func seedExpenses(t *testing.T, store *fakeStore, expenses []core.Expense) {
	t.Helper()
	b, err := json.Marshal(expenses)
	if err != nil {
		t.Fatalf("marshal expenses: %v", err)
	}
	store.slots[cache.SlotExpenses] = string(b)
}

func strPtr(s string) *string           { return &s }
func datePtr(d core.Date) *core.Date    { return &d }
func moneyPtr(m core.Money) *core.Money { return &m }

func TestStartupOfflineServesCachedState(t *testing.T) {
	store := newFakeStore()
	seedExpenses(t, store, []core.Expense{
		{ID: "e1", Name: "Rent", DueDate: "2026-01-05", Value: core.Money{Cents: 200000}, Category: "Infra", Status: core.StatusActive},
	})
	store.slots[cache.SlotRevenue] = "5000.00"

	rem := &fakeRemote{fetchErr: errors.New("connection refused")}
	orch := NewOrchestrator(context.Background(), store, rem)
	orch.Start(context.Background())

	if !orch.Ready() {
		t.Fatal("orchestrator not ready after failed remote hydration")
	}
	if orch.Online() {
		t.Error("online after failed fetch, want offline")
	}

	state := orch.State()
	if len(state.Expenses) != 1 || state.Expenses[0].ID != "e1" {
		t.Errorf("expenses = %+v, want cached e1", state.Expenses)
	}
	if state.Revenue.Cents != 500000 {
		t.Errorf("revenue = %d cents, want 500000", state.Revenue.Cents)
	}
}

func TestStartupRemoteOverwritesCache(t *testing.T) {
	store := newFakeStore()
	seedExpenses(t, store, []core.Expense{
		{ID: "stale", Name: "Old", DueDate: "2025-12-01", Value: core.Money{Cents: 100}, Category: "Outros", Status: core.StatusActive},
	})

	revenue := core.Money{Cents: 700000}
	rem := &fakeRemote{fetchPayload: &remote.Payload{
		Expenses: []core.Expense{
			{ID: "r1", Name: "Hosting", DueDate: "2026-01-10", Value: core.Money{Cents: 9900}, Category: "Infra", Status: core.StatusActive},
		},
		Revenue: &revenue,
	}}

	orch := NewOrchestrator(context.Background(), store, rem)
	orch.Start(context.Background())

	state := orch.State()
	if len(state.Expenses) != 1 || state.Expenses[0].ID != "r1" {
		t.Errorf("expenses = %+v, want remote r1", state.Expenses)
	}
	if state.Revenue.Cents != 700000 {
		t.Errorf("revenue = %d cents, want 700000", state.Revenue.Cents)
	}
	// Fields the payload omitted keep their local values.
	if state.FilterStart != core.DefaultFilterStart {
		t.Errorf("filterStart = %q, want default %q", state.FilterStart, core.DefaultFilterStart)
	}
	if !orch.Online() {
		t.Error("offline after successful fetch")
	}
}

func TestStartupEmptyRemoteKeepsLocalState(t *testing.T) {
	store := newFakeStore()
	seedExpenses(t, store, []core.Expense{
		{ID: "e1", Name: "Rent", DueDate: "2026-01-05", Value: core.Money{Cents: 200000}, Category: "Infra", Status: core.StatusActive},
	})
	store.slots[cache.SlotRevenue] = "5000.00"

	// A fresh remote store reports an empty expense list and a zero
	// revenue. That must not erase the cached data.
	rem := &fakeRemote{fetchPayload: &remote.Payload{
		Expenses: []core.Expense{},
		Revenue:  moneyPtr(core.Money{}),
	}}
	orch := NewOrchestrator(context.Background(), store, rem)
	orch.Start(context.Background())

	if !orch.Online() {
		t.Error("offline after successful fetch of an empty store")
	}
	state := orch.State()
	if len(state.Expenses) != 1 || state.Expenses[0].ID != "e1" {
		t.Errorf("expenses = %+v, want cached e1 preserved", state.Expenses)
	}
	if state.Revenue.Cents != 500000 {
		t.Errorf("revenue = %d cents, want cached 500000", state.Revenue.Cents)
	}
}

func TestStartupMissingCacheUsesDefaults(t *testing.T) {
	orch := NewOrchestrator(context.Background(), newFakeStore(), &fakeRemote{fetchErr: errors.New("down")})
	orch.Start(context.Background())

	state := orch.State()
	if len(state.Expenses) != 0 {
		t.Errorf("expenses = %+v, want empty", state.Expenses)
	}
	if len(state.Categories) != len(core.DefaultCategories) {
		t.Errorf("categories = %v, want defaults", state.Categories)
	}
	if state.FilterStart != core.DefaultFilterStart || state.FilterEnd != core.DefaultFilterEnd {
		t.Errorf("filter window = %q..%q, want defaults", state.FilterStart, state.FilterEnd)
	}
}

func TestAddExpenseAssignsIDAndDefaults(t *testing.T) {
	store := newFakeStore()
	orch := NewOrchestrator(context.Background(), store, &fakeRemote{})
	orch.Start(context.Background())

	patch := core.ExpensePatch{
		Name:     strPtr("Internet"),
		DueDate:  datePtr("2026-01-15"),
		Value:    moneyPtr(core.Money{Cents: 12000}),
		Category: strPtr("Infra"),
	}
	created, ok := orch.AddOrEditExpense(context.Background(), patch, "")
	if !ok {
		t.Fatal("add reported failure")
	}
	if created.ID == "" {
		t.Error("created expense has no id")
	}
	if created.Status != core.StatusActive {
		t.Errorf("status = %q, want Active default", created.Status)
	}

	state := orch.State()
	if len(state.Expenses) != 1 {
		t.Fatalf("expense count = %d, want 1", len(state.Expenses))
	}
	if got := state.ItemCategories["Internet"]; got != "Infra" {
		t.Errorf("item category memory = %q, want Infra", got)
	}

	// Mutation must be mirrored to the local cache synchronously.
	var cached []core.Expense
	if err := json.Unmarshal([]byte(store.slots[cache.SlotExpenses]), &cached); err != nil {
		t.Fatalf("unmarshal cached expenses: %v", err)
	}
	if len(cached) != 1 || cached[0].ID != created.ID {
		t.Errorf("cached expenses = %+v, want the new expense", cached)
	}
}

func TestEditExpenseTargetsOnlyMatch(t *testing.T) {
	store := newFakeStore()
	seedExpenses(t, store, []core.Expense{
		{ID: "e1", Name: "Rent", DueDate: "2026-01-05", Value: core.Money{Cents: 200000}, Category: "Infra", Status: core.StatusActive},
		{ID: "e2", Name: "Rent", DueDate: "2026-01-20", Value: core.Money{Cents: 200000}, Category: "Infra", Status: core.StatusActive},
	})
	orch := NewOrchestrator(context.Background(), store, &fakeRemote{fetchErr: errors.New("down")})
	orch.Start(context.Background())

	updated, ok := orch.AddOrEditExpense(context.Background(), core.ExpensePatch{Value: moneyPtr(core.Money{Cents: 210000})}, "e2")
	if !ok {
		t.Fatal("edit reported failure")
	}
	if updated.ID != "e2" || updated.Value.Cents != 210000 {
		t.Errorf("updated = %+v", updated)
	}

	state := orch.State()
	if state.Expenses[0].Value.Cents != 200000 {
		t.Error("edit leaked into a different expense")
	}
	if len(state.Expenses) != 2 {
		t.Errorf("expense count = %d, want 2", len(state.Expenses))
	}
}

func TestEditUnknownIDLeavesCollectionButLearnsCategory(t *testing.T) {
	orch := NewOrchestrator(context.Background(), newFakeStore(), &fakeRemote{})
	orch.Start(context.Background())

	patch := core.ExpensePatch{Name: strPtr("Coffee"), Category: strPtr("Insumos")}
	_, ok := orch.AddOrEditExpense(context.Background(), patch, "ghost")
	if ok {
		t.Error("edit of unknown id reported success")
	}

	state := orch.State()
	if len(state.Expenses) != 0 {
		t.Errorf("expenses = %+v, want unchanged empty collection", state.Expenses)
	}
	if got := state.ItemCategories["Coffee"]; got != "Insumos" {
		t.Errorf("item category memory = %q, want Insumos even on edit miss", got)
	}
}

func TestDeleteExpense(t *testing.T) {
	store := newFakeStore()
	seedExpenses(t, store, []core.Expense{
		{ID: "e1", Name: "Rent", DueDate: "2026-01-05", Value: core.Money{Cents: 200000}, Category: "Infra", Status: core.StatusActive},
	})
	orch := NewOrchestrator(context.Background(), store, &fakeRemote{fetchErr: errors.New("down")})
	orch.Start(context.Background())

	if !orch.DeleteExpense(context.Background(), "e1") {
		t.Error("delete of existing expense returned false")
	}
	if orch.DeleteExpense(context.Background(), "e1") {
		t.Error("second delete returned true")
	}
	if got := len(orch.State().Expenses); got != 0 {
		t.Errorf("expense count = %d, want 0", got)
	}
}

func TestAddCategoryDeduplicates(t *testing.T) {
	orch := NewOrchestrator(context.Background(), newFakeStore(), &fakeRemote{})
	orch.Start(context.Background())

	if !orch.AddCategory(context.Background(), "Frete") {
		t.Error("new category rejected")
	}
	if orch.AddCategory(context.Background(), "Frete") {
		t.Error("duplicate category accepted")
	}
	if orch.AddCategory(context.Background(), "Infra") {
		t.Error("default category accepted as new")
	}
	if orch.AddCategory(context.Background(), "  ") {
		t.Error("blank category accepted")
	}

	cats := orch.State().Categories
	if cats[len(cats)-1] != "Frete" {
		t.Errorf("categories = %v, want Frete appended", cats)
	}
}

func TestSyncPushesFullSnapshot(t *testing.T) {
	rem := &fakeRemote{}
	orch := NewOrchestrator(context.Background(), newFakeStore(), rem)
	orch.Start(context.Background())

	orch.AddOrEditExpense(context.Background(), core.ExpensePatch{
		Name: strPtr("Rent"), DueDate: datePtr("2026-01-05"),
		Value: moneyPtr(core.Money{Cents: 200000}), Category: strPtr("Infra"),
	}, "")
	orch.UpdateRevenue(context.Background(), core.Money{Cents: 500000}, "2026-01-31", "2026-01-01", "2026-01-31")

	if err := orch.Sync(context.Background(), false); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(rem.pushed) != 1 {
		t.Fatalf("push count = %d, want 1", len(rem.pushed))
	}
	pushed := rem.pushed[0]
	if len(pushed.Expenses) != 1 || pushed.Expenses[0].Name != "Rent" {
		t.Errorf("pushed expenses = %+v", pushed.Expenses)
	}
	if pushed.Revenue == nil || pushed.Revenue.Cents != 500000 {
		t.Errorf("pushed revenue = %+v, want 500000 cents", pushed.Revenue)
	}
	if pushed.FilterStartDate == nil || pushed.FilterEndDate == nil {
		t.Error("push must carry the full snapshot, filter dates missing")
	}
}

func TestSyncLocalOnlySkipsPush(t *testing.T) {
	rem := &fakeRemote{}
	store := newFakeStore()
	orch := NewOrchestrator(context.Background(), store, rem)
	orch.Start(context.Background())

	if err := orch.Sync(context.Background(), true); err != nil {
		t.Fatalf("Sync localOnly: %v", err)
	}
	if len(rem.pushed) != 0 {
		t.Errorf("push count = %d, want 0", len(rem.pushed))
	}
	if _, ok := store.slots[cache.SlotExpenses]; !ok {
		t.Error("local persistence skipped on localOnly sync")
	}
}

func TestSyncOfflineSkipsPushWithoutError(t *testing.T) {
	rem := &fakeRemote{pushErr: errors.New("must not be called")}
	orch := NewOrchestrator(context.Background(), newFakeStore(), rem)
	orch.Start(context.Background())
	orch.SetOnline(false)

	if err := orch.Sync(context.Background(), false); err != nil {
		t.Fatalf("Sync while offline: %v", err)
	}
}

func TestSyncReportsPushFailure(t *testing.T) {
	pushErr := errors.New("remote exploded")
	rem := &fakeRemote{pushErr: pushErr}
	store := newFakeStore()
	orch := NewOrchestrator(context.Background(), store, rem)
	orch.Start(context.Background())

	err := orch.Sync(context.Background(), false)
	if !errors.Is(err, pushErr) {
		t.Fatalf("Sync error = %v, want push failure", err)
	}
	// Local durability is unaffected by the remote failure.
	if _, ok := store.slots[cache.SlotRevenue]; !ok {
		t.Error("local slots not written despite push failure")
	}
}

func TestViewsFollowFilterWindow(t *testing.T) {
	store := newFakeStore()
	seedExpenses(t, store, []core.Expense{
		{ID: "in", Name: "Rent", DueDate: "2026-01-05", Value: core.Money{Cents: 200000}, Category: "Infra", Status: core.StatusActive},
		{ID: "out", Name: "Later", DueDate: "2026-02-05", Value: core.Money{Cents: 100}, Category: "Outros", Status: core.StatusActive},
		{ID: "gone", Name: "Old", DueDate: "2026-01-10", Value: core.Money{Cents: 100}, Category: "Outros", Status: core.StatusArchived},
	})
	orch := NewOrchestrator(context.Background(), store, &fakeRemote{fetchErr: errors.New("down")})
	orch.Start(context.Background())

	active := orch.Active("")
	if len(active) != 1 || active[0].ID != "in" {
		t.Errorf("active = %+v, want only the in-window active expense", active)
	}

	orch.SetEndDate(context.Background(), "2026-02-28")
	if got := len(orch.Active("")); got != 2 {
		t.Errorf("active after widening window = %d, want 2", got)
	}

	summary := orch.Summary("")
	if summary.Count != 2 {
		t.Errorf("summary count = %d, want 2", summary.Count)
	}
}

func TestConnectivityMonitorFeedsOnlineFlag(t *testing.T) {
	rem := &fakeRemote{pingErr: errors.New("unreachable")}
	orch := NewOrchestrator(context.Background(), newFakeStore(), rem)
	orch.Start(context.Background())

	monitor := NewConnectivityMonitor(rem, orch, time.Second)
	monitor.probe(context.Background())
	if orch.Online() {
		t.Error("online after failed probe")
	}

	rem.pingErr = nil
	monitor.probe(context.Background())
	if !orch.Online() {
		t.Error("offline after successful probe")
	}
}

func TestConnectivityMonitorLifecycle(t *testing.T) {
	rem := &fakeRemote{}
	orch := NewOrchestrator(context.Background(), newFakeStore(), rem)
	orch.Start(context.Background())

	monitor := NewConnectivityMonitor(rem, orch, time.Minute)
	if monitor.IsRunning() {
		t.Error("running before Start")
	}
	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !monitor.IsRunning() {
		t.Error("not running after Start")
	}
	if err := monitor.Start(context.Background()); err == nil {
		t.Error("second Start accepted, want already-running error")
	}
	if err := monitor.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if monitor.IsRunning() {
		t.Error("still running after Stop")
	}
}
