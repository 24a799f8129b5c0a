package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"despesas/internal/cache"
	"despesas/internal/core"
	"despesas/internal/remote"
)

// SlotStore is the local persistence tier (see internal/cache).
type SlotStore interface {
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string) error
}

// RemoteStore is the remote sync endpoint (see internal/remote).
type RemoteStore interface {
	FetchAll(ctx context.Context) (*remote.Payload, error)
	PushAll(ctx context.Context, payload remote.Payload) error
	Ping(ctx context.Context) error
}

// Orchestrator owns the canonical dashboard state. It hydrates from the
// local cache at construction, reconciles with the remote store once at
// startup, mirrors every mutation back to the cache, and pushes the full
// snapshot to the remote store only on explicit save. Remote failures
// never propagate: the orchestrator degrades to local-only operation.
type Orchestrator struct {
	store  SlotStore
	remote RemoteStore

	mu     sync.Mutex
	state  core.Snapshot
	ready  bool
	online bool
}

// NewOrchestrator builds the orchestrator and synchronously seeds its
// state from the local cache, falling back to built-in defaults for any
// missing slot. The orchestrator stays in its initializing phase (not
// ready, no change-triggered persistence) until Start has run.
func NewOrchestrator(ctx context.Context, store SlotStore, remoteStore RemoteStore) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		remote: remoteStore,
		state:  core.DefaultSnapshot(),
		online: true,
	}
	o.hydrateFromCache(ctx)
	return o
}

func (o *Orchestrator) hydrateFromCache(ctx context.Context) {
	o.loadJSONSlot(ctx, cache.SlotExpenses, &o.state.Expenses)
	o.loadJSONSlot(ctx, cache.SlotCategories, &o.state.Categories)
	o.loadJSONSlot(ctx, cache.SlotItemMap, &o.state.ItemCategories)
	if o.state.ItemCategories == nil {
		o.state.ItemCategories = map[string]string{}
	}

	if raw, ok := o.loadSlot(ctx, cache.SlotRevenue); ok {
		if amount, err := core.ParseMoney(raw); err != nil {
			slog.WarnContext(ctx, "Discarding unparsable cached revenue", "value", raw, "error", err)
		} else {
			o.state.Revenue = amount
		}
	}

	o.loadDateSlot(ctx, cache.SlotRevenueDate, &o.state.RevenueDate)
	o.loadDateSlot(ctx, cache.SlotRevenueStart, &o.state.RevenueStart)
	o.loadDateSlot(ctx, cache.SlotRevenueEnd, &o.state.RevenueEnd)
	o.loadDateSlot(ctx, cache.SlotFilterStart, &o.state.FilterStart)
	o.loadDateSlot(ctx, cache.SlotFilterEnd, &o.state.FilterEnd)
}

func (o *Orchestrator) loadSlot(ctx context.Context, key string) (string, bool) {
	raw, ok, err := o.store.Load(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "Cache load failed", "key", key, "error", err)
		return "", false
	}
	return raw, ok
}

func (o *Orchestrator) loadJSONSlot(ctx context.Context, key string, dst any) {
	raw, ok := o.loadSlot(ctx, key)
	if !ok {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		slog.WarnContext(ctx, "Discarding unparsable cached slot", "key", key, "error", err)
	}
}

func (o *Orchestrator) loadDateSlot(ctx context.Context, key string, dst *core.Date) {
	raw, ok := o.loadSlot(ctx, key)
	if !ok || raw == "" {
		return
	}
	*dst = core.Date(raw)
}

// Start performs the one-shot remote hydration: a single FetchAll whose
// result, when it carries at least one expense, overwrites the
// cache-seeded state field by field. A failure or an empty remote store
// leaves the local state untouched. The orchestrator is ready when
// Start returns, no matter what happened; there is no retry loop.
func (o *Orchestrator) Start(ctx context.Context) {
	payload, err := o.remote.FetchAll(ctx)

	o.mu.Lock()
	switch {
	case err != nil:
		o.online = false
		slog.WarnContext(ctx, "Initial remote load failed, using local cache", "error", err)
	case payload == nil || len(payload.Expenses) == 0:
		// A fresh remote store answers with an empty expense list and a
		// zero revenue. Applying that would wipe locally cached data the
		// remote has never seen; keep the local state and let the next
		// save seed the remote instead.
		o.online = true
		slog.InfoContext(ctx, "Remote store empty, keeping local state")
	default:
		o.online = true
		o.applyPayloadLocked(payload)
		slog.InfoContext(ctx, "Hydrated state from remote store",
			"expenses", len(o.state.Expenses),
			"revenue_cents", o.state.Revenue.Cents)
	}
	o.ready = true
	o.mu.Unlock()
}

// applyPayloadLocked overwrites only the fields the payload carries.
func (o *Orchestrator) applyPayloadLocked(p *remote.Payload) {
	o.state.Expenses = append([]core.Expense(nil), p.Expenses...)
	if p.Revenue != nil {
		o.state.Revenue = *p.Revenue
	}
	if p.RevenueDate != nil {
		o.state.RevenueDate = *p.RevenueDate
	}
	if p.RevenueStartDate != nil {
		o.state.RevenueStart = *p.RevenueStartDate
	}
	if p.RevenueEndDate != nil {
		o.state.RevenueEnd = *p.RevenueEndDate
	}
	if p.FilterStartDate != nil {
		o.state.FilterStart = *p.FilterStartDate
	}
	if p.FilterEndDate != nil {
		o.state.FilterEnd = *p.FilterEndDate
	}
}

// Ready reports whether startup hydration has completed.
func (o *Orchestrator) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ready
}

func (o *Orchestrator) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// SetOnline updates the live connectivity flag. The flag gates remote
// pushes only; local persistence always happens.
func (o *Orchestrator) SetOnline(online bool) {
	o.mu.Lock()
	changed := o.online != online
	o.online = online
	o.mu.Unlock()

	if changed {
		slog.Info("Connectivity changed", "online", online)
	}
}

// State returns a deep copy of the canonical state.
func (o *Orchestrator) State() core.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// AddOrEditExpense applies a partial update to the expense with
// editingID, or appends a new expense (fresh id, status Active unless
// given) when editingID is empty. Editing an unknown id leaves the
// collection untouched. When the patch carries both a name and a
// category, the item-category memory learns the pair either way.
func (o *Orchestrator) AddOrEditExpense(ctx context.Context, patch core.ExpensePatch, editingID string) (core.Expense, bool) {
	o.mu.Lock()

	if patch.Name != nil && patch.Category != nil {
		o.state.ItemCategories[*patch.Name] = *patch.Category
	}

	var result core.Expense
	ok := false
	if editingID != "" {
		for i := range o.state.Expenses {
			if o.state.Expenses[i].ID == editingID {
				patch.Apply(&o.state.Expenses[i])
				result = o.state.Expenses[i]
				ok = true
				break
			}
		}
		if !ok {
			slog.WarnContext(ctx, "Edit targeted unknown expense", "id", editingID)
		}
	} else {
		result = core.Expense{ID: uuid.NewString(), Status: core.StatusActive}
		patch.Apply(&result)
		o.state.Expenses = append(o.state.Expenses, result)
		ok = true
	}
	o.mu.Unlock()

	o.persistIfReady(ctx)
	return result, ok
}

// DeleteExpense removes the expense permanently. Unknown ids are a no-op.
func (o *Orchestrator) DeleteExpense(ctx context.Context, id string) bool {
	o.mu.Lock()
	removed := false
	kept := o.state.Expenses[:0]
	for _, e := range o.state.Expenses {
		if e.ID == id {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	o.state.Expenses = kept
	o.mu.Unlock()

	if removed {
		o.persistIfReady(ctx)
	}
	return removed
}

// UpdateRevenue replaces the single revenue record wholesale.
func (o *Orchestrator) UpdateRevenue(ctx context.Context, amount core.Money, recorded, periodStart, periodEnd core.Date) {
	o.mu.Lock()
	o.state.Revenue = amount
	o.state.RevenueDate = recorded
	o.state.RevenueStart = periodStart
	o.state.RevenueEnd = periodEnd
	o.mu.Unlock()

	o.persistIfReady(ctx)
}

// AddCategory appends a category name. Duplicates are rejected.
func (o *Orchestrator) AddCategory(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	o.mu.Lock()
	for _, c := range o.state.Categories {
		if c == name {
			o.mu.Unlock()
			return false
		}
	}
	o.state.Categories = append(o.state.Categories, name)
	o.mu.Unlock()

	o.persistIfReady(ctx)
	return true
}

func (o *Orchestrator) SetStartDate(ctx context.Context, d core.Date) {
	o.mu.Lock()
	o.state.FilterStart = d
	o.mu.Unlock()
	o.persistIfReady(ctx)
}

func (o *Orchestrator) SetEndDate(ctx context.Context, d core.Date) {
	o.mu.Lock()
	o.state.FilterEnd = d
	o.mu.Unlock()
	o.persistIfReady(ctx)
}

// Active returns the filtered, sorted active-expense view for the
// current filter window and the given search term.
func (o *Orchestrator) Active(search string) []core.Expense {
	s := o.State()
	return core.ActiveExpenses(s.Expenses, s.FilterStart, s.FilterEnd, search)
}

func (o *Orchestrator) Summary(search string) core.Summary {
	s := o.State()
	active := core.ActiveExpenses(s.Expenses, s.FilterStart, s.FilterEnd, search)
	return core.Summarize(active, s.Revenue)
}

func (o *Orchestrator) Groups(search string) []core.NameGroup {
	return core.GroupByName(o.Active(search))
}

func (o *Orchestrator) Comparison() []core.ComparisonPoint {
	summary := o.Summary("")
	return core.Comparison(summary.Revenue, summary.Total)
}

// Sync is the manual save: always persist every slot to the local cache,
// then, unless localOnly or offline, push the full snapshot to the
// remote store. The push error is returned so save feedback can reflect
// it, but callers are free to ignore it; state is already durable
// locally and the next save retries naturally.
func (o *Orchestrator) Sync(ctx context.Context, localOnly bool) error {
	o.mu.Lock()
	snap := o.state.Clone()
	online := o.online
	o.mu.Unlock()

	o.persistLocal(ctx, snap)

	if localOnly {
		return nil
	}
	if !online {
		slog.DebugContext(ctx, "Offline, skipping remote push")
		return nil
	}

	if err := o.remote.PushAll(ctx, payloadFromSnapshot(snap)); err != nil {
		slog.WarnContext(ctx, "Remote push failed, will retry on next save", "error", err)
		return err
	}

	slog.InfoContext(ctx, "Snapshot pushed to remote store",
		"expenses", len(snap.Expenses),
		"revenue_cents", snap.Revenue.Cents)
	return nil
}

// persistIfReady is the change-triggered persistence step: local-only by
// design, and suppressed while the startup hydration is still running.
func (o *Orchestrator) persistIfReady(ctx context.Context) {
	o.mu.Lock()
	ready := o.ready
	snap := o.state.Clone()
	o.mu.Unlock()

	if !ready {
		return
	}
	o.persistLocal(ctx, snap)
}

// persistLocal writes every canonical-state field to its cache slot.
// Slot failures are logged and skipped; the remaining slots still get
// written. This is the durability floor and must not abort midway.
func (o *Orchestrator) persistLocal(ctx context.Context, snap core.Snapshot) {
	o.saveJSONSlot(ctx, cache.SlotExpenses, snap.Expenses)
	o.saveJSONSlot(ctx, cache.SlotCategories, snap.Categories)
	o.saveJSONSlot(ctx, cache.SlotItemMap, snap.ItemCategories)
	o.saveSlot(ctx, cache.SlotRevenue, snap.Revenue.String())
	o.saveSlot(ctx, cache.SlotRevenueDate, string(snap.RevenueDate))
	o.saveSlot(ctx, cache.SlotRevenueStart, string(snap.RevenueStart))
	o.saveSlot(ctx, cache.SlotRevenueEnd, string(snap.RevenueEnd))
	o.saveSlot(ctx, cache.SlotFilterStart, string(snap.FilterStart))
	o.saveSlot(ctx, cache.SlotFilterEnd, string(snap.FilterEnd))
}

func (o *Orchestrator) saveSlot(ctx context.Context, key, value string) {
	if err := o.store.Save(ctx, key, value); err != nil {
		slog.ErrorContext(ctx, "Cache save failed", "key", key, "error", err)
	}
}

func (o *Orchestrator) saveJSONSlot(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(ctx, "Cache encode failed", "key", key, "error", err)
		return
	}
	o.saveSlot(ctx, key, string(b))
}

func payloadFromSnapshot(s core.Snapshot) remote.Payload {
	expenses := s.Expenses
	if expenses == nil {
		expenses = []core.Expense{}
	}
	revenue := s.Revenue
	revenueDate := s.RevenueDate
	revenueStart := s.RevenueStart
	revenueEnd := s.RevenueEnd
	filterStart := s.FilterStart
	filterEnd := s.FilterEnd
	return remote.Payload{
		Expenses:         expenses,
		Revenue:          &revenue,
		RevenueDate:      &revenueDate,
		RevenueStartDate: &revenueStart,
		RevenueEndDate:   &revenueEnd,
		FilterStartDate:  &filterStart,
		FilterEndDate:    &filterEnd,
	}
}
