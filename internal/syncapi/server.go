package syncapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"despesas/internal/core"
	"despesas/internal/remote"
	"despesas/internal/sheets"
	"despesas/internal/storage"
)

// Store is the persistence surface of the sync endpoint.
type Store interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ReplaceExpenses(ctx context.Context, expenses []core.Expense) error
	GetConfig(ctx context.Context, key string) (string, bool, error)
	SetConfig(ctx context.Context, key, value string) error
}

// Notifier announces applied snapshots to downstream consumers.
type Notifier interface {
	PublishSnapshotApplied(ctx context.Context, expenseCount int, revenueCents int64) error
}

// Server implements the remote side of the sync protocol: GET returns
// the whole stored state, POST replaces it wholesale. Notifier and
// mirror are optional; their failures never fail a sync, the store is
// the source of truth.
type Server struct {
	http.Server
	store        Store
	notifier     Notifier
	mirror       sheets.SnapshotMirror
	shutdownOnce sync.Once
}

func NewServer(addr string, store Store, notifier Notifier, mirror sheets.SnapshotMirror) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:    store,
		notifier: notifier,
		mirror:   mirror,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/api/sync", s.handleSync)

	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleFetch(w, r)
	case http.MethodPost:
		s.handlePush(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleFetch returns the full stored state. Revenue defaults to zero
// when never pushed; the other config keys are omitted until set.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed listing expenses", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := remote.Payload{Expenses: expenses}

	revenue := core.Money{}
	if raw, ok, err := s.store.GetConfig(ctx, storage.ConfigRevenue); err != nil {
		slog.ErrorContext(ctx, "Failed reading revenue config", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	} else if ok {
		parsed, err := core.ParseMoney(raw)
		if err != nil {
			slog.WarnContext(ctx, "Stored revenue unparsable, serving zero", "value", raw, "error", err)
		} else {
			revenue = parsed
		}
	}
	payload.Revenue = &revenue

	dateFields := []struct {
		key string
		dst **core.Date
	}{
		{storage.ConfigRevenueDate, &payload.RevenueDate},
		{storage.ConfigRevenueStart, &payload.RevenueStartDate},
		{storage.ConfigRevenueEnd, &payload.RevenueEndDate},
		{storage.ConfigFilterStart, &payload.FilterStartDate},
		{storage.ConfigFilterEnd, &payload.FilterEndDate},
	}
	for _, f := range dateFields {
		raw, ok, err := s.store.GetConfig(ctx, f.key)
		if err != nil {
			slog.ErrorContext(ctx, "Failed reading config", "key", f.key, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if ok && raw != "" {
			d := core.Date(raw)
			*f.dst = &d
		}
	}

	writeJSON(w, http.StatusOK, payload)
}

// handlePush applies a full snapshot: the expense set replaces the
// stored one wholesale, and every config field the payload carries is
// upserted. Omitted config fields are left untouched.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload remote.Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode snapshot: %v", err))
		return
	}

	expenses := payload.Expenses
	if expenses == nil {
		expenses = []core.Expense{}
	}
	for _, e := range expenses {
		if err := e.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("expense %s: %v", e.ID, err))
			return
		}
	}

	if err := s.store.ReplaceExpenses(ctx, expenses); err != nil {
		slog.ErrorContext(ctx, "Failed replacing expenses", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	revenueCents := int64(0)
	if payload.Revenue != nil {
		revenueCents = payload.Revenue.Cents
		if err := s.store.SetConfig(ctx, storage.ConfigRevenue, payload.Revenue.String()); err != nil {
			slog.ErrorContext(ctx, "Failed storing revenue config", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	dateFields := []struct {
		key   string
		value *core.Date
	}{
		{storage.ConfigRevenueDate, payload.RevenueDate},
		{storage.ConfigRevenueStart, payload.RevenueStartDate},
		{storage.ConfigRevenueEnd, payload.RevenueEndDate},
		{storage.ConfigFilterStart, payload.FilterStartDate},
		{storage.ConfigFilterEnd, payload.FilterEndDate},
	}
	for _, f := range dateFields {
		if f.value == nil {
			continue
		}
		if err := s.store.SetConfig(ctx, f.key, string(*f.value)); err != nil {
			slog.ErrorContext(ctx, "Failed storing config", "key", f.key, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.notifyDownstream(ctx, expenses, revenueCents)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// notifyDownstream fans the applied snapshot out to the optional AMQP
// notifier and sheet mirror, best effort.
func (s *Server) notifyDownstream(ctx context.Context, expenses []core.Expense, revenueCents int64) {
	if s.notifier != nil {
		if err := s.notifier.PublishSnapshotApplied(ctx, len(expenses), revenueCents); err != nil {
			slog.WarnContext(ctx, "Snapshot notification failed", "error", err)
		}
	}
	if s.mirror != nil {
		if err := s.mirror.Replace(ctx, expenses); err != nil {
			slog.WarnContext(ctx, "Sheet mirror update failed", "error", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
