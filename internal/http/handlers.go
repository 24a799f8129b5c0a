package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"despesas/internal/core"
	"despesas/internal/export"
)

// stateResponse is the full canonical state plus live connectivity, the
// one-call bootstrap for dashboard clients.
type stateResponse struct {
	Expenses         []core.Expense    `json:"expenses"`
	Categories       []string          `json:"categories"`
	Revenue          core.Money        `json:"revenue"`
	RevenueDate      core.Date         `json:"revenueDate"`
	RevenueStartDate core.Date         `json:"revenueStartDate"`
	RevenueEndDate   core.Date         `json:"revenueEndDate"`
	ItemCategories   map[string]string `json:"itemCategories"`
	FilterStartDate  core.Date         `json:"filterStartDate"`
	FilterEndDate    core.Date         `json:"filterEndDate"`
	Online           bool              `json:"online"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	state := s.dash.State()
	if state.Expenses == nil {
		state.Expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, stateResponse{
		Expenses:         state.Expenses,
		Categories:       state.Categories,
		Revenue:          state.Revenue,
		RevenueDate:      state.RevenueDate,
		RevenueStartDate: state.RevenueStart,
		RevenueEndDate:   state.RevenueEnd,
		ItemCategories:   state.ItemCategories,
		FilterStartDate:  state.FilterStart,
		FilterEndDate:    state.FilterEnd,
		Online:           s.dash.Online(),
	})
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListExpenses(w, r)
	case http.MethodPost:
		s.handleUpsertExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	active := s.dash.Active(r.URL.Query().Get("search"))
	if active == nil {
		active = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, active)
}

type upsertExpenseRequest struct {
	ID       string       `json:"id,omitempty"`
	Name     *string      `json:"name,omitempty"`
	DueDate  *core.Date   `json:"dueDate,omitempty"`
	Value    *core.Money  `json:"value,omitempty"`
	Category *string      `json:"category,omitempty"`
	Status   *core.Status `json:"status,omitempty"`
}

type upsertExpenseResponse struct {
	Expense core.Expense `json:"expense"`
	Applied bool         `json:"applied"`
}

// handleUpsertExpense creates an expense when id is empty, otherwise
// applies the given fields to the matching expense. Both paths validate
// the expense that would result, so a patch cannot blank out a required
// field. An unknown id is not an error: the collection stays untouched
// and applied is false.
func (s *Server) handleUpsertExpense(w http.ResponseWriter, r *http.Request) {
	var req upsertExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DueDate != nil {
		if err := req.DueDate.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	if req.Status != nil {
		if err := req.Status.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	if req.Value != nil && req.Value.Cents < 0 {
		writeError(w, http.StatusUnprocessableEntity, core.ErrNegativeAmount.Error())
		return
	}

	patch := core.ExpensePatch{
		Name:     req.Name,
		DueDate:  req.DueDate,
		Value:    req.Value,
		Category: req.Category,
		Status:   req.Status,
	}

	if req.ID == "" {
		// Creation needs a complete expense; validate with a placeholder
		// id, the real one is assigned on insert.
		merged := core.Expense{ID: "pending", Status: core.StatusActive}
		patch.Apply(&merged)
		if err := merged.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	} else if current, found := findExpense(s.dash.State().Expenses, req.ID); found {
		merged := current
		patch.Apply(&merged)
		if err := merged.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	expense, applied := s.dash.AddOrEditExpense(r.Context(), patch, req.ID)
	writeJSON(w, http.StatusOK, upsertExpenseResponse{Expense: expense, Applied: applied})
}

func findExpense(expenses []core.Expense, id string) (core.Expense, bool) {
	for _, e := range expenses {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusUnprocessableEntity, core.ErrEmptyID.Error())
		return
	}
	deleted := s.dash.DeleteExpense(r.Context(), req.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.dash.Summary(r.URL.Query().Get("search")))
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	groups := s.dash.Groups(r.URL.Query().Get("search"))
	if groups == nil {
		groups = []core.NameGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.dash.Comparison())
}

type revenueRequest struct {
	Amount    core.Money `json:"amount"`
	Date      core.Date  `json:"date"`
	StartDate core.Date  `json:"startDate"`
	EndDate   core.Date  `json:"endDate"`
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req revenueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount.Cents < 0 {
		writeError(w, http.StatusUnprocessableEntity, core.ErrNegativeAmount.Error())
		return
	}
	for _, d := range []core.Date{req.Date, req.StartDate, req.EndDate} {
		if err := d.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	s.dash.UpdateRevenue(r.Context(), req.Amount, req.Date, req.StartDate, req.EndDate)
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	added := s.dash.AddCategory(r.Context(), req.Name)
	writeJSON(w, http.StatusOK, map[string]bool{"added": added})
}

type filterRequest struct {
	StartDate *core.Date `json:"startDate,omitempty"`
	EndDate   *core.Date `json:"endDate,omitempty"`
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req filterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StartDate != nil {
		if err := req.StartDate.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.dash.SetStartDate(r.Context(), *req.StartDate)
	}
	if req.EndDate != nil {
		if err := req.EndDate.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.dash.SetEndDate(r.Context(), *req.EndDate)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

type saveResponse struct {
	Saved  bool   `json:"saved"`
	Synced bool   `json:"synced"`
	Error  string `json:"error,omitempty"`
}

// handleSave is the manual save trigger. Local persistence always
// succeeds from the caller's point of view; the response only reports
// whether the snapshot also reached the remote store.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		LocalOnly bool `json:"localOnly"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	resp := saveResponse{Saved: true, Synced: true}
	if err := s.dash.Sync(r.Context(), req.LocalOnly); err != nil {
		resp.Synced = false
		resp.Error = err.Error()
	}
	if req.LocalOnly || !s.dash.Online() {
		resp.Synced = false
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	active := s.dash.Active(r.URL.Query().Get("search"))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	if err := export.WriteCSV(w, active); err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err)
	}
}
