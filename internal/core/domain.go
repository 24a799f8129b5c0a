package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusPending  Status = "Pending"
	StatusActive   Status = "Active"
	StatusArchived Status = "Archived"
)

type (
	// Status is the lifecycle state of an expense. Archived entries are
	// kept in storage but excluded from every active view and total.
	Status string

	// Date is a calendar date in ISO YYYY-MM-DD form. The string order of
	// two valid dates is their calendar order, so filtering and sorting
	// work on the raw value.
	Date string

	Expense struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		DueDate  Date   `json:"dueDate"`
		Value    Money  `json:"value"`
		Category string `json:"category"`
		Status   Status `json:"status"`
	}

	// ExpensePatch is a partial expense update. Nil fields are left
	// untouched when the patch is applied.
	ExpensePatch struct {
		Name     *string `json:"name,omitempty"`
		DueDate  *Date   `json:"dueDate,omitempty"`
		Value    *Money  `json:"value,omitempty"`
		Category *string `json:"category,omitempty"`
		Status   *Status `json:"status,omitempty"`
	}
)

var (
	ErrInvalidDate    = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrNegativeAmount = errors.New("negative amount")
	ErrEmptyID        = errors.New("empty expense id")
	ErrEmptyName      = errors.New("empty expense name")
	ErrEmptyCategory  = errors.New("empty expense category")
)

func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusActive, StatusArchived:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
}

func (d Date) Validate() error {
	if _, err := time.Parse("2006-01-02", string(d)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, string(d))
	}
	return nil
}

// Formatted renders the date as dd/mm/yyyy for reports.
func (d Date) Formatted() string {
	parts := strings.SplitN(string(d), "-", 3)
	if len(parts) != 3 {
		return string(d)
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

// ShortRef renders the date as dd/mm, the form used to label grouped
// expenses in charts.
func (d Date) ShortRef() string {
	parts := strings.SplitN(string(d), "-", 3)
	if len(parts) != 3 {
		return string(d)
	}
	return parts[2] + "/" + parts[1]
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("expense name too long (max 200 characters)")
	}
	if err := e.DueDate.Validate(); err != nil {
		return err
	}
	if e.Value.Cents < 0 {
		return ErrNegativeAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return e.Status.Validate()
}

// Apply merges the patch into the expense. The ID is never touched.
func (p ExpensePatch) Apply(e *Expense) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.DueDate != nil {
		e.DueDate = *p.DueDate
	}
	if p.Value != nil {
		e.Value = *p.Value
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
}
