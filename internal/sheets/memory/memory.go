package memory

import (
	"context"
	"sync"

	"despesas/internal/core"
	ports "despesas/internal/sheets"
)

// Mirror is an in-memory SnapshotMirror for tests and local development.
type Mirror struct {
	mu       sync.Mutex
	expenses []core.Expense
	replaces int
}

var _ ports.SnapshotMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Replace(_ context.Context, expenses []core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses = append([]core.Expense(nil), expenses...)
	m.replaces++
	return nil
}

// Expenses returns a copy of the mirrored set.
func (m *Mirror) Expenses() []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Expense(nil), m.expenses...)
}

// ReplaceCount reports how many snapshots have been applied.
func (m *Mirror) ReplaceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}
