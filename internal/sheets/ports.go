package sheets

import (
	"context"

	"despesas/internal/core"
)

// SnapshotMirror keeps an external copy of the expense set. A pushed
// snapshot replaces the whole mirror, matching the sync endpoint's
// full-replace semantics.
type SnapshotMirror interface {
	Replace(ctx context.Context, expenses []core.Expense) error
}
