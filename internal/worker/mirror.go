package worker

import (
	"context"
	"fmt"
	"log/slog"

	"despesas/internal/amqp"
	"despesas/internal/core"
	"despesas/internal/remote"
	"despesas/internal/sheets"
)

// SnapshotSource provides the current remote snapshot.
type SnapshotSource interface {
	FetchAll(ctx context.Context) (*remote.Payload, error)
}

// NotificationStream delivers snapshot-applied notifications.
type NotificationStream interface {
	ConsumeSnapshotApplied(ctx context.Context, handler func(*amqp.SnapshotAppliedMessage) error) error
}

// MirrorWorker keeps a downstream mirror in step with the remote store.
// Each snapshot-applied notification triggers a fetch of the current
// snapshot and a wholesale rewrite of the mirror. A failed refresh is
// reported back to the stream so the notification gets redelivered.
type MirrorWorker struct {
	stream NotificationStream
	source SnapshotSource
	mirror sheets.SnapshotMirror
}

func NewMirrorWorker(stream NotificationStream, source SnapshotSource, mirror sheets.SnapshotMirror) *MirrorWorker {
	return &MirrorWorker{
		stream: stream,
		source: source,
		mirror: mirror,
	}
}

// Run consumes notifications until the context is canceled.
func (w *MirrorWorker) Run(ctx context.Context) error {
	return w.stream.ConsumeSnapshotApplied(ctx, func(msg *amqp.SnapshotAppliedMessage) error {
		return w.refresh(ctx, msg)
	})
}

func (w *MirrorWorker) refresh(ctx context.Context, msg *amqp.SnapshotAppliedMessage) error {
	payload, err := w.source.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	expenses := []core.Expense{}
	if payload != nil && payload.Expenses != nil {
		expenses = payload.Expenses
	}
	if err := w.mirror.Replace(ctx, expenses); err != nil {
		return fmt.Errorf("rewrite mirror: %w", err)
	}

	slog.InfoContext(ctx, "Mirror refreshed",
		"expenses", len(expenses),
		"notified_count", msg.ExpenseCount)
	return nil
}
