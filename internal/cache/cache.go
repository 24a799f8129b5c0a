package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Slot keys, one per canonical-state field. These are the on-disk names
// and must stay stable across sessions and versions.
const (
	SlotExpenses     = "despesas_expenses_v1"
	SlotCategories   = "despesas_categories_v1"
	SlotRevenue      = "despesas_revenue_v1"
	SlotRevenueDate  = "despesas_rev_date_v1"
	SlotRevenueStart = "despesas_rev_start_v1"
	SlotRevenueEnd   = "despesas_rev_end_v1"
	SlotItemMap      = "despesas_item_map_v1"
	SlotFilterStart  = "despesas_filter_start_v1"
	SlotFilterEnd    = "despesas_filter_end_v1"
)

// Store is the local persistence tier: a SQLite-backed set of named value
// slots holding the serialized canonical state. Each slot is written
// independently; there is no cross-slot transactionality.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run cache migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load reads a slot. A missing slot is reported as ok=false, not an
// error: first runs start with empty storage and callers supply defaults.
func (s *Store) Load(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load slot %s: %w", key, err)
	}
	return value, true, nil
}

// Save upserts a slot.
func (s *Store) Save(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("save slot %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Slot saved", "key", key, "bytes", len(value))
	return nil
}
