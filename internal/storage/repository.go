package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"despesas/internal/core"

	_ "modernc.org/sqlite"
)

// Config keys written by snapshot pushes. Only "revenue" is guaranteed
// to exist; the rest are upserted when a push carries them.
const (
	ConfigRevenue      = "revenue"
	ConfigRevenueDate  = "revenueDate"
	ConfigRevenueStart = "revenueStartDate"
	ConfigRevenueEnd   = "revenueEndDate"
	ConfigFilterStart  = "filterStartDate"
	ConfigFilterEnd    = "filterEndDate"
)

// SQLiteRepository is the remote store's persistence layer: the expense
// table that full-snapshot pushes replace wholesale, plus a key/value
// config table.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListExpenses returns every stored expense ordered by due date.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, value_cents, due_date, category, status
		FROM expenses
		ORDER BY due_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		var (
			e       core.Expense
			cents   int64
			dueDate string
			status  string
		)
		if err := rows.Scan(&e.ID, &e.Name, &cents, &dueDate, &e.Category, &status); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Value = core.Money{Cents: cents}
		e.DueDate = core.Date(dueDate)
		e.Status = core.Status(status)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// ReplaceExpenses deletes every stored expense and reinserts the given
// set in one transaction. A pushed snapshot is authoritative, so there
// is no merge.
func (r *SQLiteRepository) ReplaceExpenses(ctx context.Context, expenses []core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}

	for _, e := range expenses {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expenses (id, name, value_cents, due_date, category, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.Name, e.Value.Cents, string(e.DueDate), e.Category, string(e.Status))
		if err != nil {
			return fmt.Errorf("insert expense %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace transaction: %w", err)
	}

	slog.InfoContext(ctx, "Expense set replaced", "count", len(expenses))
	return nil
}

// GetConfig returns the value for a config key, reporting absence
// without error.
func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %s: %w", key, err)
	}
	return value, true, nil
}

// SetConfig upserts a config key.
func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}
