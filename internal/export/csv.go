package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"despesas/internal/core"
)

const reportTitle = "DESPESAS - RELATÓRIO FINANCEIRO"

var header = []string{"ITEM", "CATEGORIA", "VENCIMENTO", "VALOR (R$)"}

// WriteCSV renders the active-expense view as a spreadsheet-friendly CSV
// report: UTF-8 BOM so Excel detects the encoding, semicolon separator,
// a title row, then one row per expense with uppercase item and category,
// dd/mm/yyyy due dates and decimal-comma amounts.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write([]string{reportTitle}); err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, e := range expenses {
		record := []string{
			strings.ToUpper(e.Name),
			strings.ToUpper(e.Category),
			e.DueDate.Formatted(),
			e.Value.CommaString(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write expense row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// Filename returns the download name for a report generated on the
// given day, e.g. DESPESAS_EXPORT_2026-01-31.csv.
func Filename(now time.Time) string {
	return fmt.Sprintf("DESPESAS_EXPORT_%s.csv", now.Format("2006-01-02"))
}
