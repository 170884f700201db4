package reporting

import (
	"encoding/csv"
	"fmt"
	"io"

	"fintrack/internal/core"
)

// CSVHeader is the first line of every export.
var CSVHeader = []string{"date", "category", "description", "amount"}

// ExportRowsOf maps expenses to export rows keeping their order.
func ExportRowsOf(expenses []core.Expense) []core.ExportRow {
	rows := make([]core.ExportRow, len(expenses))
	for i, e := range expenses {
		rows[i] = core.ExportRow{
			Date:        e.Date,
			Category:    e.Category,
			Description: e.Description,
			Amount:      e.Amount,
		}
	}
	return rows
}

// Record renders a row as CSV fields; the amount is plain decimal text.
func Record(r core.ExportRow) []string {
	return []string{r.Date.String(), r.Category, r.Description, r.Amount.String()}
}

// WriteCSV writes the header followed by one line per row.
func WriteCSV(w io.Writer, rows []core.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(Record(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
