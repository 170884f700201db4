package google

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/reporting"
)

func tabName(base string, userID int64) string {
	return fmt.Sprintf("%s-%d", base, userID)
}

// buildValues lays out the header followed by one line per row, all as text.
func buildValues(rows []core.ExportRow) [][]interface{} {
	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, toInterfaces(reporting.CSVHeader))
	for _, r := range rows {
		values = append(values, toInterfaces(reporting.Record(r)))
	}
	return values
}

// parseRows is the inverse of buildValues. A leading header line is skipped
// and fully blank lines are ignored.
func parseRows(values [][]interface{}) ([]core.ExportRow, error) {
	var rows []core.ExportRow
	for i, raw := range values {
		cells := toStrings(raw)
		if i == 0 && strings.EqualFold(safeGet(cells, 0), reporting.CSVHeader[0]) {
			continue
		}
		if strings.TrimSpace(strings.Join(cells, "")) == "" {
			continue
		}
		d, err := core.ParseDate(safeGet(cells, 0))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		amount, err := core.ParseMoney(safeGet(cells, 3))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, core.ExportRow{
			Date:        d,
			Category:    safeGet(cells, 1),
			Description: safeGet(cells, 2),
			Amount:      amount,
		})
	}
	return rows, nil
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return strings.TrimSpace(arr[idx])
	}
	return ""
}
