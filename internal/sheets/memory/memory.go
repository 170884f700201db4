// Package memory is an in-process sheets.Mirror used when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

var _ sheets.Mirror = (*Mirror)(nil)

type Mirror struct {
	mu     sync.Mutex
	rows   map[int64][]core.ExportRow
	writes int
}

func New() *Mirror {
	return &Mirror{rows: make(map[int64][]core.ExportRow)}
}

func (m *Mirror) ReplaceRows(_ context.Context, userID int64, rows []core.ExportRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[userID] = append([]core.ExportRow(nil), rows...)
	m.writes++
	return nil
}

func (m *Mirror) ReadRows(_ context.Context, userID int64) ([]core.ExportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.ExportRow(nil), m.rows[userID]...), nil
}

// Writes counts ReplaceRows calls.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
