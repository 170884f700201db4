// Package sheets mirrors a user's export rows into a spreadsheet.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

type (
	// RowWriter replaces everything mirrored for a user with rows.
	RowWriter interface {
		ReplaceRows(ctx context.Context, userID int64, rows []core.ExportRow) error
	}

	// RowReader returns what is currently mirrored for a user.
	RowReader interface {
		ReadRows(ctx context.Context, userID int64) ([]core.ExportRow, error)
	}

	Mirror interface {
		RowWriter
		RowReader
	}
)

// SameRows reports whether a and b hold the same rows in the same order.
func SameRows(a, b []core.ExportRow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Date.String() != b[i].Date.String() ||
			a[i].Category != b[i].Category ||
			a[i].Description != b[i].Description ||
			a[i].Amount != b[i].Amount {
			return false
		}
	}
	return true
}
