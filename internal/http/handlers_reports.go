package http

import (
	"net/http"

	"fintrack/internal/core"
	flog "fintrack/internal/log"
	"fintrack/internal/reporting"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sum, err := s.reports.Summary(r.Context(), userID(r), q.Get("month"), q.Get("year"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum.Expenses = orEmpty(sum.Expenses)
	sum.Breakdown = orEmpty(sum.Breakdown)
	sum.Categories = orEmpty(sum.Categories)
	writeJSON(w, http.StatusOK, sum)
}

// handleCategorySummary renders the whole-ledger breakdown as
// {"category": amount}.
func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.CategoryBreakdown(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make(map[string]core.Money, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Amount
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	series, err := s.reports.MonthlySeries(r.Context(), userID(r), r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(series))
}

func (s *Server) handleBudgetVsActual(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.BudgetVsActual(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(rows))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := s.reports.ExportRows(r.Context(), userID(r), q.Get("month"), q.Get("year"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger := flog.FromContext(r.Context()).WithComponent(flog.ComponentReporting)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	if err := reporting.WriteCSV(w, rows); err != nil {
		// Headers are already sent.
		logger.Failure(r.Context(), "CSV export failed", err,
			flog.FieldOperation, flog.OpReport)
		return
	}
	logger.Info("CSV export written",
		flog.FieldOperation, flog.OpReport,
		"rows", len(rows))
}
