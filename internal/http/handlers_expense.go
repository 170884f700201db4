package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	flog "fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.ledger.ListExpenses(r.Context(), userID(r), q.Get("month"), q.Get("year"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

func expenseInput(p *RequestBodyParser) services.ExpenseInput {
	return services.ExpenseInput{
		Date:        p.Get("date"),
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Description: p.Get("description"),
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.ledger.AddExpense(r.Context(), userID(r), expenseInput(p))
	if err != nil {
		writeError(w, r, err)
		return
	}
	flog.FromContext(r.Context()).Info("Expense created",
		flog.FieldExpenseID, e.ID,
		flog.FieldCategory, e.Category,
		flog.FieldAmount, e.Amount.String())
	writeJSON(w, http.StatusCreated, e)
}

// expenseID parses the {id} path segment. Anything that is not a positive
// integer cannot name an owned record, so callers treat it as a no-op.
func expenseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	id, ok := expenseID(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.ledger.UpdateExpense(r.Context(), userID(r), id, expenseInput(p)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.ledger.DeleteExpense(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
