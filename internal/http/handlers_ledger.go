package http

import (
	"net/http"

	"fintrack/internal/services"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	names, err := s.reports.Categories(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(names))
}

// handleAddCategory answers with the resulting category list. Blank and
// duplicate names leave it unchanged.
func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.AddCategory(r.Context(), userID(r), p.Get("name")); err != nil {
		writeError(w, r, err)
		return
	}
	names, err := s.reports.Categories(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orEmpty(names))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.ListBudgets(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(budgets))
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.SetBudget(r.Context(), userID(r), p.Get("month"), p.Get("amount"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.ListRecurring(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := s.ledger.AddRecurring(r.Context(), userID(r), services.RecurringInput{
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Description: p.Get("description"),
		Frequency:   p.Get("frequency"),
		StartDate:   p.Get("start_date"),
		EndDate:     p.Get("end_date"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rt)
}
