package http

import (
	"net/http"

	applog "expenses/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseExpenseFilter(r.URL.Query())
	if err != nil {
		ErrorFromDomain(r, err, applog.OpList).Write(w)
		return
	}

	items, err := s.expenses.List(r.Context(), s.owner(r), filter)
	if err != nil {
		ErrorFromDomain(r, err, applog.OpList).Write(w)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorFromDomain(r, err, applog.OpCreate).Write(w)
		return
	}
	in, err := req.toInput()
	if err != nil {
		ErrorFromDomain(r, err, applog.OpCreate).Write(w)
		return
	}

	e, err := s.expenses.Create(r.Context(), s.owner(r), in)
	if err != nil {
		ErrorFromDomain(r, err, applog.OpCreate).Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+e.ID).
		Body(e).
		Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.expenses.Get(r.Context(), s.owner(r), r.PathValue("id"))
	if err != nil {
		ErrorFromDomain(r, err, applog.OpRead).Write(w)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorFromDomain(r, err, applog.OpUpdate).Write(w)
		return
	}
	in, err := req.toInput()
	if err != nil {
		ErrorFromDomain(r, err, applog.OpUpdate).Write(w)
		return
	}

	e, err := s.expenses.Update(r.Context(), s.owner(r), r.PathValue("id"), in)
	if err != nil {
		ErrorFromDomain(r, err, applog.OpUpdate).Write(w)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.Delete(r.Context(), s.owner(r), r.PathValue("id")); err != nil {
		ErrorFromDomain(r, err, applog.OpDelete).Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseSummaryFilter(r.URL.Query())
	if err != nil {
		ErrorFromDomain(r, err, applog.OpSummarize).Write(w)
		return
	}

	totals, err := s.summaries.Summarize(r.Context(), s.owner(r), filter)
	if err != nil {
		ErrorFromDomain(r, err, applog.OpSummarize).Write(w)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(totals))
}
