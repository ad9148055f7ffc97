package http

import (
	"net/http"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgets.Current(r.Context(), s.owner(r))
	if err != nil {
		ErrorFromDomain(r, err, applog.OpRead).Write(w)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorFromDomain(r, err, applog.OpUpsert).Write(w)
		return
	}
	amount, err := parseAmountField(req.Amount)
	if err != nil {
		ErrorFromDomain(r, err, applog.OpUpsert).Write(w)
		return
	}
	if amount == nil {
		ErrorFromDomain(r, core.Invalid("amount", core.ErrMissingField), applog.OpUpsert).Write(w)
		return
	}

	b, err := s.budgets.Set(r.Context(), s.owner(r), *amount)
	if err != nil {
		ErrorFromDomain(r, err, applog.OpUpsert).Write(w)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.budgets.Status(r.Context(), s.owner(r))
	if err != nil {
		ErrorFromDomain(r, err, applog.OpRead).Write(w)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
