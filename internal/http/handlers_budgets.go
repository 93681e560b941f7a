package http

import (
	"net/http"
	"time"

	"moneta/internal/core"
)

type budgetRequest struct {
	Category   string `json:"category"`
	Month      string `json:"month"` // "YYYY-MM", defaults to current month
	LimitCents int64  `json:"limit_cents"`
}

type budgetResponse struct {
	Owner      string  `json:"owner"`
	Category   string  `json:"category"`
	Month      string  `json:"month"`
	LimitCents int64   `json:"limit_cents"`
	SpentCents int64   `json:"spent_cents"`
	UsagePct   float64 `json:"usage_pct"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		Owner:      b.Owner,
		Category:   b.Category,
		Month:      b.Month,
		LimitCents: b.Limit.Cents,
		SpentCents: b.Spent.Cents,
		UsagePct:   b.UsageRatio() * 100,
	}
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}
	if req.LimitCents < 0 {
		writeError(w, http.StatusBadRequest, "limit_cents must not be negative")
		return
	}

	month := req.Month
	if month == "" {
		month = core.MonthKey(time.Now())
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		writeError(w, http.StatusBadRequest, "invalid month, want YYYY-MM")
		return
	}

	// The budget opens at whatever the ledger already says was spent this
	// month, so a budget created mid-month is immediately truthful.
	spent, err := s.repo.SumDebitTransactions(r.Context(), owner, req.Category, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	b := core.Budget{
		Owner:    owner,
		Category: req.Category,
		Month:    month,
		Limit:    core.Money{Cents: req.LimitCents},
		Spent:    core.Money{Cents: spent},
	}
	if err := s.repo.CreateBudget(r.Context(), b); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(b))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = core.MonthKey(time.Now())
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		writeError(w, http.StatusBadRequest, "invalid month, want YYYY-MM")
		return
	}

	budgets, err := s.repo.ListBudgetsForMonth(r.Context(), owner, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		out[i] = toBudgetResponse(b)
	}
	writeJSON(w, http.StatusOK, out)
}
