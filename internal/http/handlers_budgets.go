package http

import (
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
)

type budgetRequest struct {
	Category string `json:"category"`
	Limit    string `json:"limit"` // decimal, e.g. "400.00"
	Month    int    `json:"month"`
	Year     int    `json:"year"`
}

type budgetResponse struct {
	ID             int64  `json:"id"`
	Category       string `json:"category"`
	LimitCents     int64  `json:"limit_cents"`
	Month          int    `json:"month"`
	Year           int    `json:"year"`
	SpentCents     int64  `json:"spent_cents"`
	RemainingCents int64  `json:"remaining_cents"`
}

func (s *Server) budgetFromRequest(r *http.Request, req budgetRequest) (core.Budget, string) {
	cents, err := core.ParseDecimalToCents(req.Limit)
	if err != nil {
		return core.Budget{}, "invalid limit: " + err.Error()
	}

	month, year := req.Month, req.Year
	if month == 0 && year == 0 {
		now := time.Now()
		month, year = int(now.Month()), now.Year()
	}

	return core.Budget{
		UserID:   userID(r),
		Category: strings.ToLower(sanitizeInput(req.Category)),
		Limit:    core.Money{Cents: cents},
		Month:    month,
		Year:     year,
	}, ""
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	budget, msg := s.budgetFromRequest(r, req)
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if err := budget.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.storage.CreateBudget(r.Context(), budget)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	budget.ID = id

	writeJSON(w, http.StatusCreated, budgetResponse{
		ID:             budget.ID,
		Category:       budget.Category,
		LimitCents:     budget.Limit.Cents,
		Month:          budget.Month,
		Year:           budget.Year,
		RemainingCents: budget.Limit.Cents,
	})
}

// handleListBudgets returns the month's budgets with spend already joined in,
// so clients never have to correlate categories themselves.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonth(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year/month")
		return
	}

	progress, err := s.transactions.BudgetProgress(r.Context(), userID(r), year, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]budgetResponse, 0, len(progress))
	for _, p := range progress {
		out = append(out, budgetResponse{
			ID:             p.Budget.ID,
			Category:       p.Budget.Category,
			LimitCents:     p.Budget.Limit.Cents,
			Month:          p.Budget.Month,
			Year:           p.Budget.Year,
			SpentCents:     p.Spent.Cents,
			RemainingCents: p.Remaining().Cents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	budget, msg := s.budgetFromRequest(r, req)
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	budget.ID = id
	if err := budget.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.storage.UpdateBudget(r.Context(), budget); err != nil {
		writeDomainError(w, r, err)
		return
	}

	spent, err := s.storage.SpentByCategory(r.Context(), userID(r), budget.Category, budget.Year, budget.Month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	p := core.BudgetProgress{Budget: budget, Spent: spent}
	writeJSON(w, http.StatusOK, budgetResponse{
		ID:             budget.ID,
		Category:       budget.Category,
		LimitCents:     budget.Limit.Cents,
		Month:          budget.Month,
		Year:           budget.Year,
		SpentCents:     spent.Cents,
		RemainingCents: p.Remaining().Cents,
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.storage.DeleteBudget(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
