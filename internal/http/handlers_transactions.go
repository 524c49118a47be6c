package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
)

type createTransactionRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"` // decimal, e.g. "12.50"
	Currency    string `json:"currency"`
	Category    string `json:"category"`
	Type        string `json:"type"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Category    string `json:"category"`
	Type        string `json:"type"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Date:        t.Date.String(),
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Currency:    t.Currency,
		Category:    t.Category,
		Type:        string(t.Type),
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date: "+req.Date)
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount: "+err.Error())
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}

	transaction := core.Transaction{
		UserID:      userID(r),
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Currency:    currency,
		Category:    sanitizeInput(req.Category),
		Type:        core.EntryType(strings.ToLower(strings.TrimSpace(req.Type))),
	}
	if err := transaction.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.transactions.CreateTransaction(r.Context(), transaction)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	transaction.ID = id

	s.invalidateReadCaches(userID(r), date.Year(), date.Month())
	writeJSON(w, http.StatusCreated, toTransactionResponse(transaction))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonth(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year/month")
		return
	}

	items, err := s.transactions.ListTransactions(r.Context(), userID(r), year, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	t, err := s.storage.GetTransaction(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.transactions.DeleteTransaction(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateReadCaches(userID(r), t.Date.Year(), t.Date.Month())
	writeJSON(w, http.StatusNoContent, nil)
}

type summaryResponse struct {
	Year          int              `json:"year"`
	Month         int              `json:"month"`
	IncomeCents   int64            `json:"income_cents"`
	ExpensesCents int64            `json:"expenses_cents"`
	NetCents      int64            `json:"net_cents"`
	ByCategory    []categoryAmount `json:"by_category"`
}

type categoryAmount struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonth(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year/month")
		return
	}

	key := summaryCacheKey(userID(r), year, month)
	summary, found := s.summaryCache.Get(key)
	if !found {
		var err error
		summary, err = s.transactions.MonthSummary(r.Context(), userID(r), year, month)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		s.summaryCache.Set(key, summary)
	}

	resp := summaryResponse{
		Year:          summary.Year,
		Month:         summary.Month,
		IncomeCents:   summary.Income.Cents,
		ExpensesCents: summary.Expenses.Cents,
		NetCents:      summary.Net.Cents,
		ByCategory:    make([]categoryAmount, 0, len(summary.ByCategory)),
	}
	for _, ca := range summary.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmount{Name: ca.Name, AmountCents: ca.Amount.Cents})
	}
	writeJSON(w, http.StatusOK, resp)
}
