package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/schedule"
)

type billRequest struct {
	Title        string `json:"title"`
	Amount       string `json:"amount"` // decimal, e.g. "72.00"
	Currency     string `json:"currency"`
	Category     string `json:"category"`
	DueDate      string `json:"due_date"`
	Frequency    string `json:"frequency"` // empty for one-shot bills
	ReminderDays int    `json:"reminder_days"`
}

type billResponse struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	Category     string `json:"category"`
	DueDate      string `json:"due_date"`
	Status       string `json:"status"`
	Frequency    string `json:"frequency,omitempty"`
	ReminderDays int    `json:"reminder_days"`
	LastPaidDate string `json:"last_paid_date,omitempty"`
}

func toBillResponse(b core.Bill) billResponse {
	resp := billResponse{
		ID:           b.ID,
		Title:        b.Title,
		AmountCents:  b.Amount.Cents,
		Currency:     b.Currency,
		Category:     b.Category,
		DueDate:      b.DueDate.String(),
		Status:       string(b.Status),
		Frequency:    string(b.Every),
		ReminderDays: b.ReminderDays,
	}
	if !b.LastPaidDate.IsZero() {
		resp.LastPaidDate = b.LastPaidDate.String()
	}
	return resp
}

func (s *Server) billFromRequest(r *http.Request, req billRequest) (core.Bill, string) {
	due, err := core.ParseDate(req.DueDate)
	if err != nil {
		return core.Bill{}, "invalid due_date: " + req.DueDate
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Bill{}, "invalid amount: " + err.Error()
	}
	if req.ReminderDays < 0 {
		return core.Bill{}, "reminder_days cannot be negative"
	}

	frequency := core.Frequency(strings.ToLower(strings.TrimSpace(req.Frequency)))
	if frequency != "" && !frequency.Valid() {
		return core.Bill{}, "invalid frequency: " + req.Frequency
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}

	return core.Bill{
		UserID:       userID(r),
		Title:        sanitizeInput(req.Title),
		Amount:       core.Money{Cents: cents},
		Currency:     currency,
		Category:     sanitizeInput(req.Category),
		DueDate:      due,
		Status:       core.BillUnpaid,
		Every:        frequency,
		ReminderDays: req.ReminderDays,
	}, ""
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bill, msg := s.billFromRequest(r, req)
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if err := bill.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.storage.CreateBill(r.Context(), bill)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	bill.ID = id

	s.alertsCache.Delete(userID(r))
	writeJSON(w, http.StatusCreated, toBillResponse(bill))
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.storage.ListBills(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]billResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, toBillResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	bill, err := s.storage.GetBill(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponse(bill))
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req billRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	existing, err := s.storage.GetBill(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	bill, msg := s.billFromRequest(r, req)
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	bill.ID = existing.ID
	bill.Status = existing.Status
	bill.LastPaidDate = existing.LastPaidDate
	if err := bill.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.storage.UpdateBill(r.Context(), bill); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.alertsCache.Delete(userID(r))
	writeJSON(w, http.StatusOK, toBillResponse(bill))
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.storage.DeleteBill(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.alertsCache.Delete(userID(r))
	writeJSON(w, http.StatusNoContent, nil)
}

type classifiedBillResponse struct {
	billResponse
	Bucket       string `json:"bucket"`
	DaysUntilDue int    `json:"days_until_due"`
}

type alertsResponse struct {
	Overdue   []classifiedBillResponse `json:"overdue"`
	Reminders []classifiedBillResponse `json:"reminders"`
	Upcoming  []classifiedBillResponse `json:"upcoming"`
	Skipped   []skippedBill            `json:"skipped,omitempty"`
}

type skippedBill struct {
	BillID int64  `json:"bill_id"`
	Reason string `json:"reason"`
}

func toClassifiedResponses(in []schedule.ClassifiedBill) []classifiedBillResponse {
	out := make([]classifiedBillResponse, 0, len(in))
	for _, cb := range in {
		out = append(out, classifiedBillResponse{
			billResponse: toBillResponse(cb.Bill),
			Bucket:       string(cb.Bucket),
			DaysUntilDue: cb.DaysUntilDue,
		})
	}
	return out
}

func (s *Server) handleBillAlerts(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	// client timezone affects the result, so only profile-timezone
	// requests hit the cache
	clientTZ := clientTimezone(r)

	var alerts schedule.Alerts
	var skipped []schedule.ItemError
	var err error

	cached := false
	if clientTZ == "" {
		alerts, cached = s.alertsCache.Get(uid)
	}
	if !cached {
		alerts, skipped, err = s.bills.Alerts(r.Context(), uid, clientTZ)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if clientTZ == "" {
			s.alertsCache.Set(uid, alerts)
		}
	}

	resp := alertsResponse{
		Overdue:   toClassifiedResponses(alerts.Overdue),
		Reminders: toClassifiedResponses(alerts.Reminders),
		Upcoming:  toClassifiedResponses(alerts.Upcoming),
	}
	for _, item := range skipped {
		resp.Skipped = append(resp.Skipped, skippedBill{BillID: item.BillID, Reason: item.Err.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	bill, err := s.bills.PayBill(r.Context(), userID(r), id, clientTimezone(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.alertsCache.Delete(userID(r))
	writeJSON(w, http.StatusOK, toBillResponse(bill))
}

func (s *Server) handleDismissReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.bills.DismissReminder(r.Context(), userID(r), id, clientTimezone(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.alertsCache.Delete(userID(r))
	writeJSON(w, http.StatusNoContent, nil)
}
