package http

import (
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
)

type templateRequest struct {
	Title     string `json:"title"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Category  string `json:"category"`
	Type      string `json:"type"`
	Frequency string `json:"frequency"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"` // optional
}

type templateResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Active      bool   `json:"active"`
}

func toTemplateResponse(t core.RecurringTemplate) templateResponse {
	resp := templateResponse{
		ID:          t.ID,
		Title:       t.Title,
		AmountCents: t.Amount.Cents,
		Currency:    t.Currency,
		Category:    t.Category,
		Type:        string(t.Type),
		Frequency:   string(t.Every),
		StartDate:   t.StartDate.String(),
		Active:      t.Active,
	}
	if !t.EndDate.IsZero() {
		resp.EndDate = t.EndDate.String()
	}
	return resp
}

func (s *Server) templateFromRequest(r *http.Request, req templateRequest) (core.RecurringTemplate, string) {
	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		return core.RecurringTemplate{}, "invalid start_date: " + req.StartDate
	}

	var end core.Date
	if strings.TrimSpace(req.EndDate) != "" {
		end, err = core.ParseDate(req.EndDate)
		if err != nil {
			return core.RecurringTemplate{}, "invalid end_date: " + req.EndDate
		}
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.RecurringTemplate{}, "invalid amount: " + err.Error()
	}

	entryType := core.EntryType(strings.ToLower(strings.TrimSpace(req.Type)))
	if entryType == "" {
		entryType = core.TypeExpense
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}

	return core.RecurringTemplate{
		UserID:    userID(r),
		Title:     sanitizeInput(req.Title),
		Amount:    core.Money{Cents: cents},
		Currency:  currency,
		Category:  sanitizeInput(req.Category),
		Type:      entryType,
		Every:     core.Frequency(strings.ToLower(strings.TrimSpace(req.Frequency))),
		StartDate: start,
		EndDate:   end,
		Active:    true,
	}, ""
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tpl, msg := s.templateFromRequest(r, req)
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if err := tpl.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.storage.CreateTemplate(r.Context(), tpl)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	tpl.ID = id

	writeJSON(w, http.StatusCreated, toTemplateResponse(tpl))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.storage.ListTemplates(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	tpl, err := s.storage.GetTemplate(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tpl))
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req templateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	existing, err := s.storage.GetTemplate(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	tpl, msg := s.templateFromRequest(r, req)
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	tpl.ID = existing.ID
	tpl.Active = existing.Active
	if err := tpl.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.storage.UpdateTemplate(r.Context(), tpl); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tpl))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.storage.DeleteTemplate(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handlePauseTemplate(w http.ResponseWriter, r *http.Request) {
	s.setTemplateActive(w, r, false)
}

func (s *Server) handleResumeTemplate(w http.ResponseWriter, r *http.Request) {
	s.setTemplateActive(w, r, true)
}

func (s *Server) setTemplateActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.storage.SetTemplateActive(r.Context(), userID(r), id, active); err != nil {
		writeDomainError(w, r, err)
		return
	}
	tpl, err := s.storage.GetTemplate(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tpl))
}

type occurrenceResponse struct {
	TemplateID  int64  `json:"template_id"`
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
}

// handleTemplateOccurrences previews the concrete dates a template would
// generate over a range, defaulting to the next 90 days.
func (s *Server) handleTemplateOccurrences(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	from, ok := parseDateParam(r, "from")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid from date")
		return
	}
	to, ok := parseDateParam(r, "to")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid to date")
		return
	}
	if from.IsZero() {
		from = core.DateOf(time.Now().UTC())
	}
	if to.IsZero() {
		to = core.DateOf(from.AddDate(0, 0, 90))
	}

	occurrences, err := s.recurring.PreviewOccurrences(r.Context(), userID(r), id, from, to)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]occurrenceResponse, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, occurrenceResponse{
			TemplateID:  occ.TemplateID,
			Date:        occ.Date.String(),
			AmountCents: occ.Amount.Cents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
