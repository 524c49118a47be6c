package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/schedule"
	"fintrack/internal/storage"
)

// RecurringProcessor materializes transactions from recurring templates.
// Runs are restartable: each pass expands the window from the day after the
// template's last run up to today, and an already-generated occurrence date
// is never generated twice.
type RecurringProcessor struct {
	storage            *storage.SQLiteRepository
	transactionService *TransactionService
}

func NewRecurringProcessor(storage *storage.SQLiteRepository, transactionService *TransactionService) *RecurringProcessor {
	return &RecurringProcessor{
		storage:            storage,
		transactionService: transactionService,
	}
}

// ProcessDueTemplates expands every active template up to the processing
// date and creates the missing transactions. One broken template never stops
// the sweep; it is logged and skipped.
func (p *RecurringProcessor) ProcessDueTemplates(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.transactionService == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	states, err := p.storage.ListActiveTemplateStates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active templates: %w", err)
	}

	today := core.DateOf(now.UTC())
	slog.InfoContext(ctx, "Processing recurring templates",
		"total_active", len(states),
		"processing_date", today.String())

	created := 0
	for _, state := range states {
		n, err := p.processTemplate(ctx, state, today)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring template",
				"template_id", state.Template.ID,
				"error", err)
			continue
		}
		created += n
	}

	slog.InfoContext(ctx, "Recurring template processing complete",
		"created", created,
		"total_checked", len(states))

	return created, nil
}

func (p *RecurringProcessor) processTemplate(ctx context.Context, state storage.TemplateState, today core.Date) (int, error) {
	tpl := state.Template

	windowStart := tpl.StartDate
	if !state.LastRun.IsZero() {
		windowStart = core.DateOf(state.LastRun.AddDate(0, 0, 1))
	}

	occurrences, err := schedule.OccurrencesBetween(tpl, windowStart, today)
	if err != nil {
		return 0, fmt.Errorf("expand occurrences: %w", err)
	}

	created := 0
	for _, occ := range occurrences {
		exists, err := p.storage.HasGeneratedTransaction(ctx, tpl.ID, occ.Date)
		if err != nil {
			return created, fmt.Errorf("check occurrence %s: %w", occ.Date, err)
		}
		if exists {
			continue
		}

		transaction := core.Transaction{
			UserID:      tpl.UserID,
			Date:        occ.Date,
			Description: tpl.Title,
			Amount:      occ.Amount,
			Currency:    tpl.Currency,
			Category:    tpl.Category,
			Type:        tpl.Type,
		}

		id, err := p.storage.CreateGeneratedTransaction(ctx, transaction, tpl.ID)
		if err != nil {
			return created, fmt.Errorf("create transaction for %s: %w", occ.Date, err)
		}

		// queue the generated row for export like any manual entry
		if err := p.transactionService.publishSyncMessage(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message for generated transaction",
				"transaction_id", id, "error", err)
		}

		created++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", tpl.ID,
			"transaction_id", id,
			"date", occ.Date.String(),
			"amount_cents", occ.Amount.Cents,
			"frequency", string(tpl.Every))
	}

	if err := p.storage.SetTemplateLastRun(ctx, tpl.ID, today); err != nil {
		// transactions are already created; next run will just re-check them
		slog.ErrorContext(ctx, "Failed to update template last run",
			"template_id", tpl.ID, "error", err)
	}

	return created, nil
}

// PreviewOccurrences expands a stored template over an arbitrary date range
// without writing anything.
func (p *RecurringProcessor) PreviewOccurrences(ctx context.Context, userID string, templateID int64, from, to core.Date) ([]core.Occurrence, error) {
	tpl, err := p.storage.GetTemplate(ctx, userID, templateID)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return schedule.OccurrencesBetween(tpl, from, to)
}
