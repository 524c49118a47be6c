package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/storage"
)

// SyncWorker pushes transactions from SQLite to the external spreadsheet.
// It is driven by AMQP sync messages, with a periodic pending-row scan as a
// backup for lost messages.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    export.TransactionWriter
	summary   export.SummaryWriter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, writer export.TransactionWriter, summary export.SummaryWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		writer:    writer,
		summary:   summary,
		batchSize: batchSize,
	}
}

// HandleSyncMessage exports the transaction named by one AMQP message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"transaction_id", msg.TransactionID)

	transaction, err := w.storage.GetTransactionByID(ctx, msg.TransactionID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.exportTransaction(ctx, transaction.ID, transaction); err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}
	return nil
}

// ProcessPendingTransactions exports rows the message path missed.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		transaction, err := w.storage.GetTransactionByID(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.exportTransaction(ctx, p.ID, transaction); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains the pending backlog once at worker startup, using a
// larger batch to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		transaction, err := w.storage.GetTransactionByID(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup sync",
				"id", p.ID, "error", err)
			failed++
			continue
		}
		if err := w.exportTransaction(ctx, p.ID, transaction); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	return nil
}

// ExportMonthSummaries writes the current month's aggregate for every user to
// the summary sheet. A nil summary writer turns the pass into a no-op.
func (w *SyncWorker) ExportMonthSummaries(ctx context.Context, now time.Time) error {
	if w.summary == nil {
		return nil
	}

	userIDs, err := w.storage.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	year, month := now.UTC().Year(), int(now.UTC().Month())
	exported := 0
	for _, userID := range userIDs {
		summary, err := w.storage.MonthSummary(ctx, userID, year, month)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to build month summary",
				"user_id", userID, "error", err)
			continue
		}
		if err := w.summary.WriteSummary(ctx, summary); err != nil {
			slog.ErrorContext(ctx, "Failed to export month summary",
				"user_id", userID, "error", err)
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Month summaries exported",
		"year", year, "month", month, "users", exported)
	return nil
}

func (w *SyncWorker) exportTransaction(ctx context.Context, id int64, t core.Transaction) error {
	ref, err := w.writer.Append(ctx, t)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// the export itself worked; the row will be retried harmlessly
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Transaction exported",
		"id", id,
		"sheet_ref", ref,
		"description", t.Description,
		"amount_cents", t.Amount.Cents)

	return nil
}
