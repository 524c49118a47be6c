package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// TransactionService orchestrates ledger operations across SQLite and AMQP.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateTransaction saves a transaction locally and queues it for export.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	// Export is best effort; the transaction is already saved locally.
	if err := s.publishSyncMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"transaction_id", id, "error", err)
	}

	return id, nil
}

func (s *TransactionService) ListTransactions(ctx context.Context, userID string, year, month int) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, userID, year, month)
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	return s.storage.DeleteTransaction(ctx, userID, id)
}

func (s *TransactionService) MonthSummary(ctx context.Context, userID string, year, month int) (core.MonthSummary, error) {
	return s.storage.MonthSummary(ctx, userID, year, month)
}

// BudgetProgress pairs every budget for a month with the spend recorded
// against its category.
func (s *TransactionService) BudgetProgress(ctx context.Context, userID string, year, month int) ([]core.BudgetProgress, error) {
	budgets, err := s.storage.ListBudgets(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	progress := make([]core.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		spent, err := s.storage.SpentByCategory(ctx, userID, b.Category, year, month)
		if err != nil {
			return nil, fmt.Errorf("budget spend for %s: %w", b.Category, err)
		}
		progress = append(progress, core.BudgetProgress{Budget: b, Spent: spent})
	}
	return progress, nil
}

func (s *TransactionService) publishSyncMessage(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishTransactionSync(ctx, id)
}
