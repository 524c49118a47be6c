package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/schedule"
	"fintrack/internal/storage"
)

// ReminderWorker sweeps unresolved bills, flips unpaid bills past their due
// date to overdue and emits reminder events for bills inside their alert
// windows. Each sweep evaluates dates in the bill owner's timezone.
type ReminderWorker struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	clock      *schedule.Clock
	defaultTZ  string
}

func NewReminderWorker(storage *storage.SQLiteRepository, amqpClient *amqp.Client, clock *schedule.Clock, defaultTimezone string) *ReminderWorker {
	return &ReminderWorker{
		storage:    storage,
		amqpClient: amqpClient,
		clock:      clock,
		defaultTZ:  defaultTimezone,
	}
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Checked         int
	MarkedOverdue   int
	EventsPublished int
}

// Sweep classifies every unresolved bill. A bill that cannot be classified
// or whose owner cannot be loaded is logged and skipped, never failing the
// whole sweep.
func (w *ReminderWorker) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	bills, err := w.storage.ListUnresolvedBills(ctx)
	if err != nil {
		return result, fmt.Errorf("list unresolved bills: %w", err)
	}
	result.Checked = len(bills)

	// resolve each owner's zone-local today once
	todays := make(map[string]core.Date)
	for _, bill := range bills {
		today, ok := todays[bill.UserID]
		if !ok {
			today, err = w.todayFor(ctx, bill.UserID)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to resolve user date, skipping bill",
					"bill_id", bill.ID, "user_id", bill.UserID, "error", err)
				continue
			}
			todays[bill.UserID] = today
		}

		if err := w.sweepBill(ctx, bill, today, &result); err != nil {
			slog.ErrorContext(ctx, "Failed to sweep bill",
				"bill_id", bill.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Reminder sweep complete",
		"checked", result.Checked,
		"marked_overdue", result.MarkedOverdue,
		"events_published", result.EventsPublished)

	return result, nil
}

func (w *ReminderWorker) todayFor(ctx context.Context, userID string) (core.Date, error) {
	user, err := w.storage.GetUser(ctx, userID)
	if err != nil {
		return core.Date{}, fmt.Errorf("get user: %w", err)
	}
	tz := schedule.ResolveTimezone(user.Timezone, w.defaultTZ)
	today, err := w.clock.Today(tz)
	if err != nil {
		return core.Date{}, fmt.Errorf("resolve today in %s: %w", tz, err)
	}
	return today, nil
}

func (w *ReminderWorker) sweepBill(ctx context.Context, bill core.Bill, today core.Date, result *SweepResult) error {
	c, err := schedule.Classify(bill, today)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	if c.Bucket == schedule.BucketOverdue && bill.Status != core.BillOverdue {
		if err := w.storage.SetBillStatus(ctx, bill.ID, core.BillOverdue); err != nil {
			return fmt.Errorf("mark overdue: %w", err)
		}
		result.MarkedOverdue++
		slog.InfoContext(ctx, "Bill marked overdue",
			"bill_id", bill.ID,
			"due_date", bill.DueDate.String(),
			"days_until_due", c.DaysUntilDue)
	}

	if c.Bucket != schedule.BucketOverdue && c.Bucket != schedule.BucketReminderDue {
		return nil
	}

	if c.Bucket == schedule.BucketReminderDue {
		dismissed, err := w.storage.ListDismissals(ctx, bill.UserID, today)
		if err != nil {
			return fmt.Errorf("list dismissals: %w", err)
		}
		for _, d := range dismissed {
			if d.BillID == bill.ID {
				return nil
			}
		}
	}

	if w.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping reminder event",
			"bill_id", bill.ID)
		return nil
	}

	msg := amqp.NewReminderEventMessage(bill, string(c.Bucket), c.DaysUntilDue)
	if err := w.amqpClient.PublishReminderEvent(ctx, msg); err != nil {
		return fmt.Errorf("publish reminder event: %w", err)
	}
	result.EventsPublished++
	return nil
}
