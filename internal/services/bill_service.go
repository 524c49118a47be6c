package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/schedule"
	"fintrack/internal/storage"
)

// BillService derives due-status alerts and drives the pay/dismiss flows.
// All date work happens on zone-local calendar dates resolved through the
// shared clock, never on raw server time.
type BillService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	clock      *schedule.Clock
	defaultTZ  string
}

func NewBillService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, clock *schedule.Clock, defaultTimezone string) *BillService {
	return &BillService{
		storage:    storage,
		amqpClient: amqpClient,
		clock:      clock,
		defaultTZ:  defaultTimezone,
	}
}

// today resolves the calendar date for a user, preferring the profile
// timezone, then the client-supplied one, then the configured default,
// then UTC.
func (s *BillService) today(ctx context.Context, userID, clientTimezone string) (core.Date, string, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return core.Date{}, "", fmt.Errorf("get user: %w", err)
	}

	tz := schedule.ResolveTimezone(user.Timezone, clientTimezone, s.defaultTZ)
	today, err := s.clock.Today(tz)
	if err != nil {
		return core.Date{}, "", fmt.Errorf("resolve today in %s: %w", tz, err)
	}
	return today, tz, nil
}

// Alerts groups the user's bills into overdue, reminder and upcoming lists.
// Bills that cannot be classified are reported per item, never failing the
// whole listing. Reminders dismissed today are suppressed.
func (s *BillService) Alerts(ctx context.Context, userID, clientTimezone string) (schedule.Alerts, []schedule.ItemError, error) {
	today, _, err := s.today(ctx, userID, clientTimezone)
	if err != nil {
		return schedule.Alerts{}, nil, err
	}

	bills, err := s.storage.ListBills(ctx, userID)
	if err != nil {
		return schedule.Alerts{}, nil, fmt.Errorf("list bills: %w", err)
	}

	dismissed, err := s.storage.ListDismissals(ctx, userID, today)
	if err != nil {
		return schedule.Alerts{}, nil, fmt.Errorf("list dismissals: %w", err)
	}

	alerts, skipped := schedule.GroupByBucket(bills, today, dismissed)
	for _, item := range skipped {
		slog.WarnContext(ctx, "Skipping unclassifiable bill",
			"bill_id", item.BillID, "error", item.Err)
	}
	return alerts, skipped, nil
}

// PayBill marks a bill as paid. A one-shot bill stays paid; a recurring bill
// records the payment and rolls its due date forward to the next occurrence,
// returning to unpaid for the new cycle.
func (s *BillService) PayBill(ctx context.Context, userID string, billID int64, clientTimezone string) (core.Bill, error) {
	today, _, err := s.today(ctx, userID, clientTimezone)
	if err != nil {
		return core.Bill{}, err
	}

	bill, err := s.storage.GetBill(ctx, userID, billID)
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill: %w", err)
	}

	bill.LastPaidDate = today
	if bill.Every.Valid() {
		cycle := core.RecurringTemplate{Every: bill.Every, StartDate: bill.DueDate}
		next, ok, err := schedule.NextOccurrence(cycle, bill.DueDate)
		if err != nil {
			return core.Bill{}, fmt.Errorf("advance due date: %w", err)
		}
		if ok {
			bill.DueDate = next
			bill.Status = core.BillUnpaid
		} else {
			bill.Status = core.BillPaid
		}
	} else {
		bill.Status = core.BillPaid
	}

	if err := s.storage.UpdateBill(ctx, bill); err != nil {
		return core.Bill{}, fmt.Errorf("update bill: %w", err)
	}

	// Payment clears any outstanding reminder; the event is best effort.
	if s.amqpClient != nil {
		msg := amqp.NewReminderEventMessage(bill, string(schedule.BucketPaid), 0)
		if err := s.amqpClient.PublishReminderEvent(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish payment event",
				"bill_id", bill.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Bill paid",
		"bill_id", bill.ID,
		"paid_on", today.String(),
		"next_due", bill.DueDate.String(),
		"status", string(bill.Status))

	return bill, nil
}

// DismissReminder records that the user dismissed a bill's reminder for the
// current zone-local date. The reminder reappears the next day if the bill is
// still inside its reminder window.
func (s *BillService) DismissReminder(ctx context.Context, userID string, billID int64, clientTimezone string) error {
	today, tz, err := s.today(ctx, userID, clientTimezone)
	if err != nil {
		return err
	}

	// Reject dismissals for bills the user does not own.
	if _, err := s.storage.GetBill(ctx, userID, billID); err != nil {
		return fmt.Errorf("get bill: %w", err)
	}

	record := core.DismissalRecord{BillID: billID, Date: today, Timezone: tz}
	if err := s.storage.CreateDismissal(ctx, userID, record); err != nil {
		return fmt.Errorf("record dismissal: %w", err)
	}

	slog.InfoContext(ctx, "Reminder dismissed",
		"bill_id", billID, "date", today.String(), "timezone", tz)
	return nil
}

// PublishReminderEvent emits one reminder event for a classified bill.
func (s *BillService) PublishReminderEvent(ctx context.Context, cb schedule.ClassifiedBill) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping reminder event")
		return nil
	}

	msg := amqp.NewReminderEventMessage(cb.Bill, string(cb.Bucket), cb.DaysUntilDue)
	return s.amqpClient.PublishReminderEvent(ctx, msg)
}
