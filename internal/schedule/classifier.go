package schedule

import (
	"fmt"

	"fintrack/internal/core"
)

// Bucket is the mutually exclusive due-status classification of a bill.
// The set is closed; API responses and consumers must not invent new values.
type Bucket string

const (
	BucketPaid        Bucket = "PAID"
	BucketOverdue     Bucket = "OVERDUE"
	BucketReminderDue Bucket = "REMINDER_DUE"
	BucketUpcoming    Bucket = "UPCOMING"
	BucketScheduled   Bucket = "SCHEDULED"
)

// UpcomingHorizonDays is the fixed lookahead window for the UPCOMING bucket.
// Policy constant, not user-configurable.
const UpcomingHorizonDays = 7

// Classification is the result of classifying one bill against a date.
type Classification struct {
	Bucket       Bucket
	DaysUntilDue int
}

// Classify derives the due-status bucket for a bill given "today" in the
// bill owner's timezone. Priority order: paid wins outright, then overdue,
// then the reminder window (inclusive of the due day), then the fixed
// upcoming horizon, then scheduled. A bill due inside both the reminder
// window and the upcoming horizon is REMINDER_DUE.
//
// A bill without a usable due date yields core.ErrInvalidDueDate; callers
// exclude such bills from alerting rather than failing a whole listing.
func Classify(bill core.Bill, today core.Date) (Classification, error) {
	if bill.DueDate.IsZero() {
		return Classification{}, fmt.Errorf("bill %d: %w", bill.ID, core.ErrInvalidDueDate)
	}

	days := core.DaysBetween(today, bill.DueDate)
	c := Classification{DaysUntilDue: days}

	switch {
	case bill.Status == core.BillPaid:
		c.Bucket = BucketPaid
	case days < 0:
		c.Bucket = BucketOverdue
	case days <= bill.ReminderDays:
		c.Bucket = BucketReminderDue
	case days <= UpcomingHorizonDays:
		c.Bucket = BucketUpcoming
	default:
		c.Bucket = BucketScheduled
	}
	return c, nil
}

// ClassifiedBill pairs a bill with its derived classification.
type ClassifiedBill struct {
	Bill core.Bill
	Classification
}

// Alerts holds the displayed alert groups. Every bill appears in at most one
// group, chosen by the classification priority (overdue beats reminder beats
// upcoming), so consumers never double count.
type Alerts struct {
	Overdue   []ClassifiedBill
	Reminders []ClassifiedBill
	Upcoming  []ClassifiedBill
}

// ItemError reports a single bill that could not be classified.
type ItemError struct {
	BillID int64
	Err    error
}

// GroupByBucket classifies every bill and places it in exactly one alert
// group. Bills classified PAID or SCHEDULED are valid but not surfaced.
// Reminders the user already dismissed today (matching dismissal date and
// zone-local today) are suppressed. Unclassifiable bills are returned as
// per-item errors instead of failing the batch.
func GroupByBucket(bills []core.Bill, today core.Date, dismissed []core.DismissalRecord) (Alerts, []ItemError) {
	var alerts Alerts
	var skipped []ItemError

	for _, bill := range bills {
		c, err := Classify(bill, today)
		if err != nil {
			skipped = append(skipped, ItemError{BillID: bill.ID, Err: err})
			continue
		}
		cb := ClassifiedBill{Bill: bill, Classification: c}
		switch c.Bucket {
		case BucketOverdue:
			alerts.Overdue = append(alerts.Overdue, cb)
		case BucketReminderDue:
			if dismissedToday(bill.ID, today, dismissed) {
				continue
			}
			alerts.Reminders = append(alerts.Reminders, cb)
		case BucketUpcoming:
			alerts.Upcoming = append(alerts.Upcoming, cb)
		}
	}
	return alerts, skipped
}

func dismissedToday(billID int64, today core.Date, dismissed []core.DismissalRecord) bool {
	for _, d := range dismissed {
		if d.BillID == billID && !d.Date.IsZero() && d.Date.Equal(today.Time) {
			return true
		}
	}
	return false
}
