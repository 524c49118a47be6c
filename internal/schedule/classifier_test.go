package schedule

import (
	"errors"
	"testing"

	"fintrack/internal/core"
)

func unpaidBill(id int64, due core.Date, reminderDays int) core.Bill {
	return core.Bill{
		ID:           id,
		Title:        "bill",
		Amount:       core.Money{Cents: 1000},
		DueDate:      due,
		Status:       core.BillUnpaid,
		ReminderDays: reminderDays,
	}
}

func TestClassify(t *testing.T) {
	today := core.NewDate(2024, 6, 10) // owner tz Asia/Kolkata per scenario

	tests := []struct {
		name     string
		bill     core.Bill
		wantB    Bucket
		wantDays int
	}{
		{
			name: "paid is terminal regardless of due date",
			bill: func() core.Bill {
				b := unpaidBill(1, core.NewDate(2024, 5, 1), 3)
				b.Status = core.BillPaid
				b.LastPaidDate = core.NewDate(2024, 5, 1)
				return b
			}(),
			wantB:    BucketPaid,
			wantDays: -40,
		},
		{
			name:     "due yesterday is overdue",
			bill:     unpaidBill(2, core.NewDate(2024, 6, 9), 0),
			wantB:    BucketOverdue,
			wantDays: -1,
		},
		{
			name:     "due in 2 days with 3 reminder days is reminder, not upcoming",
			bill:     unpaidBill(3, core.NewDate(2024, 6, 12), 3),
			wantB:    BucketReminderDue,
			wantDays: 2,
		},
		{
			name:     "due today with zero reminder days is reminder",
			bill:     unpaidBill(4, today, 0),
			wantB:    BucketReminderDue,
			wantDays: 0,
		},
		{
			name:     "due in 5 days outside reminder window is upcoming",
			bill:     unpaidBill(5, core.NewDate(2024, 6, 15), 2),
			wantB:    BucketUpcoming,
			wantDays: 5,
		},
		{
			name:     "due exactly at the horizon is upcoming",
			bill:     unpaidBill(6, core.NewDate(2024, 6, 17), 0),
			wantB:    BucketUpcoming,
			wantDays: 7,
		},
		{
			name:     "due past the horizon is scheduled",
			bill:     unpaidBill(7, core.NewDate(2024, 6, 18), 0),
			wantB:    BucketScheduled,
			wantDays: 8,
		},
		{
			name: "pending status classifies like unpaid",
			bill: func() core.Bill {
				b := unpaidBill(8, core.NewDate(2024, 6, 9), 0)
				b.Status = core.BillPending
				return b
			}(),
			wantB:    BucketOverdue,
			wantDays: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.bill, today)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got.Bucket != tt.wantB {
				t.Errorf("Classify() bucket = %s, want %s", got.Bucket, tt.wantB)
			}
			if got.DaysUntilDue != tt.wantDays {
				t.Errorf("Classify() daysUntilDue = %d, want %d", got.DaysUntilDue, tt.wantDays)
			}
		})
	}
}

func TestClassify_InvalidDueDate(t *testing.T) {
	bill := unpaidBill(9, core.Date{}, 3)
	if _, err := Classify(bill, core.NewDate(2024, 6, 10)); !errors.Is(err, core.ErrInvalidDueDate) {
		t.Errorf("Classify() error = %v, want ErrInvalidDueDate", err)
	}
}

func TestGroupByBucket(t *testing.T) {
	today := core.NewDate(2024, 6, 10)
	bills := []core.Bill{
		unpaidBill(1, core.NewDate(2024, 6, 8), 0),  // overdue
		unpaidBill(2, core.NewDate(2024, 6, 12), 3), // reminder (also inside upcoming horizon)
		unpaidBill(3, core.NewDate(2024, 6, 14), 0), // upcoming
		unpaidBill(4, core.NewDate(2024, 7, 20), 0), // scheduled, not surfaced
		unpaidBill(5, core.Date{}, 0),               // malformed, excluded
	}

	alerts, skipped := GroupByBucket(bills, today, nil)

	if len(alerts.Overdue) != 1 || alerts.Overdue[0].Bill.ID != 1 {
		t.Errorf("Overdue = %+v, want bill 1 only", alerts.Overdue)
	}
	if len(alerts.Reminders) != 1 || alerts.Reminders[0].Bill.ID != 2 {
		t.Errorf("Reminders = %+v, want bill 2 only", alerts.Reminders)
	}
	if len(alerts.Upcoming) != 1 || alerts.Upcoming[0].Bill.ID != 3 {
		t.Errorf("Upcoming = %+v, want bill 3 only", alerts.Upcoming)
	}

	if len(skipped) != 1 || skipped[0].BillID != 5 {
		t.Fatalf("skipped = %+v, want bill 5 only", skipped)
	}
	if !errors.Is(skipped[0].Err, core.ErrInvalidDueDate) {
		t.Errorf("skipped error = %v, want ErrInvalidDueDate", skipped[0].Err)
	}

	// Every surfaced bill appears in exactly one group.
	seen := map[int64]int{}
	for _, cb := range alerts.Overdue {
		seen[cb.Bill.ID]++
	}
	for _, cb := range alerts.Reminders {
		seen[cb.Bill.ID]++
	}
	for _, cb := range alerts.Upcoming {
		seen[cb.Bill.ID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("bill %d appears in %d groups", id, n)
		}
	}
}

func TestGroupByBucket_Dismissal(t *testing.T) {
	today := core.NewDate(2024, 6, 10)
	bills := []core.Bill{unpaidBill(2, core.NewDate(2024, 6, 12), 3)}

	t.Run("dismissed today suppresses reminder", func(t *testing.T) {
		dismissed := []core.DismissalRecord{{BillID: 2, Date: today, Timezone: "Asia/Kolkata"}}
		alerts, _ := GroupByBucket(bills, today, dismissed)
		if len(alerts.Reminders) != 0 {
			t.Errorf("Reminders = %+v, want empty after dismissal", alerts.Reminders)
		}
	})

	t.Run("yesterday's dismissal does not carry over", func(t *testing.T) {
		dismissed := []core.DismissalRecord{{BillID: 2, Date: core.NewDate(2024, 6, 9)}}
		alerts, _ := GroupByBucket(bills, today, dismissed)
		if len(alerts.Reminders) != 1 {
			t.Errorf("Reminders = %+v, want 1", alerts.Reminders)
		}
	})

	t.Run("dismissal never hides overdue", func(t *testing.T) {
		overdue := []core.Bill{unpaidBill(7, core.NewDate(2024, 6, 8), 0)}
		dismissed := []core.DismissalRecord{{BillID: 7, Date: today}}
		alerts, _ := GroupByBucket(overdue, today, dismissed)
		if len(alerts.Overdue) != 1 {
			t.Errorf("Overdue = %+v, want 1", alerts.Overdue)
		}
	})
}
