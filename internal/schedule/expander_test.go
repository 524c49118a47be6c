package schedule

import (
	"errors"
	"testing"

	"fintrack/internal/core"
)

func template(every core.Frequency, start core.Date) core.RecurringTemplate {
	return core.RecurringTemplate{
		ID:        42,
		Title:     "subscription",
		Amount:    core.Money{Cents: 999},
		Every:     every,
		StartDate: start,
		Active:    true,
	}
}

func dates(occs []core.Occurrence) []string {
	out := make([]string, len(occs))
	for i, o := range occs {
		out[i] = o.Date.String()
	}
	return out
}

func TestOccurrencesBetween_Weekly(t *testing.T) {
	tpl := template(core.Weekly, core.NewDate(2024, 1, 1))

	occs, err := OccurrencesBetween(tpl, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 22))
	if err != nil {
		t.Fatalf("OccurrencesBetween() error = %v", err)
	}

	want := []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22"}
	got := dates(occs)
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("occurrence[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestOccurrencesBetween_MonthlyClamping(t *testing.T) {
	t.Run("leap year", func(t *testing.T) {
		tpl := template(core.Monthly, core.NewDate(2024, 1, 31))
		occs, err := OccurrencesBetween(tpl, core.NewDate(2024, 1, 1), core.NewDate(2024, 4, 30))
		if err != nil {
			t.Fatalf("OccurrencesBetween() error = %v", err)
		}
		want := []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}
		got := dates(occs)
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("occurrence[%d] = %s, want %s", i, got[i], want[i])
			}
		}
	})

	t.Run("non-leap year", func(t *testing.T) {
		tpl := template(core.Monthly, core.NewDate(2023, 1, 31))
		occs, err := OccurrencesBetween(tpl, core.NewDate(2023, 2, 1), core.NewDate(2023, 3, 1))
		if err != nil {
			t.Fatalf("OccurrencesBetween() error = %v", err)
		}
		if len(occs) != 1 || occs[0].Date.String() != "2023-02-28" {
			t.Errorf("got %v, want [2023-02-28]", dates(occs))
		}
	})
}

func TestOccurrencesBetween_YearlyLeapClamping(t *testing.T) {
	tpl := template(core.Yearly, core.NewDate(2024, 2, 29))
	occs, err := OccurrencesBetween(tpl, core.NewDate(2024, 1, 1), core.NewDate(2026, 12, 31))
	if err != nil {
		t.Fatalf("OccurrencesBetween() error = %v", err)
	}
	want := []string{"2024-02-29", "2025-02-28", "2026-02-28"}
	got := dates(occs)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("occurrence[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestOccurrencesBetween_Bounds(t *testing.T) {
	t.Run("start after range end is empty", func(t *testing.T) {
		tpl := template(core.Daily, core.NewDate(2024, 7, 1))
		occs, err := OccurrencesBetween(tpl, core.NewDate(2024, 1, 1), core.NewDate(2024, 6, 30))
		if err != nil {
			t.Fatalf("OccurrencesBetween() error = %v", err)
		}
		if len(occs) != 0 {
			t.Errorf("got %v, want empty", dates(occs))
		}
	})

	t.Run("template end date truncates", func(t *testing.T) {
		tpl := template(core.Daily, core.NewDate(2024, 1, 1))
		tpl.EndDate = core.NewDate(2024, 1, 3)
		occs, err := OccurrencesBetween(tpl, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
		if err != nil {
			t.Fatalf("OccurrencesBetween() error = %v", err)
		}
		if len(occs) != 3 {
			t.Errorf("got %d occurrences %v, want 3", len(occs), dates(occs))
		}
	})

	t.Run("range start skips earlier occurrences", func(t *testing.T) {
		tpl := template(core.Weekly, core.NewDate(2024, 1, 1))
		occs, err := OccurrencesBetween(tpl, core.NewDate(2024, 1, 10), core.NewDate(2024, 1, 22))
		if err != nil {
			t.Fatalf("OccurrencesBetween() error = %v", err)
		}
		want := []string{"2024-01-15", "2024-01-22"}
		got := dates(occs)
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("inverted range is empty", func(t *testing.T) {
		tpl := template(core.Daily, core.NewDate(2024, 1, 1))
		occs, err := OccurrencesBetween(tpl, core.NewDate(2024, 2, 1), core.NewDate(2024, 1, 1))
		if err != nil {
			t.Fatalf("OccurrencesBetween() error = %v", err)
		}
		if len(occs) != 0 {
			t.Errorf("got %v, want empty", dates(occs))
		}
	})
}

func TestOccurrencesBetween_Restartable(t *testing.T) {
	tpl := template(core.Monthly, core.NewDate(2024, 1, 31))
	first, err := OccurrencesBetween(tpl, core.NewDate(2024, 1, 1), core.NewDate(2024, 12, 31))
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}
	second, err := OccurrencesBetween(tpl, core.NewDate(2024, 1, 1), core.NewDate(2024, 12, 31))
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Date.Equal(second[i].Date.Time) {
			t.Errorf("occurrence[%d] differs: %s vs %s", i, first[i].Date, second[i].Date)
		}
		if first[i].Amount != second[i].Amount {
			t.Errorf("occurrence[%d] amount differs", i)
		}
	}
	// strictly ascending
	for i := 1; i < len(first); i++ {
		if !first[i].Date.After(first[i-1].Date.Time) {
			t.Errorf("sequence not strictly ascending at %d: %s then %s", i, first[i-1].Date, first[i].Date)
		}
	}
}

func TestOccurrencesBetween_OldTemplateNarrowWindow(t *testing.T) {
	t.Run("daily", func(t *testing.T) {
		tpl := template(core.Daily, core.NewDate(1995, 1, 1))
		occs, err := OccurrencesBetween(tpl, core.NewDate(2026, 9, 1), core.NewDate(2026, 9, 8))
		if err != nil {
			t.Fatalf("OccurrencesBetween() error = %v", err)
		}
		got := dates(occs)
		if len(got) != 8 || got[0] != "2026-09-01" || got[7] != "2026-09-08" {
			t.Errorf("got %v, want 8 days 2026-09-01..2026-09-08", got)
		}
	})

	t.Run("weekly stays on cadence", func(t *testing.T) {
		start := core.NewDate(2000, 1, 3)
		tpl := template(core.Weekly, start)
		// 7000 days is an exact multiple of the interval
		from := core.Date{Time: start.AddDate(0, 0, 7000)}
		to := core.Date{Time: start.AddDate(0, 0, 7020)}
		occs, err := OccurrencesBetween(tpl, from, to)
		if err != nil {
			t.Fatalf("OccurrencesBetween() error = %v", err)
		}
		if len(occs) != 3 {
			t.Fatalf("got %d occurrences %v, want 3", len(occs), dates(occs))
		}
		for i, o := range occs {
			if days := core.DaysBetween(start, o.Date); days != 7000+7*i {
				t.Errorf("occurrence[%d] = %s, %d days from start, want %d", i, o.Date, days, 7000+7*i)
			}
		}
	})

	t.Run("monthly clamping survives the jump", func(t *testing.T) {
		tpl := template(core.Monthly, core.NewDate(2000, 1, 31))
		occs, err := OccurrencesBetween(tpl, core.NewDate(2026, 2, 1), core.NewDate(2026, 3, 31))
		if err != nil {
			t.Fatalf("OccurrencesBetween() error = %v", err)
		}
		want := []string{"2026-02-28", "2026-03-31"}
		got := dates(occs)
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("yearly leap start far from window", func(t *testing.T) {
		tpl := template(core.Yearly, core.NewDate(1980, 2, 29))
		occs, err := OccurrencesBetween(tpl, core.NewDate(2025, 1, 1), core.NewDate(2026, 12, 31))
		if err != nil {
			t.Fatalf("OccurrencesBetween() error = %v", err)
		}
		want := []string{"2025-02-28", "2026-02-28"}
		got := dates(occs)
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestNextOccurrence_OldDailyTemplate(t *testing.T) {
	tpl := template(core.Daily, core.NewDate(1995, 1, 1))
	got, ok, err := NextOccurrence(tpl, core.NewDate(2026, 8, 30))
	if err != nil {
		t.Fatalf("NextOccurrence() error = %v", err)
	}
	if !ok || got.String() != "2026-08-31" {
		t.Errorf("NextOccurrence() = (%s, %v), want (2026-08-31, true)", got, ok)
	}
}

func TestOccurrencesBetween_RangeTooLarge(t *testing.T) {
	tpl := template(core.Daily, core.NewDate(1990, 1, 1))
	_, err := OccurrencesBetween(tpl, core.NewDate(1990, 1, 1), core.NewDate(2030, 1, 1))
	if !errors.Is(err, core.ErrRangeTooLarge) {
		t.Errorf("OccurrencesBetween() error = %v, want ErrRangeTooLarge", err)
	}
}

func TestOccurrencesBetween_InvalidInputs(t *testing.T) {
	t.Run("zero start date", func(t *testing.T) {
		tpl := template(core.Daily, core.Date{})
		if _, err := OccurrencesBetween(tpl, core.NewDate(2024, 1, 1), core.NewDate(2024, 2, 1)); !errors.Is(err, core.ErrInvalidStartDate) {
			t.Errorf("error = %v, want ErrInvalidStartDate", err)
		}
	})

	t.Run("unknown frequency", func(t *testing.T) {
		tpl := template("biweekly", core.NewDate(2024, 1, 1))
		if _, err := OccurrencesBetween(tpl, core.NewDate(2024, 1, 1), core.NewDate(2024, 2, 1)); err == nil {
			t.Error("expected error for unknown frequency")
		}
	})
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name   string
		tpl    core.RecurringTemplate
		after  core.Date
		want   string
		wantOK bool
	}{
		{
			name:   "monthly anchored to month end",
			tpl:    template(core.Monthly, core.NewDate(2024, 1, 31)),
			after:  core.NewDate(2024, 2, 29),
			want:   "2024-03-31",
			wantOK: true,
		},
		{
			name:   "before start returns start",
			tpl:    template(core.Weekly, core.NewDate(2024, 3, 4)),
			after:  core.NewDate(2024, 1, 1),
			want:   "2024-03-04",
			wantOK: true,
		},
		{
			name: "exhausted template",
			tpl: func() core.RecurringTemplate {
				tpl := template(core.Daily, core.NewDate(2024, 1, 1))
				tpl.EndDate = core.NewDate(2024, 1, 10)
				return tpl
			}(),
			after:  core.NewDate(2024, 1, 10),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := NextOccurrence(tt.tpl, tt.after)
			if err != nil {
				t.Fatalf("NextOccurrence() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("NextOccurrence() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.String() != tt.want {
				t.Errorf("NextOccurrence() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGetStepper(t *testing.T) {
	tests := []struct {
		name      string
		frequency core.Frequency
		wantErr   bool
	}{
		{"daily", core.Daily, false},
		{"weekly", core.Weekly, false},
		{"monthly", core.Monthly, false},
		{"yearly", core.Yearly, false},
		{"unknown", core.Frequency("biweekly"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GetStepper(tt.frequency)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetStepper() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && s == nil {
				t.Error("GetStepper() returned nil stepper")
			}
		})
	}
}

func TestRegisterStepper(t *testing.T) {
	customFreq := core.Frequency("biweekly")
	RegisterStepper(customFreq, WeeklyStepper{})

	s, err := GetStepper(customFreq)
	if err != nil {
		t.Errorf("GetStepper() after register error = %v", err)
	}
	if s == nil {
		t.Error("GetStepper() returned nil after registration")
	}

	delete(steppers, customFreq)
}
