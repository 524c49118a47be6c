package schedule

import (
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func fixedClock(t time.Time) *Clock {
	return NewClockAt(func() time.Time { return t })
}

func TestClock_Today(t *testing.T) {
	// 2024-06-10 22:30 UTC is already 2024-06-11 in Kolkata (UTC+5:30)
	// and still 2024-06-10 in New York.
	clock := fixedClock(time.Date(2024, 6, 10, 22, 30, 0, 0, time.UTC))

	tests := []struct {
		name string
		tz   string
		want core.Date
	}{
		{"utc", "UTC", core.NewDate(2024, 6, 10)},
		{"ahead of utc", "Asia/Kolkata", core.NewDate(2024, 6, 11)},
		{"behind utc", "America/New_York", core.NewDate(2024, 6, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := clock.Today(tt.tz)
			if err != nil {
				t.Fatalf("Today(%q) error = %v", tt.tz, err)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("Today(%q) = %s, want %s", tt.tz, got, tt.want)
			}
		})
	}
}

func TestClock_Today_InvalidZone(t *testing.T) {
	clock := fixedClock(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	for _, tz := range []string{"Mars/Olympus", "", "  "} {
		if _, err := clock.Today(tz); !errors.Is(err, core.ErrInvalidTimezone) {
			t.Errorf("Today(%q) error = %v, want ErrInvalidTimezone", tz, err)
		}
	}
}

func TestClock_HasTimePassed(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hhmm string
		tz   string
		want bool
	}{
		{
			name: "one second before",
			now:  time.Date(2024, 6, 10, 17, 59, 59, 0, time.UTC),
			hhmm: "18:00",
			tz:   "UTC",
			want: false,
		},
		{
			name: "exactly on the minute",
			now:  time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC),
			hhmm: "18:00",
			tz:   "UTC",
			want: true,
		},
		{
			name: "well past",
			now:  time.Date(2024, 6, 10, 21, 15, 0, 0, time.UTC),
			hhmm: "18:00",
			tz:   "UTC",
			want: true,
		},
		{
			name: "zone-local evening while utc morning",
			now:  time.Date(2024, 6, 10, 13, 0, 0, 0, time.UTC), // 18:30 in Kolkata
			hhmm: "18:00",
			tz:   "Asia/Kolkata",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fixedClock(tt.now).HasTimePassed(tt.hhmm, tt.tz)
			if err != nil {
				t.Fatalf("HasTimePassed() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasTimePassed(%q, %q) = %v, want %v", tt.hhmm, tt.tz, got, tt.want)
			}
		})
	}
}

func TestClock_HasTimePassed_BadInput(t *testing.T) {
	clock := fixedClock(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	for _, hhmm := range []string{"25:00", "12:60", "noon", "12", "12:0x"} {
		if _, err := clock.HasTimePassed(hhmm, "UTC"); err == nil {
			t.Errorf("HasTimePassed(%q) should fail", hhmm)
		}
	}

	if _, err := clock.HasTimePassed("12:00", "Not/AZone"); !errors.Is(err, core.ErrInvalidTimezone) {
		t.Errorf("HasTimePassed with bad zone error = %v, want ErrInvalidTimezone", err)
	}
}

func TestResolveTimezone(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       string
	}{
		{"profile wins", []string{"Asia/Kolkata", "Europe/Rome"}, "Asia/Kolkata"},
		{"falls through invalid profile", []string{"Not/AZone", "Europe/Rome"}, "Europe/Rome"},
		{"empty is not utc", []string{"", "Europe/Rome"}, "Europe/Rome"},
		{"all invalid defaults to utc", []string{"Not/AZone", ""}, "UTC"},
		{"no candidates", nil, "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveTimezone(tt.candidates...); got != tt.want {
				t.Errorf("ResolveTimezone(%v) = %q, want %q", tt.candidates, got, tt.want)
			}
		})
	}
}
