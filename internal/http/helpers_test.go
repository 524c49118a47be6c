package http

import (
	"net/http/httptest"
	"testing"
)

func TestClientTimezone(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{name: "header wins over query", target: "/bills?tz=UTC", header: "Europe/Rome", want: "Europe/Rome"},
		{name: "query fallback", target: "/bills?tz=Asia/Tokyo", want: "Asia/Tokyo"},
		{name: "header trimmed", target: "/bills", header: "  Europe/Rome  ", want: "Europe/Rome"},
		{name: "absent", target: "/bills", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				r.Header.Set("X-Timezone", tt.header)
			}
			if got := clientTimezone(r); got != tt.want {
				t.Errorf("clientTimezone() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestYearMonth(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantYear  int
		wantMonth int
		wantOK    bool
	}{
		{name: "explicit", target: "/summary?year=2024&month=3", wantYear: 2024, wantMonth: 3, wantOK: true},
		{name: "month out of range", target: "/summary?year=2024&month=13", wantOK: false},
		{name: "month zero", target: "/summary?year=2024&month=0", wantOK: false},
		{name: "garbage year", target: "/summary?year=twenty&month=3", wantOK: false},
		{name: "garbage month", target: "/summary?year=2024&month=march", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			year, month, ok := yearMonth(r)
			if ok != tt.wantOK {
				t.Fatalf("yearMonth() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if year != tt.wantYear || month != tt.wantMonth {
				t.Errorf("yearMonth() = %d-%d, want %d-%d", year, month, tt.wantYear, tt.wantMonth)
			}
		})
	}

	t.Run("defaults to current month", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/summary", nil)
		year, month, ok := yearMonth(r)
		if !ok {
			t.Fatal("yearMonth() ok = false, want true")
		}
		if year < 2024 || month < 1 || month > 12 {
			t.Errorf("yearMonth() defaults = %d-%d, not a plausible current month", year, month)
		}
	})
}

func TestParseDateParam(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/occurrences?from=2024-03-15", nil)
		d, ok := parseDateParam(r, "from")
		if !ok {
			t.Fatal("parseDateParam() ok = false, want true")
		}
		if d.String() != "2024-03-15" {
			t.Errorf("parseDateParam() = %s, want 2024-03-15", d)
		}
	})
	t.Run("absent is ok and zero", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/occurrences", nil)
		d, ok := parseDateParam(r, "from")
		if !ok || !d.IsZero() {
			t.Errorf("parseDateParam() = (%v, %v), want zero date and ok", d, ok)
		}
	})
	t.Run("malformed rejected", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/occurrences?from=15-03-2024", nil)
		if _, ok := parseDateParam(r, "from"); ok {
			t.Error("parseDateParam() ok = true for malformed date")
		}
	})
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims whitespace", input: "  rent  ", want: "rent"},
		{name: "strips control chars", input: "re\x00nt\x07", want: "rent"},
		{name: "keeps tabs and newlines", input: "a\tb\nc", want: "a\tb\nc"},
		{name: "plain passes through", input: "groceries", want: "groceries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeInput(tt.input); got != tt.want {
				t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
