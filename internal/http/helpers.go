package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// clientTimezone returns the timezone the client asked for, if any. The
// profile timezone still wins; this is only the fallback candidate.
func clientTimezone(r *http.Request) string {
	if tz := strings.TrimSpace(r.Header.Get("X-Timezone")); tz != "" {
		return tz
	}
	return strings.TrimSpace(r.URL.Query().Get("tz"))
}

// yearMonth parses year/month query params, defaulting to the current month.
func yearMonth(r *http.Request) (year, month int, ok bool) {
	now := time.Now()
	year, month = now.Year(), int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		month = m
	}
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseDateParam(r *http.Request, name string) (core.Date, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return core.Date{}, true
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, false
	}
	return d, true
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
