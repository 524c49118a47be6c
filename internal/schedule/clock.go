// Package schedule implements the recurrence and due-date engine: timezone
// resolution, bill due-status classification, and expansion of recurring
// templates into concrete occurrences. Everything here is a pure function of
// its inputs plus an injectable time source, so it is deterministic in tests
// and safe for concurrent use.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Clock answers "what time is it in timezone X" against an injectable time
// source. Production code uses NewClock; tests pin the instant with NewClockAt.
type Clock struct {
	now func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt returns a clock frozen to the given source, for deterministic
// classification in tests and request handling.
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current instant in the given IANA zone.
func (c *Clock) Now(timezoneID string) (time.Time, error) {
	loc, err := loadLocation(timezoneID)
	if err != nil {
		return time.Time{}, err
	}
	return c.now().In(loc), nil
}

// Today returns the zone-local calendar date. It is stable within the same
// calendar day in that zone regardless of the host timezone.
func (c *Clock) Today(timezoneID string) (core.Date, error) {
	now, err := c.Now(timezoneID)
	if err != nil {
		return core.Date{}, err
	}
	return core.DateOf(now), nil
}

// HasTimePassed reports whether the zone-local wall clock has reached HH:MM
// on the zone-local current date. Best-effort to the minute; no guarantee
// across DST transition edge-seconds.
func (c *Clock) HasTimePassed(hhmm, timezoneID string) (bool, error) {
	target, err := parseWallClock(hhmm)
	if err != nil {
		return false, err
	}
	now, err := c.Now(timezoneID)
	if err != nil {
		return false, err
	}
	return now.Hour()*60+now.Minute() >= target, nil
}

// ResolveTimezone tries the candidates in precedence order (profile timezone,
// then client-supplied timezone, then a configured default) and returns the
// first valid zone, falling back to UTC.
func ResolveTimezone(candidates ...string) string {
	for _, tz := range candidates {
		if _, err := loadLocation(tz); err == nil {
			return tz
		}
	}
	return "UTC"
}

func loadLocation(timezoneID string) (*time.Location, error) {
	// time.LoadLocation treats "" as UTC; an empty profile field is missing
	// data, not a UTC preference, so reject it and let the precedence order
	// decide.
	if strings.TrimSpace(timezoneID) == "" {
		return nil, fmt.Errorf("%w: empty zone name", core.ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(timezoneID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidTimezone, timezoneID)
	}
	return loc, nil
}

func parseWallClock(hhmm string) (minutes int, err error) {
	parts := strings.Split(strings.TrimSpace(hhmm), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid wall-clock time %q: want HH:MM", hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", hhmm)
	}
	return h*60 + m, nil
}
