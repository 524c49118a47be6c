// This file implements the Strategy Pattern for recurrence stepping. Each
// frequency type (daily, weekly, monthly, yearly) has its own stepper that
// encapsulates the calendar arithmetic for producing the nth occurrence.

package schedule

import (
	"fmt"

	"fintrack/internal/core"
)

// MaxOccurrences bounds the work of a single expansion. Requested ranges
// implying more occurrences are rejected with core.ErrRangeTooLarge before or
// during iteration, so a misconfigured frequency/range pair cannot spin.
const MaxOccurrences = 10000

// Stepper is the strategy interface for one recurrence frequency. At returns
// the nth occurrence counting from the template start date; n=0 is the start
// date itself. Indexing from the start (rather than stepping from the
// previous occurrence) keeps month-end clamping anchored to the original
// day-of-month: Jan 31 yields Feb 28, Mar 31, Apr 30, not a drifting 28th.
type Stepper interface {
	At(start core.Date, n int) core.Date
}

// DailyStepper implements Stepper with a one-day interval.
type DailyStepper struct{}

func (DailyStepper) At(start core.Date, n int) core.Date {
	return core.Date{Time: start.AddDate(0, 0, n)}
}

// WeeklyStepper implements Stepper with a seven-day interval.
type WeeklyStepper struct{}

func (WeeklyStepper) At(start core.Date, n int) core.Date {
	return core.Date{Time: start.AddDate(0, 0, 7*n)}
}

// MonthlyStepper implements Stepper with a one-calendar-month interval and
// month-end clamping.
type MonthlyStepper struct{}

func (MonthlyStepper) At(start core.Date, n int) core.Date {
	return core.AddMonthsClamped(start, n)
}

// YearlyStepper implements Stepper with a one-calendar-year interval and
// Feb 29 clamping.
type YearlyStepper struct{}

func (YearlyStepper) At(start core.Date, n int) core.Date {
	return core.AddYearsClamped(start, n)
}

// steppers maps frequencies to their steppers for O(1) lookup.
var steppers = map[core.Frequency]Stepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetStepper returns the stepper for a frequency, or an error for an
// unsupported one.
func GetStepper(frequency core.Frequency) (Stepper, error) {
	s, ok := steppers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return s, nil
}

// RegisterStepper registers a custom stepper for a new frequency type.
func RegisterStepper(frequency core.Frequency, s Stepper) {
	steppers[frequency] = s
}

// OccurrencesBetween expands a recurring template over [rangeStart, rangeEnd]
// into its concrete occurrence dates, strictly ascending. It is a pure
// function of its inputs; calling it twice yields identical sequences.
//
// Expansion jumps to the first frequency step on or after rangeStart and
// walks until the earlier of rangeEnd and the template end date, so cost is
// linear in the occurrences inside the window, not in the template's age.
// A start date beyond the range end produces an empty sequence, not an
// error. Each occurrence carries the template's current amount; amounts are
// not snapshotted.
func OccurrencesBetween(tpl core.RecurringTemplate, rangeStart, rangeEnd core.Date) ([]core.Occurrence, error) {
	if tpl.StartDate.IsZero() {
		return nil, fmt.Errorf("template %d: %w", tpl.ID, core.ErrInvalidStartDate)
	}
	stepper, err := GetStepper(tpl.Every)
	if err != nil {
		return nil, fmt.Errorf("template %d: %w", tpl.ID, err)
	}
	if rangeEnd.Before(rangeStart.Time) {
		return nil, nil
	}

	last := rangeEnd
	if !tpl.EndDate.IsZero() && tpl.EndDate.Before(last.Time) {
		last = tpl.EndDate
	}
	if tpl.StartDate.After(last.Time) {
		return nil, nil
	}

	first := stepIndexAtOrAfter(stepper, tpl.Every, tpl.StartDate, rangeStart)
	if err := checkSpan(tpl.Every, stepper.At(tpl.StartDate, first), last); err != nil {
		return nil, fmt.Errorf("template %d: %w", tpl.ID, err)
	}

	var out []core.Occurrence
	for n := first; ; n++ {
		if n-first > MaxOccurrences {
			return nil, fmt.Errorf("template %d: %w", tpl.ID, core.ErrRangeTooLarge)
		}
		d := stepper.At(tpl.StartDate, n)
		if d.After(last.Time) {
			break
		}
		out = append(out, core.Occurrence{
			TemplateID: tpl.ID,
			Date:       d,
			Amount:     tpl.Amount,
		})
	}
	return out, nil
}

// NextOccurrence returns the first occurrence strictly after the given date,
// honoring the template end date. ok is false when the template has run out.
func NextOccurrence(tpl core.RecurringTemplate, after core.Date) (core.Date, bool, error) {
	if tpl.StartDate.IsZero() {
		return core.Date{}, false, fmt.Errorf("template %d: %w", tpl.ID, core.ErrInvalidStartDate)
	}
	stepper, err := GetStepper(tpl.Every)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("template %d: %w", tpl.ID, err)
	}

	first := stepIndexAtOrAfter(stepper, tpl.Every, tpl.StartDate, core.Date{Time: after.AddDate(0, 0, 1)})
	for n := first; n <= first+MaxOccurrences; n++ {
		d := stepper.At(tpl.StartDate, n)
		if !tpl.EndDate.IsZero() && d.After(tpl.EndDate.Time) {
			return core.Date{}, false, nil
		}
		if d.After(after.Time) {
			return d, true, nil
		}
	}
	return core.Date{}, false, fmt.Errorf("template %d: %w", tpl.ID, core.ErrRangeTooLarge)
}

// stepIndexAtOrAfter returns the smallest step index whose occurrence falls
// on or after from, letting callers skip the steps before the window instead
// of walking them one by one. The calendar estimate can miss by a step around
// month-end clamping; the trailing loops settle it. Frequencies without an
// estimate (custom steppers) start from zero and walk forward, bounded by
// MaxOccurrences.
func stepIndexAtOrAfter(stepper Stepper, f core.Frequency, start, from core.Date) int {
	if !start.Before(from.Time) {
		return 0
	}

	var n int
	switch f {
	case core.Daily:
		n = core.DaysBetween(start, from)
	case core.Weekly:
		n = core.DaysBetween(start, from) / 7
	case core.Monthly:
		n = (from.Year()-start.Year())*12 + from.Month() - start.Month()
	case core.Yearly:
		n = from.Year() - start.Year()
	}
	if n < 0 {
		n = 0
	}

	for n > 0 && !stepper.At(start, n-1).Before(from.Time) {
		n--
	}
	for i := 0; stepper.At(start, n).Before(from.Time) && i <= MaxOccurrences; i++ {
		n++
	}
	return n
}

// checkSpan rejects daily/weekly expansions whose window alone already
// implies more than MaxOccurrences, before any work happens. windowStart is
// the first occurrence inside the requested range, so old templates with
// narrow windows pass. Monthly and yearly cadences cannot realistically
// exceed the cap and fall through to the in-loop guard.
func checkSpan(f core.Frequency, windowStart, end core.Date) error {
	days := core.DaysBetween(windowStart, end)
	switch f {
	case core.Daily:
		if days > MaxOccurrences {
			return core.ErrRangeTooLarge
		}
	case core.Weekly:
		if days/7 > MaxOccurrences {
			return core.ErrRangeTooLarge
		}
	}
	return nil
}
