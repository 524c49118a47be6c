package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	BillUnpaid  BillStatus = "unpaid"
	BillPaid    BillStatus = "paid"
	BillOverdue BillStatus = "overdue"
	BillPending BillStatus = "pending"
)

const (
	TypeIncome  EntryType = "income"
	TypeExpense EntryType = "expense"
)

type (
	Frequency  string
	BillStatus string
	EntryType  string

	// Date is a calendar date pinned to UTC midnight. Day-difference
	// arithmetic works on Date values, never on raw instants, so the host
	// timezone cannot shift results.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a concrete ledger row, either entered directly or
	// materialized from a recurring template.
	Transaction struct {
		ID          int64
		UserID      string
		Date        Date
		Description string
		Amount      Money
		Currency    string
		Category    string
		Type        EntryType
	}

	// RecurringTemplate generates transactions on a fixed calendar cadence.
	// Pausing (Active=false) stops future generation but keeps history.
	RecurringTemplate struct {
		ID        int64
		UserID    string
		Title     string
		Amount    Money
		Currency  string
		Category  string
		Type      EntryType
		Every     Frequency
		StartDate Date
		EndDate   Date // zero value means no end
		Active    bool
	}

	Bill struct {
		ID           int64
		UserID       string
		Title        string
		Amount       Money
		Currency     string
		Category     string
		DueDate      Date
		Status       BillStatus
		Every        Frequency
		ReminderDays int
		LastPaidDate Date
	}

	Budget struct {
		ID       int64
		UserID   string
		Category string
		Limit    Money
		Month    int // 1-12
		Year     int
	}

	// Occurrence is one concrete dated instance generated from a recurring
	// template. Derived on demand, never persisted.
	Occurrence struct {
		TemplateID int64
		Date       Date
		Amount     Money
	}

	User struct {
		ID           string
		Email        string
		PasswordHash string
		Timezone     string
		CreatedAt    time.Time
	}

	// DismissalRecord marks a reminder the user dismissed on a given
	// zone-local date. It is passed explicitly into alert aggregation and
	// compared structurally; there is no hidden dismissal state.
	DismissalRecord struct {
		BillID   int64
		Date     Date
		Timezone string
	}
)

var (
	ErrInvalidTimezone  = errors.New("invalid timezone")
	ErrInvalidDueDate   = errors.New("invalid due date")
	ErrInvalidStartDate = errors.New("invalid start date")
	ErrRangeTooLarge    = errors.New("occurrence range too large")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyCategory    = errors.New("empty category")
)

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date in the instant's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) Day() int   { return d.Time.Day() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Year() int  { return d.Time.Year() }

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// DaysBetween returns the signed count of calendar days from one date to
// another, ignoring time-of-day. DaysBetween(today, due) is positive when
// due is in the future.
func DaysBetween(from, to Date) int {
	f := time.Date(from.Year(), from.Time.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Time.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// AddMonthsClamped advances a date by n calendar months, clamping the day of
// month to the last day of the target month (Jan 31 + 1 month = Feb 28/29,
// never Mar 3).
func AddMonthsClamped(d Date, n int) Date {
	year, month := d.Year(), d.Month()+n
	for month > 12 {
		month -= 12
		year++
	}
	for month < 1 {
		month += 12
		year--
	}
	day := d.Day()
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// AddYearsClamped advances a date by n calendar years, clamping Feb 29 to
// Feb 28 in non-leap years.
func AddYearsClamped(d Date, n int) Date {
	year := d.Year() + n
	day := d.Day()
	if last := lastDayOfMonth(year, d.Month()); day > last {
		day = last
	}
	return NewDate(year, d.Month(), day)
}

func lastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (s BillStatus) Valid() bool {
	switch s {
	case BillUnpaid, BillPaid, BillOverdue, BillPending:
		return true
	}
	return false
}

func (t EntryType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return errors.New("invalid date: " + err.Error())
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyTitle
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Type.Valid() {
		return errors.New("invalid entry type")
	}
	return nil
}

func (rt RecurringTemplate) Validate() error {
	if rt.StartDate.IsZero() {
		return ErrInvalidStartDate
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate.Time) {
		return errors.New("end date must not precede start date")
	}
	if !rt.Every.Valid() {
		return errors.New("invalid frequency")
	}
	if len(strings.TrimSpace(rt.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(rt.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(rt.Category) == "" {
		return ErrEmptyCategory
	}
	if !rt.Type.Valid() {
		return errors.New("invalid entry type")
	}
	return nil
}

func (b Bill) Validate() error {
	if b.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	if len(strings.TrimSpace(b.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(b.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Status.Valid() {
		return errors.New("invalid bill status")
	}
	if b.ReminderDays < 0 {
		return errors.New("reminder days must not be negative")
	}
	if b.Every != "" && !b.Every.Valid() {
		return errors.New("invalid frequency")
	}
	// paid implies a recorded payment date
	if b.Status == BillPaid && b.LastPaidDate.IsZero() {
		return errors.New("paid bill missing last paid date")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	if b.Month < 1 || b.Month > 12 {
		return errors.New("invalid month")
	}
	if b.Year < 1970 {
		return errors.New("invalid year")
	}
	return nil
}
