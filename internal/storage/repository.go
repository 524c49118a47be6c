package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert trips a uniqueness constraint,
// typically a second registration racing on the same email.
var ErrDuplicate = errors.New("already exists")

// errMalformedRow marks a stored row whose dates no longer parse. Listing
// paths skip such rows instead of failing the whole result.
var errMalformedRow = errors.New("malformed row")

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// dateOrNil converts a zero date to NULL so "no end date" and "never paid"
// round-trip cleanly.
func dateOrNil(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func scanDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, timezone) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Timezone)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", u.ID, "email", u.Email)
	return nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, timezone, created_at FROM users WHERE email = ?`,
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Timezone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, timezone, created_at FROM users WHERE id = ?`,
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Timezone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) UpdateUserTimezone(ctx context.Context, id, timezone string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET timezone = ? WHERE id = ?`, timezone, id)
	if err != nil {
		return fmt.Errorf("update user timezone: %w", err)
	}
	return requireRow(res, "update user timezone")
}

// --- transactions ---

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, date, description, amount_cents, currency, category, type)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Date.String(), t.Description, t.Amount.Cents, t.Currency, t.Category, string(t.Type))
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return id, nil
}

// CreateGeneratedTransaction records a transaction materialized from a
// recurring template, keeping the template link for traceability.
func (r *SQLiteRepository) CreateGeneratedTransaction(ctx context.Context, t core.Transaction, templateID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, date, description, amount_cents, currency, category, type, template_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Date.String(), t.Description, t.Amount.Cents, t.Currency, t.Category, string(t.Type), templateID)
	if err != nil {
		return 0, fmt.Errorf("create generated transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, year, month int) ([]core.Transaction, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, date, description, amount_cents, currency, category, type
		 FROM transactions WHERE user_id = ? AND date LIKE ? || '%' ORDER BY date, id`,
		userID, prefix)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t       core.Transaction
			dateStr string
			typ     string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &dateStr, &t.Description, &t.Amount.Cents, &t.Currency, &t.Category, &typ); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parse transaction date: %w", err)
		}
		t.Type = core.EntryType(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	var (
		t       core.Transaction
		dateStr string
		typ     string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, description, amount_cents, currency, category, type
		 FROM transactions WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&t.ID, &t.UserID, &dateStr, &t.Description, &t.Amount.Cents, &t.Currency, &t.Category, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if t.Date, err = core.ParseDate(dateStr); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	t.Type = core.EntryType(typ)
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "delete transaction")
}

// HasGeneratedTransaction reports whether a template already materialized a
// transaction for the given date. Generation is idempotent because of this
// check.
func (r *SQLiteRepository) HasGeneratedTransaction(ctx context.Context, templateID int64, date core.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE template_id = ? AND date = ?`,
		templateID, date.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check generated transaction: %w", err)
	}
	return n > 0, nil
}

// MonthSummary aggregates income, expenses and per-category expense totals
// for one calendar month.
func (r *SQLiteRepository) MonthSummary(ctx context.Context, userID string, year, month int) (core.MonthSummary, error) {
	summary := core.MonthSummary{Year: year, Month: month}
	prefix := fmt.Sprintf("%04d-%02d-", year, month)

	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0)
		 FROM transactions WHERE user_id = ? AND date LIKE ? || '%'`,
		userID, prefix).Scan(&summary.Income.Cents, &summary.Expenses.Cents)
	if err != nil {
		return summary, fmt.Errorf("get month totals: %w", err)
	}
	summary.Net = core.Money{Cents: summary.Income.Cents - summary.Expenses.Cents}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) FROM transactions
		 WHERE user_id = ? AND date LIKE ? || '%' AND type = 'expense'
		 GROUP BY category ORDER BY SUM(amount_cents) DESC`,
		userID, prefix)
	if err != nil {
		return summary, fmt.Errorf("get category sums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return summary, fmt.Errorf("scan category sum: %w", err)
		}
		summary.ByCategory = append(summary.ByCategory, ca)
	}
	return summary, rows.Err()
}

// SpentByCategory returns the expense total for one category in one month,
// used to compute budget progress.
func (r *SQLiteRepository) SpentByCategory(ctx context.Context, userID, category string, year, month int) (core.Money, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	var spent core.Money
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE user_id = ? AND category = ? AND type = 'expense' AND date LIKE ? || '%'`,
		userID, category, prefix).Scan(&spent.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("get category spend: %w", err)
	}
	return spent, nil
}

// --- recurring templates ---

// TemplateState carries a template together with the last date the generator
// processed it up to. LastRun is storage bookkeeping, not user data.
type TemplateState struct {
	Template core.RecurringTemplate
	LastRun  core.Date // zero when the template has never been processed
}

func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t core.RecurringTemplate) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_templates (user_id, title, amount_cents, currency, category, type, frequency, start_date, end_date, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, t.Amount.Cents, t.Currency, t.Category, string(t.Type),
		string(t.Every), t.StartDate.String(), dateOrNil(t.EndDate), t.Active)
	if err != nil {
		return 0, fmt.Errorf("create template: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("template insert id: %w", err)
	}

	slog.InfoContext(ctx, "Recurring template created",
		"template_id", id,
		"title", t.Title,
		"frequency", string(t.Every),
		"start_date", t.StartDate.String())

	return id, nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, userID string, id int64) (core.RecurringTemplate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, amount_cents, currency, category, type, frequency, start_date, end_date, active
		 FROM recurring_templates WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTemplate{}, ErrNotFound
	}
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context, userID string) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, amount_cents, currency, category, type, frequency, start_date, end_date, active
		 FROM recurring_templates WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListActiveTemplateStates returns every active template across all users with
// its last-run date, for the background generator.
func (r *SQLiteRepository) ListActiveTemplateStates(ctx context.Context) ([]TemplateState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, amount_cents, currency, category, type, frequency, start_date, end_date, active, last_run_date
		 FROM recurring_templates WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	defer rows.Close()

	var out []TemplateState
	for rows.Next() {
		var (
			t        core.RecurringTemplate
			typ      string
			freq     string
			startStr string
			endStr   sql.NullString
			lastStr  sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Amount.Cents, &t.Currency, &t.Category,
			&typ, &freq, &startStr, &endStr, &t.Active, &lastStr); err != nil {
			return nil, fmt.Errorf("scan active template: %w", err)
		}
		t.Type = core.EntryType(typ)
		t.Every = core.Frequency(freq)
		if t.StartDate, err = core.ParseDate(startStr); err != nil {
			return nil, fmt.Errorf("parse template start date: %w", err)
		}
		if t.EndDate, err = scanDate(endStr); err != nil {
			return nil, fmt.Errorf("parse template end date: %w", err)
		}
		lastRun, err := scanDate(lastStr)
		if err != nil {
			return nil, fmt.Errorf("parse template last run date: %w", err)
		}
		out = append(out, TemplateState{Template: t, LastRun: lastRun})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, t core.RecurringTemplate) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_templates
		 SET title = ?, amount_cents = ?, currency = ?, category = ?, type = ?, frequency = ?, start_date = ?, end_date = ?, active = ?
		 WHERE id = ? AND user_id = ?`,
		t.Title, t.Amount.Cents, t.Currency, t.Category, string(t.Type), string(t.Every),
		t.StartDate.String(), dateOrNil(t.EndDate), t.Active, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return requireRow(res, "update template")
}

func (r *SQLiteRepository) SetTemplateActive(ctx context.Context, userID string, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_templates SET active = ? WHERE id = ? AND user_id = ?`,
		active, id, userID)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	return requireRow(res, "set template active")
}

func (r *SQLiteRepository) SetTemplateLastRun(ctx context.Context, id int64, date core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_templates SET last_run_date = ? WHERE id = ?`,
		date.String(), id)
	if err != nil {
		return fmt.Errorf("set template last run: %w", err)
	}
	return requireRow(res, "set template last run")
}

func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_templates WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return requireRow(res, "delete template")
}

// --- bills ---

func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (user_id, title, amount_cents, currency, category, due_date, status, frequency, reminder_days, last_paid_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Title, b.Amount.Cents, b.Currency, b.Category, b.DueDate.String(),
		string(b.Status), string(b.Every), b.ReminderDays, dateOrNil(b.LastPaidDate))
	if err != nil {
		return 0, fmt.Errorf("create bill: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("bill insert id: %w", err)
	}

	slog.InfoContext(ctx, "Bill created",
		"bill_id", id,
		"title", b.Title,
		"due_date", b.DueDate.String())

	return id, nil
}

func (r *SQLiteRepository) GetBill(ctx context.Context, userID string, id int64) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, amount_cents, currency, category, due_date, status, frequency, reminder_days, last_paid_date
		 FROM bills WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, ErrNotFound
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context, userID string) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, amount_cents, currency, category, due_date, status, frequency, reminder_days, last_paid_date
		 FROM bills WHERE user_id = ? ORDER BY due_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()
	return collectBills(ctx, rows)
}

// ListUnresolvedBills returns every bill across all users that is not paid,
// for the reminder sweep.
func (r *SQLiteRepository) ListUnresolvedBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, amount_cents, currency, category, due_date, status, frequency, reminder_days, last_paid_date
		 FROM bills WHERE status != 'paid' ORDER BY due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list unresolved bills: %w", err)
	}
	defer rows.Close()
	return collectBills(ctx, rows)
}

func (r *SQLiteRepository) UpdateBill(ctx context.Context, b core.Bill) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills
		 SET title = ?, amount_cents = ?, currency = ?, category = ?, due_date = ?, status = ?, frequency = ?, reminder_days = ?, last_paid_date = ?
		 WHERE id = ? AND user_id = ?`,
		b.Title, b.Amount.Cents, b.Currency, b.Category, b.DueDate.String(), string(b.Status),
		string(b.Every), b.ReminderDays, dateOrNil(b.LastPaidDate), b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}
	return requireRow(res, "update bill")
}

func (r *SQLiteRepository) SetBillStatus(ctx context.Context, id int64, status core.BillStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set bill status: %w", err)
	}
	return requireRow(res, "set bill status")
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, userID string, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM reminder_dismissals WHERE bill_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete bill dismissals: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM bills WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	return requireRow(res, "delete bill")
}

// --- reminder dismissals ---

func (r *SQLiteRepository) CreateDismissal(ctx context.Context, userID string, d core.DismissalRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminder_dismissals (user_id, bill_id, date, timezone) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, bill_id, date) DO NOTHING`,
		userID, d.BillID, d.Date.String(), d.Timezone)
	if err != nil {
		return fmt.Errorf("create dismissal: %w", err)
	}
	return nil
}

// ListDismissals returns the dismissals recorded for one zone-local date.
func (r *SQLiteRepository) ListDismissals(ctx context.Context, userID string, date core.Date) ([]core.DismissalRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT bill_id, date, timezone FROM reminder_dismissals WHERE user_id = ? AND date = ?`,
		userID, date.String())
	if err != nil {
		return nil, fmt.Errorf("list dismissals: %w", err)
	}
	defer rows.Close()

	var out []core.DismissalRecord
	for rows.Next() {
		var (
			d       core.DismissalRecord
			dateStr string
		)
		if err := rows.Scan(&d.BillID, &dateStr, &d.Timezone); err != nil {
			return nil, fmt.Errorf("scan dismissal: %w", err)
		}
		if d.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parse dismissal date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- budgets ---

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category, limit_cents, month, year) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.Category, b.Limit.Cents, b.Month, b.Year)
	if err != nil {
		return 0, fmt.Errorf("create budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("budget insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string, year, month int) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category, limit_cents, month, year FROM budgets
		 WHERE user_id = ? AND year = ? AND month = ? ORDER BY category`,
		userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Limit.Cents, &b.Month, &b.Year); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category = ?, limit_cents = ?, month = ?, year = ? WHERE id = ? AND user_id = ?`,
		b.Category, b.Limit.Cents, b.Month, b.Year, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireRow(res, "update budget")
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res, "delete budget")
}

// --- sync queue ---

// PendingSyncTransaction is the minimal row data queued for export.
type PendingSyncTransaction struct {
	ID        int64
	CreatedAt time.Time
}

func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at FROM transactions
		 WHERE synced = 0 AND sync_error = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync transaction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	var (
		t       core.Transaction
		dateStr string
		typ     string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, description, amount_cents, currency, category, type
		 FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &dateStr, &t.Description, &t.Amount.Cents, &t.Currency, &t.Category, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	if t.Date, err = core.ParseDate(dateStr); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	t.Type = core.EntryType(typ)
	return t, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (core.RecurringTemplate, error) {
	var (
		t        core.RecurringTemplate
		typ      string
		freq     string
		startStr string
		endStr   sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Amount.Cents, &t.Currency, &t.Category,
		&typ, &freq, &startStr, &endStr, &t.Active)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	t.Type = core.EntryType(typ)
	t.Every = core.Frequency(freq)
	if t.StartDate, err = core.ParseDate(startStr); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("parse template start date: %w", err)
	}
	if t.EndDate, err = scanDate(endStr); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("parse template end date: %w", err)
	}
	return t, nil
}

func scanBill(row rowScanner) (core.Bill, error) {
	var (
		b       core.Bill
		dueStr  string
		status  string
		freq    string
		paidStr sql.NullString
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Title, &b.Amount.Cents, &b.Currency, &b.Category,
		&dueStr, &status, &freq, &b.ReminderDays, &paidStr)
	if err != nil {
		return core.Bill{}, err
	}
	b.Status = core.BillStatus(status)
	b.Every = core.Frequency(freq)
	if b.DueDate, err = core.ParseDate(dueStr); err != nil {
		return core.Bill{}, fmt.Errorf("%w: bill %d due date: %v", errMalformedRow, b.ID, err)
	}
	if b.LastPaidDate, err = scanDate(paidStr); err != nil {
		return core.Bill{}, fmt.Errorf("%w: bill %d last paid date: %v", errMalformedRow, b.ID, err)
	}
	return b, nil
}

// collectBills skips rows whose stored dates no longer parse, so one bad row
// cannot take down an alerts listing or a reminder sweep. Driver-level scan
// failures still abort.
func collectBills(ctx context.Context, rows *sql.Rows) ([]core.Bill, error) {
	var out []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if errors.Is(err, errMalformedRow) {
			slog.WarnContext(ctx, "Skipping malformed bill row", "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
