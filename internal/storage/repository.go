package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finanzapp/internal/core"

	_ "modernc.org/sqlite"
)

// Export status values stored in expenses.export_status.
const (
	ExportPending = "pending"
	ExportDone    = "exported"
	ExportError   = "error"
)

const expenseColumns = `id, project_id, category, name, description, amount_cents, expense_date,
	merchant, payment_method, rfc, tax_cents, created_at, updated_at`

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create stores e, assigning an ID and timestamps when missing.
func (r *SQLiteRepository) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = core.NewExpenseID()
	}
	now := r.now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, e.Category, e.Name, e.Description, e.Amount.Cents, e.Date.String(),
		e.Merchant, string(e.PaymentMethod), e.RFC, e.TaxAmount.Cents,
		formatTimestamp(e.CreatedAt), formatTimestamp(e.UpdatedAt))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"name", e.Name,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	return e, nil
}

// Get returns the expense with id or core.ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

// Update overwrites the stored expense and resets its export status.
func (r *SQLiteRepository) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.UpdatedAt = r.now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE expenses SET
		project_id = ?, category = ?, name = ?, description = ?, amount_cents = ?, expense_date = ?,
		merchant = ?, payment_method = ?, rfc = ?, tax_cents = ?, updated_at = ?,
		export_status = ?, version = version + 1
		WHERE id = ?`,
		e.ProjectID, e.Category, e.Name, e.Description, e.Amount.Cents, e.Date.String(),
		e.Merchant, string(e.PaymentMethod), e.RFC, e.TaxAmount.Cents, formatTimestamp(e.UpdatedAt),
		ExportPending, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense updated", "id", e.ID, "amount_cents", e.Amount.Cents)
	return r.Get(ctx, e.ID)
}

// Delete removes the expense with id together with its comments.
// Foreign keys are not enforced on the connection, so the cascade is
// done here.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE expense_id = ?`, id); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// List returns expenses matching f, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	f = f.Normalized()
	where, args := filterClause(f)
	query := `SELECT ` + expenseColumns + ` FROM expenses` + where +
		` ORDER BY expense_date DESC, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// Count returns the number of expenses matching f, ignoring paging.
func (r *SQLiteRepository) Count(ctx context.Context, f core.Filter) (int, error) {
	where, args := filterClause(f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// CategoryTotals sums amounts per category for a project in one month.
// Expenses without a category are reported under "".
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, projectID string, year, month int) ([]core.CategoryAmount, error) {
	from, to := core.MonthRange(year, month)
	rows, err := r.db.QueryContext(ctx, `SELECT category, SUM(amount_cents), COUNT(*)
		FROM expenses
		WHERE project_id = ? AND expense_date BETWEEN ? AND ?
		GROUP BY category
		ORDER BY category`,
		projectID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("get category sums: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Name, &c.Amount.Cents, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReadMonthOverview builds the month summary for a project.
func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, projectID string, year, month int) (core.MonthOverview, error) {
	cats, err := r.CategoryTotals(ctx, projectID, year, month)
	if err != nil {
		return core.MonthOverview{Year: year, Month: month}, err
	}
	return core.NewMonthOverview(year, month, cats), nil
}

// PendingExport identifies an expense that still has to reach the export sink.
type PendingExport struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

// GetPendingExports returns up to limit pending expenses, oldest first.
// Rows in the error state are skipped until RetryFailedExports.
func (r *SQLiteRepository) GetPendingExports(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, version, created_at FROM expenses
		WHERE export_status = ? ORDER BY created_at LIMIT ?`, ExportPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	defer rows.Close()

	var out []PendingExport
	for rows.Next() {
		var p PendingExport
		var created string
		if err := rows.Scan(&p.ID, &p.Version, &created); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		p.CreatedAt = parseTimestamp(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkExported records a successful export.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE expenses SET export_status = ?, exported_at = ? WHERE id = ?`,
		ExportDone, formatTimestamp(r.now().UTC()), id)
	if err != nil {
		return fmt.Errorf("mark expense exported: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as exported", "id", id)
	return nil
}

// MarkExportError records a failed export so it is retried later.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE expenses SET export_status = ? WHERE id = ?`, ExportError, id)
	if err != nil {
		return fmt.Errorf("mark expense export error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with export error", "id", id)
	return nil
}

// RetryFailedExports moves every errored expense back to pending.
func (r *SQLiteRepository) RetryFailedExports(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE expenses SET export_status = ? WHERE export_status = ?`,
		ExportPending, ExportError)
	if err != nil {
		return 0, fmt.Errorf("retry failed exports: %w", err)
	}
	return res.RowsAffected()
}

// ExportStats counts expenses per export status.
func (r *SQLiteRepository) ExportStats(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT export_status, COUNT(*) FROM expenses GROUP BY export_status`)
	if err != nil {
		return nil, fmt.Errorf("get export stats: %w", err)
	}
	defer rows.Close()

	stats := map[string]int{ExportPending: 0, ExportDone: 0, ExportError: 0}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan export stats: %w", err)
		}
		stats[status] = n
	}
	return stats, rows.Err()
}

// ExportStatus returns the export status of id.
func (r *SQLiteRepository) ExportStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT export_status FROM expenses WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get export status: %w", err)
	}
	return status, nil
}

func filterClause(f core.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		conds = append(conds, "expense_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		conds = append(conds, "expense_date <= ?")
		args = append(args, f.To.String())
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		conds = append(conds, `(name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR merchant LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e                   core.Expense
		date, payment       string
		createdAt, updateAt string
	)
	err := s.Scan(&e.ID, &e.ProjectID, &e.Category, &e.Name, &e.Description, &e.Amount.Cents, &date,
		&e.Merchant, &payment, &e.RFC, &e.TaxAmount.Cents, &createdAt, &updateAt)
	if err != nil {
		return core.Expense{}, err
	}
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	e.Date = core.Date{Time: d}
	e.PaymentMethod = core.PaymentMethod(payment)
	e.CreatedAt = parseTimestamp(createdAt)
	e.UpdatedAt = parseTimestamp(updateAt)
	return e, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Fixed width keeps lexical order equal to time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string { return t.UTC().Format(timestampLayout) }

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
