package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const expenseColumns = `id, amount_paise, category, description, date, created_at, client_id`

type SQLiteRepository struct {
	db     *sql.DB
	logger *applog.Logger
}

var _ Repository = (*SQLiteRepository)(nil)

// DSN builds a modernc sqlite connection string with a busy timeout and WAL journaling.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if logger == nil {
		logger = applog.Discard()
	}

	logger = logger.WithComponent(applog.ComponentStorage)
	dsn := DSN(dbPath)
	if _, err := RunMigrations(dsn, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serialises writers; busy_timeout covers other processes.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
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

func (r *SQLiteRepository) InsertOrGet(ctx context.Context, e core.Expense) (core.Expense, bool, error) {
	const q = `INSERT INTO expenses (` + expenseColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(client_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, q,
		e.ID, e.Amount.Minor, e.Category, e.Description, e.Date.String(),
		core.FormatTimestamp(e.CreatedAt), nullString(e.ClientID))
	if err != nil {
		if e.ClientID != "" && isUniqueViolation(err) {
			existing, gerr := r.GetByClientID(ctx, e.ClientID)
			if gerr != nil {
				return core.Expense{}, false, fmt.Errorf("re-read after conflict: %w", gerr)
			}
			return existing, false, nil
		}
		return core.Expense{}, false, fmt.Errorf("insert expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		existing, err := r.GetByClientID(ctx, e.ClientID)
		if err != nil {
			return core.Expense{}, false, fmt.Errorf("read existing expense: %w", err)
		}
		r.logger.DebugContext(ctx, "Idempotent insert matched existing row",
			applog.FieldExpenseID, existing.ID, applog.FieldClientID, e.ClientID)
		return existing, false, nil
	}

	stored, err := r.Get(ctx, e.ID)
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("read inserted expense: %w", err)
	}
	return stored, true, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

func (r *SQLiteRepository) GetByClientID(ctx context.Context, clientID string) (core.Expense, error) {
	if clientID == "" {
		return core.Expense{}, core.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE client_id = ?`, clientID)
	return scanExpense(row)
}

func (r *SQLiteRepository) List(ctx context.Context, lq core.ListQuery) ([]core.Expense, error) {
	lq = lq.Normalize()

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + expenseColumns + ` FROM expenses`)
	if lq.Category != "" {
		sb.WriteString(` WHERE category = ?`)
		args = append(args, lq.Category)
	}
	sb.WriteString(` ORDER BY `)
	sb.WriteString(orderBy(lq.Sort))
	if lq.Paginate {
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, lq.PerPage, lq.Offset())
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	items := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, category string) (int64, error) {
	q := `SELECT COUNT(*) FROM expenses`
	var args []any
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount_paise = ?, category = ?, description = ?, date = ? WHERE id = ?`,
		e.Amount.Minor, e.Category, e.Description, e.Date.String(), e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return r.Get(ctx, e.ID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SumByCategory(ctx context.Context, category string) ([]core.CategoryTotal, error) {
	q := `SELECT category, SUM(amount_paise) FROM expenses`
	var args []any
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}
	q += ` GROUP BY category ORDER BY category`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Amount.Minor); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, nil
}

func orderBy(k core.SortKey) string {
	var primary string
	switch k {
	case core.SortDateAsc:
		primary = `date ASC`
	case core.SortAmountAsc:
		primary = `amount_paise ASC`
	case core.SortAmountDesc:
		primary = `amount_paise DESC`
	case core.SortCategoryAsc:
		primary = `category COLLATE NOCASE ASC`
	case core.SortCategoryDesc:
		primary = `category COLLATE NOCASE DESC`
	default:
		primary = `date DESC`
	}
	return primary + `, created_at DESC, id DESC`
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e         core.Expense
		date      string
		createdAt string
		clientID  sql.NullString
	)
	err := s.Scan(&e.ID, &e.Amount.Minor, &e.Category, &e.Description, &date, &createdAt, &clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}

	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	if e.CreatedAt, err = core.ParseTimestamp(createdAt); err != nil {
		return core.Expense{}, fmt.Errorf("stored created_at %q: %w", createdAt, err)
	}
	e.ClientID = clientID.String
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
