package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expenses/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	expenseColumns = "id, owner, %s, description, category, date, created_at, updated_at"
	budgetColumns  = "id, owner, month, %s, created_at, updated_at"
	timestampText  = time.RFC3339Nano
)

func init() {
	// SQLite's lower() and LIKE only fold ASCII.
	sqlite.MustRegisterDeterministicScalarFunction("ulower", 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database file at dbPath and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; WAL lets readers proceed.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: utcNow}, nil
}

func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
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

func (r *SQLiteRepository) FindExpenses(ctx context.Context, owner string, f core.ExpenseFilter) ([]core.Expense, error) {
	f = f.Normalized()
	w := sqliteDialect.expenseWhere(owner, f)
	query := "SELECT " + fmt.Sprintf(expenseColumns, "amount_cents") + " FROM expenses" + w.String() +
		" ORDER BY date DESC, seq ASC LIMIT " + w.bind(f.Limit) + " OFFSET " + w.bind(f.Offset)

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanSQLiteExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) FindExpense(ctx context.Context, owner, id string) (core.Expense, error) {
	query := "SELECT " + fmt.Sprintf(expenseColumns, "amount_cents") + " FROM expenses WHERE id = ? AND owner = ?"
	e, err := scanSQLiteExpense(r.db.QueryRowContext(ctx, query, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := r.now()
	e.CreatedAt, e.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO expenses ("+fmt.Sprintf(expenseColumns, "amount_cents")+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Owner, core.Cents(e.Amount), e.Description, string(e.Category), e.Date.String(),
		now.Format(timestampText), now.Format(timestampText))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", sqliteConstraintError(err))
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"owner", e.Owner,
		"amount", e.Amount.StringFixed(2),
		"date", e.Date.String())

	return e, nil
}

func (r *SQLiteRepository) ReplaceExpense(ctx context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	var amount, description, category, date any
	if in.Amount != nil {
		amount = core.Cents(*in.Amount)
	}
	if in.Description != nil {
		description = *in.Description
	}
	if in.Category != nil {
		category = string(*in.Category)
	}
	if in.Date != nil {
		date = in.Date.String()
	}

	query := `UPDATE expenses SET
		amount_cents = COALESCE(?, amount_cents),
		description = COALESCE(?, description),
		category = COALESCE(?, category),
		date = COALESCE(?, date),
		updated_at = ?
		WHERE id = ? AND owner = ?
		RETURNING ` + fmt.Sprintf(expenseColumns, "amount_cents")
	e, err := scanSQLiteExpense(r.db.QueryRowContext(ctx, query,
		amount, description, category, date, r.now().Format(timestampText), id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) RemoveExpense(ctx context.Context, owner, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ? AND owner = ?", id, owner)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GroupSum(ctx context.Context, owner string, f core.SummaryFilter, group core.GroupField, sum core.SumField) ([]core.CategoryTotal, error) {
	g, s, err := sqliteDialect.groupSumColumns(group, sum)
	if err != nil {
		return nil, err
	}
	w := sqliteDialect.summaryWhere(owner, f)
	query := fmt.Sprintf("SELECT %[1]s, SUM(%[2]s) AS total FROM expenses%[3]s GROUP BY %[1]s ORDER BY total DESC, %[1]s ASC",
		g, s, w.String())

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("group expenses: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var category string
		var cents int64
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, core.CategoryTotal{Category: core.Category(category), Total: core.FromCents(cents)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) FindBudget(ctx context.Context, owner string, month core.MonthKey) (core.Budget, error) {
	query := "SELECT " + fmt.Sprintf(budgetColumns, "amount_cents") + " FROM budgets WHERE owner = ? AND month = ?"
	b, err := scanSQLiteBudget(r.db.QueryRowContext(ctx, query, owner, string(month)))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := r.now().Format(timestampText)
	query := `INSERT INTO budgets (` + fmt.Sprintf(budgetColumns, "amount_cents") + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner, month) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			updated_at = excluded.updated_at
		RETURNING ` + fmt.Sprintf(budgetColumns, "amount_cents")
	out, err := scanSQLiteBudget(r.db.QueryRowContext(ctx, query,
		b.ID, b.Owner, string(b.Month), core.Cents(core.RoundAmount(b.Amount)), now, now))
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", sqliteConstraintError(err))
	}
	return out, nil
}

func (r *SQLiteRepository) CreateOwner(ctx context.Context, owner string) error {
	_, err := r.db.ExecContext(ctx, "INSERT INTO owners (id) VALUES (?) ON CONFLICT (id) DO NOTHING", owner)
	if err != nil {
		return fmt.Errorf("create owner: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) OwnerExists(ctx context.Context, owner string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM owners WHERE id = ?)", owner).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check owner: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteExpense(row rowScanner) (core.Expense, error) {
	var (
		e                    core.Expense
		cents                int64
		category, date       string
		createdAt, updatedAt string
	)
	if err := row.Scan(&e.ID, &e.Owner, &cents, &e.Description, &category, &date, &createdAt, &updatedAt); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	e.Amount = core.FromCents(cents)
	e.Category = core.Category(category)
	e.Date = d
	if e.CreatedAt, err = time.Parse(timestampText, createdAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(timestampText, updatedAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return e, nil
}

func scanSQLiteBudget(row rowScanner) (core.Budget, error) {
	var (
		b                    core.Budget
		month                string
		cents                int64
		createdAt, updatedAt string
	)
	if err := row.Scan(&b.ID, &b.Owner, &month, &cents, &createdAt, &updatedAt); err != nil {
		return core.Budget{}, err
	}
	b.Month = core.MonthKey(month)
	b.Amount = core.FromCents(cents)
	var err error
	if b.CreatedAt, err = time.Parse(timestampText, createdAt); err != nil {
		return core.Budget{}, fmt.Errorf("parse created_at: %w", err)
	}
	if b.UpdatedAt, err = time.Parse(timestampText, updatedAt); err != nil {
		return core.Budget{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return b, nil
}

// sqliteConstraintError turns a foreign key violation on owner into core.ErrUnknownOwner.
func sqliteConstraintError(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return core.ErrUnknownOwner
	}
	return err
}
