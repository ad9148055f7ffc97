package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expenses/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
)

// foreignKeyViolation is the SQLSTATE raised when an owner reference is missing.
const foreignKeyViolation = "23503"

type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ Store = (*PostgresRepository)(nil)

// NewPostgresRepository connects to databaseURL and migrates the schema.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// The migration handle borrows connections from the pool and is closed afterwards.
	if err := RunPostgresMigrations(stdlib.OpenDBFromPool(pool)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresRepository{pool: pool, now: utcNow}, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) FindExpenses(ctx context.Context, owner string, f core.ExpenseFilter) ([]core.Expense, error) {
	f = f.Normalized()
	w := postgresDialect.expenseWhere(owner, f)
	query := "SELECT " + fmt.Sprintf(expenseColumns, "amount") + " FROM expenses" + w.String() +
		" ORDER BY date DESC, seq ASC LIMIT " + w.bind(f.Limit) + " OFFSET " + w.bind(f.Offset)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanPostgresExpense(rows)
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

func (r *PostgresRepository) FindExpense(ctx context.Context, owner, id string) (core.Expense, error) {
	query := "SELECT " + fmt.Sprintf(expenseColumns, "amount") + " FROM expenses WHERE id = $1 AND owner = $2"
	e, err := scanPostgresExpense(r.pool.QueryRow(ctx, query, id, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := r.now()
	e.CreatedAt, e.UpdatedAt = now, now
	_, err := r.pool.Exec(ctx,
		"INSERT INTO expenses ("+fmt.Sprintf(expenseColumns, "amount")+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		e.ID, e.Owner, toNumeric(e.Amount), e.Description, string(e.Category), e.Date.Time, now, now)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", postgresConstraintError(err))
	}

	slog.DebugContext(ctx, "Expense saved to Postgres",
		"id", e.ID,
		"owner", e.Owner,
		"amount", e.Amount.StringFixed(2),
		"date", e.Date.String())

	return e, nil
}

func (r *PostgresRepository) ReplaceExpense(ctx context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	var amount, description, category, date any
	if in.Amount != nil {
		amount = toNumeric(*in.Amount)
	}
	if in.Description != nil {
		description = *in.Description
	}
	if in.Category != nil {
		category = string(*in.Category)
	}
	if in.Date != nil {
		date = in.Date.Time
	}

	query := `UPDATE expenses SET
		amount = COALESCE($1, amount),
		description = COALESCE($2, description),
		category = COALESCE($3, category),
		date = COALESCE($4, date),
		updated_at = $5
		WHERE id = $6 AND owner = $7
		RETURNING ` + fmt.Sprintf(expenseColumns, "amount")
	e, err := scanPostgresExpense(r.pool.QueryRow(ctx, query,
		amount, description, category, date, r.now(), id, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) RemoveExpense(ctx context.Context, owner, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM expenses WHERE id = $1 AND owner = $2", id, owner)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) GroupSum(ctx context.Context, owner string, f core.SummaryFilter, group core.GroupField, sum core.SumField) ([]core.CategoryTotal, error) {
	g, s, err := postgresDialect.groupSumColumns(group, sum)
	if err != nil {
		return nil, err
	}
	w := postgresDialect.summaryWhere(owner, f)
	query := fmt.Sprintf("SELECT %[1]s, SUM(%[2]s) AS total FROM expenses%[3]s GROUP BY %[1]s ORDER BY total DESC, %[1]s ASC",
		g, s, w.String())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("group expenses: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var category string
		var total pgtype.Numeric
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, core.CategoryTotal{Category: core.Category(category), Total: fromNumeric(total)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) FindBudget(ctx context.Context, owner string, month core.MonthKey) (core.Budget, error) {
	query := "SELECT " + fmt.Sprintf(budgetColumns, "amount") + " FROM budgets WHERE owner = $1 AND month = $2"
	b, err := scanPostgresBudget(r.pool.QueryRow(ctx, query, owner, string(month)))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := r.now()
	query := `INSERT INTO budgets (` + fmt.Sprintf(budgetColumns, "amount") + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner, month) DO UPDATE SET
			amount = EXCLUDED.amount,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + fmt.Sprintf(budgetColumns, "amount")
	out, err := scanPostgresBudget(r.pool.QueryRow(ctx, query,
		b.ID, b.Owner, string(b.Month), toNumeric(core.RoundAmount(b.Amount)), now, now))
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", postgresConstraintError(err))
	}
	return out, nil
}

func (r *PostgresRepository) CreateOwner(ctx context.Context, owner string) error {
	_, err := r.pool.Exec(ctx, "INSERT INTO owners (id) VALUES ($1) ON CONFLICT (id) DO NOTHING", owner)
	if err != nil {
		return fmt.Errorf("create owner: %w", err)
	}
	return nil
}

func (r *PostgresRepository) OwnerExists(ctx context.Context, owner string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM owners WHERE id = $1)", owner).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check owner: %w", err)
	}
	return exists, nil
}

func scanPostgresExpense(row pgx.Row) (core.Expense, error) {
	var (
		e        core.Expense
		amount   pgtype.Numeric
		category string
		date     time.Time
	)
	if err := row.Scan(&e.ID, &e.Owner, &amount, &e.Description, &category, &date, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return core.Expense{}, err
	}
	e.Amount = fromNumeric(amount)
	e.Category = core.Category(category)
	e.Date = core.DateOf(date)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func scanPostgresBudget(row pgx.Row) (core.Budget, error) {
	var (
		b      core.Budget
		month  string
		amount pgtype.Numeric
	)
	if err := row.Scan(&b.ID, &b.Owner, &month, &amount, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return core.Budget{}, err
	}
	b.Month = core.MonthKey(month)
	b.Amount = fromNumeric(amount)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// postgresConstraintError turns a foreign key violation on owner into core.ErrUnknownOwner.
func postgresConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return core.ErrUnknownOwner
	}
	return err
}
