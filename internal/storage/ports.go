package storage

import (
	"context"

	"expenses/internal/core"
)

// Ports implemented by every persistence backend (SQLite, Postgres, memory).
type (
	ExpenseStore interface {
		// FindExpenses returns one page of the owner's expenses, newest date first.
		FindExpenses(ctx context.Context, owner string, f core.ExpenseFilter) ([]core.Expense, error)
		// FindExpense returns core.ErrNotFound for missing ids and for ids owned by someone else.
		FindExpense(ctx context.Context, owner, id string) (core.Expense, error)
		InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// ReplaceExpense applies the supplied fields of in atomically.
		ReplaceExpense(ctx context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error)
		RemoveExpense(ctx context.Context, owner, id string) (bool, error)
	}

	// Aggregator sums one field grouped by another.
	Aggregator interface {
		GroupSum(ctx context.Context, owner string, f core.SummaryFilter, group core.GroupField, sum core.SumField) ([]core.CategoryTotal, error)
	}

	BudgetStore interface {
		// FindBudget returns core.ErrNotFound when the month has no stored budget.
		FindBudget(ctx context.Context, owner string, month core.MonthKey) (core.Budget, error)
		// UpsertBudget inserts or overwrites the amount for (owner, month). b.ID is used only on insert.
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	}

	OwnerStore interface {
		CreateOwner(ctx context.Context, owner string) error
		OwnerExists(ctx context.Context, owner string) (bool, error)
	}

	Store interface {
		ExpenseStore
		Aggregator
		BudgetStore
		OwnerStore
		Ping(ctx context.Context) error
		Close() error
	}
)
