package services

import (
	"context"
	"errors"
	"fmt"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetService resolves and sets the budget of the current month.
// The month is recomputed from the clock on every call.
type BudgetService struct {
	store     storage.BudgetStore
	summaries *SummaryService
	clock     core.Clock
	newID     func() string
}

// NewBudgetService wires the service. summaries is needed only by Status.
func NewBudgetService(store storage.BudgetStore, summaries *SummaryService, clock core.Clock) *BudgetService {
	if clock == nil {
		clock = core.SystemClock
	}
	return &BudgetService{
		store:     store,
		summaries: summaries,
		clock:     clock,
		newID:     uuid.NewString,
	}
}

// CurrentMonth is the UTC month of the clock's now.
func (s *BudgetService) CurrentMonth() core.MonthKey {
	return core.MonthOf(s.clock.Now())
}

// Current returns the stored budget of the current month, or an unsaved
// placeholder with a zero amount and an empty ID.
func (s *BudgetService) Current(ctx context.Context, owner string) (core.Budget, error) {
	if err := checkOwner(owner); err != nil {
		return core.Budget{}, err
	}
	month := s.CurrentMonth()
	b, err := s.store.FindBudget(ctx, owner, month)
	if errors.Is(err, core.ErrNotFound) {
		return core.Budget{Owner: owner, Month: month, Amount: decimal.Zero}, nil
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget %s/%s: %w", owner, month, err)
	}
	return b, nil
}

// Set stores amount as the budget of the current month, replacing any earlier value.
func (s *BudgetService) Set(ctx context.Context, owner string, amount decimal.Decimal) (core.Budget, error) {
	if err := checkOwner(owner); err != nil {
		return core.Budget{}, err
	}
	amount = core.RoundAmount(amount)
	if err := core.ValidateAmount(amount); err != nil {
		return core.Budget{}, core.Invalid("amount", err)
	}

	month := s.CurrentMonth()
	b, err := s.store.UpsertBudget(ctx, core.Budget{
		ID:     s.newID(),
		Owner:  owner,
		Amount: amount,
		Month:  month,
	})
	if err != nil {
		if errors.Is(err, core.ErrUnknownOwner) {
			return core.Budget{}, core.Invalid("owner", core.ErrUnknownOwner)
		}
		return core.Budget{}, fmt.Errorf("upsert budget %s/%s: %w", owner, month, err)
	}

	applog.FromContext(ctx).WithComponent(applog.ComponentBudget).InfoContext(ctx, "Budget set",
		applog.FieldOwner, owner,
		applog.FieldMonth, month.String(),
		applog.FieldAmount, b.Amount.StringFixed(2))
	return b, nil
}

// Status compares the current month's budget with the owner's spending in it.
func (s *BudgetService) Status(ctx context.Context, owner string) (core.BudgetStatus, error) {
	b, err := s.Current(ctx, owner)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	if s.summaries == nil {
		return core.BudgetStatus{}, errors.New("budget status: no summary service configured")
	}
	spent, err := s.summaries.MonthSpending(ctx, owner, b.Month)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("budget status: %w", err)
	}
	return core.NewBudgetStatus(b.Month, b.Amount, spent), nil
}
