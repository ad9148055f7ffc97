package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expenses/internal/amqp"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/storage"

	"github.com/google/uuid"
)

// EventPublisher announces expense mutations. *amqp.Client implements it.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, evt amqp.ExpenseEvent) error
}

// ExpenseService orchestrates expense operations across the store, the
// summary cache and the event publisher.
type ExpenseService struct {
	store     storage.ExpenseStore
	summaries *SummaryService
	publisher EventPublisher
	clock     core.Clock
	logger    *applog.StructuredLogger
	newID     func() string
}

// NewExpenseService wires the service. summaries and publisher may be nil;
// a nil clock means the system clock.
func NewExpenseService(store storage.ExpenseStore, summaries *SummaryService, publisher EventPublisher, clock core.Clock) *ExpenseService {
	if clock == nil {
		clock = core.SystemClock
	}
	return &ExpenseService{
		store:     store,
		summaries: summaries,
		publisher: publisher,
		clock:     clock,
		logger:    applog.NewStructuredLogger(applog.FromContext(context.Background()).WithComponent(applog.ComponentExpense)),
		newID:     uuid.NewString,
	}
}

func checkOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return core.Invalid("owner", core.ErrEmptyOwner)
	}
	return nil
}

// List returns one page of the owner's expenses, newest date first.
func (s *ExpenseService) List(ctx context.Context, owner string, f core.ExpenseFilter) ([]core.Expense, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	// An unknown category can never match; skip the store.
	if f.Category != "" && !f.Category.Valid() {
		return []core.Expense{}, nil
	}
	items, err := s.store.FindExpenses(ctx, owner, f.Normalized())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if items == nil {
		items = []core.Expense{}
	}
	return items, nil
}

func (s *ExpenseService) Get(ctx context.Context, owner, id string) (core.Expense, error) {
	if err := checkOwner(owner); err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.FindExpense(ctx, owner, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

// Create validates in, stores a new expense dated today unless in carries a date,
// then announces it.
func (s *ExpenseService) Create(ctx context.Context, owner string, in core.ExpenseInput) (core.Expense, error) {
	if err := checkOwner(owner); err != nil {
		return core.Expense{}, err
	}
	if err := in.ValidateCreate(); err != nil {
		return core.Expense{}, err
	}

	e := in.NewExpense(s.newID(), owner, core.DateOf(s.clock.Now()))
	saved, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		if errors.Is(err, core.ErrUnknownOwner) {
			return core.Expense{}, core.Invalid("owner", core.ErrUnknownOwner)
		}
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.afterMutation(ctx, amqp.EventExpenseCreated, applog.OpCreate, saved)
	return saved, nil
}

// Update applies the supplied fields of in. An empty input only refreshes UpdatedAt.
func (s *ExpenseService) Update(ctx context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error) {
	if err := checkOwner(owner); err != nil {
		return core.Expense{}, err
	}
	if err := in.ValidateUpdate(); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.ReplaceExpense(ctx, owner, id, in.Normalized())
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}

	s.afterMutation(ctx, amqp.EventExpenseUpdated, applog.OpUpdate, saved)
	return saved, nil
}

// Delete removes the expense; a missing id is core.ErrNotFound.
func (s *ExpenseService) Delete(ctx context.Context, owner, id string) error {
	if err := checkOwner(owner); err != nil {
		return err
	}
	removed, err := s.store.RemoveExpense(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	if !removed {
		return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
	}

	s.afterMutation(ctx, amqp.EventExpenseDeleted, applog.OpDelete, core.Expense{ID: id, Owner: owner})
	return nil
}

// afterMutation runs once the store has accepted a change. Failures here are
// logged only: the record is already stored.
func (s *ExpenseService) afterMutation(ctx context.Context, t amqp.EventType, op string, e core.Expense) {
	if s.summaries != nil {
		s.summaries.InvalidateOwner(e.Owner)
	}

	date := ""
	if !e.Date.IsZero() {
		date = e.Date.String()
	}
	amount := ""
	if op != applog.OpDelete {
		amount = e.Amount.StringFixed(2)
	}
	s.logger.LogExpenseMutation(ctx, op, e.Owner, e.ID, e.Category.String(), amount, date)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, e.ID, e.Owner, date)); err != nil {
		s.logger.LogError(ctx, "Failed to publish expense event", err, applog.OpPublish,
			applog.NewFields().WithOwner(e.Owner).WithExpense(e.ID, "", "", "").WithErrorType(applog.ErrorTypeNetwork))
	}
}
