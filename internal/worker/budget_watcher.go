package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"expenses/internal/amqp"
	"expenses/internal/core"
	applog "expenses/internal/log"
)

// BudgetStatusReader reports the current month's budget against spending.
type BudgetStatusReader interface {
	CurrentMonth() core.MonthKey
	Status(ctx context.Context, owner string) (core.BudgetStatus, error)
}

// EventConsumer delivers expense events until ctx ends. *amqp.Client implements it.
type EventConsumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

type alertKey struct {
	owner string
	month core.MonthKey
}

// BudgetWatcher re-checks an owner's monthly budget whenever one of their
// expenses changes and warns once each time spending crosses the budget.
type BudgetWatcher struct {
	budgets BudgetStatusReader
	logger  *applog.Logger

	mu      sync.Mutex
	alerted map[alertKey]bool
}

func NewBudgetWatcher(budgets BudgetStatusReader, logger *applog.Logger) *BudgetWatcher {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &BudgetWatcher{
		budgets: budgets,
		logger:  logger.WithComponent(applog.ComponentWorker),
		alerted: make(map[alertKey]bool),
	}
}

// Run consumes events until ctx is cancelled.
func (w *BudgetWatcher) Run(ctx context.Context, consumer EventConsumer) error {
	w.logger.InfoContext(ctx, "Budget watcher started")
	err := consumer.ConsumeExpenseEvents(ctx, w.HandleExpenseEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleExpenseEvent recomputes the budget status of the event's owner.
// Events dated outside the current month cannot change it and are skipped.
// A returned error makes the consumer requeue the event.
func (w *BudgetWatcher) HandleExpenseEvent(ctx context.Context, evt *amqp.ExpenseEvent) error {
	month := w.budgets.CurrentMonth()
	logger := w.logger.With(
		applog.FieldEventType, string(evt.Type),
		applog.FieldOwner, evt.Owner,
		applog.FieldExpenseID, evt.ExpenseID)

	if evt.Date != "" {
		d, err := core.ParseDate(evt.Date)
		if err == nil && d.MonthKey() != month {
			logger.DebugContext(ctx, "Event outside current month, skipping", applog.FieldDate, evt.Date)
			return nil
		}
	}

	status, err := w.budgets.Status(ctx, evt.Owner)
	if err != nil {
		if core.IsValidation(err) {
			logger.WarnContext(ctx, "Dropping event with unusable owner",
				applog.FieldError, err,
				applog.FieldErrorType, applog.ErrorTypeValidation)
			return nil
		}
		return fmt.Errorf("budget status for %s: %w", evt.Owner, err)
	}

	key := alertKey{owner: evt.Owner, month: status.Month}
	if status.Budget.IsZero() {
		logger.DebugContext(ctx, "No budget set for month", applog.FieldMonth, status.Month.String())
		return nil
	}

	w.mu.Lock()
	wasAlerted := w.alerted[key]
	w.alerted[key] = status.Exceeded
	w.mu.Unlock()

	attrs := []any{
		applog.FieldMonth, status.Month.String(),
		applog.FieldBudget, status.Budget.StringFixed(2),
		applog.FieldSpent, status.Spent.StringFixed(2),
	}
	switch {
	case status.Exceeded && !wasAlerted:
		logger.WarnContext(ctx, "Monthly budget exceeded", attrs...)
	case !status.Exceeded && wasAlerted:
		logger.InfoContext(ctx, "Spending back within budget", attrs...)
	default:
		logger.DebugContext(ctx, "Budget checked", attrs...)
	}
	return nil
}

// Alerted reports whether owner is currently flagged as over budget for month.
func (w *BudgetWatcher) Alerted(owner string, month core.MonthKey) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alerted[alertKey{owner: owner, month: month}]
}
