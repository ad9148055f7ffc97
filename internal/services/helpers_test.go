package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/storage"

	"github.com/shopspring/decimal"
)

var march15 = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// fakePublisher records published events and can be told to fail.
type fakePublisher struct {
	mu     sync.Mutex
	events []amqp.ExpenseEvent
	err    error
}

func (p *fakePublisher) PublishExpenseEvent(_ context.Context, evt amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *fakePublisher) published() []amqp.ExpenseEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]amqp.ExpenseEvent(nil), p.events...)
}

// countingAggregator counts GroupSum calls and can hold them until released.
type countingAggregator struct {
	next    storage.Aggregator
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (a *countingAggregator) GroupSum(ctx context.Context, owner string, f core.SummaryFilter, g core.GroupField, s core.SumField) ([]core.CategoryTotal, error) {
	a.calls.Add(1)
	if a.started != nil {
		select {
		case a.started <- struct{}{}:
		default:
		}
	}
	if a.release != nil {
		<-a.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.next.GroupSum(ctx, owner, f, g, s)
}

func amountPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func categoryPtr(c core.Category) *core.Category { return &c }

func datePtr(y, m, d int) *core.Date {
	date := core.NewDate(y, m, d)
	return &date
}

func input(amount, description string, category core.Category, date *core.Date) core.ExpenseInput {
	return core.ExpenseInput{
		Amount:      amountPtr(amount),
		Description: strPtr(description),
		Category:    categoryPtr(category),
		Date:        date,
	}
}
