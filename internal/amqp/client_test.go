package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	want := map[int]time.Duration{
		-1: time.Second,
		0:  time.Second,
		1:  2 * time.Second,
		3:  8 * time.Second,
		4:  16 * time.Second,
		5:  maxBackoff,
		12: maxBackoff,
	}
	for attempt, d := range want {
		t.Run(fmt.Sprint(attempt), func(t *testing.T) {
			assert.Equal(t, d, exponentialBackoff(attempt))
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp: connection refused"), true},
		{io.ErrUnexpectedEOF, true},
		{errors.New("write: broken pipe"), true},
		{fmt.Errorf("publish expense.created: %w", amqp091.ErrClosed), true},
		{errors.New("event missing owner or expense id"), false},
		{context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isConnectionError(tt.err), "%v", tt.err)
	}
}

func TestCircuitBreakerTransitions(t *testing.T) {
	c := &Client{exchangeName: "expenses", queueName: "expense_events"}
	require.False(t, c.isCircuitOpen(), "starts closed")

	for i := 0; i < maxFailures-1; i++ {
		c.recordFailure()
	}
	assert.False(t, c.isCircuitOpen(), "one failure short of the threshold")

	c.recordFailure()
	assert.True(t, c.isCircuitOpen())
	assert.Equal(t, StateOpen, c.state)

	c.failMu.Lock()
	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	c.failMu.Unlock()
	assert.False(t, c.isCircuitOpen(), "a probe is allowed once the timeout passed")
	assert.Equal(t, StateHalfOpen, c.state)

	c.recordFailure()
	assert.Equal(t, StateOpen, c.state, "failed probe reopens")

	c.recordSuccess()
	assert.Equal(t, StateClosed, c.state)
	assert.Zero(t, c.failureCount)
}

func TestPublishExpenseEventShortCircuits(t *testing.T) {
	evt := NewExpenseEvent(EventExpenseCreated, "9b2f", "alice", "2024-03-01")

	open := &Client{state: StateOpen, lastFailure: time.Now()}
	err := open.PublishExpenseEvent(context.Background(), evt)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = (&Client{}).PublishExpenseEvent(ctx, evt)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewExpenseEvent(t *testing.T) {
	before := time.Now().UTC()
	evt := NewExpenseEvent(EventExpenseUpdated, "e-1", "alice", "2024-03-01")

	assert.Equal(t, ExpenseEvent{
		Type:      EventExpenseUpdated,
		ExpenseID: "e-1",
		Owner:     "alice",
		Date:      "2024-03-01",
		Timestamp: evt.Timestamp,
	}, evt)
	assert.False(t, evt.Timestamp.Before(before))
	assert.Equal(t, time.UTC, evt.Timestamp.Location())
}

func TestExpenseEventWireFormat(t *testing.T) {
	evt := ExpenseEvent{
		Type:      EventExpenseDeleted,
		ExpenseID: "e-42",
		Owner:     "bob",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := evt.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"expense.deleted","expense_id":"e-42","owner":"bob","timestamp":"2024-01-01T12:00:00Z"}`, string(data))

	parsed, err := ExpenseEventFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, evt, *parsed)
}

func TestExpenseEventFromJSONRejects(t *testing.T) {
	for name, body := range map[string]string{
		"malformed":    `{"type": 1}`,
		"unknown type": `{"type": "expense.exploded", "expense_id": "x", "owner": "a"}`,
		"no owner":     `{"type": "expense.created", "expense_id": "x"}`,
		"no id":        `{"type": "expense.updated", "owner": "a"}`,
	} {
		_, err := ExpenseEventFromJSON([]byte(body))
		assert.Error(t, err, name)
	}
}
