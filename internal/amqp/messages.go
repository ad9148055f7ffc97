package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names what happened to an expense.
type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseUpdated EventType = "expense.updated"
	EventExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent is a lightweight notification about an expense mutation.
// Consumers fetch whatever else they need from the store.
type ExpenseEvent struct {
	Type      EventType `json:"type"`
	ExpenseID string    `json:"expense_id"`
	Owner     string    `json:"owner"`
	// Date is the expense day (YYYY-MM-DD); empty for deletions.
	Date      string    `json:"date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent creates an event stamped with the current time.
func NewExpenseEvent(t EventType, expenseID, owner, date string) ExpenseEvent {
	return ExpenseEvent{
		Type:      t,
		ExpenseID: expenseID,
		Owner:     owner,
		Date:      date,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event and rejects ones missing their identity.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.Owner == "" || msg.ExpenseID == "" {
		return nil, fmt.Errorf("event missing owner or expense id")
	}
	return &msg, nil
}
