package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType names what happened to an expense.
type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent is the message published after every expense write.
// It carries only identifiers; consumers load the expense themselves.
type ExpenseEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var ErrInvalidEvent = errors.New("invalid expense event")

// NewExpenseEvent stamps an event with the current time.
func NewExpenseEvent(t EventType, id string, version int64) *ExpenseEvent {
	return &ExpenseEvent{Type: t, ID: id, Version: version, Timestamp: time.Now().UTC()}
}

// Validate checks the type and id.
func (e *ExpenseEvent) Validate() error {
	switch e.Type {
	case ExpenseCreated, ExpenseUpdated, ExpenseDeleted:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEvent)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes and validates an event.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
