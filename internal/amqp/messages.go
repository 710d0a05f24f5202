package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
)

// EventType names the mutation an ExpenseEvent reports.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// RecordSnapshot is the wire form of an expense inside an event.
type RecordSnapshot struct {
	ID          string `json:"id"`
	AmountPaise int64  `json:"amount_paise"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CreatedAt   string `json:"created_at"`
	ClientID    string `json:"client_id,omitempty"`
}

// ExpenseEvent is published after every successful mutation.
// Deleted events carry the last known snapshot when it was available.
type ExpenseEvent struct {
	Type      EventType       `json:"type"`
	ID        string          `json:"id"`
	Expense   *RecordSnapshot `json:"expense,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewExpenseEvent(t EventType, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      t,
		ID:        e.ID,
		Expense:   SnapshotOf(e),
		Timestamp: time.Now().UTC(),
	}
}

func SnapshotOf(e core.Expense) *RecordSnapshot {
	return &RecordSnapshot{
		ID:          e.ID,
		AmountPaise: e.Amount.Minor,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.String(),
		CreatedAt:   core.FormatTimestamp(e.CreatedAt),
		ClientID:    e.ClientID,
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and sanity-checks an event body
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("event without id")
	}
	return &ev, nil
}
