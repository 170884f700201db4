package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

// EventKind names the ledger write that produced an event.
type EventKind string

const (
	ExpenseCreated   EventKind = "expense.created"
	ExpenseUpdated   EventKind = "expense.updated"
	ExpenseDeleted   EventKind = "expense.deleted"
	CategoryAdded    EventKind = "category.added"
	BudgetSet        EventKind = "budget.set"
	RecurringCreated EventKind = "recurring.created"
)

// LedgerEvent announces that a user's ledger changed. It carries no amounts;
// consumers reload what they need from the store.
type LedgerEvent struct {
	ID     string    `json:"id"`
	Kind   EventKind `json:"kind"`
	UserID int64     `json:"user_id"`
	Month  string    `json:"month,omitempty"` // YYYY-MM touched by the write, if any
	At     time.Time `json:"at"`
}

// NewLedgerEvent stamps a fresh id and time. A zero month is omitted.
func NewLedgerEvent(kind EventKind, userID int64, month core.YearMonth) LedgerEvent {
	ev := LedgerEvent{
		ID:     uuid.NewString(),
		Kind:   kind,
		UserID: userID,
		At:     time.Now().UTC(),
	}
	if month.Valid() {
		ev.Month = month.String()
	}
	return ev
}

func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event body.
func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return LedgerEvent{}, err
	}
	if ev.UserID <= 0 || ev.Kind == "" {
		return LedgerEvent{}, fmt.Errorf("incomplete ledger event %q", ev.ID)
	}
	return ev, nil
}
