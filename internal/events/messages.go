package events

import (
	"encoding/json"
	"time"
)

// Kind identifies which ledger mutation an event describes.
type Kind string

const (
	IncomeCreated  Kind = "income_created"
	IncomeUpdated  Kind = "income_updated"
	IncomeDeleted  Kind = "income_deleted"
	ExpenseCreated Kind = "expense_created"
	ExpenseUpdated Kind = "expense_updated"
	ExpenseDeleted Kind = "expense_deleted"
)

// LedgerEvent is published after a ledger mutation has committed. Amounts
// travel as decimal text so no precision is lost on the wire.
type LedgerEvent struct {
	Kind          Kind      `json:"kind"`
	MessID        string    `json:"mess_id"`
	TransactionID string    `json:"transaction_id"`
	ActorID       string    `json:"actor_id"`
	Amount        string    `json:"amount"`
	Description   string    `json:"description,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(kind Kind, messID, txnID, actorID, amount, description string) *LedgerEvent {
	return &LedgerEvent{
		Kind:          kind,
		MessID:        messID,
		TransactionID: txnID,
		ActorID:       actorID,
		Amount:        amount,
		Description:   description,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
