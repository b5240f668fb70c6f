package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

// TransactionCreatedMessage announces a transaction materialized by the
// recurring processor. It carries the full transaction so consumers never
// need to read the ledger back.
type TransactionCreatedMessage struct {
	ID            string               `json:"id"`
	Date          time.Time            `json:"date"`
	Amount        decimal.Decimal      `json:"amount"`
	Type          core.TransactionType `json:"type"`
	CategoryID    string               `json:"categoryId"`
	FromAccountID string               `json:"fromAccountId,omitempty"`
	ToAccountID   string               `json:"toAccountId,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	Tags          []string             `json:"tags,omitempty"`
	Recurring     bool                 `json:"recurring"`
	Timestamp     time.Time            `json:"timestamp"`
}

// NewTransactionCreatedMessage builds the message for t, stamped with at.
func NewTransactionCreatedMessage(t core.Transaction, at time.Time) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		ID:            t.ID,
		Date:          t.Date,
		Amount:        t.Amount,
		Type:          t.Type,
		CategoryID:    t.CategoryID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Notes:         t.Notes,
		Tags:          t.Tags,
		Recurring:     t.HasTag(core.RecurringTag),
		Timestamp:     at,
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON decodes a message produced by ToJSON.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
