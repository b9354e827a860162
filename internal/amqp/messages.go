package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"ecofinance/internal/core"
)

// EventTransactionCreated is set as the AMQP message type of ledger events.
const EventTransactionCreated = "ledger.transaction.created"

// LedgerEventMessage is a lightweight notification about a stored
// transaction. The worker loads the row itself.
type LedgerEventMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SeriesID  string    `json:"serie_id,omitempty"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage builds the first-version event for t.
func NewLedgerEventMessage(t core.Transaction) *LedgerEventMessage {
	return &LedgerEventMessage{
		ID:        t.ID,
		UserID:    t.UserID,
		SeriesID:  t.SeriesID,
		Version:   1,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON parses and checks a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 || msg.UserID <= 0 {
		return nil, errors.New("ledger event without transaction or user id")
	}
	return &msg, nil
}
