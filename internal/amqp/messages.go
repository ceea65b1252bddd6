package amqp

import (
	"encoding/json"
	"time"

	"expensetracker/internal/core"
)

// DocumentEventMessage announces one successful mutation of the expense
// document. Consumers re-read the document if they need its contents.
type DocumentEventMessage struct {
	Type          core.EventType `json:"type"`
	Key           string         `json:"key"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Budget        string         `json:"budget,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// NewDocumentEventMessage builds the wire message for e.
func NewDocumentEventMessage(e core.Event) *DocumentEventMessage {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &DocumentEventMessage{
		Type:          e.Type,
		Key:           e.Key,
		TransactionID: e.TransactionID,
		Budget:        e.Budget.String(),
		Timestamp:     ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *DocumentEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DocumentEventMessageFromJSON creates a message from JSON bytes
func DocumentEventMessageFromJSON(data []byte) (*DocumentEventMessage, error) {
	var msg DocumentEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
