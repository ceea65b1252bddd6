package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventDocumentInitialized EventType = "document.initialized"
	EventTransactionAdded    EventType = "transaction.added"
	EventBudgetUpdated       EventType = "budget.updated"
)

type (
	EventType string

	// Event describes one successful mutation of the document.
	Event struct {
		Type          EventType       `json:"type"`
		Key           string          `json:"key"`
		TransactionID string          `json:"transaction_id,omitempty"`
		Budget        decimal.Decimal `json:"budget"`
		Timestamp     time.Time       `json:"timestamp"`
	}
)
