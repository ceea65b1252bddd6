// Package worker handles document change events received from the broker.
package worker

import (
	"context"
	"fmt"
	"io"
	"sync"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// DocumentReader reads the current document.
type DocumentReader interface {
	Key() string
	GetData(ctx context.Context) (core.Document, error)
}

// EventWorker checks incoming change events against the local document and
// echoes them as JSON lines.
type EventWorker struct {
	store  DocumentReader
	logger *log.Logger

	mu  sync.Mutex
	out io.Writer
}

func NewEventWorker(store DocumentReader, out io.Writer, logger *log.Logger) *EventWorker {
	if logger == nil {
		logger = log.Nop()
	}
	if out == nil {
		out = io.Discard
	}
	return &EventWorker{
		store:  store,
		out:    out,
		logger: logger.WithComponent(log.ComponentAMQP),
	}
}

// HandleDocumentEvent processes one event. Errors reading the document are
// returned so the delivery is retried; events for other documents are
// ignored.
func (w *EventWorker) HandleDocumentEvent(ctx context.Context, msg *amqp.DocumentEventMessage) error {
	w.logger.InfoContext(ctx, "Processing document event",
		"type", msg.Type,
		log.FieldKey, msg.Key,
		log.FieldTxID, msg.TransactionID,
		log.FieldBudget, msg.Budget,
		"timestamp", msg.Timestamp)

	if msg.Key != "" && msg.Key != w.store.Key() {
		w.logger.DebugContext(ctx, "Skipping event for another document", log.FieldKey, msg.Key)
		return nil
	}

	doc, err := w.store.GetData(ctx)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	switch msg.Type {
	case core.EventTransactionAdded:
		if !hasTransaction(doc, msg.TransactionID) {
			w.logger.WarnContext(ctx, "Event references a transaction missing from the local document",
				log.FieldTxID, msg.TransactionID)
		}
	case core.EventBudgetUpdated:
		if msg.Budget != doc.Budget.String() {
			w.logger.InfoContext(ctx, "Budget changed again since event",
				"event_budget", msg.Budget,
				log.FieldBudget, doc.Budget.String())
		}
	case core.EventDocumentInitialized:
	default:
		w.logger.WarnContext(ctx, "Unknown event type", "type", msg.Type)
	}

	return w.echo(msg)
}

func (w *EventWorker) echo(msg *amqp.DocumentEventMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(append(body, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func hasTransaction(doc core.Document, id string) bool {
	for _, t := range doc.Transactions {
		if t.ID == id {
			return true
		}
	}
	return false
}
