package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

type fakeChannel struct {
	mu          sync.Mutex
	published   []amqp091.Publishing
	routingKeys []string
	deliveries  chan amqp091.Delivery
	declareErr  error
	publishErr  error
	closed      bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	return f.declareErr
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error) {
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error {
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	f.routingKeys = append(f.routingKeys, key)
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeAck struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	requeue []bool
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestSetupFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := newClient(ch, "ex", "q", nil); err == nil {
		t.Fatal("expected setup error")
	}
	if !ch.closed {
		t.Error("channel should be closed after failed setup")
	}
}

func TestNotifyPublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	c, err := newClient(ch, "expensetracker", "document_events", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err = c.Notify(context.Background(), core.Event{
		Type:          core.EventTransactionAdded,
		Key:           "expenseTrackerData",
		TransactionID: "tx-1",
		Budget:        decimal.NewFromInt(5000),
		Timestamp:     ts,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("expected 1 publication, got %d", len(ch.published))
	}
	pub := ch.published[0]
	if pub.DeliveryMode != amqp091.Persistent || pub.ContentType != "application/json" || pub.Type != "transaction.added" {
		t.Errorf("unexpected publishing: %+v", pub)
	}
	if ch.routingKeys[0] != "document_events" {
		t.Errorf("unexpected routing key %q", ch.routingKeys[0])
	}

	var msg DocumentEventMessage
	if err := json.Unmarshal(pub.Body, &msg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if msg.TransactionID != "tx-1" || msg.Budget != "5000" || !msg.Timestamp.Equal(ts) {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestNotifyPropagatesPublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	c, _ := newClient(ch, "ex", "q", nil)
	if err := c.Notify(context.Background(), core.Event{Type: core.EventBudgetUpdated}); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestConsumeDocumentEvents(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp091.Delivery, 3)}
	c, _ := newClient(ch, "ex", "q", nil)
	ack := &fakeAck{}

	good, _ := NewDocumentEventMessage(core.Event{Type: core.EventBudgetUpdated, Budget: decimal.NewFromInt(100)}).ToJSON()
	failing, _ := NewDocumentEventMessage(core.Event{Type: core.EventTransactionAdded, TransactionID: "boom"}).ToJSON()
	ch.deliveries <- amqp091.Delivery{Acknowledger: ack, Body: good}
	ch.deliveries <- amqp091.Delivery{Acknowledger: ack, Body: []byte("{oops")}
	ch.deliveries <- amqp091.Delivery{Acknowledger: ack, Body: failing}

	ctx, cancel := context.WithCancel(context.Background())
	var handled []core.EventType
	handler := func(_ context.Context, m *DocumentEventMessage) error {
		handled = append(handled, m.Type)
		if m.TransactionID == "boom" {
			cancel()
			return errors.New("handler failed")
		}
		return nil
	}

	err := c.ConsumeDocumentEvents(ctx, handler)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(handled) != 2 {
		t.Fatalf("expected 2 handled messages, got %v", handled)
	}
	if ack.acks != 1 || ack.nacks != 2 {
		t.Fatalf("acks=%d nacks=%d", ack.acks, ack.nacks)
	}
	if ack.requeue[0] != false || ack.requeue[1] != true {
		t.Fatalf("malformed must not requeue, handler failure must: %v", ack.requeue)
	}
}

func TestConsumeStopsWhenChannelCloses(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp091.Delivery)}
	close(ch.deliveries)
	c, _ := newClient(ch, "ex", "q", nil)
	if err := c.ConsumeDocumentEvents(context.Background(), func(context.Context, *DocumentEventMessage) error { return nil }); err == nil {
		t.Fatal("expected error when delivery channel closes")
	}
}
