package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/kv/memory"
)

var fixedNow = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []core.Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, e core.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *memory.Store) {
	t.Helper()
	med := memory.New()
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
	}
	return New(med, append(base, opts...)...), med
}

func TestGetDataBeforeInit(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.GetData(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := s.AddTransaction(context.Background(), core.TransactionInput{}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized from AddTransaction, got %v", err)
	}
	if _, err := s.UpdateBudget(context.Background(), "10"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized from UpdateBudget, got %v", err)
	}
}

func TestInitSeedsDocument(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	doc, err := s.GetData(ctx)
	if err != nil {
		t.Fatalf("get data: %v", err)
	}
	if !doc.Budget.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected seed budget 5000, got %s", doc.Budget)
	}
	if len(doc.Transactions) != 1 {
		t.Fatalf("expected one seed transaction, got %d", len(doc.Transactions))
	}
	seed := doc.Transactions[0]
	if seed.ID != "tx-1" || !seed.Amount.Equal(decimal.NewFromInt(150)) || seed.Date != "2025-06-15" ||
		seed.Purpose != "Welcome Coffee" || seed.Category != core.CategoryCollege || seed.PaymentMode != core.PaymentCash {
		t.Fatalf("unexpected seed transaction: %+v", seed)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	s, med := newTestStore(t)
	ctx := context.Background()

	if err := s.Init(ctx); err != nil {
		t.Fatalf("first init: %v", err)
	}
	first, _ := s.GetData(ctx)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	second, _ := s.GetData(ctx)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("document changed across init calls:\n%s\n%s", a, b)
	}
	if med.Writes() != 1 {
		t.Fatalf("expected a single write, got %d", med.Writes())
	}
}

func TestAddTransactionPrependsAndPersists(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	before, _ := s.GetData(ctx)

	in := core.TransactionInput{
		Amount:      decimal.NewFromInt(200),
		Purpose:     "Books",
		Date:        "2025-06-15",
		Category:    core.CategoryCollege,
		PaymentMode: core.PaymentCard,
	}
	tx, err := s.AddTransaction(ctx, in)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if tx.ID == "" || tx.ID == before.Transactions[0].ID {
		t.Fatalf("expected fresh id, got %q", tx.ID)
	}

	after, _ := s.GetData(ctx)
	if len(after.Transactions) != len(before.Transactions)+1 {
		t.Fatalf("expected %d transactions, got %d", len(before.Transactions)+1, len(after.Transactions))
	}
	got := after.Transactions[0]
	if got.ID != tx.ID || !got.Amount.Equal(in.Amount) || got.Purpose != in.Purpose ||
		got.Date != in.Date || got.Category != in.Category || got.PaymentMode != in.PaymentMode {
		t.Fatalf("unexpected head transaction: %+v", got)
	}
	if after.Transactions[1].ID != before.Transactions[0].ID {
		t.Fatalf("existing transactions must follow the new one")
	}
}

func TestAddTransactionStoresInputAsGiven(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_ = s.Init(ctx)

	in := core.TransactionInput{
		Amount:   decimal.NewFromInt(-5),
		Purpose:  "",
		Date:     "not-a-date",
		Category: "groceries",
	}
	if _, err := s.AddTransaction(ctx, in); err != nil {
		t.Fatalf("add: %v", err)
	}
	doc, _ := s.GetData(ctx)
	got := doc.Transactions[0]
	if !got.Amount.Equal(in.Amount) || got.Date != "not-a-date" || got.Category != "groceries" {
		t.Fatalf("input was altered: %+v", got)
	}
}

func TestAddTransactionUniqueIDs(t *testing.T) {
	s := New(memory.New())
	ctx := context.Background()
	_ = s.Init(ctx)
	for i := 0; i < 20; i++ {
		if _, err := s.AddTransaction(ctx, core.TransactionInput{Amount: decimal.NewFromInt(1)}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	doc, _ := s.GetData(ctx)
	seen := map[string]bool{}
	for _, tx := range doc.Transactions {
		if seen[tx.ID] {
			t.Fatalf("duplicate id %s", tx.ID)
		}
		seen[tx.ID] = true
	}
}

func TestUpdateBudget(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_ = s.Init(ctx)

	got, err := s.UpdateBudget(ctx, " 1200,50 ")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("1200.5")) {
		t.Fatalf("unexpected parsed budget %s", got)
	}

	if _, err := s.UpdateBudget(ctx, "-100"); err != nil {
		t.Fatalf("negative budget must be accepted: %v", err)
	}
	doc, _ := s.GetData(ctx)
	if !doc.Budget.Equal(decimal.NewFromInt(-100)) {
		t.Fatalf("expected -100, got %s", doc.Budget)
	}
}

func TestUpdateBudgetRejectsMalformedInput(t *testing.T) {
	s, med := newTestStore(t)
	ctx := context.Background()
	_ = s.Init(ctx)
	writes := med.Writes()

	if _, err := s.UpdateBudget(ctx, "lots"); !errors.Is(err, core.ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
	doc, _ := s.GetData(ctx)
	if !doc.Budget.Equal(SeedBudget) {
		t.Fatalf("budget changed on malformed input: %s", doc.Budget)
	}
	if med.Writes() != writes {
		t.Fatalf("malformed input must not write")
	}
}

func TestStorageFailurePropagates(t *testing.T) {
	s, med := newTestStore(t)
	ctx := context.Background()
	_ = s.Init(ctx)

	quota := errors.New("quota exceeded")
	med.FailWith(quota)

	if _, err := s.AddTransaction(ctx, core.TransactionInput{}); !errors.Is(err, quota) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if err := s.SetBudget(ctx, decimal.NewFromInt(1)); !errors.Is(err, quota) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if _, err := s.GetData(ctx); !errors.Is(err, quota) {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestCorruptDocument(t *testing.T) {
	s, med := newTestStore(t)
	ctx := context.Background()
	if err := med.Set(ctx, DefaultKey, []byte("{not json")); err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	if _, err := s.GetData(ctx); err == nil || errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestNotifierReceivesOneEventPerMutation(t *testing.T) {
	n := &recordingNotifier{}
	s, _ := newTestStore(t, WithNotifier(n), WithKey("custom"))
	ctx := context.Background()

	_ = s.Init(ctx)
	_ = s.Init(ctx)
	tx, _ := s.AddTransaction(ctx, core.TransactionInput{Amount: decimal.NewFromInt(9)})
	_, _ = s.UpdateBudget(ctx, "300")
	_, _ = s.UpdateBudget(ctx, "bad")

	want := []core.EventType{core.EventDocumentInitialized, core.EventTransactionAdded, core.EventBudgetUpdated}
	if len(n.events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(n.events), n.events)
	}
	for i, typ := range want {
		if n.events[i].Type != typ || n.events[i].Key != "custom" || !n.events[i].Timestamp.Equal(fixedNow) {
			t.Fatalf("event %d: unexpected %+v", i, n.events[i])
		}
	}
	if n.events[1].TransactionID != tx.ID {
		t.Fatalf("expected transaction id %s, got %s", tx.ID, n.events[1].TransactionID)
	}
}

func TestNotifierFailureDoesNotFailWrite(t *testing.T) {
	n := &recordingNotifier{err: errors.New("broker down")}
	s, _ := newTestStore(t, WithNotifier(n))
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init must succeed despite notifier error: %v", err)
	}
	if _, err := s.GetData(ctx); err != nil {
		t.Fatalf("document must be persisted: %v", err)
	}
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	s := New(memory.New())
	ctx := context.Background()
	_ = s.Init(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddTransaction(ctx, core.TransactionInput{Amount: decimal.NewFromInt(1)})
		}()
	}
	wg.Wait()

	doc, _ := s.GetData(ctx)
	if len(doc.Transactions) != 26 {
		t.Fatalf("expected 26 transactions, got %d", len(doc.Transactions))
	}
}

func TestDocumentIsPersistedWithNumericAmounts(t *testing.T) {
	s, med := newTestStore(t)
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	raw, err := med.Get(ctx, DefaultKey)
	if err != nil {
		t.Fatalf("read raw document: %v", err)
	}
	for _, want := range []string{`"budget":5000`, `"amount":150`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("expected %s in stored document %s", want, raw)
		}
	}
}

type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingNotifier) Notify(context.Context, core.Event) error {
	b.entered <- struct{}{}
	<-b.release
	return nil
}

func TestNotifyRunsOutsideTheLock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	n := &blockingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	s.notifier = n

	added := make(chan error, 1)
	go func() {
		_, err := s.AddTransaction(ctx, core.TransactionInput{Amount: decimal.NewFromInt(20)})
		added <- err
	}()

	select {
	case <-n.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not called")
	}

	read := make(chan core.Document, 1)
	go func() {
		doc, _ := s.GetData(ctx)
		read <- doc
	}()

	select {
	case doc := <-read:
		if len(doc.Transactions) != 2 {
			t.Fatalf("expected the new transaction to be visible, got %d", len(doc.Transactions))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("GetData blocked while a notification was in flight")
	}

	close(n.release)
	if err := <-added; err != nil {
		t.Fatalf("add transaction: %v", err)
	}
}
