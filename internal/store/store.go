// Package store persists the expense document under a single key of a
// key-value medium.
//
// Every mutation is a full read-modify-write of the document, serialized by
// the store's mutex. Notifications are sent after the mutex is released. Medium failures are returned to the caller wrapped but
// otherwise untouched; nothing is retried.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/kv"
	"expensetracker/internal/log"
)

// DefaultKey is the well-known key the document lives under.
const DefaultKey = "expenseTrackerData"

// Seed values written by Init on first run.
var (
	SeedBudget = decimal.NewFromInt(5000)
	SeedAmount = decimal.NewFromInt(150)
)

const (
	SeedPurpose     = "Welcome Coffee"
	SeedCategory    = core.CategoryCollege
	SeedPaymentMode = core.PaymentCash
)

// ErrNotInitialized is returned when the document is read before Init.
var ErrNotInitialized = errors.New("document not initialized")

// Notifier receives an event after every successful mutation.
type Notifier interface {
	Notify(ctx context.Context, e core.Event) error
}

type Store struct {
	mu       sync.Mutex
	medium   kv.Medium
	key      string
	now      func() time.Time
	newID    func() string
	notifier Notifier
	logger   *log.Logger
}

type Option func(*Store)

// WithKey overrides the document key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock sets the time source used for the seed transaction date.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the transaction id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentStore)
		}
	}
}

func New(medium kv.Medium, opts ...Option) *Store {
	s := &Store{
		medium: medium,
		key:    DefaultKey,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the key the document is stored under.
func (s *Store) Key() string { return s.key }

// Init writes the seed document when none exists. Calling it again is a no-op.
func (s *Store) Init(ctx context.Context) error {
	seeded, err := s.seed(ctx)
	if err != nil {
		return fmt.Errorf("init document: %w", err)
	}
	if seeded == nil {
		s.logger.DebugContext(ctx, "Document already initialized", log.FieldKey, s.key)
		return nil
	}

	s.logger.InfoContext(ctx, "Document initialized",
		log.FieldKey, s.key,
		log.FieldBudget, seeded.Budget.String())
	s.notify(ctx, core.Event{Type: core.EventDocumentInitialized, Budget: seeded.Budget})
	return nil
}

// seed writes the seed document under the lock and returns it, or nil when a
// document already exists.
func (s *Store) seed(ctx context.Context) (*core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing core.Document
	found, err := s.Get(ctx, s.key, &existing)
	if err != nil || found {
		return nil, err
	}

	doc := core.Document{
		Budget: SeedBudget,
		Transactions: []core.Transaction{{
			ID:          s.newID(),
			Amount:      SeedAmount,
			Date:        core.FormatDate(s.now()),
			Purpose:     SeedPurpose,
			Category:    SeedCategory,
			PaymentMode: SeedPaymentMode,
		}},
	}
	if err := s.Set(ctx, s.key, doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetData returns a snapshot of the document.
func (s *Store) GetData(ctx context.Context) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// update runs a read-modify-write of the document under the lock. fn edits
// the loaded document in place; the result is persisted when fn succeeds.
func (s *Store) update(ctx context.Context, fn func(doc *core.Document) error) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return core.Document{}, err
	}
	if err := fn(&doc); err != nil {
		return core.Document{}, err
	}
	if err := s.Set(ctx, s.key, doc); err != nil {
		return core.Document{}, err
	}
	return doc, nil
}

// AddTransaction assigns a fresh id to in, prepends it and persists the
// document. The input is stored as given: sign, date format and category are
// not checked.
func (s *Store) AddTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	doc, err := s.update(ctx, func(doc *core.Document) error {
		tx = in.WithID(s.newID())
		doc.Transactions = append([]core.Transaction{tx}, doc.Transactions...)
		return nil
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	fields := log.NewFields().
		WithTransaction(tx.ID, tx.Amount.String(), tx.Category, tx.PaymentMode).
		WithOperation(log.OpAddTx)
	fields[log.FieldCount] = len(doc.Transactions)
	s.logger.InfoContext(ctx, "Transaction added", fields.ToSlice()...)

	s.notify(ctx, core.Event{Type: core.EventTransactionAdded, TransactionID: tx.ID, Budget: doc.Budget})
	return tx, nil
}

// UpdateBudget parses raw and replaces the budget. Malformed input returns
// core.ErrInvalidBudget and leaves the document untouched.
func (s *Store) UpdateBudget(ctx context.Context, raw string) (decimal.Decimal, error) {
	budget, err := core.ParseBudget(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("update budget %q: %w", raw, err)
	}
	if err := s.SetBudget(ctx, budget); err != nil {
		return decimal.Zero, err
	}
	return budget, nil
}

// SetBudget replaces the budget with an already parsed value. No bounds are
// enforced.
func (s *Store) SetBudget(ctx context.Context, budget decimal.Decimal) error {
	_, err := s.update(ctx, func(doc *core.Document) error {
		doc.Budget = budget
		return nil
	})
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget updated",
		log.FieldBudget, budget.String(),
		log.FieldOperation, log.OpUpdateBudget)
	s.notify(ctx, core.Event{Type: core.EventBudgetUpdated, Budget: budget})
	return nil
}

// Get decodes the JSON value under key into dst. found is false when the key
// is absent.
func (s *Store) Get(ctx context.Context, key string, dst any) (found bool, err error) {
	raw, err := s.medium.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Set encodes v as JSON and writes it under key.
func (s *Store) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.medium.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) (core.Document, error) {
	var doc core.Document
	found, err := s.Get(ctx, s.key, &doc)
	if err != nil {
		return core.Document{}, err
	}
	if !found {
		return core.Document{}, ErrNotInitialized
	}
	return doc, nil
}

// notify must be called without s.mu held.
func (s *Store) notify(ctx context.Context, e core.Event) {
	if s.notifier == nil {
		return
	}
	e.Key = s.key
	e.Timestamp = s.now()
	if err := s.notifier.Notify(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "Change notification failed",
			log.FieldOperation, log.OpNotify,
			log.FieldError, err,
			"event", string(e.Type))
	}
}
