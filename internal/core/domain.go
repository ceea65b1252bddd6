package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts and budgets are persisted and served as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	CategoryCollege = "college"
	CategoryOther   = "other"
	// CategoryAll is the list filter sentinel; it is never stored on a transaction.
	CategoryAll = "all"

	PaymentCash = "cash"
	PaymentCard = "card"
	PaymentUPI  = "upi"
)

// DateLayout is the calendar-date format used for transaction dates.
const DateLayout = "2006-01-02"

type (
	// TransactionInput is a transaction payload before an id is assigned.
	TransactionInput struct {
		Amount      decimal.Decimal `json:"amount"`
		Purpose     string          `json:"purpose"`
		Date        string          `json:"date"`
		Category    string          `json:"category"`
		PaymentMode string          `json:"paymentMode"`
	}

	// Transaction is one recorded expense.
	Transaction struct {
		ID          string          `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Purpose     string          `json:"purpose"`
		Date        string          `json:"date"`
		Category    string          `json:"category"`
		PaymentMode string          `json:"paymentMode"`
	}

	// Document is the single persisted aggregate. Transactions are kept
	// most-recent-first.
	Document struct {
		Budget       decimal.Decimal `json:"budget"`
		Transactions []Transaction   `json:"transactions"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidBudget = errors.New("invalid budget")
	ErrInvalidDate   = errors.New("invalid date")
)

// WithID builds the stored transaction for the input.
func (in TransactionInput) WithID(id string) Transaction {
	return Transaction{
		ID:          id,
		Amount:      in.Amount,
		Purpose:     in.Purpose,
		Date:        in.Date,
		Category:    in.Category,
		PaymentMode: in.PaymentMode,
	}
}

// Month reports the calendar month of the transaction date. ok is false when
// the stored date does not parse.
func (t Transaction) Month() (month time.Month, ok bool) {
	d, err := ParseDate(t.Date)
	if err != nil {
		return 0, false
	}
	return d.Month(), true
}

// Clone returns a copy whose transaction slice does not alias the receiver's.
func (d Document) Clone() Document {
	out := Document{Budget: d.Budget}
	if d.Transactions != nil {
		out.Transactions = make([]Transaction, len(d.Transactions))
		copy(out.Transactions, d.Transactions)
	}
	return out
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// FormatDate renders t as a calendar date in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
