package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransactionMonth(t *testing.T) {
	cases := []struct {
		date  string
		month time.Month
		ok    bool
	}{
		{"2025-01-31", time.January, true},
		{"2024-12-01", time.December, true},
		{"", 0, false},
		{"31/01/2025", 0, false},
		{"2025-13-01", 0, false},
	}
	for i, tc := range cases {
		m, ok := Transaction{Date: tc.date}.Month()
		if ok != tc.ok || m != tc.month {
			t.Fatalf("case %d: got (%v, %v), want (%v, %v)", i, m, ok, tc.month, tc.ok)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FormatDate(d) != "2025-03-09" {
		t.Fatalf("round trip mismatch: %s", FormatDate(d))
	}
	if _, err := ParseDate("2025-3-9"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestInputWithID(t *testing.T) {
	in := TransactionInput{
		Amount:      decimal.NewFromInt(200),
		Purpose:     "Books",
		Date:        "2025-02-02",
		Category:    CategoryCollege,
		PaymentMode: PaymentCard,
	}
	tx := in.WithID("abc")
	if tx.ID != "abc" || !tx.Amount.Equal(in.Amount) || tx.Purpose != in.Purpose ||
		tx.Date != in.Date || tx.Category != in.Category || tx.PaymentMode != in.PaymentMode {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
}

func TestDocumentCloneDoesNotAlias(t *testing.T) {
	doc := Document{Budget: decimal.NewFromInt(10), Transactions: []Transaction{{ID: "a"}}}
	c := doc.Clone()
	c.Transactions[0].ID = "b"
	if doc.Transactions[0].ID != "a" {
		t.Fatalf("clone aliases original transactions")
	}
}

func TestDocumentDecodesNumericAmounts(t *testing.T) {
	raw := `{"budget":5000,"transactions":[{"id":"x","amount":150,"purpose":"Welcome Coffee","date":"2025-01-01","category":"college","paymentMode":"cash"}]}`
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !doc.Budget.Equal(decimal.NewFromInt(5000)) || len(doc.Transactions) != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if !doc.Transactions[0].Amount.Equal(decimal.NewFromInt(150)) || doc.Transactions[0].PaymentMode != PaymentCash {
		t.Fatalf("unexpected transaction: %+v", doc.Transactions[0])
	}
}

func TestDocumentEncodesNumericAmounts(t *testing.T) {
	doc := Document{
		Budget:       decimal.NewFromInt(5000),
		Transactions: []Transaction{{ID: "x", Amount: decimal.RequireFromString("12.5")}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, want := range []string{`"budget":5000`, `"amount":12.5`} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("expected %s in %s", want, b)
		}
	}
}
