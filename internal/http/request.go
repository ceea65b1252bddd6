package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"expensetracker/internal/core"
)

const maxBodyBytes = 64 << 10

// errBadRequest marks input that cannot be read at all, as opposed to
// readable input with invalid values.
var errBadRequest = errors.New("bad request")

type transactionRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Purpose     string          `json:"purpose"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	PaymentMode string          `json:"paymentMode"`
}

type budgetRequest struct {
	Budget json.RawMessage `json:"budget"`
}

func isFormRequest(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded"
}

func isJSONRequest(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

// parseTransactionRequest reads a transaction from a JSON or form body. Only
// the amount is checked; an empty date means today, empty category and
// payment mode get the form defaults.
func parseTransactionRequest(r *http.Request, now time.Time) (core.TransactionInput, error) {
	var (
		req       transactionRequest
		rawAmount string
	)
	switch {
	case isJSONRequest(r):
		if err := decodeJSON(r, &req); err != nil {
			return core.TransactionInput{}, err
		}
		rawAmount = rawNumber(req.Amount)
	default:
		if err := parseForm(r); err != nil {
			return core.TransactionInput{}, err
		}
		rawAmount = r.PostForm.Get("amount")
		req.Purpose = r.PostForm.Get("purpose")
		req.Date = r.PostForm.Get("date")
		req.Category = r.PostForm.Get("category")
		req.PaymentMode = r.PostForm.Get("paymentMode")
	}

	amount, err := core.ParseAmount(rawAmount)
	if err != nil {
		return core.TransactionInput{}, err
	}

	in := core.TransactionInput{
		Amount:      amount,
		Purpose:     sanitizeInput(req.Purpose),
		Date:        strings.TrimSpace(req.Date),
		Category:    sanitizeInput(req.Category),
		PaymentMode: sanitizeInput(req.PaymentMode),
	}
	if in.Date == "" {
		in.Date = core.FormatDate(now)
	}
	if in.Category == "" {
		in.Category = core.CategoryOther
	}
	if in.PaymentMode == "" {
		in.PaymentMode = core.PaymentCash
	}
	return in, nil
}

// parseBudgetRequest returns the raw budget text; parsing is left to the store.
func parseBudgetRequest(r *http.Request) (string, error) {
	if isJSONRequest(r) {
		var req budgetRequest
		if err := decodeJSON(r, &req); err != nil {
			return "", err
		}
		return rawNumber(req.Budget), nil
	}
	if err := parseForm(r); err != nil {
		return "", err
	}
	return r.PostForm.Get("budget"), nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode json: %v", errBadRequest, err)
	}
	return nil
}

func parseForm(r *http.Request) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: parse form: %v", errBadRequest, err)
	}
	return nil
}

// rawNumber accepts both 12.5 and "12.5".
func rawNumber(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
