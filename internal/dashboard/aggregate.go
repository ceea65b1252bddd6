// Package dashboard derives view-ready figures from a document snapshot.
//
// Every function here is pure: inputs are never modified and returned slices
// never alias them.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

const (
	DefaultRecent = 5
	DefaultDays   = 7
)

// WarningRatio is the share of the budget below which the remaining amount is
// reported as near the limit.
var WarningRatio = decimal.RequireFromString("0.2")

// Status classifies the remaining budget.
type Status int

const (
	StatusHealthy Status = iota
	StatusNear
	StatusOver
)

func (s Status) String() string {
	switch s {
	case StatusOver:
		return "over"
	case StatusNear:
		return "near"
	default:
		return "healthy"
	}
}

// Color is the presentation color for the remaining-budget figure.
func (s Status) Color() string {
	switch s {
	case StatusOver:
		return "var(--danger-color)"
	case StatusNear:
		return "var(--warning-color)"
	default:
		return "#2979ff"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DailyTotal is one point of the trailing spending series.
type DailyTotal struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// Label is the chart label for the point (MM-DD).
func (d DailyTotal) Label() string {
	if len(d.Date) < len(core.DateLayout) {
		return d.Date
	}
	return d.Date[5:]
}

// MonthlySpend sums the amounts of transactions dated in month. The year is
// ignored: a transaction from the same month of another year still counts.
// Transactions whose date does not parse never match.
func MonthlySpend(ts []core.Transaction, month time.Month) decimal.Decimal {
	total := decimal.Zero
	for _, t := range ts {
		if m, ok := t.Month(); ok && m == month {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Remaining is budget minus spent; it goes negative on overspend.
func Remaining(budget, spent decimal.Decimal) decimal.Decimal {
	return budget.Sub(spent)
}

// Classify reports over when remaining < 0, near when remaining is below
// WarningRatio of the budget, healthy otherwise.
func Classify(budget, remaining decimal.Decimal) Status {
	if remaining.IsNegative() {
		return StatusOver
	}
	if remaining.LessThan(budget.Mul(WarningRatio)) {
		return StatusNear
	}
	return StatusHealthy
}

// Recent returns the first n transactions in stored order.
func Recent(ts []core.Transaction, n int) []core.Transaction {
	if n < 0 {
		n = 0
	}
	if n > len(ts) {
		n = len(ts)
	}
	out := make([]core.Transaction, n)
	copy(out, ts[:n])
	return out
}

// FilterByCategory keeps transactions whose category equals category. The
// core.CategoryAll sentinel keeps everything in input order.
func FilterByCategory(ts []core.Transaction, category string) []core.Transaction {
	out := make([]core.Transaction, 0, len(ts))
	for _, t := range ts {
		if category == core.CategoryAll || t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// DailySeries returns exactly days totals, oldest first, for the calendar
// dates ending with today. A transaction contributes to a day only when its
// date string equals that day.
func DailySeries(ts []core.Transaction, today time.Time, days int) []DailyTotal {
	if days <= 0 {
		return []DailyTotal{}
	}

	byDate := make(map[string]decimal.Decimal, len(ts))
	for _, t := range ts {
		byDate[t.Date] = byDate[t.Date].Add(t.Amount)
	}

	out := make([]DailyTotal, days)
	for i := range out {
		date := core.FormatDate(today.AddDate(0, 0, i-(days-1)))
		total, ok := byDate[date]
		if !ok {
			total = decimal.Zero
		}
		out[i] = DailyTotal{Date: date, Total: total}
	}
	return out
}
