package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Summary is the dashboard view model for one moment in time.
type Summary struct {
	Date      string             `json:"date"`
	Month     time.Month         `json:"month"`
	Budget    decimal.Decimal    `json:"budget"`
	Spent     decimal.Decimal    `json:"spent"`
	Remaining decimal.Decimal    `json:"remaining"`
	Status    Status             `json:"status"`
	Recent    []core.Transaction `json:"recent"`
	Series    []DailyTotal       `json:"series"`
}

// Build computes the dashboard for doc as seen at now.
func Build(doc core.Document, now time.Time) Summary {
	spent := MonthlySpend(doc.Transactions, now.Month())
	remaining := Remaining(doc.Budget, spent)
	return Summary{
		Date:      core.FormatDate(now),
		Month:     now.Month(),
		Budget:    doc.Budget,
		Spent:     spent,
		Remaining: remaining,
		Status:    Classify(doc.Budget, remaining),
		Recent:    Recent(doc.Transactions, DefaultRecent),
		Series:    DailySeries(doc.Transactions, now, DefaultDays),
	}
}

// CategoryIcon names the icon shown next to a transaction.
func CategoryIcon(category string) string {
	if category == core.CategoryCollege {
		return "school"
	}
	return "local_activity"
}
