package dashboard

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD renders d as US currency, e.g. "$1,234.56" or "-$50.00".
func FormatUSD(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() && !d.Round(2).IsZero() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatAmount renders a transaction amount with two decimals and no sign,
// as shown in transaction lists.
func FormatAmount(d decimal.Decimal) string {
	return d.Abs().StringFixed(2)
}
