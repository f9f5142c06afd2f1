// Package money holds the decimal arithmetic shared by pricing, promotions
// and reporting. Values stay unrounded until Display.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FromFloat converts a JSON-ish float (seed data, spreadsheet cells) to a decimal.
func FromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Ptr returns a pointer to a copy of d.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// ApplyPercentOff returns amount reduced by pct percent.
func ApplyPercentOff(amount decimal.Decimal, pct float64) decimal.Decimal {
	if pct == 0 {
		return amount
	}
	off := amount.Mul(decimal.NewFromFloat(pct)).Div(hundred)
	return amount.Sub(off)
}

// Display formats d with two decimals, e.g. "$40.50".
func Display(d decimal.Decimal) string {
	return fmt.Sprintf("$%s", d.StringFixed(2))
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
