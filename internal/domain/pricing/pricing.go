// Package pricing computes cart and order money amounts.
//
// Every amount is a whole number of taka. Fractional inputs are floored before
// use so that the storefront and the order store always agree on totals.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Line is the minimal shape needed to price a cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Split is the advance/remaining division of an order total.
type Split struct {
	Advance   decimal.Decimal
	Remaining decimal.Decimal
}

// Floor rounds d down to a whole currency unit.
func Floor(d decimal.Decimal) decimal.Decimal {
	return d.Floor()
}

// LineTotal returns unitPrice × quantity. Non-positive quantities price to zero.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return Floor(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
}

// Subtotal returns the sum of LineTotal over lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l.UnitPrice, l.Quantity))
	}
	return sum
}

// AdvanceSplit divides total into the part paid up front and the part
// collected on delivery. Neither side is ever negative.
func AdvanceSplit(total, advance decimal.Decimal) Split {
	total = Floor(total)
	advance = Floor(advance)
	if advance.IsNegative() {
		advance = decimal.Zero
	}

	remaining := total.Sub(advance)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return Split{
		Advance:   decimal.Min(advance, total),
		Remaining: remaining,
	}
}
