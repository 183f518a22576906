package pricing

import (
	"github.com/shopspring/decimal"
)

// Money represents an exact monetary amount. Binary floats are never used for prices.
type Money = decimal.Decimal

// Zero is the additive identity used to seed running totals.
var Zero = decimal.Zero

// TaxRoundingStep is the granularity tax amounts are rounded to.
var TaxRoundingStep = decimal.RequireFromString("0.05")

// RoundToNearest rounds amount to the nearest multiple of step, ties away from zero.
func RoundToNearest(amount, step Money) Money {
	if step.Sign() <= 0 {
		return amount
	}
	return amount.Div(step).Round(0).Mul(step)
}

// RoundTaxAmount rounds a raw tax amount to the nearest 0.05, half up.
func RoundTaxAmount(amount Money) Money {
	return RoundToNearest(amount, TaxRoundingStep)
}

// Format renders an amount in fixed point with exactly two fraction digits.
func Format(amount Money) string {
	return amount.StringFixed(2)
}

// Line describes a priced line used for subtotal calculation.
type Line struct {
	Qty        int
	UnitPrice  Money
	TaxPerUnit Money
}

// Summary aggregates the computed components of a line.
type Summary struct {
	UnitPriceWithTaxes Money
	Subtotal           Money
	Tax                Money
}

// Compute derives the taxed unit price, subtotal and tax contribution of a line.
func Compute(l Line) Summary {
	qty := decimal.NewFromInt(int64(l.Qty))
	withTaxes := l.UnitPrice.Add(l.TaxPerUnit)
	return Summary{
		UnitPriceWithTaxes: withTaxes,
		Subtotal:           qty.Mul(withTaxes),
		Tax:                qty.Mul(l.TaxPerUnit),
	}
}
