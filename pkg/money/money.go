package money

import "github.com/shopspring/decimal"

// Monetary values are carried as arbitrary-precision decimals during
// calculation and rounded to 2 decimal places only at the point a value is
// persisted on an order item, order aggregate, movement, or report. The
// engine uses a single rounding discipline everywhere: half-up.

var oneHundred = decimal.NewFromInt(100)

// Round2 rounds a monetary value half-up to 2 decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns value scaled by pct/100, unrounded.
func Percent(value, pct decimal.Decimal) decimal.Decimal {
	return value.Mul(pct).Div(oneHundred)
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ClampFloor returns value, or floor when value is below it.
func ClampFloor(value, floor decimal.Decimal) decimal.Decimal {
	if value.LessThan(floor) {
		return floor
	}
	return value
}
