package types

import (
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/pkg/enums"
)

// MethodTotals aggregates the completed payments taken with one method.
type MethodTotals struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// PaymentBreakdown maps payment methods to their session or report totals.
// Stored as jsonb.
type PaymentBreakdown map[enums.PaymentMethod]MethodTotals

// Add accumulates one completed payment into the breakdown.
func (b PaymentBreakdown) Add(method enums.PaymentMethod, amount decimal.Decimal) {
	entry := b[method]
	entry.Count++
	entry.Total = entry.Total.Add(amount)
	b[method] = entry
}

// TotalFor returns the aggregated amount for a method, zero when absent.
func (b PaymentBreakdown) TotalFor(method enums.PaymentMethod) decimal.Decimal {
	return b[method].Total
}

// Equal reports whether two breakdowns agree on counts and totals.
func (b PaymentBreakdown) Equal(other PaymentBreakdown) bool {
	if len(b) != len(other) {
		return false
	}
	for method, entry := range b {
		got, ok := other[method]
		if !ok || got.Count != entry.Count || !got.Total.Equal(entry.Total) {
			return false
		}
	}
	return true
}
