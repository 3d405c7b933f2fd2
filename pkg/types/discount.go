package types

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/pkg/enums"
	"github.com/tillworks/tillpoint-backend/pkg/money"
)

// Discount is a percent or flat-amount reduction applied to a cart line or
// to the whole order. Stored as jsonb alongside its owner.
type Discount struct {
	Type  enums.DiscountType `json:"type"`
	Value decimal.Decimal    `json:"value"`
}

// Validate checks the discount is well-formed; the owner's subtotal decides
// whether the value is actually applicable.
func (d Discount) Validate() error {
	if !d.Type.IsValid() {
		return fmt.Errorf("invalid discount type %q", d.Type)
	}
	if d.Value.IsNegative() {
		return fmt.Errorf("discount value cannot be negative")
	}
	if d.Type == enums.DiscountTypePercent && d.Value.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("percent discount cannot exceed 100")
	}
	return nil
}

// AmountOff returns the unrounded reduction this discount takes off base.
func (d Discount) AmountOff(base decimal.Decimal) decimal.Decimal {
	switch d.Type {
	case enums.DiscountTypePercent:
		return money.Percent(base, d.Value)
	case enums.DiscountTypeAmount:
		return d.Value
	default:
		return decimal.Zero
	}
}
