package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/money"
)

// LineTotals carries the computed money fields for one cart line.
// All fields are rounded to cents; lineTotal = lineTotalBeforeTax + taxAmount
// holds on the rounded values.
type LineTotals struct {
	LineNumber         int
	LineSubtotal       decimal.Decimal
	DiscountAmount     decimal.Decimal
	LineTotalBeforeTax decimal.Decimal
	TaxRate            decimal.Decimal
	TaxAmount          decimal.Decimal
	LineTotal          decimal.Decimal
}

// Totals is the cart-level aggregate. The order discount is prorated across
// the taxable and exempt bases so tax is derived from the post-discount
// taxable base, never the raw subtotal.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	ExemptAmount   decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	Lines          []LineTotals
}

// ComputeLine prices a single cart line at the supplied tax rate.
// Computation order is fixed: subtotal, discount, pre-tax total, tax.
// A line discount larger than the line subtotal is rejected, not clamped.
func ComputeLine(line Line, taxRate decimal.Decimal) (LineTotals, error) {
	if !line.Quantity.IsPositive() {
		return LineTotals{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be positive", line.LineNumber))
	}
	if line.UnitPrice.IsNegative() {
		return LineTotals{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: unit price must not be negative", line.LineNumber))
	}
	if taxRate.IsNegative() {
		return LineTotals{}, pkgerrors.New(pkgerrors.CodeValidation, "tax rate must not be negative")
	}

	lineSubtotal := line.Quantity.Mul(line.UnitPrice)

	discountAmount := decimal.Zero
	if line.Discount != nil {
		if err := line.Discount.Validate(); err != nil {
			return LineTotals{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line discount")
		}
		discountAmount = line.Discount.AmountOff(lineSubtotal)
		if discountAmount.GreaterThan(lineSubtotal) {
			return LineTotals{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: discount exceeds line subtotal", line.LineNumber))
		}
	}

	beforeTax := lineSubtotal.Sub(discountAmount)

	effectiveRate := taxRate
	if line.TaxExempt {
		effectiveRate = decimal.Zero
	}

	roundedBeforeTax := money.Round2(beforeTax)
	taxAmount := money.Round2(beforeTax.Mul(effectiveRate))

	return LineTotals{
		LineNumber:         line.LineNumber,
		LineSubtotal:       money.Round2(lineSubtotal),
		DiscountAmount:     money.Round2(discountAmount),
		LineTotalBeforeTax: roundedBeforeTax,
		TaxRate:            effectiveRate,
		TaxAmount:          taxAmount,
		LineTotal:          roundedBeforeTax.Add(taxAmount),
	}, nil
}

// ComputeTotals prices the whole cart. Per-line fields are rounded first;
// the aggregate sums the rounded line values so the persisted lines always
// add up to the persisted order.
func ComputeTotals(c Cart, taxRate decimal.Decimal) (Totals, error) {
	subtotal := decimal.Zero
	taxableBase := decimal.Zero
	exemptBase := decimal.Zero
	lines := make([]LineTotals, 0, len(c.Lines))

	for _, line := range c.Lines {
		lt, err := ComputeLine(line, taxRate)
		if err != nil {
			return Totals{}, err
		}
		lines = append(lines, lt)
		subtotal = subtotal.Add(lt.LineTotalBeforeTax)
		if line.TaxExempt {
			exemptBase = exemptBase.Add(lt.LineTotalBeforeTax)
		} else {
			taxableBase = taxableBase.Add(lt.LineTotalBeforeTax)
		}
	}

	discountAmount := decimal.Zero
	if c.Discount != nil {
		if err := c.Discount.Validate(); err != nil {
			return Totals{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order discount")
		}
		// order-level discount is clamped at the subtotal (100% boundary)
		discountAmount = money.Round2(decimal.Min(c.Discount.AmountOff(subtotal), subtotal))
	}

	// ratio = 1 when subtotal is 0 to avoid division by zero
	ratio := decimal.NewFromInt(1)
	if subtotal.IsPositive() {
		ratio = subtotal.Sub(discountAmount).Div(subtotal)
	}

	taxableAmount := money.Round2(taxableBase.Mul(ratio))
	exemptAmount := money.Round2(exemptBase.Mul(ratio))
	taxAmount := money.Round2(taxableAmount.Mul(taxRate))
	total := subtotal.Sub(discountAmount).Add(taxAmount)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxableAmount:  taxableAmount,
		ExemptAmount:   exemptAmount,
		TaxRate:        taxRate,
		TaxAmount:      taxAmount,
		Total:          total,
		Lines:          lines,
	}, nil
}
