package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	"github.com/tillworks/tillpoint-backend/pkg/types"
)

var gct = decimal.RequireFromString("0.15")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeLinePlain(t *testing.T) {
	lt, err := ComputeLine(Line{
		LineNumber: 1,
		ProductID:  uuid.New(),
		Name:       "Rice 1kg",
		Quantity:   dec("2"),
		UnitPrice:  dec("500"),
	}, gct)
	require.NoError(t, err)

	assert.True(t, lt.LineSubtotal.Equal(dec("1000")), "subtotal %s", lt.LineSubtotal)
	assert.True(t, lt.DiscountAmount.IsZero())
	assert.True(t, lt.LineTotalBeforeTax.Equal(dec("1000")))
	assert.True(t, lt.TaxAmount.Equal(dec("150")), "tax %s", lt.TaxAmount)
	assert.True(t, lt.LineTotal.Equal(dec("1150")), "total %s", lt.LineTotal)
}

func TestComputeLineExemptHasNoTax(t *testing.T) {
	lt, err := ComputeLine(Line{
		LineNumber: 1,
		ProductID:  uuid.New(),
		Name:       "Baby formula",
		Quantity:   dec("1"),
		UnitPrice:  dec("200"),
		TaxExempt:  true,
	}, gct)
	require.NoError(t, err)

	assert.True(t, lt.TaxAmount.IsZero())
	assert.True(t, lt.TaxRate.IsZero())
	assert.True(t, lt.LineTotal.Equal(lt.LineTotalBeforeTax))
}

func TestComputeLinePercentDiscount(t *testing.T) {
	lt, err := ComputeLine(Line{
		LineNumber: 1,
		ProductID:  uuid.New(),
		Name:       "Cooking oil",
		Quantity:   dec("1"),
		UnitPrice:  dec("1000"),
		Discount:   &types.Discount{Type: enums.DiscountTypePercent, Value: dec("25")},
	}, gct)
	require.NoError(t, err)

	assert.True(t, lt.DiscountAmount.Equal(dec("250")))
	assert.True(t, lt.LineTotalBeforeTax.Equal(dec("750")))
	assert.True(t, lt.TaxAmount.Equal(dec("112.5")), "tax %s", lt.TaxAmount)
	assert.True(t, lt.LineTotal.Equal(lt.LineTotalBeforeTax.Add(lt.TaxAmount)))
}

func TestComputeLineRejectsOversizedDiscount(t *testing.T) {
	_, err := ComputeLine(Line{
		LineNumber: 3,
		ProductID:  uuid.New(),
		Name:       "Bread",
		Quantity:   dec("1"),
		UnitPrice:  dec("100"),
		Discount:   &types.Discount{Type: enums.DiscountTypeAmount, Value: dec("150")},
	}, gct)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestComputeLineRejectsBadQuantity(t *testing.T) {
	_, err := ComputeLine(Line{
		LineNumber: 1,
		ProductID:  uuid.New(),
		Name:       "Bread",
		Quantity:   decimal.Zero,
		UnitPrice:  dec("100"),
	}, gct)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestComputeTotalsProratesOrderDiscount(t *testing.T) {
	c := Cart{
		TerminalID: uuid.New(),
		Discount:   &types.Discount{Type: enums.DiscountTypePercent, Value: dec("10")},
		Lines: []Line{
			{LineNumber: 1, ProductID: uuid.New(), Name: "Taxable good", Quantity: dec("1"), UnitPrice: dec("800")},
			{LineNumber: 2, ProductID: uuid.New(), Name: "Exempt good", Quantity: dec("1"), UnitPrice: dec("200"), TaxExempt: true},
		},
	}

	totals, err := ComputeTotals(c, gct)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(dec("1000")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.DiscountAmount.Equal(dec("100")))
	assert.True(t, totals.TaxableAmount.Equal(dec("720")), "taxable %s", totals.TaxableAmount)
	assert.True(t, totals.ExemptAmount.Equal(dec("180")), "exempt %s", totals.ExemptAmount)
	assert.True(t, totals.TaxAmount.Equal(dec("108")), "tax %s", totals.TaxAmount)
	assert.True(t, totals.Total.Equal(dec("1008")), "total %s", totals.Total)
}

func TestComputeTotalsFullDiscountBoundary(t *testing.T) {
	c := Cart{
		TerminalID: uuid.New(),
		Discount:   &types.Discount{Type: enums.DiscountTypePercent, Value: dec("100")},
		Lines: []Line{
			{LineNumber: 1, ProductID: uuid.New(), Name: "Taxable good", Quantity: dec("2"), UnitPrice: dec("500")},
		},
	}

	totals, err := ComputeTotals(c, gct)
	require.NoError(t, err)

	assert.True(t, totals.TaxableAmount.IsZero())
	assert.True(t, totals.TaxAmount.IsZero())
	assert.True(t, totals.Total.IsZero(), "total %s", totals.Total)
}

func TestComputeTotalsEmptyCartIsZero(t *testing.T) {
	totals, err := ComputeTotals(Cart{TerminalID: uuid.New()}, gct)
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestComputeTotalsInvariantHolds(t *testing.T) {
	c := Cart{
		TerminalID: uuid.New(),
		Discount:   &types.Discount{Type: enums.DiscountTypeAmount, Value: dec("37.5")},
		Lines: []Line{
			{LineNumber: 1, ProductID: uuid.New(), Name: "A", Quantity: dec("3"), UnitPrice: dec("19.99")},
			{LineNumber: 2, ProductID: uuid.New(), Name: "B", Quantity: dec("1.25"), UnitPrice: dec("7.4"), TaxExempt: true},
			{LineNumber: 3, ProductID: uuid.New(), Name: "C", Quantity: dec("2"), UnitPrice: dec("101.13"), Discount: &types.Discount{Type: enums.DiscountTypePercent, Value: dec("5")}},
		},
	}

	totals, err := ComputeTotals(c, gct)
	require.NoError(t, err)

	want := totals.Subtotal.Sub(totals.DiscountAmount).Add(totals.TaxAmount)
	assert.True(t, totals.Total.Equal(want), "total %s want %s", totals.Total, want)

	for _, lt := range totals.Lines {
		assert.True(t, lt.LineTotal.Equal(lt.LineTotalBeforeTax.Add(lt.TaxAmount)))
	}
}
