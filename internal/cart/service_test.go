package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	"github.com/tillworks/tillpoint-backend/pkg/types"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewMemoryStore(), decimal.RequireFromString("0.15"))
	require.NoError(t, err)
	return svc
}

func TestAddItemAssignsLineNumbers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	terminalID := uuid.New()

	c, err := svc.AddItem(ctx, terminalID, LineInput{
		ProductID: uuid.New(), Name: "Rice", Quantity: dec("2"), UnitPrice: dec("500"),
	})
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 1, c.Lines[0].LineNumber)
	assert.Equal(t, "each", c.Lines[0].UOM)

	c, err = svc.AddItem(ctx, terminalID, LineInput{
		ProductID: uuid.New(), Name: "Flour", Quantity: dec("1"), UnitPrice: dec("300"), UOM: "kg",
	})
	require.NoError(t, err)
	require.Len(t, c.Lines, 2)
	assert.Equal(t, 2, c.Lines[1].LineNumber)
}

func TestAddItemRejectsInvalidLine(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	terminalID := uuid.New()

	_, err := svc.AddItem(ctx, terminalID, LineInput{
		ProductID: uuid.New(), Name: "Bad", Quantity: decimal.Zero, UnitPrice: dec("10"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	// rejected mutation must leave the stored cart unchanged
	c, err := svc.Get(ctx, terminalID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestUpdateAndRemoveItem(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	terminalID := uuid.New()

	_, err := svc.AddItem(ctx, terminalID, LineInput{
		ProductID: uuid.New(), Name: "Rice", Quantity: dec("2"), UnitPrice: dec("500"),
	})
	require.NoError(t, err)

	c, err := svc.UpdateItem(ctx, terminalID, 1, LineInput{
		ProductID: uuid.New(), Name: "Rice", Quantity: dec("3"), UnitPrice: dec("500"),
	})
	require.NoError(t, err)
	assert.True(t, c.Lines[0].Quantity.Equal(dec("3")))

	_, err = svc.UpdateItem(ctx, terminalID, 9, LineInput{
		ProductID: uuid.New(), Name: "Ghost", Quantity: dec("1"), UnitPrice: dec("1"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	c, err = svc.RemoveItem(ctx, terminalID, 1)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestSetDiscountAndTotals(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	terminalID := uuid.New()

	_, err := svc.AddItem(ctx, terminalID, LineInput{
		ProductID: uuid.New(), Name: "Taxable", Quantity: dec("1"), UnitPrice: dec("800"),
	})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, terminalID, LineInput{
		ProductID: uuid.New(), Name: "Exempt", Quantity: dec("1"), UnitPrice: dec("200"), TaxExempt: true,
	})
	require.NoError(t, err)

	_, err = svc.SetDiscount(ctx, terminalID, &types.Discount{Type: enums.DiscountTypePercent, Value: dec("10")})
	require.NoError(t, err)

	totals, err := svc.Totals(ctx, terminalID)
	require.NoError(t, err)
	assert.True(t, totals.Total.Equal(dec("1008")), "total %s", totals.Total)
}

func TestSetDiscountRejectsInvalid(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	terminalID := uuid.New()

	_, err := svc.SetDiscount(ctx, terminalID, &types.Discount{Type: enums.DiscountTypePercent, Value: dec("120")})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestSetCustomerDefaultsToWalkIn(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	terminalID := uuid.New()

	c, err := svc.SetCustomer(ctx, terminalID, types.CustomerSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultCustomerName, c.Customer.Name)
}

func TestClearEmptiesCart(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	terminalID := uuid.New()

	_, err := svc.AddItem(ctx, terminalID, LineInput{
		ProductID: uuid.New(), Name: "Rice", Quantity: dec("1"), UnitPrice: dec("10"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, terminalID))

	c, err := svc.Get(ctx, terminalID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}
