package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/pkg/db/models"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	"github.com/tillworks/tillpoint-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  session_id TEXT NOT NULL,
  terminal_id TEXT NOT NULL,
  customer TEXT,
  status TEXT NOT NULL DEFAULT 'pending_payment',
  subtotal NUMERIC NOT NULL DEFAULT 0,
  discount TEXT,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  taxable_amount NUMERIC NOT NULL DEFAULT 0,
  exempt_amount NUMERIC NOT NULL DEFAULT 0,
  tax_rate NUMERIC NOT NULL DEFAULT 0,
  tax_amount NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL DEFAULT 0,
  amount_paid NUMERIC NOT NULL DEFAULT 0,
  amount_due NUMERIC NOT NULL DEFAULT 0,
  change_given NUMERIC NOT NULL DEFAULT 0,
  notes TEXT,
  hold_reason TEXT,
  void_reason TEXT,
  completed_at DATETIME,
  voided_at DATETIME,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  line_number INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  unit_price NUMERIC NOT NULL,
  uom TEXT NOT NULL DEFAULT 'each',
  discount TEXT,
  tax_exempt INTEGER NOT NULL DEFAULT 0,
  notes TEXT,
  line_subtotal NUMERIC NOT NULL,
  discount_amount NUMERIC NOT NULL,
  line_total_before_tax NUMERIC NOT NULL,
  tax_rate NUMERIC NOT NULL,
  tax_amount NUMERIC NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME
);`
	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount NUMERIC NOT NULL,
  amount_tendered NUMERIC,
  change_given NUMERIC NOT NULL DEFAULT 0,
  reference TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	sequences := `
CREATE TABLE IF NOT EXISTS order_sequences (
  prefix TEXT NOT NULL,
  year INTEGER NOT NULL,
  counter INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (prefix, year)
);`

	for _, stmt := range []string{orders, orderItems, payments, sequences} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, sessionID uuid.UUID, number string, createdAt time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		SessionID:   sessionID,
		TerminalID:  uuid.New(),
		Status:      enums.OrderStatusPendingPayment,
		Subtotal:    decimal.RequireFromString("1000"),
		TaxRate:     decimal.RequireFromString("0.15"),
		TaxAmount:   decimal.RequireFromString("150"),
		Total:       decimal.RequireFromString("1150"),
		AmountDue:   decimal.RequireFromString("1150"),
		CreatedAt:   createdAt,
		Items: []models.OrderItem{
			{
				ID:                 uuid.New(),
				LineNumber:         1,
				ProductID:          uuid.New(),
				Name:               "Rice 1kg",
				Quantity:           decimal.RequireFromString("2"),
				UnitPrice:          decimal.RequireFromString("500"),
				UOM:                "each",
				LineSubtotal:       decimal.RequireFromString("1000"),
				DiscountAmount:     decimal.Zero,
				LineTotalBeforeTax: decimal.RequireFromString("1000"),
				TaxRate:            decimal.RequireFromString("0.15"),
				TaxAmount:          decimal.RequireFromString("150"),
				LineTotal:          decimal.RequireFromString("1150"),
			},
		},
	}
	require.NoError(t, NewRepository(db).Create(context.Background(), order))
	return order
}

func TestNextOrderNumberAdvancesPerPrefixAndYear(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first, err := repo.NextOrderNumber(ctx, "POS-", 2026)
	require.NoError(t, err)
	assert.Equal(t, "POS-2026-000001", first)

	second, err := repo.NextOrderNumber(ctx, "POS-", 2026)
	require.NoError(t, err)
	assert.Equal(t, "POS-2026-000002", second)

	otherYear, err := repo.NextOrderNumber(ctx, "POS-", 2027)
	require.NoError(t, err)
	assert.Equal(t, "POS-2027-000001", otherYear)
}

func TestCreateAndFindByIDPreloadsItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), "POS-2026-000001", time.Now().UTC())

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, found.OrderNumber)
	require.Len(t, found.Items, 1)
	assert.True(t, found.Items[0].LineTotal.Equal(decimal.RequireFromString("1150")))
	assert.True(t, found.Total.Equal(decimal.RequireFromString("1150")))
}

func TestReplaceItemsSwapsLines(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), "POS-2026-000001", time.Now().UTC())

	replacement := []models.OrderItem{
		{
			ID:                 uuid.New(),
			OrderID:            order.ID,
			LineNumber:         1,
			ProductID:          uuid.New(),
			Name:               "Flour 2kg",
			Quantity:           decimal.RequireFromString("1"),
			UnitPrice:          decimal.RequireFromString("300"),
			UOM:                "each",
			LineSubtotal:       decimal.RequireFromString("300"),
			DiscountAmount:     decimal.Zero,
			LineTotalBeforeTax: decimal.RequireFromString("300"),
			TaxRate:            decimal.RequireFromString("0.15"),
			TaxAmount:          decimal.RequireFromString("45"),
			LineTotal:          decimal.RequireFromString("345"),
		},
	}
	require.NoError(t, repo.ReplaceItems(ctx, order.ID, replacement))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Flour 2kg", found.Items[0].Name)
}

func TestListBySessionPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sessionID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	seedOrder(t, db, sessionID, "POS-2026-000001", base)
	seedOrder(t, db, sessionID, "POS-2026-000002", base.Add(time.Minute))
	seedOrder(t, db, sessionID, "POS-2026-000003", base.Add(2*time.Minute))
	seedOrder(t, db, uuid.New(), "POS-2026-000004", base.Add(3*time.Minute))

	page, next, err := repo.ListBySession(ctx, sessionID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)
	assert.Equal(t, "POS-2026-000003", page[0].OrderNumber)
	assert.Equal(t, "POS-2026-000002", page[1].OrderNumber)

	rest, last, err := repo.ListBySession(ctx, sessionID, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "POS-2026-000001", rest[0].OrderNumber)
	assert.Empty(t, last)
}
