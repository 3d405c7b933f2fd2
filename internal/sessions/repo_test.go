package sessions

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
	dbtypes "github.com/tillworks/tillpoint-backend/pkg/db/types"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
)

func setupSessionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sessions := `
CREATE TABLE IF NOT EXISTS drawer_sessions (
  id TEXT PRIMARY KEY,
  terminal_id TEXT NOT NULL,
  cashier_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  opening_float NUMERIC NOT NULL,
  order_ids TEXT,
  gross_sales NUMERIC NOT NULL DEFAULT 0,
  discounts NUMERIC NOT NULL DEFAULT 0,
  tax_collected NUMERIC NOT NULL DEFAULT 0,
  total_refunds NUMERIC NOT NULL DEFAULT 0,
  net_sales NUMERIC NOT NULL DEFAULT 0,
  order_count INTEGER NOT NULL DEFAULT 0,
  void_count INTEGER NOT NULL DEFAULT 0,
  breakdown TEXT,
  expected_cash NUMERIC NOT NULL DEFAULT 0,
  counted_cash NUMERIC,
  cash_variance NUMERIC,
  opened_at DATETIME NOT NULL,
  suspended_at DATETIME,
  closed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	movements := `
CREATE TABLE IF NOT EXISTS cash_movements (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  reason TEXT,
  order_id TEXT,
  created_at DATETIME
);`

	for _, stmt := range []string{sessions, movements} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedSession(t *testing.T, db *gorm.DB, terminalID uuid.UUID, status enums.SessionStatus) *models.DrawerSession {
	t.Helper()

	session := &models.DrawerSession{
		ID:           uuid.New(),
		TerminalID:   terminalID,
		CashierID:    uuid.New(),
		Status:       status,
		OpeningFloat: decimal.RequireFromString("10000"),
		ExpectedCash: decimal.RequireFromString("10000"),
		OpenedAt:     time.Now().UTC(),
	}
	require.NoError(t, NewRepository(db).Create(context.Background(), session))
	return session
}

func TestFindByIDPreloadsMovementsInOrder(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	session := seedSession(t, db, uuid.New(), enums.SessionStatusOpen)

	base := time.Now().UTC().Add(-time.Hour)
	first := &models.CashMovement{
		ID:        uuid.New(),
		SessionID: session.ID,
		Type:      enums.CashMovementOpeningFloat,
		Amount:    decimal.RequireFromString("10000"),
		CreatedAt: base,
	}
	second := &models.CashMovement{
		ID:        uuid.New(),
		SessionID: session.ID,
		Type:      enums.CashMovementPayout,
		Amount:    decimal.RequireFromString("-500"),
		CreatedAt: base.Add(time.Minute),
	}
	require.NoError(t, repo.AddMovement(ctx, second))
	require.NoError(t, repo.AddMovement(ctx, first))

	found, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, found.Movements, 2)
	assert.Equal(t, enums.CashMovementOpeningFloat, found.Movements[0].Type)
	assert.Equal(t, enums.CashMovementPayout, found.Movements[1].Type)
}

func TestFindLiveByTerminalSkipsClosedSessions(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	terminalID := uuid.New()
	seedSession(t, db, terminalID, enums.SessionStatusClosed)

	_, err := repo.FindLiveByTerminal(ctx, terminalID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	suspended := seedSession(t, db, terminalID, enums.SessionStatusSuspended)

	found, err := repo.FindLiveByTerminal(ctx, terminalID)
	require.NoError(t, err)
	assert.Equal(t, suspended.ID, found.ID)
}

func TestUpdatePersistsAggregatesAndOrderIDs(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	session := seedSession(t, db, uuid.New(), enums.SessionStatusOpen)

	orderID := uuid.New()
	session.OrderIDs = dbtypes.UUIDArray{orderID}
	session.GrossSales = decimal.RequireFromString("1000")
	session.NetSales = decimal.RequireFromString("1000")
	session.TaxCollected = decimal.RequireFromString("150")
	session.TotalRefunds = decimal.RequireFromString("250")
	session.OrderCount = 1
	session.VoidCount = 2
	session.ExpectedCash = decimal.RequireFromString("11150")
	require.NoError(t, repo.Update(ctx, session))

	found, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, found.OrderIDs.Contains(orderID))
	assert.Equal(t, 1, found.OrderCount)
	assert.Equal(t, 2, found.VoidCount)
	assert.True(t, found.TotalRefunds.Equal(decimal.RequireFromString("250")))
	assert.True(t, found.ExpectedCash.Equal(decimal.RequireFromString("11150")))
}
