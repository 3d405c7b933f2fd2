package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	types "github.com/tillworks/tillpoint-backend/pkg/db/types"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	ptypes "github.com/tillworks/tillpoint-backend/pkg/types"
)

// DrawerSession is one cashier shift on a terminal. The running aggregates
// (sales totals, expected cash, payment breakdown) are maintained
// incrementally as orders complete and movements are recorded; Close freezes
// them and reconciles against the counted drawer.
type DrawerSession struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TerminalID uuid.UUID           `gorm:"column:terminal_id;type:uuid;not null;index"`
	CashierID  uuid.UUID           `gorm:"column:cashier_id;type:uuid;not null"`
	Status     enums.SessionStatus `gorm:"column:status;type:text;not null;default:'open'"`

	OpeningFloat decimal.Decimal `gorm:"column:opening_float;type:numeric(12,2);not null"`

	OrderIDs types.UUIDArray `gorm:"column:order_ids;type:text[]"`

	GrossSales   decimal.Decimal `gorm:"column:gross_sales;type:numeric(12,2);not null;default:0"`
	Discounts    decimal.Decimal `gorm:"column:discounts;type:numeric(12,2);not null;default:0"`
	TaxCollected decimal.Decimal `gorm:"column:tax_collected;type:numeric(12,2);not null;default:0"`
	TotalRefunds decimal.Decimal `gorm:"column:total_refunds;type:numeric(12,2);not null;default:0"`
	NetSales     decimal.Decimal `gorm:"column:net_sales;type:numeric(12,2);not null;default:0"`
	OrderCount   int             `gorm:"column:order_count;not null;default:0"`
	VoidCount    int             `gorm:"column:void_count;not null;default:0"`

	Breakdown ptypes.PaymentBreakdown `gorm:"column:breakdown;type:jsonb;serializer:json"`

	ExpectedCash decimal.Decimal  `gorm:"column:expected_cash;type:numeric(12,2);not null;default:0"`
	CountedCash  *decimal.Decimal `gorm:"column:counted_cash;type:numeric(12,2)"`
	CashVariance *decimal.Decimal `gorm:"column:cash_variance;type:numeric(12,2)"`

	Movements []CashMovement `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`

	OpenedAt    time.Time  `gorm:"column:opened_at;not null"`
	SuspendedAt *time.Time `gorm:"column:suspended_at"`
	ClosedAt    *time.Time `gorm:"column:closed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
