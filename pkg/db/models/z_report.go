package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ptypes "github.com/tillworks/tillpoint-backend/pkg/types"
)

// ZReport is the immutable end-of-day snapshot for one closed session.
// The unique session index makes generation idempotent.
type ZReport struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number    string    `gorm:"column:number;not null;uniqueIndex"`
	SessionID uuid.UUID `gorm:"column:session_id;type:uuid;not null;uniqueIndex"`

	TerminalID uuid.UUID `gorm:"column:terminal_id;type:uuid;not null"`
	CashierID  uuid.UUID `gorm:"column:cashier_id;type:uuid;not null"`

	GrossSales    decimal.Decimal `gorm:"column:gross_sales;type:numeric(12,2);not null"`
	Discounts     decimal.Decimal `gorm:"column:discounts;type:numeric(12,2);not null"`
	TaxableAmount decimal.Decimal `gorm:"column:taxable_amount;type:numeric(12,2);not null;default:0"`
	ExemptAmount  decimal.Decimal `gorm:"column:exempt_amount;type:numeric(12,2);not null;default:0"`
	TaxCollected  decimal.Decimal `gorm:"column:tax_collected;type:numeric(12,2);not null"`
	Refunds       decimal.Decimal `gorm:"column:refunds;type:numeric(12,2);not null;default:0"`
	NetSales      decimal.Decimal `gorm:"column:net_sales;type:numeric(12,2);not null"`

	OrderCount  int `gorm:"column:order_count;not null"`
	VoidCount   int `gorm:"column:void_count;not null"`
	RefundCount int `gorm:"column:refund_count;not null"`

	Breakdown ptypes.PaymentBreakdown `gorm:"column:breakdown;type:jsonb;serializer:json"`

	CashSales   decimal.Decimal `gorm:"column:cash_sales;type:numeric(12,2);not null;default:0"`
	CashRefunds decimal.Decimal `gorm:"column:cash_refunds;type:numeric(12,2);not null;default:0"`
	Payouts     decimal.Decimal `gorm:"column:payouts;type:numeric(12,2);not null;default:0"`
	Drops       decimal.Decimal `gorm:"column:drops;type:numeric(12,2);not null;default:0"`

	OpeningFloat decimal.Decimal  `gorm:"column:opening_float;type:numeric(12,2);not null"`
	ExpectedCash decimal.Decimal  `gorm:"column:expected_cash;type:numeric(12,2);not null"`
	CountedCash  *decimal.Decimal `gorm:"column:counted_cash;type:numeric(12,2)"`
	CashVariance *decimal.Decimal `gorm:"column:cash_variance;type:numeric(12,2)"`

	ReconciliationOK    bool    `gorm:"column:reconciliation_ok;not null;default:true"`
	ReconciliationNotes *string `gorm:"column:reconciliation_notes"`

	SessionOpenedAt time.Time `gorm:"column:session_opened_at;not null"`
	SessionClosedAt time.Time `gorm:"column:session_closed_at;not null"`
	GeneratedAt     time.Time `gorm:"column:generated_at;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
