package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/pkg/enums"
	"github.com/tillworks/tillpoint-backend/pkg/types"
)

// Order is the priced aggregate produced when a cart is finalized. Terminal
// states (completed/voided/refunded) persist for audit; orders are never
// physically deleted.
type Order struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string                  `gorm:"column:order_number;not null;uniqueIndex"`
	SessionID   uuid.UUID               `gorm:"column:session_id;type:uuid;not null;index"`
	TerminalID  uuid.UUID               `gorm:"column:terminal_id;type:uuid;not null"`
	Customer    types.CustomerSnapshot  `gorm:"column:customer;type:jsonb;serializer:json"`
	Status      enums.OrderStatus       `gorm:"column:status;type:text;not null;default:'pending_payment'"`

	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount       *types.Discount `gorm:"column:discount;type:jsonb;serializer:json"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	TaxableAmount  decimal.Decimal `gorm:"column:taxable_amount;type:numeric(12,2);not null"`
	ExemptAmount   decimal.Decimal `gorm:"column:exempt_amount;type:numeric(12,2);not null"`
	TaxRate        decimal.Decimal `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	TaxAmount      decimal.Decimal `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`

	AmountPaid  decimal.Decimal `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0"`
	AmountDue   decimal.Decimal `gorm:"column:amount_due;type:numeric(12,2);not null;default:0"`
	ChangeGiven decimal.Decimal `gorm:"column:change_given;type:numeric(12,2);not null;default:0"`

	Notes      *string `gorm:"column:notes"`
	HoldReason *string `gorm:"column:hold_reason"`
	VoidReason *string `gorm:"column:void_reason"`

	Items    []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments []Payment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CompletedAt *time.Time `gorm:"column:completed_at"`
	VoidedAt    *time.Time `gorm:"column:voided_at"`
	RefundedAt  *time.Time `gorm:"column:refunded_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
