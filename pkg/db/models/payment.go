package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/pkg/enums"
)

// Payment is one tender recorded against an order. Appended, never edited
// in place except for status transitions.
type Payment struct {
	ID      uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Method  enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status  enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`

	Amount         decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	AmountTendered *decimal.Decimal `gorm:"column:amount_tendered;type:numeric(12,2)"`
	ChangeGiven    decimal.Decimal  `gorm:"column:change_given;type:numeric(12,2);not null;default:0"`

	Reference *string `gorm:"column:reference"`

	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
