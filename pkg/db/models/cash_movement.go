package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/pkg/enums"
)

// CashMovement is one append-only drawer event. Amount carries its sign
// for sale/payout/adjustment; refund and drop store a positive amount and
// are subtracted when expected cash is derived.
type CashMovement struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID uuid.UUID              `gorm:"column:session_id;type:uuid;not null;index"`
	Type      enums.CashMovementType `gorm:"column:type;type:text;not null"`
	Amount    decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Reason    *string                `gorm:"column:reason"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
