package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/pkg/types"
)

// OrderItem is a frozen cart line plus its computed money fields.
// Immutable once the order is created; replaced wholesale when a held
// order is resumed and re-finalized.
type OrderItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	LineNumber int       `gorm:"column:line_number;not null"`

	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	UOM       string          `gorm:"column:uom;not null;default:'each'"`
	Discount  *types.Discount `gorm:"column:discount;type:jsonb;serializer:json"`
	TaxExempt bool            `gorm:"column:tax_exempt;not null;default:false"`
	Notes     *string         `gorm:"column:notes"`

	LineSubtotal       decimal.Decimal `gorm:"column:line_subtotal;type:numeric(12,2);not null"`
	DiscountAmount     decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	LineTotalBeforeTax decimal.Decimal `gorm:"column:line_total_before_tax;type:numeric(12,2);not null"`
	TaxRate            decimal.Decimal `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	TaxAmount          decimal.Decimal `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	LineTotal          decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
