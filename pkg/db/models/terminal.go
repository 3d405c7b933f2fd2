package models

import (
	"time"

	"github.com/google/uuid"
)

// Terminal is a physical till. Its order-number prefix feeds the per-year
// order sequence; the live session binding is enforced on drawer_sessions.
type Terminal struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string    `gorm:"column:code;not null;uniqueIndex"`
	Name        string    `gorm:"column:name;not null"`
	OrderPrefix string    `gorm:"column:order_prefix;not null;default:'POS-'"`
	Active      bool      `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
