package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/pkg/db/models"
	"github.com/tillworks/tillpoint-backend/pkg/pagination"
)

// Repository persists orders and hands out sequential order numbers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	NextOrderNumber(ctx context.Context, prefix string, year int) (string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update writes the order row itself; line items and payments are managed
// through their own paths so a save never re-inserts associations.
func (r *repository) Update(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Omit("Items", "Payments").
		Save(order).Error
}

// ReplaceItems swaps an order's frozen line items, used when a held order is
// resumed and finalized again with an edited cart.
func (r *repository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_number ASC")
		}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListBySession(ctx context.Context, sessionID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(orders) > limit {
		orders = orders[:limit]
		last := orders[len(orders)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return orders, nextCursor, nil
}

// NextOrderNumber advances the per-prefix, per-year counter and formats the
// receipt number, e.g. POS-2026-000042. The caller is expected to run this
// inside the same transaction that creates the order so a failed create does
// not burn a number silently.
func (r *repository) NextOrderNumber(ctx context.Context, prefix string, year int) (string, error) {
	db := r.db.WithContext(ctx)

	res := db.Exec(
		"UPDATE order_sequences SET counter = counter + 1 WHERE prefix = ? AND year = ?",
		prefix, year,
	)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		if err := db.Create(&models.OrderSequence{Prefix: prefix, Year: year, Counter: 1}).Error; err != nil {
			return "", err
		}
	}

	var seq models.OrderSequence
	if err := db.Where("prefix = ? AND year = ?", prefix, year).First(&seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d-%06d", prefix, year, seq.Counter), nil
}

func currentYear(now time.Time) int {
	return now.UTC().Year()
}
