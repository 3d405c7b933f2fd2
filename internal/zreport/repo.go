package zreport

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/pkg/db/models"
)

// Repository persists Z-reports and hands out per-day report numbers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, report *models.ZReport) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ZReport, error)
	FindBySession(ctx context.Context, sessionID uuid.UUID) (*models.ZReport, error)
	ListOrders(ctx context.Context, sessionID uuid.UUID) ([]models.Order, error)
	NextReportNumber(ctx context.Context, day string) (string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a Z-report repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, report *models.ZReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ZReport, error) {
	var report models.ZReport
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *repository) FindBySession(ctx context.Context, sessionID uuid.UUID) (*models.ZReport, error) {
	var report models.ZReport
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListOrders loads every order booked against the session with its payments,
// the raw material for the independent reconciliation pass.
func (r *repository) ListOrders(ctx context.Context, sessionID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// NextReportNumber advances the per-day counter and formats the report
// number, e.g. Z-20260823-2.
func (r *repository) NextReportNumber(ctx context.Context, day string) (string, error) {
	db := r.db.WithContext(ctx)

	res := db.Exec("UPDATE z_report_sequences SET counter = counter + 1 WHERE day = ?", day)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		if err := db.Create(&models.ZReportSequence{Day: day, Counter: 1}).Error; err != nil {
			return "", err
		}
	}

	var seq models.ZReportSequence
	if err := db.Where("day = ?", day).First(&seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("Z-%s-%d", day, seq.Counter), nil
}
