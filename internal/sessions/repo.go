package sessions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/pkg/db/models"
)

// Repository persists drawer sessions and their append-only cash movements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *models.DrawerSession) error
	Update(ctx context.Context, session *models.DrawerSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error)
	FindLiveByTerminal(ctx context.Context, terminalID uuid.UUID) (*models.DrawerSession, error)
	AddMovement(ctx context.Context, movement *models.CashMovement) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sessions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, session *models.DrawerSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) Update(ctx context.Context, session *models.DrawerSession) error {
	return r.db.WithContext(ctx).
		Omit("Movements").
		Save(session).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error) {
	var session models.DrawerSession
	err := r.db.WithContext(ctx).
		Preload("Movements", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindLiveByTerminal returns the terminal's open or suspended session, if
// any. The partial unique index on live sessions guarantees at most one.
func (r *repository) FindLiveByTerminal(ctx context.Context, terminalID uuid.UUID) (*models.DrawerSession, error) {
	var session models.DrawerSession
	err := r.db.WithContext(ctx).
		Where("terminal_id = ? AND status <> ?", terminalID, "closed").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) AddMovement(ctx context.Context, movement *models.CashMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}
