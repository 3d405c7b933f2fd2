package terminals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/pkg/db/models"
)

// Repository persists the terminal registry.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, terminal *models.Terminal) error
	Update(ctx context.Context, terminal *models.Terminal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Terminal, error)
	List(ctx context.Context) ([]models.Terminal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a terminals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, terminal *models.Terminal) error {
	return r.db.WithContext(ctx).Create(terminal).Error
}

func (r *repository) Update(ctx context.Context, terminal *models.Terminal) error {
	return r.db.WithContext(ctx).Save(terminal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Terminal, error) {
	var terminal models.Terminal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&terminal).Error
	if err != nil {
		return nil, err
	}
	return &terminal, nil
}

func (r *repository) List(ctx context.Context) ([]models.Terminal, error) {
	var terminals []models.Terminal
	err := r.db.WithContext(ctx).Order("code ASC").Find(&terminals).Error
	if err != nil {
		return nil, err
	}
	return terminals, nil
}
