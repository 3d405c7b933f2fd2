package terminals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/pkg/db"
	"github.com/tillworks/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
)

// Service is the terminal registry. Every session, order and report hangs
// off a registered till, so a terminal must exist here before the first
// drawer opens on it.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Terminal, error)
	GetTerminal(ctx context.Context, id uuid.UUID) (*models.Terminal, error)
	ListTerminals(ctx context.Context) ([]models.Terminal, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Terminal, error)
}

type service struct {
	repo          Repository
	defaultPrefix string
}

// RegisterInput provisions a till. OrderPrefix is optional and falls back
// to the configured default.
type RegisterInput struct {
	Code        string
	Name        string
	OrderPrefix string
}

// NewService builds the terminal registry service.
func NewService(repo Repository, defaultPrefix string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("terminals repository required")
	}
	if defaultPrefix == "" {
		return nil, fmt.Errorf("default order prefix required")
	}
	return &service{repo: repo, defaultPrefix: defaultPrefix}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Terminal, error) {
	code := strings.TrimSpace(input.Code)
	name := strings.TrimSpace(input.Name)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terminal code is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terminal name is required")
	}

	prefix := strings.TrimSpace(input.OrderPrefix)
	if prefix == "" {
		prefix = s.defaultPrefix
	}

	terminal := &models.Terminal{
		ID:          uuid.New(),
		Code:        code,
		Name:        name,
		OrderPrefix: prefix,
		Active:      true,
	}
	if err := s.repo.Create(ctx, terminal); err != nil {
		if db.IsUniqueViolation(err, "ux_terminals_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("terminal code %q is already registered", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "registering terminal")
	}
	return terminal, nil
}

func (s *service) GetTerminal(ctx context.Context, id uuid.UUID) (*models.Terminal, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terminal id is required")
	}
	terminal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "terminal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading terminal")
	}
	return terminal, nil
}

func (s *service) ListTerminals(ctx context.Context) ([]models.Terminal, error) {
	terminals, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing terminals")
	}
	return terminals, nil
}

// SetActive toggles a till in or out of service. Deactivating does not touch
// a session already open on it; it only blocks new ones.
func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Terminal, error) {
	terminal, err := s.GetTerminal(ctx, id)
	if err != nil {
		return nil, err
	}
	if terminal.Active == active {
		return terminal, nil
	}

	terminal.Active = active
	if err := s.repo.Update(ctx, terminal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating terminal")
	}
	return terminal, nil
}
