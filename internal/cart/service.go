package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/types"
)

// Service owns the active cart per terminal: draft mutation and pricing.
type Service interface {
	Get(ctx context.Context, terminalID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, terminalID uuid.UUID, input LineInput) (*Cart, error)
	UpdateItem(ctx context.Context, terminalID uuid.UUID, lineNumber int, input LineInput) (*Cart, error)
	RemoveItem(ctx context.Context, terminalID uuid.UUID, lineNumber int) (*Cart, error)
	SetDiscount(ctx context.Context, terminalID uuid.UUID, discount *types.Discount) (*Cart, error)
	SetCustomer(ctx context.Context, terminalID uuid.UUID, customer types.CustomerSnapshot) (*Cart, error)
	Totals(ctx context.Context, terminalID uuid.UUID) (*Totals, error)
	Replace(ctx context.Context, c *Cart) error
	Clear(ctx context.Context, terminalID uuid.UUID) error
}

// LineInput is the payload for adding or updating a cart line.
type LineInput struct {
	ProductID uuid.UUID       `validate:"required"`
	Name      string          `validate:"required,max=200"`
	Quantity  decimal.Decimal `validate:"-"`
	UnitPrice decimal.Decimal `validate:"-"`
	UOM       string          `validate:"omitempty,max=20"`
	Discount  *types.Discount `validate:"-"`
	TaxExempt bool
	Notes     *string `validate:"omitempty"`
}

type service struct {
	store    Store
	taxRate  decimal.Decimal
	validate *validator.Validate
}

// NewService builds a cart service backed by the provided store and the
// engine's configured GCT rate.
func NewService(store Store, taxRate decimal.Decimal) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative")
	}
	return &service{
		store:    store,
		taxRate:  taxRate,
		validate: validator.New(),
	}, nil
}

func (s *service) Get(ctx context.Context, terminalID uuid.UUID) (*Cart, error) {
	if terminalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terminal id is required")
	}
	return s.store.Load(ctx, terminalID)
}

func (s *service) AddItem(ctx context.Context, terminalID uuid.UUID, input LineInput) (*Cart, error) {
	c, err := s.Get(ctx, terminalID)
	if err != nil {
		return nil, err
	}
	line, err := s.buildLine(input)
	if err != nil {
		return nil, err
	}
	line.LineNumber = c.NextLineNumber()
	c.Lines = append(c.Lines, line)
	return s.persist(ctx, c)
}

func (s *service) UpdateItem(ctx context.Context, terminalID uuid.UUID, lineNumber int, input LineInput) (*Cart, error) {
	c, err := s.Get(ctx, terminalID)
	if err != nil {
		return nil, err
	}
	idx := c.FindLine(lineNumber)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("cart line %d not found", lineNumber))
	}
	line, err := s.buildLine(input)
	if err != nil {
		return nil, err
	}
	line.LineNumber = lineNumber
	c.Lines[idx] = line
	return s.persist(ctx, c)
}

func (s *service) RemoveItem(ctx context.Context, terminalID uuid.UUID, lineNumber int) (*Cart, error) {
	c, err := s.Get(ctx, terminalID)
	if err != nil {
		return nil, err
	}
	idx := c.FindLine(lineNumber)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("cart line %d not found", lineNumber))
	}
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	return s.persist(ctx, c)
}

func (s *service) SetDiscount(ctx context.Context, terminalID uuid.UUID, discount *types.Discount) (*Cart, error) {
	c, err := s.Get(ctx, terminalID)
	if err != nil {
		return nil, err
	}
	if discount != nil {
		if err := discount.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount")
		}
	}
	c.Discount = discount
	// pricing must still succeed with the new discount applied
	if _, err := ComputeTotals(*c, s.taxRate); err != nil {
		return nil, err
	}
	return s.persist(ctx, c)
}

func (s *service) SetCustomer(ctx context.Context, terminalID uuid.UUID, customer types.CustomerSnapshot) (*Cart, error) {
	c, err := s.Get(ctx, terminalID)
	if err != nil {
		return nil, err
	}
	c.Customer = types.NormalizedCustomer(customer.ID, customer.Name)
	return s.persist(ctx, c)
}

func (s *service) Totals(ctx context.Context, terminalID uuid.UUID) (*Totals, error) {
	c, err := s.Get(ctx, terminalID)
	if err != nil {
		return nil, err
	}
	totals, err := ComputeTotals(*c, s.taxRate)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// Replace swaps in a fully-formed cart, used when a held order is resumed.
func (s *service) Replace(ctx context.Context, c *Cart) error {
	if c == nil || c.TerminalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart with terminal id is required")
	}
	c.UpdatedAt = time.Now().UTC()
	return s.store.Save(ctx, c)
}

func (s *service) Clear(ctx context.Context, terminalID uuid.UUID) error {
	if terminalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "terminal id is required")
	}
	return s.store.Clear(ctx, terminalID)
}

func (s *service) persist(ctx context.Context, c *Cart) (*Cart, error) {
	c.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) buildLine(input LineInput) (Line, error) {
	if err := s.validate.Struct(input); err != nil {
		return Line{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart line")
	}
	uom := input.UOM
	if uom == "" {
		uom = "each"
	}
	line := Line{
		ProductID: input.ProductID,
		Name:      input.Name,
		Quantity:  input.Quantity,
		UnitPrice: input.UnitPrice,
		UOM:       uom,
		Discount:  input.Discount,
		TaxExempt: input.TaxExempt,
		Notes:     input.Notes,
	}
	// price the line up front so invalid quantity, price, or discount is
	// rejected before it ever lands in the stored cart
	if _, err := ComputeLine(line, s.taxRate); err != nil {
		return Line{}, err
	}
	return line, nil
}
