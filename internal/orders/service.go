package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/internal/cart"
	"github.com/tillworks/tillpoint-backend/pkg/db/models"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/money"
	"github.com/tillworks/tillpoint-backend/pkg/outbox"
	"github.com/tillworks/tillpoint-backend/pkg/outbox/payloads"
	"github.com/tillworks/tillpoint-backend/pkg/pagination"
	"github.com/tillworks/tillpoint-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// cartManager is the slice of the cart service the order factory needs.
type cartManager interface {
	Get(ctx context.Context, terminalID uuid.UUID) (*cart.Cart, error)
	Totals(ctx context.Context, terminalID uuid.UUID) (*cart.Totals, error)
	Replace(ctx context.Context, c *cart.Cart) error
	Clear(ctx context.Context, terminalID uuid.UUID) error
}

// sessionRecorder folds completed, refunded and voided orders into the
// owning drawer session's running aggregates inside the caller's
// transaction.
type sessionRecorder interface {
	RecordSaleInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	RecordRefundInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	RecordVoidInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

// terminalDirectory resolves the registered terminal whose prefix feeds the
// order number sequence.
type terminalDirectory interface {
	GetTerminal(ctx context.Context, id uuid.UUID) (*models.Terminal, error)
}

type engineMetrics interface {
	IncOrderCompleted(terminal string, total float64)
	IncOrderVoided(terminal string)
}

// Service drives the order lifecycle from cart finalization through the
// terminal states.
type Service interface {
	CreateFromCart(ctx context.Context, input CreateFromCartInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	HoldOrder(ctx context.Context, input HoldOrderInput) (*models.Order, error)
	ResumeHeldOrder(ctx context.Context, input ResumeHeldOrderInput) (*models.Order, error)
	VoidOrder(ctx context.Context, input VoidOrderInput) (*models.Order, error)
	RefundOrder(ctx context.Context, input RefundOrderInput) (*models.Order, error)
	CompleteInTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor *outbox.ActorRef) error
}

type service struct {
	repo         Repository
	tx           txRunner
	carts        cartManager
	outbox       outboxPublisher
	sessions     sessionRecorder
	terminals    terminalDirectory
	metrics      engineMetrics
	numberPrefix string
	now          func() time.Time
}

// CreateFromCartInput finalizes the terminal's active cart into an order.
type CreateFromCartInput struct {
	TerminalID uuid.UUID
	SessionID  uuid.UUID
	CashierID  uuid.UUID
	Notes      *string
}

// HoldOrderInput parks an unpaid order so the terminal can serve the next
// customer.
type HoldOrderInput struct {
	OrderID    uuid.UUID
	Reason     string
	CashierID  uuid.UUID
	TerminalID uuid.UUID
}

// ResumeHeldOrderInput loads a held order back into the terminal's cart.
type ResumeHeldOrderInput struct {
	OrderID    uuid.UUID
	CashierID  uuid.UUID
	TerminalID uuid.UUID
}

// VoidOrderInput cancels an order before it completes.
type VoidOrderInput struct {
	OrderID    uuid.UUID
	Reason     string
	CashierID  uuid.UUID
	TerminalID uuid.UUID
}

// RefundOrderInput reverses a completed order in full.
type RefundOrderInput struct {
	OrderID    uuid.UUID
	Reason     *string
	CashierID  uuid.UUID
	TerminalID uuid.UUID
}

// NewService builds the order lifecycle service.
func NewService(repo Repository, tx txRunner, carts cartManager, outboxSvc outboxPublisher, sessions sessionRecorder, terminals terminalDirectory, metrics engineMetrics, numberPrefix string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart manager required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session recorder required")
	}
	if terminals == nil {
		return nil, fmt.Errorf("terminal directory required")
	}
	if numberPrefix == "" {
		return nil, fmt.Errorf("order number prefix required")
	}
	return &service{
		repo:         repo,
		tx:           tx,
		carts:        carts,
		outbox:       outboxSvc,
		sessions:     sessions,
		terminals:    terminals,
		metrics:      metrics,
		numberPrefix: numberPrefix,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateFromCart freezes the cart's priced lines into an order and clears the
// cart. When the cart was rebuilt from a held order the same order row is
// finalized again instead of creating a new one.
func (s *service) CreateFromCart(ctx context.Context, input CreateFromCartInput) (*models.Order, error) {
	if input.TerminalID == uuid.Nil || input.SessionID == uuid.Nil || input.CashierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terminal, session and cashier ids are required")
	}

	c, err := s.carts.Get(ctx, input.TerminalID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	totals, err := s.carts.Totals(ctx, input.TerminalID)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var txErr error
		if c.SourceOrderID != nil {
			order, txErr = s.refinalize(ctx, repo, *c.SourceOrderID, c, totals, input)
		} else {
			order, txErr = s.createNew(ctx, repo, c, totals, input)
		}
		if txErr != nil {
			return txErr
		}

		// unique outbox index makes re-finalizing a resumed order safe
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CashierID: input.CashierID, TerminalID: &input.TerminalID},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				SessionID:   order.SessionID,
				TerminalID:  order.TerminalID,
				Total:       order.Total,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, input.TerminalID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order created but cart could not be cleared")
	}
	return order, nil
}

func (s *service) createNew(ctx context.Context, repo Repository, c *cart.Cart, totals *cart.Totals, input CreateFromCartInput) (*models.Order, error) {
	prefix, err := s.orderPrefix(ctx, input.TerminalID)
	if err != nil {
		return nil, err
	}
	number, err := repo.NextOrderNumber(ctx, prefix, currentYear(s.now()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assigning order number")
	}

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		SessionID:   input.SessionID,
		TerminalID:  input.TerminalID,
		Customer:    types.NormalizedCustomer(c.Customer.ID, c.Customer.Name),
		Status:      enums.OrderStatusPendingPayment,
		Notes:       input.Notes,
	}
	applyTotals(order, c, totals)
	order.AmountDue = order.Total
	order.Items = freezeItems(order.ID, c, totals)

	if err := repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
	}
	return order, nil
}

// refinalize reprices a resumed held order in place, keeping its id and
// order number so receipts and events stay stable.
func (s *service) refinalize(ctx context.Context, repo Repository, orderID uuid.UUID, c *cart.Cart, totals *cart.Totals, input CreateFromCartInput) (*models.Order, error) {
	order, err := s.load(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order %s is %s, only a resumed order can be finalized again", order.OrderNumber, order.Status))
	}

	order.Customer = types.NormalizedCustomer(c.Customer.ID, c.Customer.Name)
	order.Status = enums.OrderStatusPendingPayment
	order.HoldReason = nil
	if input.Notes != nil {
		order.Notes = input.Notes
	}
	applyTotals(order, c, totals)
	order.AmountDue = money.ClampFloor(order.Total.Sub(order.AmountPaid), decimal.Zero)

	items := freezeItems(order.ID, c, totals)
	if err := repo.ReplaceItems(ctx, order.ID, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing order items")
	}
	order.Items = items

	if err := repo.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order")
	}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.load(ctx, s.repo, id)
}

func (s *service) ListBySession(ctx context.Context, sessionID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	if sessionID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	orders, next, err := s.repo.ListBySession(ctx, sessionID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return orders, next, nil
}

// HoldOrder parks an unpaid order. Orders with recorded payments must be
// settled or voided instead.
func (s *service) HoldOrder(ctx context.Context, input HoldOrderInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPendingPayment && order.Status != enums.OrderStatusDraft {
			return stateError(order, "held")
		}
		if order.AmountPaid.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order %s has recorded payments and cannot be held", order.OrderNumber))
		}

		order.Status = enums.OrderStatusHeld
		if input.Reason != "" {
			reason := input.Reason
			order.HoldReason = &reason
		}
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "holding order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ResumeHeldOrder rebuilds the terminal's cart from the held order's frozen
// lines so the cashier can keep editing. The order moves to draft and keeps
// its id until the cart is finalized again.
func (s *service) ResumeHeldOrder(ctx context.Context, input ResumeHeldOrderInput) (*models.Order, error) {
	active, err := s.carts.Get(ctx, input.TerminalID)
	if err != nil {
		return nil, err
	}
	if !active.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "terminal already has an active cart")
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusHeld {
			return stateError(order, "resumed")
		}

		order.Status = enums.OrderStatusDraft
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resuming order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.Replace(ctx, thawCart(order, input.TerminalID)); err != nil {
		return nil, err
	}
	return order, nil
}

// VoidOrder cancels an order that has not completed. Completed orders are
// reversed through RefundOrder so the books stay consistent.
func (s *service) VoidOrder(ctx context.Context, input VoidOrderInput) (*models.Order, error) {
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "void reason is required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return stateError(order, "voided")
		}

		now := s.now()
		reason := input.Reason
		order.Status = enums.OrderStatusVoided
		order.VoidReason = &reason
		order.VoidedAt = &now
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "voiding order")
		}

		if err := s.sessions.RecordVoidInTx(ctx, tx, order); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderVoided,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CashierID: input.CashierID, TerminalID: &input.TerminalID},
			Data: payloads.OrderVoidedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				SessionID:   order.SessionID,
				Reason:      reason,
				VoidedAt:    now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncOrderVoided(order.TerminalID.String())
	}
	return order, nil
}

// RefundOrder reverses a completed order in full and records the cash leg
// against the owning session.
func (s *service) RefundOrder(ctx context.Context, input RefundOrderInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusCompleted {
			return stateError(order, "refunded")
		}

		now := s.now()
		order.Status = enums.OrderStatusRefunded
		order.RefundedAt = &now
		if input.Reason != nil {
			order.VoidReason = input.Reason
		}
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refunding order")
		}

		if err := s.sessions.RecordRefundInTx(ctx, tx, order); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CashierID: input.CashierID, TerminalID: &input.TerminalID},
			Data: payloads.OrderRefundedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				SessionID:      order.SessionID,
				AmountRefunded: order.AmountPaid,
				RefundedAt:     now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CompleteInTx marks a fully paid order completed inside the caller's
// transaction. Calling it twice for the same order is a no-op, so a retried
// settlement cannot double-count the sale.
func (s *service) CompleteInTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor *outbox.ActorRef) error {
	if order.Status == enums.OrderStatusCompleted {
		return nil
	}
	if order.Status.IsTerminal() {
		return stateError(order, "completed")
	}
	if order.AmountDue.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order %s still has %s due", order.OrderNumber, order.AmountDue))
	}

	now := s.now()
	order.Status = enums.OrderStatusCompleted
	order.CompletedAt = &now
	if err := s.repo.WithTx(tx).Update(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "completing order")
	}

	if err := s.sessions.RecordSaleInTx(ctx, tx, order); err != nil {
		return err
	}

	if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderCompletedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			SessionID:   order.SessionID,
			Total:       order.Total,
			AmountPaid:  order.AmountPaid,
			ChangeGiven: order.ChangeGiven,
			CompletedAt: now,
		},
	}); err != nil {
		return err
	}

	if s.metrics != nil {
		total, _ := order.Total.Float64()
		s.metrics.IncOrderCompleted(order.TerminalID.String(), total)
	}
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// orderPrefix prefers the terminal's configured prefix so receipts from
// different tills are distinguishable, falling back to the engine default.
func (s *service) orderPrefix(ctx context.Context, terminalID uuid.UUID) (string, error) {
	terminal, err := s.terminals.GetTerminal(ctx, terminalID)
	if err != nil {
		return "", err
	}
	if terminal.OrderPrefix != "" {
		return terminal.OrderPrefix, nil
	}
	return s.numberPrefix, nil
}

func stateError(order *models.Order, action string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order %s is %s and cannot be %s", order.OrderNumber, order.Status, action))
}

func applyTotals(order *models.Order, c *cart.Cart, totals *cart.Totals) {
	order.Discount = c.Discount
	order.Subtotal = totals.Subtotal
	order.DiscountAmount = totals.DiscountAmount
	order.TaxableAmount = totals.TaxableAmount
	order.ExemptAmount = totals.ExemptAmount
	order.TaxRate = totals.TaxRate
	order.TaxAmount = totals.TaxAmount
	order.Total = totals.Total
}

// freezeItems snapshots the priced cart lines; order items never reprice
// after this point.
func freezeItems(orderID uuid.UUID, c *cart.Cart, totals *cart.Totals) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(c.Lines))
	for i, line := range c.Lines {
		lt := totals.Lines[i]
		items = append(items, models.OrderItem{
			ID:                 uuid.New(),
			OrderID:            orderID,
			LineNumber:         line.LineNumber,
			ProductID:          line.ProductID,
			Name:               line.Name,
			Quantity:           line.Quantity,
			UnitPrice:          line.UnitPrice,
			UOM:                line.UOM,
			Discount:           line.Discount,
			TaxExempt:          line.TaxExempt,
			Notes:              line.Notes,
			LineSubtotal:       lt.LineSubtotal,
			DiscountAmount:     lt.DiscountAmount,
			LineTotalBeforeTax: lt.LineTotalBeforeTax,
			TaxRate:            lt.TaxRate,
			TaxAmount:          lt.TaxAmount,
			LineTotal:          lt.LineTotal,
		})
	}
	return items
}

// thawCart rebuilds an editable cart from a held order's frozen lines.
func thawCart(order *models.Order, terminalID uuid.UUID) *cart.Cart {
	sourceID := order.ID
	c := &cart.Cart{
		TerminalID:    terminalID,
		Customer:      order.Customer,
		Discount:      order.Discount,
		Notes:         order.Notes,
		SourceOrderID: &sourceID,
	}
	for _, item := range order.Items {
		c.Lines = append(c.Lines, cart.Line{
			LineNumber: item.LineNumber,
			ProductID:  item.ProductID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			UOM:        item.UOM,
			Discount:   item.Discount,
			TaxExempt:  item.TaxExempt,
			Notes:      item.Notes,
		})
	}
	return c
}
