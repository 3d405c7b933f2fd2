package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/internal/orders"
	"github.com/tillworks/tillpoint-backend/pkg/db/models"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/money"
	"github.com/tillworks/tillpoint-backend/pkg/outbox"
	"github.com/tillworks/tillpoint-backend/pkg/square"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// orderCompleter finalizes a fully paid order inside the payment's
// transaction so the sale and the order flip commit together.
type orderCompleter interface {
	CompleteInTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor *outbox.ActorRef) error
}

// CardCharger captures a card payment with the processor. Optional; when nil
// card payments settle on the processor's out-of-band confirmation alone.
type CardCharger interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
}

type paymentMetrics interface {
	IncPayment(method string)
}

// Service records tenders against orders and keeps the paid/due/change
// amounts consistent after every mutation.
type Service interface {
	AddPayment(ctx context.Context, input AddPaymentInput) (*models.Order, error)
	SettlePayment(ctx context.Context, input SettlePaymentInput) (*models.Order, error)
	FailPayment(ctx context.Context, input FailPaymentInput) (*models.Order, error)
	RemovePayment(ctx context.Context, input RemovePaymentInput) (*models.Order, error)
}

type service struct {
	repo      Repository
	ordersTbl orders.Repository
	tx        txRunner
	completer orderCompleter
	charger   CardCharger
	metrics   paymentMetrics
	now       func() time.Time
}

// AddPaymentInput records one tender against an order.
type AddPaymentInput struct {
	OrderID        uuid.UUID
	Method         enums.PaymentMethod
	Amount         decimal.Decimal
	AmountTendered *decimal.Decimal
	Reference      *string
	CashierID      uuid.UUID
	TerminalID     uuid.UUID
}

// SettlePaymentInput confirms a pending tender, optionally capturing a card
// with the processor first.
type SettlePaymentInput struct {
	OrderID    uuid.UUID
	PaymentID  uuid.UUID
	SourceID   string
	LocationID string
	Reference  *string
	CashierID  uuid.UUID
	TerminalID uuid.UUID
}

// FailPaymentInput marks a pending tender as failed.
type FailPaymentInput struct {
	OrderID    uuid.UUID
	PaymentID  uuid.UUID
	CashierID  uuid.UUID
	TerminalID uuid.UUID
}

// RemovePaymentInput deletes a mis-keyed tender from an unpaid order.
type RemovePaymentInput struct {
	OrderID    uuid.UUID
	PaymentID  uuid.UUID
	CashierID  uuid.UUID
	TerminalID uuid.UUID
}

// NewService builds the payment ledger service. charger and metrics may be
// nil.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, completer orderCompleter, charger CardCharger, metrics paymentMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if completer == nil {
		return nil, fmt.Errorf("order completer required")
	}
	return &service{
		repo:      repo,
		ordersTbl: ordersRepo,
		tx:        tx,
		completer: completer,
		charger:   charger,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// AddPayment appends a tender to a pending order. Cash settles immediately
// with change computed from the tendered amount; every other method stays
// pending until it is settled or failed.
func (s *service) AddPayment(ctx context.Context, input AddPaymentInput) (*models.Order, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.Method))
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.loadPayable(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if input.Amount.GreaterThan(order.AmountDue) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment of %s exceeds the %s due", input.Amount, order.AmountDue))
		}

		payment := &models.Payment{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Method:    input.Method,
			Status:    enums.PaymentStatusPending,
			Amount:    money.Round2(input.Amount),
			Reference: input.Reference,
		}

		if input.Method == enums.PaymentMethodCash {
			tendered := payment.Amount
			if input.AmountTendered != nil {
				tendered = money.Round2(*input.AmountTendered)
			}
			if tendered.LessThan(payment.Amount) {
				return pkgerrors.New(pkgerrors.CodeValidation, "amount tendered is less than the payment amount")
			}
			now := s.now()
			payment.AmountTendered = &tendered
			payment.ChangeGiven = money.Max(tendered.Sub(payment.Amount), decimal.Zero)
			payment.Status = enums.PaymentStatusCompleted
			payment.CompletedAt = &now
		} else if input.AmountTendered != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount tendered only applies to cash payments")
		}

		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording payment")
		}
		order.Payments = append(order.Payments, *payment)

		if payment.Status == enums.PaymentStatusCompleted && s.metrics != nil {
			s.metrics.IncPayment(string(payment.Method))
		}
		return s.settleOrder(ctx, tx, order, input.CashierID, input.TerminalID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// SettlePayment completes a pending tender. For card methods with a source
// id the processor capture happens first; a declined capture leaves the
// ledger untouched.
func (s *service) SettlePayment(ctx context.Context, input SettlePaymentInput) (*models.Order, error) {
	var reference *string
	if input.Reference != nil {
		reference = input.Reference
	}

	// capture before opening the transaction so a slow processor call never
	// holds row locks
	if input.SourceID != "" {
		captured, err := s.captureCard(ctx, input)
		if err != nil {
			return nil, err
		}
		if captured != nil {
			reference = captured
		}
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.loadPayable(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		payment, err := findPayment(order, input.PaymentID)
		if err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment is %s and cannot be settled", payment.Status))
		}

		now := s.now()
		payment.Status = enums.PaymentStatusCompleted
		payment.CompletedAt = &now
		if reference != nil {
			payment.Reference = reference
		}
		if err := s.repo.WithTx(tx).Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling payment")
		}

		if s.metrics != nil {
			s.metrics.IncPayment(string(payment.Method))
		}
		return s.settleOrder(ctx, tx, order, input.CashierID, input.TerminalID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) FailPayment(ctx context.Context, input FailPaymentInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.loadPayable(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		payment, err := findPayment(order, input.PaymentID)
		if err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment is %s and cannot be failed", payment.Status))
		}

		payment.Status = enums.PaymentStatusFailed
		if err := s.repo.WithTx(tx).Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failing payment")
		}
		return s.settleOrder(ctx, tx, order, input.CashierID, input.TerminalID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RemovePayment deletes a tender from an order that has not completed, then
// recomputes the paid and due amounts.
func (s *service) RemovePayment(ctx context.Context, input RemovePaymentInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.loadPayable(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		payment, err := findPayment(order, input.PaymentID)
		if err != nil {
			return err
		}

		if err := s.repo.WithTx(tx).Delete(ctx, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing payment")
		}
		for i := range order.Payments {
			if order.Payments[i].ID == payment.ID {
				order.Payments = append(order.Payments[:i], order.Payments[i+1:]...)
				break
			}
		}
		return s.settleOrder(ctx, tx, order, input.CashierID, input.TerminalID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) captureCard(ctx context.Context, input SettlePaymentInput) (*string, error) {
	if s.charger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card processor is not configured")
	}

	order, err := s.ordersTbl.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, mapOrderLookup(err)
	}
	payment, err := findPayment(order, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if !payment.Method.IsCard() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s payments cannot be captured with the card processor", payment.Method))
	}

	captured, err := s.charger.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    payment.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		LocationID:     input.LocationID,
		SourceID:       input.SourceID,
		IdempotencyKey: payment.ID.String(),
		ReferenceID:    order.OrderNumber,
	})
	if err != nil {
		return nil, err
	}
	if captured != nil && captured.ID != nil {
		return captured.ID, nil
	}
	return nil, nil
}

// settleOrder recomputes the paid/due/change rollup and completes the order
// in the same transaction when nothing is left due.
func (s *service) settleOrder(ctx context.Context, tx *gorm.DB, order *models.Order, cashierID, terminalID uuid.UUID) error {
	applyPaymentTotals(order)
	if err := s.ordersTbl.WithTx(tx).Update(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order balance")
	}

	if order.AmountDue.IsZero() {
		actor := &outbox.ActorRef{CashierID: cashierID}
		if terminalID != uuid.Nil {
			actor.TerminalID = &terminalID
		}
		return s.completer.CompleteInTx(ctx, tx, order, actor)
	}
	return nil
}

func (s *service) loadPayable(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.ordersTbl.WithTx(tx).FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderLookup(err)
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order %s is %s and does not accept payment changes", order.OrderNumber, order.Status))
	}
	return order, nil
}

func mapOrderLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
}

func findPayment(order *models.Order, paymentID uuid.UUID) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	for i := range order.Payments {
		if order.Payments[i].ID == paymentID {
			return &order.Payments[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found on order")
}

// applyPaymentTotals rolls completed tenders up into the order. Pending and
// failed tenders never count toward the paid amount.
func applyPaymentTotals(order *models.Order) {
	paid := decimal.Zero
	change := decimal.Zero
	for _, p := range order.Payments {
		if p.Status == enums.PaymentStatusCompleted {
			paid = paid.Add(p.Amount)
			change = change.Add(p.ChangeGiven)
		}
	}
	order.AmountPaid = paid
	order.AmountDue = money.ClampFloor(order.Total.Sub(paid), decimal.Zero)
	order.ChangeGiven = change
}
