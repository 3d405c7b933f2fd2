package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/internal/orders"
	"github.com/tillworks/tillpoint-backend/pkg/db/models"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/outbox"
	"github.com/tillworks/tillpoint-backend/pkg/pagination"
	"github.com/tillworks/tillpoint-backend/pkg/square"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubPaymentsRepo struct {
	created []uuid.UUID
	deleted []uuid.UUID
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPaymentsRepo) Create(ctx context.Context, payment *models.Payment) error {
	s.created = append(s.created, payment.ID)
	return nil
}

func (s *stubPaymentsRepo) Update(ctx context.Context, payment *models.Payment) error {
	return nil
}

func (s *stubPaymentsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrdersRepo) Update(ctx context.Context, order *models.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrdersRepo) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	return nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	return nil, "", nil
}

func (s *stubOrdersRepo) NextOrderNumber(ctx context.Context, prefix string, year int) (string, error) {
	return "POS-2026-000001", nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCompleter struct {
	calls int
}

func (s *stubCompleter) CompleteInTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor *outbox.ActorRef) error {
	if order.Status == enums.OrderStatusCompleted {
		return nil
	}
	s.calls++
	now := time.Now().UTC()
	order.Status = enums.OrderStatusCompleted
	order.CompletedAt = &now
	return nil
}

type stubCharger struct {
	captured []square.PaymentCreateParams
	result   *sq.Payment
	err      error
}

func (s *stubCharger) CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error) {
	s.captured = append(s.captured, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type paymentsHarness struct {
	svc       Service
	ordersTbl *stubOrdersRepo
	repo      *stubPaymentsRepo
	completer *stubCompleter
	charger   *stubCharger
}

func newPaymentsHarness(t *testing.T) *paymentsHarness {
	t.Helper()

	ordersTbl := &stubOrdersRepo{orders: make(map[uuid.UUID]*models.Order)}
	repo := &stubPaymentsRepo{}
	completer := &stubCompleter{}
	charger := &stubCharger{}

	svc, err := NewService(repo, ordersTbl, stubTxRunner{}, completer, charger, nil)
	require.NoError(t, err)

	return &paymentsHarness{svc: svc, ordersTbl: ordersTbl, repo: repo, completer: completer, charger: charger}
}

func (h *paymentsHarness) seedOrder(total string) *models.Order {
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "POS-2026-000042",
		SessionID:   uuid.New(),
		TerminalID:  uuid.New(),
		Status:      enums.OrderStatusPendingPayment,
		Total:       dec(total),
		AmountDue:   dec(total),
	}
	h.ordersTbl.orders[order.ID] = order
	return order
}

func TestAddCashPaymentSettlesWithChange(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	order := h.seedOrder("1150")

	tendered := dec("1200")
	updated, err := h.svc.AddPayment(ctx, AddPaymentInput{
		OrderID:        order.ID,
		Method:         enums.PaymentMethodCash,
		Amount:         dec("1150"),
		AmountTendered: &tendered,
		CashierID:      uuid.New(),
		TerminalID:     order.TerminalID,
	})
	require.NoError(t, err)

	require.Len(t, updated.Payments, 1)
	payment := updated.Payments[0]
	assert.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	assert.True(t, payment.ChangeGiven.Equal(dec("50")), "change %s", payment.ChangeGiven)

	assert.True(t, updated.AmountPaid.Equal(dec("1150")))
	assert.True(t, updated.AmountDue.IsZero())
	assert.True(t, updated.ChangeGiven.Equal(dec("50")))
	assert.Equal(t, enums.OrderStatusCompleted, updated.Status)
	assert.Equal(t, 1, h.completer.calls)
}

func TestAddCashPaymentRejectsShortTender(t *testing.T) {
	h := newPaymentsHarness(t)
	order := h.seedOrder("1150")

	tendered := dec("1000")
	_, err := h.svc.AddPayment(context.Background(), AddPaymentInput{
		OrderID:        order.ID,
		Method:         enums.PaymentMethodCash,
		Amount:         dec("1150"),
		AmountTendered: &tendered,
		CashierID:      uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAddPaymentRejectsOverpayment(t *testing.T) {
	h := newPaymentsHarness(t)
	order := h.seedOrder("1000")

	_, err := h.svc.AddPayment(context.Background(), AddPaymentInput{
		OrderID:   order.ID,
		Method:    enums.PaymentMethodCash,
		Amount:    dec("1200"),
		CashierID: uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Empty(t, order.Payments, "rejected payment must not be recorded")
}

func TestSplitTenderSettlesWhenLastPaymentCompletes(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	order := h.seedOrder("1150")
	cashierID := uuid.New()

	updated, err := h.svc.AddPayment(ctx, AddPaymentInput{
		OrderID:   order.ID,
		Method:    enums.PaymentMethodCash,
		Amount:    dec("500"),
		CashierID: cashierID,
	})
	require.NoError(t, err)
	assert.True(t, updated.AmountDue.Equal(dec("650")))
	assert.Equal(t, enums.OrderStatusPendingPayment, updated.Status)

	updated, err = h.svc.AddPayment(ctx, AddPaymentInput{
		OrderID:   order.ID,
		Method:    enums.PaymentMethodDebitCard,
		Amount:    dec("650"),
		CashierID: cashierID,
	})
	require.NoError(t, err)
	// card tender stays pending, so the order is still open
	assert.True(t, updated.AmountDue.Equal(dec("650")))
	assert.Equal(t, enums.OrderStatusPendingPayment, updated.Status)

	cardPayment := updated.Payments[1]
	updated, err = h.svc.SettlePayment(ctx, SettlePaymentInput{
		OrderID:   order.ID,
		PaymentID: cardPayment.ID,
		CashierID: cashierID,
	})
	require.NoError(t, err)
	assert.True(t, updated.AmountDue.IsZero())
	assert.Equal(t, enums.OrderStatusCompleted, updated.Status)
	assert.Equal(t, 1, h.completer.calls)
}

func TestSettleCardPaymentCapturesWithProcessor(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	order := h.seedOrder("650")
	cashierID := uuid.New()

	ref := "sq-payment-123"
	h.charger.result = &sq.Payment{ID: &ref}

	updated, err := h.svc.AddPayment(ctx, AddPaymentInput{
		OrderID:   order.ID,
		Method:    enums.PaymentMethodCreditCard,
		Amount:    dec("650"),
		CashierID: cashierID,
	})
	require.NoError(t, err)

	updated, err = h.svc.SettlePayment(ctx, SettlePaymentInput{
		OrderID:    order.ID,
		PaymentID:  updated.Payments[0].ID,
		SourceID:   "cnon:card-nonce",
		LocationID: "L123",
		CashierID:  cashierID,
	})
	require.NoError(t, err)

	require.Len(t, h.charger.captured, 1)
	assert.Equal(t, int64(65000), h.charger.captured[0].AmountCents)
	assert.Equal(t, "POS-2026-000042", h.charger.captured[0].ReferenceID)

	require.NotNil(t, updated.Payments[0].Reference)
	assert.Equal(t, ref, *updated.Payments[0].Reference)
	assert.Equal(t, enums.OrderStatusCompleted, updated.Status)
}

func TestSettleRejectsNonPendingPayment(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	order := h.seedOrder("1150")

	updated, err := h.svc.AddPayment(ctx, AddPaymentInput{
		OrderID:   order.ID,
		Method:    enums.PaymentMethodCash,
		Amount:    dec("500"),
		CashierID: uuid.New(),
	})
	require.NoError(t, err)

	_, err = h.svc.SettlePayment(ctx, SettlePaymentInput{
		OrderID:   order.ID,
		PaymentID: updated.Payments[0].ID,
		CashierID: uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestFailPaymentLeavesBalanceUntouched(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	order := h.seedOrder("1150")
	cashierID := uuid.New()

	updated, err := h.svc.AddPayment(ctx, AddPaymentInput{
		OrderID:   order.ID,
		Method:    enums.PaymentMethodMobileWallet,
		Amount:    dec("1150"),
		CashierID: cashierID,
	})
	require.NoError(t, err)

	updated, err = h.svc.FailPayment(ctx, FailPaymentInput{
		OrderID:   order.ID,
		PaymentID: updated.Payments[0].ID,
		CashierID: cashierID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, updated.Payments[0].Status)
	assert.True(t, updated.AmountPaid.IsZero())
	assert.True(t, updated.AmountDue.Equal(dec("1150")))
	assert.Equal(t, enums.OrderStatusPendingPayment, updated.Status)
}

func TestRemovePaymentRecomputesBalance(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	order := h.seedOrder("1150")
	cashierID := uuid.New()

	updated, err := h.svc.AddPayment(ctx, AddPaymentInput{
		OrderID:   order.ID,
		Method:    enums.PaymentMethodCash,
		Amount:    dec("500"),
		CashierID: cashierID,
	})
	require.NoError(t, err)
	assert.True(t, updated.AmountPaid.Equal(dec("500")))

	paymentID := updated.Payments[0].ID
	updated, err = h.svc.RemovePayment(ctx, RemovePaymentInput{
		OrderID:   order.ID,
		PaymentID: paymentID,
		CashierID: cashierID,
	})
	require.NoError(t, err)
	assert.Empty(t, updated.Payments)
	assert.True(t, updated.AmountPaid.IsZero())
	assert.True(t, updated.AmountDue.Equal(dec("1150")))
	assert.Equal(t, []uuid.UUID{paymentID}, h.repo.deleted)
}

func TestPaymentsRejectedOnCompletedOrder(t *testing.T) {
	h := newPaymentsHarness(t)
	order := h.seedOrder("1150")
	order.Status = enums.OrderStatusCompleted

	_, err := h.svc.AddPayment(context.Background(), AddPaymentInput{
		OrderID:   order.ID,
		Method:    enums.PaymentMethodCash,
		Amount:    dec("100"),
		CashierID: uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}
