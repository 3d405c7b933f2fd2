package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/internal/cart"
	"github.com/tillworks/tillpoint-backend/pkg/db/models"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/outbox"
	"github.com/tillworks/tillpoint-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	orders  map[uuid.UUID]*models.Order
	counter int
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrdersRepo) Update(ctx context.Context, order *models.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrdersRepo) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	if order, ok := s.orders[orderID]; ok {
		order.Items = items
	}
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
	var out []models.Order
	for _, o := range s.orders {
		if o.SessionID == sessionID {
			out = append(out, *o)
		}
	}
	return out, "", nil
}

func (s *stubOrdersRepo) NextOrderNumber(ctx context.Context, prefix string, year int) (string, error) {
	s.counter++
	return fmt.Sprintf("%s%d-%06d", prefix, year, s.counter), nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range s.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) countByType(eventType enums.OutboxEventType) int {
	n := 0
	for _, e := range s.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

type stubSessionRecorder struct {
	sales   []uuid.UUID
	refunds []uuid.UUID
	voids   []uuid.UUID
}

func (s *stubSessionRecorder) RecordSaleInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	s.sales = append(s.sales, order.ID)
	return nil
}

func (s *stubSessionRecorder) RecordRefundInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	s.refunds = append(s.refunds, order.ID)
	return nil
}

func (s *stubSessionRecorder) RecordVoidInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	s.voids = append(s.voids, order.ID)
	return nil
}

// stubTerminals hands back an active terminal for any id; prefixes maps ids
// to a till-specific order prefix.
type stubTerminals struct {
	prefixes map[uuid.UUID]string
}

func (s *stubTerminals) GetTerminal(ctx context.Context, id uuid.UUID) (*models.Terminal, error) {
	return &models.Terminal{ID: id, Code: "TILL-1", Name: "Front counter", OrderPrefix: s.prefixes[id], Active: true}, nil
}

type ordersHarness struct {
	svc       Service
	carts     cart.Service
	repo      *stubOrdersRepo
	outbox    *stubOutbox
	recorder  *stubSessionRecorder
	terminals *stubTerminals
}

func newOrdersHarness(t *testing.T) *ordersHarness {
	t.Helper()

	carts, err := cart.NewService(cart.NewMemoryStore(), decimal.RequireFromString("0.15"))
	require.NoError(t, err)

	repo := newStubOrdersRepo()
	ob := &stubOutbox{}
	recorder := &stubSessionRecorder{}
	terminals := &stubTerminals{prefixes: make(map[uuid.UUID]string)}

	svc, err := NewService(repo, stubTxRunner{}, carts, ob, recorder, terminals, nil, "POS-")
	require.NoError(t, err)

	return &ordersHarness{svc: svc, carts: carts, repo: repo, outbox: ob, recorder: recorder, terminals: terminals}
}

func (h *ordersHarness) seedCart(t *testing.T, terminalID uuid.UUID) {
	t.Helper()
	_, err := h.carts.AddItem(context.Background(), terminalID, cart.LineInput{
		ProductID: uuid.New(),
		Name:      "Rice 1kg",
		Quantity:  decimal.RequireFromString("2"),
		UnitPrice: decimal.RequireFromString("500"),
	})
	require.NoError(t, err)
}

func TestCreateFromCartFreezesTotals(t *testing.T) {
	h := newOrdersHarness(t)
	ctx := context.Background()
	terminalID := uuid.New()
	h.seedCart(t, terminalID)

	order, err := h.svc.CreateFromCart(ctx, CreateFromCartInput{
		TerminalID: terminalID,
		SessionID:  uuid.New(),
		CashierID:  uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	assert.Regexp(t, `^POS-\d{4}-\d{6}$`, order.OrderNumber)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("1150")), "total %s", order.Total)
	assert.True(t, order.AmountDue.Equal(order.Total))
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].LineTotal.Equal(decimal.RequireFromString("1150")))

	c, err := h.carts.Get(ctx, terminalID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty(), "cart must be cleared after finalizing")

	assert.Equal(t, 1, h.outbox.countByType(enums.EventOrderCreated))
}

func TestCreateFromCartUsesTerminalOrderPrefix(t *testing.T) {
	h := newOrdersHarness(t)
	ctx := context.Background()
	terminalID := uuid.New()
	h.terminals.prefixes[terminalID] = "KIOSK-"
	h.seedCart(t, terminalID)

	order, err := h.svc.CreateFromCart(ctx, CreateFromCartInput{
		TerminalID: terminalID,
		SessionID:  uuid.New(),
		CashierID:  uuid.New(),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^KIOSK-\d{4}-\d{6}$`, order.OrderNumber)
}

func TestCreateFromCartRejectsEmptyCart(t *testing.T) {
	h := newOrdersHarness(t)

	_, err := h.svc.CreateFromCart(context.Background(), CreateFromCartInput{
		TerminalID: uuid.New(),
		SessionID:  uuid.New(),
		CashierID:  uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestHoldResumeAndRefinalizeKeepsOrderIdentity(t *testing.T) {
	h := newOrdersHarness(t)
	ctx := context.Background()
	terminalID := uuid.New()
	sessionID := uuid.New()
	cashierID := uuid.New()
	h.seedCart(t, terminalID)

	order, err := h.svc.CreateFromCart(ctx, CreateFromCartInput{TerminalID: terminalID, SessionID: sessionID, CashierID: cashierID})
	require.NoError(t, err)

	held, err := h.svc.HoldOrder(ctx, HoldOrderInput{OrderID: order.ID, Reason: "customer stepped away", CashierID: cashierID, TerminalID: terminalID})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusHeld, held.Status)
	require.NotNil(t, held.HoldReason)

	resumed, err := h.svc.ResumeHeldOrder(ctx, ResumeHeldOrderInput{OrderID: order.ID, CashierID: cashierID, TerminalID: terminalID})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDraft, resumed.Status)

	c, err := h.carts.Get(ctx, terminalID)
	require.NoError(t, err)
	require.NotNil(t, c.SourceOrderID)
	assert.Equal(t, order.ID, *c.SourceOrderID)
	require.Len(t, c.Lines, 1)

	refinalized, err := h.svc.CreateFromCart(ctx, CreateFromCartInput{TerminalID: terminalID, SessionID: sessionID, CashierID: cashierID})
	require.NoError(t, err)
	assert.Equal(t, order.ID, refinalized.ID)
	assert.Equal(t, order.OrderNumber, refinalized.OrderNumber)
	assert.Equal(t, enums.OrderStatusPendingPayment, refinalized.Status)
	assert.Nil(t, refinalized.HoldReason)

	// order.created must not be duplicated when the same order is finalized twice
	assert.Equal(t, 1, h.outbox.countByType(enums.EventOrderCreated))
}

func TestResumeRejectsWhenTerminalHasActiveCart(t *testing.T) {
	h := newOrdersHarness(t)
	ctx := context.Background()
	terminalID := uuid.New()
	cashierID := uuid.New()
	h.seedCart(t, terminalID)

	order, err := h.svc.CreateFromCart(ctx, CreateFromCartInput{TerminalID: terminalID, SessionID: uuid.New(), CashierID: cashierID})
	require.NoError(t, err)
	_, err = h.svc.HoldOrder(ctx, HoldOrderInput{OrderID: order.ID, CashierID: cashierID, TerminalID: terminalID})
	require.NoError(t, err)

	h.seedCart(t, terminalID)

	_, err = h.svc.ResumeHeldOrder(ctx, ResumeHeldOrderInput{OrderID: order.ID, CashierID: cashierID, TerminalID: terminalID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestHoldRejectsPaidOrder(t *testing.T) {
	h := newOrdersHarness(t)
	ctx := context.Background()

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "POS-2026-000009",
		Status:      enums.OrderStatusPendingPayment,
		AmountPaid:  decimal.RequireFromString("500"),
	}
	require.NoError(t, h.repo.Create(ctx, order))

	_, err := h.svc.HoldOrder(ctx, HoldOrderInput{OrderID: order.ID, CashierID: uuid.New(), TerminalID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestVoidOrder(t *testing.T) {
	h := newOrdersHarness(t)
	ctx := context.Background()
	terminalID := uuid.New()
	cashierID := uuid.New()
	h.seedCart(t, terminalID)

	order, err := h.svc.CreateFromCart(ctx, CreateFromCartInput{TerminalID: terminalID, SessionID: uuid.New(), CashierID: cashierID})
	require.NoError(t, err)

	_, err = h.svc.VoidOrder(ctx, VoidOrderInput{OrderID: order.ID, CashierID: cashierID, TerminalID: terminalID})
	require.Error(t, err, "void without a reason must be rejected")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	voided, err := h.svc.VoidOrder(ctx, VoidOrderInput{OrderID: order.ID, Reason: "wrong items", CashierID: cashierID, TerminalID: terminalID})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusVoided, voided.Status)
	require.NotNil(t, voided.VoidedAt)
	assert.Equal(t, []uuid.UUID{order.ID}, h.recorder.voids, "void must be counted on the session")
	assert.Equal(t, 1, h.outbox.countByType(enums.EventOrderVoided))

	// terminal states reject further transitions
	_, err = h.svc.VoidOrder(ctx, VoidOrderInput{OrderID: order.ID, Reason: "again", CashierID: cashierID, TerminalID: terminalID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestRefundRequiresCompletedOrder(t *testing.T) {
	h := newOrdersHarness(t)
	ctx := context.Background()
	terminalID := uuid.New()
	cashierID := uuid.New()
	h.seedCart(t, terminalID)

	order, err := h.svc.CreateFromCart(ctx, CreateFromCartInput{TerminalID: terminalID, SessionID: uuid.New(), CashierID: cashierID})
	require.NoError(t, err)

	_, err = h.svc.RefundOrder(ctx, RefundOrderInput{OrderID: order.ID, CashierID: cashierID, TerminalID: terminalID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestRefundCompletedOrderRecordsSessionLeg(t *testing.T) {
	h := newOrdersHarness(t)
	ctx := context.Background()
	cashierID := uuid.New()
	terminalID := uuid.New()

	total := decimal.RequireFromString("1150")
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "POS-2026-000010",
		SessionID:   uuid.New(),
		TerminalID:  terminalID,
		Status:      enums.OrderStatusCompleted,
		Total:       total,
		AmountPaid:  total,
	}
	require.NoError(t, h.repo.Create(ctx, order))

	refunded, err := h.svc.RefundOrder(ctx, RefundOrderInput{OrderID: order.ID, CashierID: cashierID, TerminalID: terminalID})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundedAt)
	assert.Equal(t, []uuid.UUID{order.ID}, h.recorder.refunds)
	assert.Equal(t, 1, h.outbox.countByType(enums.EventOrderRefunded))
}

func TestCompleteInTxIsIdempotent(t *testing.T) {
	h := newOrdersHarness(t)
	ctx := context.Background()

	total := decimal.RequireFromString("1150")
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "POS-2026-000011",
		SessionID:   uuid.New(),
		TerminalID:  uuid.New(),
		Status:      enums.OrderStatusPendingPayment,
		Total:       total,
		AmountPaid:  total,
		AmountDue:   decimal.Zero,
	}
	require.NoError(t, h.repo.Create(ctx, order))

	actor := &outbox.ActorRef{CashierID: uuid.New()}
	require.NoError(t, h.svc.CompleteInTx(ctx, nil, order, actor))
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	require.NotNil(t, order.CompletedAt)

	require.NoError(t, h.svc.CompleteInTx(ctx, nil, order, actor))

	assert.Equal(t, []uuid.UUID{order.ID}, h.recorder.sales, "sale must be recorded exactly once")
	assert.Equal(t, 1, h.outbox.countByType(enums.EventOrderCompleted))
}

func TestCompleteInTxRejectsOutstandingBalance(t *testing.T) {
	h := newOrdersHarness(t)
	ctx := context.Background()

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "POS-2026-000012",
		Status:      enums.OrderStatusPendingPayment,
		Total:       decimal.RequireFromString("1150"),
		AmountPaid:  decimal.RequireFromString("1000"),
		AmountDue:   decimal.RequireFromString("150"),
	}
	require.NoError(t, h.repo.Create(ctx, order))

	err := h.svc.CompleteInTx(ctx, nil, order, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}
