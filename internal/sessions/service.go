package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/pkg/db/models"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/logger"
	"github.com/tillworks/tillpoint-backend/pkg/money"
	"github.com/tillworks/tillpoint-backend/pkg/outbox"
	"github.com/tillworks/tillpoint-backend/pkg/outbox/payloads"
	"github.com/tillworks/tillpoint-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type drawerMetrics interface {
	SetCashVariance(terminal string, variance float64)
}

// terminalDirectory resolves registered terminals so a session can only
// open on a till that exists and is active.
type terminalDirectory interface {
	GetTerminal(ctx context.Context, id uuid.UUID) (*models.Terminal, error)
}

// Service manages cashier drawer sessions: open, cash movements, suspend,
// resume and the reconciling close.
type Service interface {
	OpenSession(ctx context.Context, input OpenSessionInput) (*models.DrawerSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error)
	AddCashMovement(ctx context.Context, input MovementInput) (*models.DrawerSession, error)
	SuspendSession(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error)
	ResumeSession(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error)
	CloseSession(ctx context.Context, input CloseSessionInput) (*models.DrawerSession, error)

	RecordSaleInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	RecordRefundInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	RecordVoidInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	terminals terminalDirectory
	metrics   drawerMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// OpenSessionInput starts a shift on a terminal with a counted float.
type OpenSessionInput struct {
	TerminalID   uuid.UUID
	CashierID    uuid.UUID
	OpeningFloat decimal.Decimal
}

// MovementInput records a manual drawer movement. Payout and adjustment
// amounts carry their sign; drops are stored positive and subtracted.
type MovementInput struct {
	SessionID uuid.UUID
	Type      enums.CashMovementType
	Amount    decimal.Decimal
	Reason    *string
}

// CloseSessionInput finishes a shift with the physically counted drawer.
type CloseSessionInput struct {
	SessionID   uuid.UUID
	CountedCash decimal.Decimal
	CashierID   uuid.UUID
}

// NewService builds the drawer session service. metrics may be nil.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, terminals terminalDirectory, metrics drawerMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if terminals == nil {
		return nil, fmt.Errorf("terminal directory required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxSvc,
		terminals: terminals,
		metrics:   metrics,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// OpenSession starts a shift. A terminal can hold exactly one live session,
// so opening while another is open or suspended is a conflict.
func (s *service) OpenSession(ctx context.Context, input OpenSessionInput) (*models.DrawerSession, error) {
	if input.TerminalID == uuid.Nil || input.CashierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terminal and cashier ids are required")
	}
	if input.OpeningFloat.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening float must not be negative")
	}

	terminal, err := s.terminals.GetTerminal(ctx, input.TerminalID)
	if err != nil {
		return nil, err
	}
	if !terminal.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("terminal %s is deactivated", terminal.Code))
	}

	var session *models.DrawerSession
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindLiveByTerminal(ctx, input.TerminalID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking for live session")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("terminal already has a %s session", existing.Status))
		}

		now := s.now()
		openingFloat := money.Round2(input.OpeningFloat)
		session = &models.DrawerSession{
			ID:           uuid.New(),
			TerminalID:   input.TerminalID,
			CashierID:    input.CashierID,
			Status:       enums.SessionStatusOpen,
			OpeningFloat: openingFloat,
			ExpectedCash: openingFloat,
			Breakdown:    types.PaymentBreakdown{},
			OpenedAt:     now,
		}
		if err := repo.Create(ctx, session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "opening session")
		}

		return repo.AddMovement(ctx, &models.CashMovement{
			ID:        uuid.New(),
			SessionID: session.ID,
			Type:      enums.CashMovementOpeningFloat,
			Amount:    openingFloat,
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithSessionID(ctx, session.ID.String()), map[string]any{
		"terminal_id":   input.TerminalID.String(),
		"opening_float": session.OpeningFloat.String(),
	})
	s.logg.Info(logCtx, "drawer session opened")
	return session, nil
}

func (s *service) GetSession(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error) {
	return s.load(ctx, s.repo, id)
}

// AddCashMovement records a manual drawer event and keeps expected cash in
// step. Lifecycle movements (opening float, closing count, sales, refunds)
// are recorded by the engine and rejected here.
func (s *service) AddCashMovement(ctx context.Context, input MovementInput) (*models.DrawerSession, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown movement type %q", input.Type))
	}
	if input.Type.IsSystemOnly() || input.Type == enums.CashMovementSale || input.Type == enums.CashMovementRefund {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s movements are recorded by the engine", input.Type))
	}
	if input.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement amount must not be zero")
	}
	if input.Type == enums.CashMovementDrop && input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "drop amount must be positive")
	}

	var session *models.DrawerSession
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		session, err = s.load(ctx, repo, input.SessionID)
		if err != nil {
			return err
		}
		if session.Status != enums.SessionStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("session is %s and does not accept movements", session.Status))
		}

		movement := &models.CashMovement{
			ID:        uuid.New(),
			SessionID: session.ID,
			Type:      input.Type,
			Amount:    money.Round2(input.Amount),
			Reason:    input.Reason,
		}
		if err := repo.AddMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording cash movement")
		}
		session.Movements = append(session.Movements, *movement)
		session.ExpectedCash = session.ExpectedCash.Add(movementDelta(*movement))
		if err := repo.Update(ctx, session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating expected cash")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) SuspendSession(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error) {
	return s.transition(ctx, id, enums.SessionStatusOpen, enums.SessionStatusSuspended)
}

func (s *service) ResumeSession(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error) {
	return s.transition(ctx, id, enums.SessionStatusSuspended, enums.SessionStatusOpen)
}

func (s *service) transition(ctx context.Context, id uuid.UUID, from, to enums.SessionStatus) (*models.DrawerSession, error) {
	var session *models.DrawerSession
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		session, err = s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if session.Status != from {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("session is %s, expected %s", session.Status, from))
		}

		session.Status = to
		now := s.now()
		if to == enums.SessionStatusSuspended {
			session.SuspendedAt = &now
		} else {
			session.SuspendedAt = nil
		}
		if err := repo.Update(ctx, session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating session status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// CloseSession freezes the shift and reconciles the drawer. A variance
// between the counted and expected cash is recorded and logged, never an
// error: the count is the truth and the mismatch is the finding.
func (s *service) CloseSession(ctx context.Context, input CloseSessionInput) (*models.DrawerSession, error) {
	if input.CountedCash.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counted cash must not be negative")
	}

	var session *models.DrawerSession
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		session, err = s.load(ctx, repo, input.SessionID)
		if err != nil {
			return err
		}
		if !session.Status.IsLive() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session is already closed")
		}

		now := s.now()
		counted := money.Round2(input.CountedCash)
		variance := counted.Sub(session.ExpectedCash)

		if err := repo.AddMovement(ctx, &models.CashMovement{
			ID:        uuid.New(),
			SessionID: session.ID,
			Type:      enums.CashMovementClosingCount,
			Amount:    counted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording closing count")
		}

		session.Status = enums.SessionStatusClosed
		session.CountedCash = &counted
		session.CashVariance = &variance
		session.ClosedAt = &now
		if err := repo.Update(ctx, session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "closing session")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSessionClosed,
			AggregateType: enums.AggregateDrawerSession,
			AggregateID:   session.ID,
			Actor:         &outbox.ActorRef{CashierID: input.CashierID, TerminalID: &session.TerminalID},
			Data: payloads.SessionClosedEvent{
				SessionID:    session.ID,
				TerminalID:   session.TerminalID,
				CashierID:    session.CashierID,
				NetSales:     session.NetSales,
				ExpectedCash: session.ExpectedCash,
				CountedCash:  session.CountedCash,
				CashVariance: session.CashVariance,
				ClosedAt:     now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		variance, _ := session.CashVariance.Float64()
		s.metrics.SetCashVariance(session.TerminalID.String(), variance)
	}
	if !session.CashVariance.IsZero() {
		logCtx := s.logg.WithFields(s.logg.WithSessionID(ctx, session.ID.String()), map[string]any{
			"expected_cash": session.ExpectedCash.String(),
			"counted_cash":  session.CountedCash.String(),
			"variance":      session.CashVariance.String(),
		})
		s.logg.Warn(logCtx, "drawer closed with cash variance")
	}
	return session, nil
}

// RecordSaleInTx folds a completed order into the owning session. Safe to
// retry: an order already in the session's order list is a no-op.
func (s *service) RecordSaleInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.repo.WithTx(tx)
	session, err := s.load(ctx, repo, order.SessionID)
	if err != nil {
		return err
	}
	if !session.Status.IsLive() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "session is closed and cannot take sales")
	}
	if session.OrderIDs.Contains(order.ID) {
		return nil
	}

	session.OrderIDs = append(session.OrderIDs, order.ID)
	session.GrossSales = session.GrossSales.Add(order.Subtotal)
	session.Discounts = session.Discounts.Add(order.DiscountAmount)
	session.TaxCollected = session.TaxCollected.Add(order.TaxAmount)
	session.NetSales = session.NetSales.Add(order.Total)
	session.OrderCount++

	if session.Breakdown == nil {
		session.Breakdown = types.PaymentBreakdown{}
	}
	cash := decimal.Zero
	for _, p := range order.Payments {
		if p.Status != enums.PaymentStatusCompleted {
			continue
		}
		session.Breakdown.Add(p.Method, p.Amount)
		if p.Method == enums.PaymentMethodCash {
			cash = cash.Add(p.Amount)
		}
	}

	if cash.IsPositive() {
		if err := repo.AddMovement(ctx, &models.CashMovement{
			ID:        uuid.New(),
			SessionID: session.ID,
			Type:      enums.CashMovementSale,
			Amount:    cash,
			OrderID:   &order.ID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording sale movement")
		}
		session.ExpectedCash = session.ExpectedCash.Add(cash)
	}

	if err := repo.Update(ctx, session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating session totals")
	}
	return nil
}

// RecordRefundInTx reverses a refunded order against its session: the full
// amount joins the refund total and comes off net sales, and the cash leg
// moves drawer money out.
func (s *service) RecordRefundInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.repo.WithTx(tx)
	session, err := s.load(ctx, repo, order.SessionID)
	if err != nil {
		return err
	}
	if !session.Status.IsLive() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "session is closed and cannot take refunds")
	}

	session.TotalRefunds = session.TotalRefunds.Add(order.Total)
	session.NetSales = session.NetSales.Sub(order.Total)

	cash := decimal.Zero
	for _, p := range order.Payments {
		if p.Status == enums.PaymentStatusCompleted && p.Method == enums.PaymentMethodCash {
			cash = cash.Add(p.Amount)
		}
	}
	if cash.IsPositive() {
		if err := repo.AddMovement(ctx, &models.CashMovement{
			ID:        uuid.New(),
			SessionID: session.ID,
			Type:      enums.CashMovementRefund,
			Amount:    cash,
			OrderID:   &order.ID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording refund movement")
		}
		session.ExpectedCash = session.ExpectedCash.Sub(cash)
	}

	if err := repo.Update(ctx, session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating refund totals")
	}
	return nil
}

// RecordVoidInTx counts a voided order on its session. Voids move no money;
// the count feeds the end-of-day report.
func (s *service) RecordVoidInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.repo.WithTx(tx)
	session, err := s.load(ctx, repo, order.SessionID)
	if err != nil {
		return err
	}
	if !session.Status.IsLive() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "session is closed and cannot take voids")
	}

	session.VoidCount++
	if err := repo.Update(ctx, session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating void count")
	}
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.DrawerSession, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	session, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading session")
	}
	return session, nil
}

// movementDelta is the movement's contribution to expected cash. Sales,
// payouts and adjustments carry their sign; refunds and drops always take
// cash out; the closing count is informational.
func movementDelta(m models.CashMovement) decimal.Decimal {
	switch m.Type {
	case enums.CashMovementOpeningFloat, enums.CashMovementSale, enums.CashMovementPayout, enums.CashMovementAdjustment:
		return m.Amount
	case enums.CashMovementRefund, enums.CashMovementDrop:
		return m.Amount.Abs().Neg()
	default:
		return decimal.Zero
	}
}

// ExpectedCashFromMovements derives expected cash from the full movement
// history. It must always agree with the incrementally maintained value.
func ExpectedCashFromMovements(movements []models.CashMovement) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movements {
		total = total.Add(movementDelta(m))
	}
	return total
}
