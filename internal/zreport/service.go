package zreport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillworks/tillpoint-backend/pkg/db"
	"github.com/tillworks/tillpoint-backend/pkg/db/models"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
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

// sessionLoader reads drawer sessions without pulling in the whole sessions
// service.
type sessionLoader interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.DrawerSession, error)
}

// Service produces the end-of-day Z-report for closed drawer sessions and
// on-demand previews for live ones.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*models.ZReport, error)
	Preview(ctx context.Context, sessionID uuid.UUID) (*models.ZReport, error)
	GetReport(ctx context.Context, id uuid.UUID) (*models.ZReport, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	sessions sessionLoader
	outbox   outboxPublisher
	now      func() time.Time
}

// GenerateInput requests the final report for a closed session.
type GenerateInput struct {
	SessionID uuid.UUID
	CashierID uuid.UUID
}

// NewService builds the Z-report service.
func NewService(repo Repository, tx txRunner, sessions sessionLoader, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("zreport repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session loader required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		sessions: sessions,
		outbox:   outboxSvc,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Generate builds and persists the Z-report for a closed session. Generating
// twice returns the stored report unchanged: the session's unique index
// guarantees one report per session even under a race.
func (s *service) Generate(ctx context.Context, input GenerateInput) (*models.ZReport, error) {
	session, err := s.sessions.GetSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != enums.SessionStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session must be closed before generating a z-report")
	}

	if existing, err := s.findExisting(ctx, session.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	var report *models.ZReport
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var txErr error
		report, txErr = s.build(ctx, repo, session)
		if txErr != nil {
			return txErr
		}

		day := report.GeneratedAt.Format("20060102")
		number, err := repo.NextReportNumber(ctx, day)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assigning report number")
		}
		report.Number = number

		if err := repo.Create(ctx, report); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventZReportGenerated,
			AggregateType: enums.AggregateZReport,
			AggregateID:   report.ID,
			Actor:         &outbox.ActorRef{CashierID: input.CashierID, TerminalID: &session.TerminalID},
			Data: payloads.ZReportGeneratedEvent{
				ReportID:    report.ID,
				Number:      report.Number,
				SessionID:   session.ID,
				TerminalID:  session.TerminalID,
				GeneratedAt: report.GeneratedAt,
			},
		})
	})
	if err != nil {
		// lost the race to another generator, the stored report wins
		if db.IsUniqueViolation(err, "ux_z_reports_session") {
			if existing, findErr := s.findExisting(ctx, session.ID); findErr == nil && existing != nil {
				return existing, nil
			}
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating z-report")
	}
	return report, nil
}

// Preview computes the report for a live session without persisting it. The
// preview carries no number and no generated identity.
func (s *service) Preview(ctx context.Context, sessionID uuid.UUID) (*models.ZReport, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	report, err := s.build(ctx, s.repo, session)
	if err != nil {
		return nil, err
	}
	report.ID = uuid.Nil
	return report, nil
}

func (s *service) GetReport(ctx context.Context, id uuid.UUID) (*models.ZReport, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "report id is required")
	}
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "z-report not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading z-report")
	}
	return report, nil
}

func (s *service) findExisting(ctx context.Context, sessionID uuid.UUID) (*models.ZReport, error) {
	report, err := s.repo.FindBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking for existing z-report")
	}
	return report, nil
}

// build assembles the report from the session's frozen aggregates plus an
// independent pass over the session's orders. The two views are reconciled
// and any disagreement is recorded on the report, never raised as an error.
func (s *service) build(ctx context.Context, repo Repository, session *models.DrawerSession) (*models.ZReport, error) {
	sessionOrders, err := repo.ListOrders(ctx, session.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing session orders")
	}

	voidCount := 0
	refundCount := 0
	completedCount := 0
	refunds := decimal.Zero
	taxable := decimal.Zero
	exempt := decimal.Zero
	completedTotal := decimal.Zero
	derived := types.PaymentBreakdown{}
	for _, order := range sessionOrders {
		switch order.Status {
		case enums.OrderStatusVoided:
			voidCount++
		case enums.OrderStatusRefunded:
			refundCount++
			refunds = refunds.Add(order.Total)
		case enums.OrderStatusCompleted:
			completedCount++
			completedTotal = completedTotal.Add(order.Total)
			taxable = taxable.Add(order.TaxableAmount)
			exempt = exempt.Add(order.ExemptAmount)
			for _, p := range order.Payments {
				if p.Status == enums.PaymentStatusCompleted {
					derived.Add(p.Method, p.Amount)
				}
			}
		}
	}
	// a refunded order already left the completed set, so its total and the
	// matching refund cancel out: net sales is what remains completed
	netSales := completedTotal

	// cash-specific figures come from the movement ledger, not the orders:
	// the ledger is the only record of payouts and safe drops.
	cashSales := decimal.Zero
	cashRefunds := decimal.Zero
	payouts := decimal.Zero
	drops := decimal.Zero
	for _, m := range session.Movements {
		switch m.Type {
		case enums.CashMovementSale:
			cashSales = cashSales.Add(m.Amount)
		case enums.CashMovementRefund:
			cashRefunds = cashRefunds.Add(m.Amount.Abs())
		case enums.CashMovementPayout:
			// payouts carry a signed amount; report them as cash out
			payouts = payouts.Sub(m.Amount)
		case enums.CashMovementDrop:
			drops = drops.Add(m.Amount.Abs())
		}
	}

	var notes []string
	sessionBreakdown := session.Breakdown
	if sessionBreakdown == nil {
		sessionBreakdown = types.PaymentBreakdown{}
	}
	if !derived.Equal(sessionBreakdown) {
		notes = append(notes, "payment breakdown derived from orders disagrees with the session's running totals")
	}
	if completedCount != session.OrderCount {
		notes = append(notes, fmt.Sprintf("session counted %d completed orders, orders table has %d", session.OrderCount, completedCount))
	}
	if !netSales.Equal(session.NetSales) {
		notes = append(notes, fmt.Sprintf("net sales derived from orders is %s, session carried %s", netSales, session.NetSales))
	}
	if !refunds.Equal(session.TotalRefunds) {
		notes = append(notes, fmt.Sprintf("refunds derived from orders is %s, session carried %s", refunds, session.TotalRefunds))
	}
	if voidCount != session.VoidCount {
		notes = append(notes, fmt.Sprintf("session counted %d voided orders, orders table has %d", session.VoidCount, voidCount))
	}
	if session.CashVariance != nil && !session.CashVariance.IsZero() {
		notes = append(notes, fmt.Sprintf("drawer closed %s off the expected cash", session.CashVariance))
	}

	now := s.now()
	closedAt := now
	if session.ClosedAt != nil {
		closedAt = *session.ClosedAt
	}

	report := &models.ZReport{
		ID:            uuid.New(),
		SessionID:     session.ID,
		TerminalID:    session.TerminalID,
		CashierID:     session.CashierID,
		GrossSales:    session.GrossSales,
		Discounts:     session.Discounts,
		TaxableAmount: taxable,
		ExemptAmount:  exempt,
		TaxCollected:  session.TaxCollected,
		Refunds:       refunds,
		NetSales:      netSales,
		OrderCount:    session.OrderCount,
		VoidCount:     voidCount,
		RefundCount:   refundCount,
		Breakdown:     derived,
		CashSales:     cashSales,
		CashRefunds:   cashRefunds,
		Payouts:       payouts,
		Drops:         drops,
		OpeningFloat:  session.OpeningFloat,
		ExpectedCash:  session.ExpectedCash,
		CountedCash:   session.CountedCash,
		CashVariance:  session.CashVariance,

		ReconciliationOK: len(notes) == 0,

		SessionOpenedAt: session.OpenedAt,
		SessionClosedAt: closedAt,
		GeneratedAt:     now,
	}
	if len(notes) > 0 {
		joined := strings.Join(notes, "; ")
		report.ReconciliationNotes = &joined
	}
	return report, nil
}
