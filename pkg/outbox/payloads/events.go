package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent signals a cart was finalized into a priced order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SessionID   uuid.UUID       `json:"session_id"`
	TerminalID  uuid.UUID       `json:"terminal_id"`
	Total       decimal.Decimal `json:"total"`
}

// OrderCompletedEvent is emitted once when payment settles an order in full.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SessionID   uuid.UUID       `json:"session_id"`
	Total       decimal.Decimal `json:"total"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	ChangeGiven decimal.Decimal `json:"change_given"`
	CompletedAt time.Time       `json:"completed_at"`
}

// OrderVoidedEvent is emitted when an unpaid order is canceled.
type OrderVoidedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	SessionID   uuid.UUID `json:"session_id"`
	Reason      string    `json:"reason,omitempty"`
	VoidedAt    time.Time `json:"voided_at"`
}

// OrderRefundedEvent is emitted when a completed order is reversed.
type OrderRefundedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	SessionID      uuid.UUID       `json:"session_id"`
	AmountRefunded decimal.Decimal `json:"amount_refunded"`
	RefundedAt     time.Time       `json:"refunded_at"`
}

// SessionClosedEvent carries the frozen totals of a closed drawer session.
type SessionClosedEvent struct {
	SessionID    uuid.UUID        `json:"session_id"`
	TerminalID   uuid.UUID        `json:"terminal_id"`
	CashierID    uuid.UUID        `json:"cashier_id"`
	NetSales     decimal.Decimal  `json:"net_sales"`
	ExpectedCash decimal.Decimal  `json:"expected_cash"`
	CountedCash  *decimal.Decimal `json:"counted_cash,omitempty"`
	CashVariance *decimal.Decimal `json:"cash_variance,omitempty"`
	ClosedAt     time.Time        `json:"closed_at"`
}

// ZReportGeneratedEvent announces a finalized end-of-day report.
type ZReportGeneratedEvent struct {
	ReportID    uuid.UUID `json:"report_id"`
	Number      string    `json:"number"`
	SessionID   uuid.UUID `json:"session_id"`
	TerminalID  uuid.UUID `json:"terminal_id"`
	GeneratedAt time.Time `json:"generated_at"`
}
