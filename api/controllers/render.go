package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/internal/cart"
	"github.com/tillworks/tillpoint-backend/pkg/db/models"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	"github.com/tillworks/tillpoint-backend/pkg/types"
)

type discountPayload struct {
	Type  string          `json:"type" validate:"required,oneof=percent amount"`
	Value decimal.Decimal `json:"value" validate:"required"`
}

func (p *discountPayload) toDiscount() *types.Discount {
	if p == nil {
		return nil
	}
	return &types.Discount{Type: enums.DiscountType(p.Type), Value: p.Value}
}

func renderDiscount(d *types.Discount) *discountPayload {
	if d == nil {
		return nil
	}
	return &discountPayload{Type: string(d.Type), Value: d.Value}
}

type customerPayload struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Name string     `json:"name"`
}

type cartLineResponse struct {
	LineNumber int              `json:"line_number"`
	ProductID  uuid.UUID        `json:"product_id"`
	Name       string           `json:"name"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	UOM        string           `json:"uom"`
	Discount   *discountPayload `json:"discount,omitempty"`
	TaxExempt  bool             `json:"tax_exempt"`
	Notes      *string          `json:"notes,omitempty"`
}

type cartResponse struct {
	TerminalID    uuid.UUID          `json:"terminal_id"`
	Customer      customerPayload    `json:"customer"`
	Discount      *discountPayload   `json:"discount,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	Lines         []cartLineResponse `json:"lines"`
	SourceOrderID *uuid.UUID         `json:"source_order_id,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func renderCart(c *cart.Cart) cartResponse {
	resp := cartResponse{
		TerminalID:    c.TerminalID,
		Customer:      customerPayload{ID: c.Customer.ID, Name: c.Customer.Name},
		Discount:      renderDiscount(c.Discount),
		Notes:         c.Notes,
		Lines:         make([]cartLineResponse, 0, len(c.Lines)),
		SourceOrderID: c.SourceOrderID,
		UpdatedAt:     c.UpdatedAt,
	}
	for _, line := range c.Lines {
		resp.Lines = append(resp.Lines, cartLineResponse{
			LineNumber: line.LineNumber,
			ProductID:  line.ProductID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			UOM:        line.UOM,
			Discount:   renderDiscount(line.Discount),
			TaxExempt:  line.TaxExempt,
			Notes:      line.Notes,
		})
	}
	return resp
}

type lineTotalsResponse struct {
	LineNumber         int             `json:"line_number"`
	LineSubtotal       decimal.Decimal `json:"line_subtotal"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	LineTotalBeforeTax decimal.Decimal `json:"line_total_before_tax"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	LineTotal          decimal.Decimal `json:"line_total"`
}

type totalsResponse struct {
	Subtotal       decimal.Decimal      `json:"subtotal"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	TaxableAmount  decimal.Decimal      `json:"taxable_amount"`
	ExemptAmount   decimal.Decimal      `json:"exempt_amount"`
	TaxRate        decimal.Decimal      `json:"tax_rate"`
	TaxAmount      decimal.Decimal      `json:"tax_amount"`
	Total          decimal.Decimal      `json:"total"`
	Lines          []lineTotalsResponse `json:"lines"`
}

func renderTotals(t *cart.Totals) totalsResponse {
	resp := totalsResponse{
		Subtotal:       t.Subtotal,
		DiscountAmount: t.DiscountAmount,
		TaxableAmount:  t.TaxableAmount,
		ExemptAmount:   t.ExemptAmount,
		TaxRate:        t.TaxRate,
		TaxAmount:      t.TaxAmount,
		Total:          t.Total,
		Lines:          make([]lineTotalsResponse, 0, len(t.Lines)),
	}
	for _, lt := range t.Lines {
		resp.Lines = append(resp.Lines, lineTotalsResponse{
			LineNumber:         lt.LineNumber,
			LineSubtotal:       lt.LineSubtotal,
			DiscountAmount:     lt.DiscountAmount,
			LineTotalBeforeTax: lt.LineTotalBeforeTax,
			TaxRate:            lt.TaxRate,
			TaxAmount:          lt.TaxAmount,
			LineTotal:          lt.LineTotal,
		})
	}
	return resp
}

type orderItemResponse struct {
	LineNumber         int              `json:"line_number"`
	ProductID          uuid.UUID        `json:"product_id"`
	Name               string           `json:"name"`
	Quantity           decimal.Decimal  `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	UOM                string           `json:"uom"`
	Discount           *discountPayload `json:"discount,omitempty"`
	TaxExempt          bool             `json:"tax_exempt"`
	LineSubtotal       decimal.Decimal  `json:"line_subtotal"`
	DiscountAmount     decimal.Decimal  `json:"discount_amount"`
	LineTotalBeforeTax decimal.Decimal  `json:"line_total_before_tax"`
	TaxAmount          decimal.Decimal  `json:"tax_amount"`
	LineTotal          decimal.Decimal  `json:"line_total"`
}

type paymentResponse struct {
	ID             uuid.UUID        `json:"id"`
	Method         string           `json:"method"`
	Status         string           `json:"status"`
	Amount         decimal.Decimal  `json:"amount"`
	AmountTendered *decimal.Decimal `json:"amount_tendered,omitempty"`
	ChangeGiven    decimal.Decimal  `json:"change_given"`
	Reference      *string          `json:"reference,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrderNumber    string              `json:"order_number"`
	SessionID      uuid.UUID           `json:"session_id"`
	TerminalID     uuid.UUID           `json:"terminal_id"`
	Customer       customerPayload     `json:"customer"`
	Status         string              `json:"status"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	Discount       *discountPayload    `json:"discount,omitempty"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	TaxableAmount  decimal.Decimal     `json:"taxable_amount"`
	ExemptAmount   decimal.Decimal     `json:"exempt_amount"`
	TaxRate        decimal.Decimal     `json:"tax_rate"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	Total          decimal.Decimal     `json:"total"`
	AmountPaid     decimal.Decimal     `json:"amount_paid"`
	AmountDue      decimal.Decimal     `json:"amount_due"`
	ChangeGiven    decimal.Decimal     `json:"change_given"`
	Notes          *string             `json:"notes,omitempty"`
	HoldReason     *string             `json:"hold_reason,omitempty"`
	VoidReason     *string             `json:"void_reason,omitempty"`
	Items          []orderItemResponse `json:"items"`
	Payments       []paymentResponse   `json:"payments"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	VoidedAt       *time.Time          `json:"voided_at,omitempty"`
	RefundedAt     *time.Time          `json:"refunded_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

func renderOrder(o *models.Order) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		SessionID:      o.SessionID,
		TerminalID:     o.TerminalID,
		Customer:       customerPayload{ID: o.Customer.ID, Name: o.Customer.Name},
		Status:         string(o.Status),
		Subtotal:       o.Subtotal,
		Discount:       renderDiscount(o.Discount),
		DiscountAmount: o.DiscountAmount,
		TaxableAmount:  o.TaxableAmount,
		ExemptAmount:   o.ExemptAmount,
		TaxRate:        o.TaxRate,
		TaxAmount:      o.TaxAmount,
		Total:          o.Total,
		AmountPaid:     o.AmountPaid,
		AmountDue:      o.AmountDue,
		ChangeGiven:    o.ChangeGiven,
		Notes:          o.Notes,
		HoldReason:     o.HoldReason,
		VoidReason:     o.VoidReason,
		Items:          make([]orderItemResponse, 0, len(o.Items)),
		Payments:       make([]paymentResponse, 0, len(o.Payments)),
		CompletedAt:    o.CompletedAt,
		VoidedAt:       o.VoidedAt,
		RefundedAt:     o.RefundedAt,
		CreatedAt:      o.CreatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			LineNumber:         item.LineNumber,
			ProductID:          item.ProductID,
			Name:               item.Name,
			Quantity:           item.Quantity,
			UnitPrice:          item.UnitPrice,
			UOM:                item.UOM,
			Discount:           renderDiscount(item.Discount),
			TaxExempt:          item.TaxExempt,
			LineSubtotal:       item.LineSubtotal,
			DiscountAmount:     item.DiscountAmount,
			LineTotalBeforeTax: item.LineTotalBeforeTax,
			TaxAmount:          item.TaxAmount,
			LineTotal:          item.LineTotal,
		})
	}
	for _, p := range o.Payments {
		resp.Payments = append(resp.Payments, renderPayment(p))
	}
	return resp
}

func renderPayment(p models.Payment) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		Method:         string(p.Method),
		Status:         string(p.Status),
		Amount:         p.Amount,
		AmountTendered: p.AmountTendered,
		ChangeGiven:    p.ChangeGiven,
		Reference:      p.Reference,
		CompletedAt:    p.CompletedAt,
		CreatedAt:      p.CreatedAt,
	}
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type movementResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    *string         `json:"reason,omitempty"`
	OrderID   *uuid.UUID      `json:"order_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type breakdownEntry struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

func renderBreakdown(b types.PaymentBreakdown) []breakdownEntry {
	entries := make([]breakdownEntry, 0, len(b))
	for _, method := range enums.PaymentMethods() {
		if totals, ok := b[method]; ok {
			entries = append(entries, breakdownEntry{Method: string(method), Count: totals.Count, Total: totals.Total})
		}
	}
	return entries
}

type sessionResponse struct {
	ID           uuid.UUID          `json:"id"`
	TerminalID   uuid.UUID          `json:"terminal_id"`
	CashierID    uuid.UUID          `json:"cashier_id"`
	Status       string             `json:"status"`
	OpeningFloat decimal.Decimal    `json:"opening_float"`
	OrderIDs     []uuid.UUID        `json:"order_ids"`
	GrossSales   decimal.Decimal    `json:"gross_sales"`
	Discounts    decimal.Decimal    `json:"discounts"`
	TaxCollected decimal.Decimal    `json:"tax_collected"`
	TotalRefunds decimal.Decimal    `json:"total_refunds"`
	NetSales     decimal.Decimal    `json:"net_sales"`
	OrderCount   int                `json:"order_count"`
	VoidCount    int                `json:"void_count"`
	Breakdown    []breakdownEntry   `json:"breakdown"`
	ExpectedCash decimal.Decimal    `json:"expected_cash"`
	CountedCash  *decimal.Decimal   `json:"counted_cash,omitempty"`
	CashVariance *decimal.Decimal   `json:"cash_variance,omitempty"`
	Movements    []movementResponse `json:"movements,omitempty"`
	OpenedAt     time.Time          `json:"opened_at"`
	SuspendedAt  *time.Time         `json:"suspended_at,omitempty"`
	ClosedAt     *time.Time         `json:"closed_at,omitempty"`
}

func renderSession(s *models.DrawerSession) sessionResponse {
	resp := sessionResponse{
		ID:           s.ID,
		TerminalID:   s.TerminalID,
		CashierID:    s.CashierID,
		Status:       string(s.Status),
		OpeningFloat: s.OpeningFloat,
		OrderIDs:     []uuid.UUID(s.OrderIDs),
		GrossSales:   s.GrossSales,
		Discounts:    s.Discounts,
		TaxCollected: s.TaxCollected,
		TotalRefunds: s.TotalRefunds,
		NetSales:     s.NetSales,
		OrderCount:   s.OrderCount,
		VoidCount:    s.VoidCount,
		Breakdown:    renderBreakdown(s.Breakdown),
		ExpectedCash: s.ExpectedCash,
		CountedCash:  s.CountedCash,
		CashVariance: s.CashVariance,
		OpenedAt:     s.OpenedAt,
		SuspendedAt:  s.SuspendedAt,
		ClosedAt:     s.ClosedAt,
	}
	for _, m := range s.Movements {
		resp.Movements = append(resp.Movements, movementResponse{
			ID:        m.ID,
			Type:      string(m.Type),
			Amount:    m.Amount,
			Reason:    m.Reason,
			OrderID:   m.OrderID,
			CreatedAt: m.CreatedAt,
		})
	}
	return resp
}

type terminalResponse struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	OrderPrefix string    `json:"order_prefix"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func renderTerminal(t *models.Terminal) terminalResponse {
	return terminalResponse{
		ID:          t.ID,
		Code:        t.Code,
		Name:        t.Name,
		OrderPrefix: t.OrderPrefix,
		Active:      t.Active,
		CreatedAt:   t.CreatedAt,
	}
}

type zReportResponse struct {
	ID                  uuid.UUID        `json:"id,omitempty"`
	Number              string           `json:"number,omitempty"`
	SessionID           uuid.UUID        `json:"session_id"`
	TerminalID          uuid.UUID        `json:"terminal_id"`
	CashierID           uuid.UUID        `json:"cashier_id"`
	GrossSales          decimal.Decimal  `json:"gross_sales"`
	Discounts           decimal.Decimal  `json:"discounts"`
	TaxableAmount       decimal.Decimal  `json:"taxable_amount"`
	ExemptAmount        decimal.Decimal  `json:"exempt_amount"`
	TaxCollected        decimal.Decimal  `json:"tax_collected"`
	Refunds             decimal.Decimal  `json:"refunds"`
	NetSales            decimal.Decimal  `json:"net_sales"`
	OrderCount          int              `json:"order_count"`
	VoidCount           int              `json:"void_count"`
	RefundCount         int              `json:"refund_count"`
	Breakdown           []breakdownEntry `json:"breakdown"`
	CashSales           decimal.Decimal  `json:"cash_sales"`
	CashRefunds         decimal.Decimal  `json:"cash_refunds"`
	Payouts             decimal.Decimal  `json:"payouts"`
	Drops               decimal.Decimal  `json:"drops"`
	OpeningFloat        decimal.Decimal  `json:"opening_float"`
	ExpectedCash        decimal.Decimal  `json:"expected_cash"`
	CountedCash         *decimal.Decimal `json:"counted_cash,omitempty"`
	CashVariance        *decimal.Decimal `json:"cash_variance,omitempty"`
	ReconciliationOK    bool             `json:"reconciliation_ok"`
	ReconciliationNotes *string          `json:"reconciliation_notes,omitempty"`
	SessionOpenedAt     time.Time        `json:"session_opened_at"`
	SessionClosedAt     time.Time        `json:"session_closed_at"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

func renderZReport(r *models.ZReport) zReportResponse {
	return zReportResponse{
		ID:                  r.ID,
		Number:              r.Number,
		SessionID:           r.SessionID,
		TerminalID:          r.TerminalID,
		CashierID:           r.CashierID,
		GrossSales:          r.GrossSales,
		Discounts:           r.Discounts,
		TaxableAmount:       r.TaxableAmount,
		ExemptAmount:        r.ExemptAmount,
		TaxCollected:        r.TaxCollected,
		Refunds:             r.Refunds,
		NetSales:            r.NetSales,
		OrderCount:          r.OrderCount,
		VoidCount:           r.VoidCount,
		RefundCount:         r.RefundCount,
		Breakdown:           renderBreakdown(r.Breakdown),
		CashSales:           r.CashSales,
		CashRefunds:         r.CashRefunds,
		Payouts:             r.Payouts,
		Drops:               r.Drops,
		OpeningFloat:        r.OpeningFloat,
		ExpectedCash:        r.ExpectedCash,
		CountedCash:         r.CountedCash,
		CashVariance:        r.CashVariance,
		ReconciliationOK:    r.ReconciliationOK,
		ReconciliationNotes: r.ReconciliationNotes,
		SessionOpenedAt:     r.SessionOpenedAt,
		SessionClosedAt:     r.SessionClosedAt,
		GeneratedAt:         r.GeneratedAt,
	}
}
