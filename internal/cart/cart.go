package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/pkg/types"
)

// Line is one draft item on the active cart. Mutable until the cart is
// finalized into an order, then discarded.
type Line struct {
	LineNumber int             `json:"lineNumber"`
	ProductID  uuid.UUID       `json:"productId"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	UOM        string          `json:"uom"`
	Discount   *types.Discount `json:"discount,omitempty"`
	TaxExempt  bool            `json:"taxExempt"`
	Notes      *string         `json:"notes,omitempty"`
}

// Cart is the single active draft per terminal. It lives in the cart store
// keyed by terminal and is cleared the instant an order is created from it.
type Cart struct {
	TerminalID uuid.UUID              `json:"terminalId"`
	Customer   types.CustomerSnapshot `json:"customer"`
	Discount   *types.Discount        `json:"discount,omitempty"`
	Notes      *string                `json:"notes,omitempty"`
	Lines      []Line                 `json:"lines"`

	// SourceOrderID is set when the cart was rebuilt from a held order,
	// so finalizing re-prices that order instead of minting a new one.
	SourceOrderID *uuid.UUID `json:"sourceOrderId,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// NextLineNumber returns the sequential number for a new line.
func (c *Cart) NextLineNumber() int {
	max := 0
	for _, l := range c.Lines {
		if l.LineNumber > max {
			max = l.LineNumber
		}
	}
	return max + 1
}

// FindLine returns the index of the line with the given number, or -1.
func (c *Cart) FindLine(lineNumber int) int {
	for i, l := range c.Lines {
		if l.LineNumber == lineNumber {
			return i
		}
	}
	return -1
}
