package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/api/responses"
	"github.com/tillworks/tillpoint-backend/api/validators"
	cartsvc "github.com/tillworks/tillpoint-backend/internal/cart"
	"github.com/tillworks/tillpoint-backend/pkg/logger"
	"github.com/tillworks/tillpoint-backend/pkg/types"
)

type cartLineRequest struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Name      string           `json:"name" validate:"required,max=200"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"required"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	UOM       string           `json:"uom" validate:"omitempty,max=20"`
	Discount  *discountPayload `json:"discount,omitempty"`
	TaxExempt bool             `json:"tax_exempt"`
	Notes     *string          `json:"notes,omitempty"`
}

func (p cartLineRequest) toInput() cartsvc.LineInput {
	return cartsvc.LineInput{
		ProductID: p.ProductID,
		Name:      p.Name,
		Quantity:  p.Quantity,
		UnitPrice: p.UnitPrice,
		UOM:       p.UOM,
		Discount:  p.Discount.toDiscount(),
		TaxExempt: p.TaxExempt,
		Notes:     p.Notes,
	}
}

// CartGet returns the terminal's active cart.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID, err := validators.ParseUUIDParam(r, "terminalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.Get(r.Context(), terminalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(c))
	}
}

// CartAddItem appends a priced line to the cart.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID, err := validators.ParseUUIDParam(r, "terminalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.AddItem(r.Context(), terminalID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, renderCart(c))
	}
}

// CartUpdateItem replaces a line in place, keeping its number.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID, err := validators.ParseUUIDParam(r, "terminalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineNumber, err := validators.ParseIntParam(r, "lineNumber")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.UpdateItem(r.Context(), terminalID, lineNumber, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(c))
	}
}

// CartRemoveItem drops a line from the cart.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID, err := validators.ParseUUIDParam(r, "terminalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineNumber, err := validators.ParseIntParam(r, "lineNumber")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.RemoveItem(r.Context(), terminalID, lineNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(c))
	}
}

type cartDiscountRequest struct {
	Discount *discountPayload `json:"discount"`
}

// CartSetDiscount applies or clears the order-level discount.
func CartSetDiscount(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID, err := validators.ParseUUIDParam(r, "terminalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.SetDiscount(r.Context(), terminalID, payload.Discount.toDiscount())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(c))
	}
}

type cartCustomerRequest struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Name string     `json:"name" validate:"omitempty,max=200"`
}

// CartSetCustomer attaches the customer snapshot to the cart.
func CartSetCustomer(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID, err := validators.ParseUUIDParam(r, "terminalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.SetCustomer(r.Context(), terminalID, types.CustomerSnapshot{ID: payload.ID, Name: payload.Name})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(c))
	}
}

// CartTotals prices the cart without persisting anything.
func CartTotals(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID, err := validators.ParseUUIDParam(r, "terminalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		totals, err := svc.Totals(r.Context(), terminalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderTotals(totals))
	}
}

// CartClear abandons the draft.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID, err := validators.ParseUUIDParam(r, "terminalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), terminalID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
