package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/api/responses"
	"github.com/tillworks/tillpoint-backend/api/validators"
	paymentsvc "github.com/tillworks/tillpoint-backend/internal/payments"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/logger"
)

type addPaymentRequest struct {
	Method         string           `json:"method" validate:"required"`
	Amount         decimal.Decimal  `json:"amount" validate:"required"`
	AmountTendered *decimal.Decimal `json:"amount_tendered,omitempty"`
	Reference      *string          `json:"reference,omitempty"`
	CashierID      uuid.UUID        `json:"cashier_id" validate:"required"`
	TerminalID     uuid.UUID        `json:"terminal_id" validate:"required"`
}

// PaymentAdd records a tender against an order.
func PaymentAdd(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.AddPayment(r.Context(), paymentsvc.AddPaymentInput{
			OrderID:        orderID,
			Method:         method,
			Amount:         payload.Amount,
			AmountTendered: payload.AmountTendered,
			Reference:      payload.Reference,
			CashierID:      payload.CashierID,
			TerminalID:     payload.TerminalID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, renderOrder(order))
	}
}

type settlePaymentRequest struct {
	SourceID   string    `json:"source_id,omitempty"`
	LocationID string    `json:"location_id,omitempty"`
	Reference  *string   `json:"reference,omitempty"`
	CashierID  uuid.UUID `json:"cashier_id" validate:"required"`
	TerminalID uuid.UUID `json:"terminal_id" validate:"required"`
}

// PaymentSettle completes a pending tender, capturing cards with the
// processor when a source id is supplied.
func PaymentSettle(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload settlePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SettlePayment(r.Context(), paymentsvc.SettlePaymentInput{
			OrderID:    orderID,
			PaymentID:  paymentID,
			SourceID:   payload.SourceID,
			LocationID: payload.LocationID,
			Reference:  payload.Reference,
			CashierID:  payload.CashierID,
			TerminalID: payload.TerminalID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}

type paymentActionRequest struct {
	CashierID  uuid.UUID `json:"cashier_id" validate:"required"`
	TerminalID uuid.UUID `json:"terminal_id" validate:"required"`
}

// PaymentFail marks a pending tender as declined.
func PaymentFail(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload paymentActionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.FailPayment(r.Context(), paymentsvc.FailPaymentInput{
			OrderID:    orderID,
			PaymentID:  paymentID,
			CashierID:  payload.CashierID,
			TerminalID: payload.TerminalID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}

// PaymentRemove deletes a mis-keyed tender from an unpaid order.
func PaymentRemove(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RemovePayment(r.Context(), paymentsvc.RemovePaymentInput{
			OrderID:   orderID,
			PaymentID: paymentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}
