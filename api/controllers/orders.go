package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tillworks/tillpoint-backend/api/responses"
	"github.com/tillworks/tillpoint-backend/api/validators"
	ordersvc "github.com/tillworks/tillpoint-backend/internal/orders"
	"github.com/tillworks/tillpoint-backend/pkg/logger"
	"github.com/tillworks/tillpoint-backend/pkg/pagination"
)

type createOrderRequest struct {
	TerminalID uuid.UUID `json:"terminal_id" validate:"required"`
	SessionID  uuid.UUID `json:"session_id" validate:"required"`
	CashierID  uuid.UUID `json:"cashier_id" validate:"required"`
	Notes      *string   `json:"notes,omitempty"`
}

// OrderCreate finalizes the terminal's cart into an order.
func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CreateFromCart(r.Context(), ordersvc.CreateFromCartInput{
			TerminalID: payload.TerminalID,
			SessionID:  payload.SessionID,
			CashierID:  payload.CashierID,
			Notes:      payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, renderOrder(order))
	}
}

// OrderGet returns one order with items and payments.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}

// OrdersBySession pages through a session's orders, newest first.
func OrdersBySession(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, next, err := svc.ListBySession(r.Context(), sessionID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := orderListResponse{Orders: make([]orderResponse, 0, len(orders)), NextCursor: next}
		for i := range orders {
			resp.Orders = append(resp.Orders, renderOrder(&orders[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

type orderActionRequest struct {
	Reason     string    `json:"reason,omitempty"`
	CashierID  uuid.UUID `json:"cashier_id" validate:"required"`
	TerminalID uuid.UUID `json:"terminal_id" validate:"required"`
}

// OrderHold parks an unpaid order.
func OrderHold(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload orderActionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.HoldOrder(r.Context(), ordersvc.HoldOrderInput{
			OrderID:    orderID,
			Reason:     payload.Reason,
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

// OrderResume loads a held order back into the terminal's cart.
func OrderResume(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload orderActionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.ResumeHeldOrder(r.Context(), ordersvc.ResumeHeldOrderInput{
			OrderID:    orderID,
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

// OrderVoid cancels an order that has not completed.
func OrderVoid(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload orderActionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.VoidOrder(r.Context(), ordersvc.VoidOrderInput{
			OrderID:    orderID,
			Reason:     payload.Reason,
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

// OrderRefund reverses a completed order in full.
func OrderRefund(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload orderActionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var reason *string
		if payload.Reason != "" {
			reason = &payload.Reason
		}
		order, err := svc.RefundOrder(r.Context(), ordersvc.RefundOrderInput{
			OrderID:    orderID,
			Reason:     reason,
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
