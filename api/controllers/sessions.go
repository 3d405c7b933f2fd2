package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/tillpoint-backend/api/responses"
	"github.com/tillworks/tillpoint-backend/api/validators"
	sessionsvc "github.com/tillworks/tillpoint-backend/internal/sessions"
	"github.com/tillworks/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/logger"
)

type openSessionRequest struct {
	TerminalID   uuid.UUID       `json:"terminal_id" validate:"required"`
	CashierID    uuid.UUID       `json:"cashier_id" validate:"required"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

// SessionOpen starts a drawer session on a terminal.
func SessionOpen(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload openSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.OpenSession(r.Context(), sessionsvc.OpenSessionInput{
			TerminalID:   payload.TerminalID,
			CashierID:    payload.CashierID,
			OpeningFloat: payload.OpeningFloat,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, renderSession(session))
	}
}

// SessionGet returns the session with its movement log.
func SessionGet(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.GetSession(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderSession(session))
	}
}

type movementRequest struct {
	Type   string          `json:"type" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Reason *string         `json:"reason,omitempty"`
}

// SessionMovement records a manual cash movement against an open session.
func SessionMovement(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload movementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movementType, err := enums.ParseCashMovementType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement type"))
			return
		}

		session, err := svc.AddCashMovement(r.Context(), sessionsvc.MovementInput{
			SessionID: sessionID,
			Type:      movementType,
			Amount:    payload.Amount,
			Reason:    payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, renderSession(session))
	}
}

// SessionSuspend pauses an open session for a break or handover.
func SessionSuspend(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.SuspendSession(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderSession(session))
	}
}

// SessionResume reopens a suspended session.
func SessionResume(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.ResumeSession(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderSession(session))
	}
}

type closeSessionRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash" validate:"required"`
	CashierID   uuid.UUID       `json:"cashier_id" validate:"required"`
}

// SessionClose finishes the shift against the physically counted drawer.
func SessionClose(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload closeSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.CloseSession(r.Context(), sessionsvc.CloseSessionInput{
			SessionID:   sessionID,
			CountedCash: payload.CountedCash,
			CashierID:   payload.CashierID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderSession(session))
	}
}
