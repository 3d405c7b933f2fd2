package controllers

import (
	"net/http"

	"github.com/tillworks/tillpoint-backend/api/responses"
	"github.com/tillworks/tillpoint-backend/api/validators"
	terminalsvc "github.com/tillworks/tillpoint-backend/internal/terminals"
	"github.com/tillworks/tillpoint-backend/pkg/logger"
)

type registerTerminalRequest struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	OrderPrefix string `json:"order_prefix,omitempty"`
}

// TerminalRegister provisions a till in the registry.
func TerminalRegister(svc terminalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerTerminalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		terminal, err := svc.Register(r.Context(), terminalsvc.RegisterInput{
			Code:        payload.Code,
			Name:        payload.Name,
			OrderPrefix: payload.OrderPrefix,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, renderTerminal(terminal))
	}
}

// TerminalGet returns one registered terminal.
func TerminalGet(svc terminalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID, err := validators.ParseUUIDParam(r, "terminalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		terminal, err := svc.GetTerminal(r.Context(), terminalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderTerminal(terminal))
	}
}

// TerminalList returns all registered terminals ordered by code.
func TerminalList(svc terminalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminals, err := svc.ListTerminals(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := make([]terminalResponse, 0, len(terminals))
		for i := range terminals {
			resp = append(resp, renderTerminal(&terminals[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// TerminalActivate puts a till back in service.
func TerminalActivate(svc terminalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return setTerminalActive(svc, logg, true)
}

// TerminalDeactivate takes a till out of service; open sessions are
// unaffected but no new session can open on it.
func TerminalDeactivate(svc terminalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return setTerminalActive(svc, logg, false)
}

func setTerminalActive(svc terminalsvc.Service, logg *logger.Logger, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID, err := validators.ParseUUIDParam(r, "terminalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		terminal, err := svc.SetActive(r.Context(), terminalID, active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderTerminal(terminal))
	}
}
