package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tillworks/tillpoint-backend/api/responses"
	"github.com/tillworks/tillpoint-backend/api/validators"
	zreportsvc "github.com/tillworks/tillpoint-backend/internal/zreport"
	"github.com/tillworks/tillpoint-backend/pkg/logger"
)

type generateZReportRequest struct {
	CashierID uuid.UUID `json:"cashier_id" validate:"required"`
}

// ZReportGenerate produces the end-of-day report for a closed session.
// Repeated calls return the stored report.
func ZReportGenerate(svc zreportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload generateZReportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Generate(r.Context(), zreportsvc.GenerateInput{
			SessionID: sessionID,
			CashierID: payload.CashierID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, renderZReport(report))
	}
}

// ZReportPreview computes report figures without persisting anything.
func ZReportPreview(svc zreportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Preview(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderZReport(report))
	}
}

// ZReportGet fetches a stored report by id.
func ZReportGet(svc zreportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, err := validators.ParseUUIDParam(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.GetReport(r.Context(), reportID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderZReport(report))
	}
}
