package controllers

import (
	"net/http"

	"github.com/brametal/chapas-backend/api/responses"
	"github.com/brametal/chapas-backend/api/validators"
	"github.com/brametal/chapas-backend/internal/production"
	"github.com/brametal/chapas-backend/pkg/logger"
)

type overrideRequest struct {
	LastNumber *int64 `json:"lastNumber" validate:"required,min=0"`
}

func SuperAdminDeleteRecord(svc production.SuperAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteRecord(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}

// SuperAdminReset clears every record and lot counter. A partial reset is
// answered with PARTIAL_RESET and the details of what was applied.
func SuperAdminReset(svc production.SuperAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.ClearAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func SuperAdminListLots(svc production.SuperAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counters, err := svc.Counters(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, counters)
	}
}

func SuperAdminGetLot(svc production.SuperAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := int64Param(r, "code")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		counter, err := svc.Counter(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"productCode": counter.ProductCode,
			"lastNumber":  counter.LastNumber,
			"next":        counter.Next(),
		})
	}
}

// SuperAdminPeekLot returns the id the next save would get without consuming it.
func SuperAdminPeekLot(svc production.SuperAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := int64Param(r, "code")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := svc.PeekLot(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"productCode": code, "next": next})
	}
}

func SuperAdminOverrideLot(svc production.SuperAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := int64Param(r, "code")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload overrideRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		counter, err := svc.OverrideLot(r.Context(), code, *payload.LastNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"productCode": counter.ProductCode,
			"lastNumber":  counter.LastNumber,
			"next":        counter.Next(),
		})
	}
}

func SuperAdminReloadCatalog(svc production.SuperAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.ReloadCatalog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
