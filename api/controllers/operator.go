package controllers

import (
	"net/http"

	"github.com/brametal/chapas-backend/api/responses"
	"github.com/brametal/chapas-backend/api/validators"
	"github.com/brametal/chapas-backend/internal/production"
	"github.com/brametal/chapas-backend/internal/wizard"
	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/brametal/chapas-backend/pkg/logger"
)

const maxReservationLen = 64

type scanRequest struct {
	Code string `json:"code" validate:"required"`
}

type reservationRequest struct {
	ReservationID string   `json:"reservationId" validate:"required"`
	MassFactor    *float64 `json:"massFactor,omitempty" validate:"omitempty,gte=0,lte=10000"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=100000"`
}

type measuredMassRequest struct {
	MeasuredMass float64 `json:"measuredMass" validate:"required,gt=0,lte=1000000000"`
}

type widthRequest struct {
	Width *int `json:"width" validate:"required,min=0,max=1000000"`
}

type lengthRequest struct {
	Length *int `json:"length" validate:"required,min=0,max=1000000"`
}

// OperatorLookupProduct returns the catalog entry for a product code.
func OperatorLookupProduct(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "production service unavailable"))
			return
		}
		code, err := int64Param(r, "code")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.LookupProduct(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// OperatorScan opens the wizard for a scanned product.
func OperatorScan(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "production service unavailable"))
			return
		}
		station, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		r = withStation(r, logg, station)

		var payload scanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.Scan(r.Context(), station, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, state)
	}
}

// OperatorSession returns the entry in progress for a station.
func OperatorSession(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.Session(r.Context(), station)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// OperatorCancel discards the entry in progress.
func OperatorCancel(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		r = withStation(r, logg, station)
		if err := svc.Cancel(r.Context(), station); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

func OperatorReservation(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return wizardStep(logg, func(r *http.Request, station string) (wizard.State, error) {
		var payload reservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return wizard.State{}, err
		}
		return svc.SubmitReservation(r.Context(), station, validators.SanitizeString(payload.ReservationID, maxReservationLen), payload.MassFactor)
	})
}

func OperatorQuantity(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return wizardStep(logg, func(r *http.Request, station string) (wizard.State, error) {
		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return wizard.State{}, err
		}
		return svc.SubmitQuantity(r.Context(), station, payload.Quantity)
	})
}

func OperatorMeasuredMass(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return wizardStep(logg, func(r *http.Request, station string) (wizard.State, error) {
		var payload measuredMassRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return wizard.State{}, err
		}
		return svc.SubmitMeasuredMass(r.Context(), station, payload.MeasuredMass)
	})
}

func OperatorWidth(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return wizardStep(logg, func(r *http.Request, station string) (wizard.State, error) {
		var payload widthRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return wizard.State{}, err
		}
		return svc.SubmitWidth(r.Context(), station, *payload.Width)
	})
}

func OperatorLength(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return wizardStep(logg, func(r *http.Request, station string) (wizard.State, error) {
		var payload lengthRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return wizard.State{}, err
		}
		return svc.SubmitLength(r.Context(), station, *payload.Length)
	})
}

func wizardStep(logg *logger.Logger, submit func(*http.Request, string) (wizard.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		r = withStation(r, logg, station)

		state, err := submit(r, station)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// OperatorPreview shows the cut and mass figures. ?length= previews a length
// that has not been submitted.
func OperatorPreview(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		length, err := validators.ParseOptionalQueryInt(r, "length", 0, wizard.MaxDimensionMM)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		preview, err := svc.Preview(r.Context(), station, length)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

// OperatorSave allocates the lot and stores the record.
func OperatorSave(svc production.OperatorService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		r = withStation(r, logg, station)

		rec, err := svc.Save(r.Context(), station)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rec)
	}
}
