package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brametal/chapas-backend/api/validators"
	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/brametal/chapas-backend/pkg/logger"
)

func stationParam(r *http.Request) (string, error) {
	return validators.StationID(chi.URLParam(r, "stationId"))
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name).WithDetails(map[string]any{"field": name})
	}
	return value, nil
}

func withStation(r *http.Request, logg *logger.Logger, station string) *http.Request {
	if logg == nil {
		return r
	}
	return r.WithContext(logg.WithStationID(r.Context(), station))
}
