package controllers

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/brametal/chapas-backend/api/responses"
	"github.com/brametal/chapas-backend/api/validators"
	"github.com/brametal/chapas-backend/internal/production"
	"github.com/brametal/chapas-backend/pkg/enums"
	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/brametal/chapas-backend/pkg/logger"
	"github.com/brametal/chapas-backend/pkg/pagination"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// recordFilter reads the optional status and productCode query parameters.
func recordFilter(r *http.Request) (production.RecordFilter, error) {
	var filter production.RecordFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := enums.ParseRecordStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
				WithDetails(map[string]any{"field": "status"})
		}
		filter.Status = status
	}
	code, err := validators.ParseQueryInt(r, "productCode", 0, 1, math.MaxInt32)
	if err != nil {
		return filter, err
	}
	filter.ProductCode = int64(code)
	return filter, nil
}

// AdminListRecords pages through records newest first.
func AdminListRecords(svc production.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := recordFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListRecords(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminGetRecord(svc production.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rec, err := svc.GetRecord(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// AdminUpdateStatus accepts the status value or its label ("Ok - Lançada").
func AdminUpdateStatus(svc production.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseRecordStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		rec, err := svc.UpdateStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

func AdminRecordSummary(svc production.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func AdminRecordReport(svc production.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.Report(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminExportRecords streams the report workbook. The file is built in memory
// first so failures still produce a JSON error.
func AdminExportRecords(svc production.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := svc.ExportWorkbook(r.Context(), &buf); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		name := fmt.Sprintf("relatorio_chapas_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
		responses.WriteAttachment(r.Context(), logg, w, xlsxContentType, name, &buf)
	}
}

func AdminCatalogReport(svc production.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.CatalogReport(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
