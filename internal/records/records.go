// Package records persists production entries. Records are append-only; the
// status column is the only field that changes after insert.
package records

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/brametal/chapas-backend/internal/lots"
	"github.com/brametal/chapas-backend/pkg/enums"
	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
)

// Fields is the persisted column order. Table and spreadsheet backends must
// keep it stable since downstream sheets read columns by position.
var Fields = []string{
	"id", "createdAt", "lotId", "reservationId", "status", "productCode", "description",
	"quantity", "measuredMass", "realWidth", "cutWidth", "realLength", "cutLength",
	"theoreticalMass", "scrap",
}

// Record is one saved production entry.
type Record struct {
	ID              int64              `json:"id"`
	CreatedAt       time.Time          `json:"createdAt"`
	LotID           string             `json:"lotId"`
	ReservationID   string             `json:"reservationId"`
	Status          enums.RecordStatus `json:"status"`
	ProductCode     int64              `json:"productCode"`
	Description     string             `json:"description"`
	Quantity        int                `json:"quantity"`
	MeasuredMass    float64            `json:"measuredMass"`
	RealWidth       int                `json:"realWidth"`
	CutWidth        int                `json:"cutWidth"`
	RealLength      int                `json:"realLength"`
	CutLength       int                `json:"cutLength"`
	TheoreticalMass float64            `json:"theoreticalMass"`
	Scrap           float64            `json:"scrap"`
}

// Store is implemented by every record backend.
type Store interface {
	// Append stores rec as pending and returns its id. An id already set on rec
	// is kept; an existing id is a conflict, never an overwrite.
	Append(ctx context.Context, rec *Record) (int64, error)
	// List returns every record, newest first.
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	// UpdateStatus is a no-op when the record already has the status.
	UpdateStatus(ctx context.Context, id int64, status enums.RecordStatus) error
	DeleteByID(ctx context.Context, id int64) error
	// ClearAll removes every record and returns how many were deleted.
	ClearAll(ctx context.Context) (int64, error)
}

// Validate checks the structural invariants of a record before it is written.
func (r *Record) Validate() error {
	var problems []string
	if r.ProductCode <= 0 {
		problems = append(problems, "productCode must be positive")
	}
	if strings.TrimSpace(r.ReservationID) == "" {
		problems = append(problems, "reservationId is required")
	}
	if _, err := lots.ParseID(r.LotID); err != nil {
		problems = append(problems, "lotId must look like "+lots.Prefix+"#####")
	}
	if r.Quantity < 1 {
		problems = append(problems, "quantity must be at least 1")
	}
	if r.RealWidth < 0 || r.RealLength < 0 {
		problems = append(problems, "real dimensions must not be negative")
	}
	if r.CutWidth < 0 || r.CutWidth > r.RealWidth || r.CutLength < 0 || r.CutLength > r.RealLength {
		problems = append(problems, "cut dimensions must be between 0 and the real dimensions")
	}
	for name, v := range map[string]float64{
		"measuredMass": r.MeasuredMass, "theoreticalMass": r.TheoreticalMass, "scrap": r.Scrap,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			problems = append(problems, name+" must be a finite number")
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid production record").
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}

// prepare normalises a record for insert.
func prepare(rec *Record, now time.Time) error {
	if rec == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "record is required")
	}
	if rec.ID < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "record id must not be negative")
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.Status = enums.RecordStatusPending
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return nil
}

func validateStatus(status enums.RecordStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	return nil
}

func notFound(id int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("record %d not found", id))
}

func conflict(id int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("record %d already exists", id))
}

func storageError(err error, op string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record "+op+" failed")
}

// sortNewestFirst orders by creation time descending, ties by id descending.
func sortNewestFirst(rows []Record) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
}
