// Package production orchestrates the operator wizard and the administrative
// operations on top of the catalog, lot sequencer and record store.
package production

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/brametal/chapas-backend/internal/catalog"
	"github.com/brametal/chapas-backend/internal/cutting"
	"github.com/brametal/chapas-backend/internal/export"
	"github.com/brametal/chapas-backend/internal/lots"
	"github.com/brametal/chapas-backend/internal/records"
	"github.com/brametal/chapas-backend/internal/wizard"
	"github.com/brametal/chapas-backend/internal/yield"
	"github.com/brametal/chapas-backend/pkg/enums"
	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/brametal/chapas-backend/pkg/logger"
	"github.com/brametal/chapas-backend/pkg/metrics"
	"github.com/brametal/chapas-backend/pkg/pagination"
	"github.com/brametal/chapas-backend/pkg/retry"
)

// Catalog is the part of catalog.Catalog the service needs.
type Catalog interface {
	Lookup(code int64) (catalog.Product, error)
	Load(ctx context.Context) (catalog.LoadReport, error)
	Report() (catalog.LoadReport, error)
}

// OperatorService drives the shop-floor wizard.
type OperatorService interface {
	LookupProduct(ctx context.Context, code int64) (catalog.Product, error)
	Scan(ctx context.Context, stationID, raw string) (wizard.State, error)
	Session(ctx context.Context, stationID string) (wizard.State, error)
	Cancel(ctx context.Context, stationID string) error
	SubmitReservation(ctx context.Context, stationID, reservationID string, factor *float64) (wizard.State, error)
	SubmitQuantity(ctx context.Context, stationID string, quantity int) (wizard.State, error)
	SubmitMeasuredMass(ctx context.Context, stationID string, kg float64) (wizard.State, error)
	SubmitWidth(ctx context.Context, stationID string, mm int) (wizard.State, error)
	SubmitLength(ctx context.Context, stationID string, mm int) (wizard.State, error)
	Preview(ctx context.Context, stationID string, lengthMM *int) (Preview, error)
	Save(ctx context.Context, stationID string) (records.Record, error)
}

// AdminService covers record review and export.
type AdminService interface {
	ListRecords(ctx context.Context, filter RecordFilter, params pagination.Params) (RecordPage, error)
	GetRecord(ctx context.Context, id int64) (records.Record, error)
	UpdateStatus(ctx context.Context, id int64, status enums.RecordStatus) (records.Record, error)
	Summary(ctx context.Context) (export.Summary, error)
	Report(ctx context.Context) ([]export.Row, error)
	ExportWorkbook(ctx context.Context, w io.Writer) error
	CatalogReport(ctx context.Context) (catalog.LoadReport, error)
}

// SuperAdminService covers destructive maintenance.
type SuperAdminService interface {
	DeleteRecord(ctx context.Context, id int64) error
	ClearAll(ctx context.Context) (ResetResult, error)
	Counters(ctx context.Context) ([]lots.Counter, error)
	Counter(ctx context.Context, code int64) (lots.Counter, error)
	PeekLot(ctx context.Context, code int64) (string, error)
	OverrideLot(ctx context.Context, code, lastNumber int64) (lots.Counter, error)
	ReloadCatalog(ctx context.Context) (catalog.LoadReport, error)
}

// Preview is the live calculation shown while the operator types.
type Preview struct {
	State     wizard.State `json:"state"`
	Result    yield.Result `json:"result"`
	Formatted struct {
		TheoreticalMass string `json:"theoreticalMass"`
		Scrap           string `json:"scrap"`
	} `json:"formatted"`
}

// RecordPage is one page of the newest-first record list.
type RecordPage struct {
	Items      []records.Record `json:"items"`
	NextCursor string           `json:"nextCursor,omitempty"`
	Total      int              `json:"total"`
}

// ResetResult reports what ClearAll removed.
type ResetResult struct {
	RecordsDeleted int64 `json:"recordsDeleted"`
	CountersReset  bool  `json:"countersReset"`
}

// Params wires a Service.
type Params struct {
	Catalog  Catalog
	Rule     cutting.Rule
	Lots     lots.Sequencer
	Records  records.Store
	Sessions wizard.SessionStore
	Saver    Saver
	Retry    retry.Policy
	Metrics  *metrics.ProductionMetrics
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Service implements the operator, admin and super-admin operations.
type Service struct {
	catalog  Catalog
	rule     cutting.Rule
	lots     lots.Sequencer
	records  records.Store
	sessions wizard.SessionStore
	saver    Saver
	policy   retry.Policy
	metrics  *metrics.ProductionMetrics
	logg     *logger.Logger
	now      func() time.Time

	// resetMu keeps saves from interleaving with ClearAll.
	resetMu  sync.RWMutex
	stations keyedMutex
}

var (
	_ OperatorService   = (*Service)(nil)
	_ AdminService      = (*Service)(nil)
	_ SuperAdminService = (*Service)(nil)
)

// NewService builds the production service.
func NewService(p Params) (*Service, error) {
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if p.Lots == nil {
		return nil, fmt.Errorf("lot sequencer required")
	}
	if p.Records == nil {
		return nil, fmt.Errorf("record store required")
	}
	if p.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if p.Saver == nil {
		return nil, fmt.Errorf("saver required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Rule.StepMM <= 0 {
		p.Rule = cutting.NewRule(0)
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &Service{
		catalog:  p.Catalog,
		rule:     p.Rule,
		lots:     p.Lots,
		records:  p.Records,
		sessions: p.Sessions,
		saver:    p.Saver,
		policy:   p.Retry,
		metrics:  p.Metrics,
		logg:     p.Logger,
		now:      p.Clock,
	}, nil
}

// LookupProduct returns the catalog entry for code.
func (s *Service) LookupProduct(_ context.Context, code int64) (catalog.Product, error) {
	return s.catalog.Lookup(code)
}

// Scan starts a wizard for the scanned product. A station with an entry in
// progress must cancel or save it first.
func (s *Service) Scan(ctx context.Context, stationID, raw string) (wizard.State, error) {
	stationID = strings.TrimSpace(stationID)
	unlock := s.stations.lock(stationID)
	defer unlock()

	code, err := catalog.ParseScan(raw)
	if err != nil {
		return wizard.State{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable product code")
	}
	product, err := s.catalog.Lookup(code)
	if err != nil {
		return wizard.State{}, err
	}

	if _, ok, err := s.sessions.Load(ctx, stationID); err != nil {
		return wizard.State{}, sessionError(err)
	} else if ok {
		return wizard.State{}, pkgerrors.New(pkgerrors.CodeConflict, "station already has an entry in progress")
	}

	state, err := wizard.Start(stationID, product, s.now())
	if err != nil {
		return wizard.State{}, err
	}
	if err := s.sessions.Save(ctx, state); err != nil {
		return wizard.State{}, sessionError(err)
	}

	lctx := s.logg.WithProductCode(s.logg.WithStationID(ctx, stationID), code)
	s.logg.Info(lctx, "wizard started")
	if product.MassFactor == 0 {
		s.logg.Warn(lctx, "product has zero mass factor")
	}
	return state, nil
}

// Session returns the entry in progress for a station.
func (s *Service) Session(ctx context.Context, stationID string) (wizard.State, error) {
	return s.load(ctx, strings.TrimSpace(stationID))
}

// Cancel discards the entry in progress. Cancelling an idle station is a no-op.
func (s *Service) Cancel(ctx context.Context, stationID string) error {
	stationID = strings.TrimSpace(stationID)
	unlock := s.stations.lock(stationID)
	defer unlock()

	if err := s.sessions.Delete(ctx, stationID); err != nil {
		return sessionError(err)
	}
	s.logg.Info(s.logg.WithStationID(ctx, stationID), "wizard cancelled")
	return nil
}

func (s *Service) SubmitReservation(ctx context.Context, stationID, reservationID string, factor *float64) (wizard.State, error) {
	return s.advance(ctx, stationID, func(st wizard.State) (wizard.State, error) {
		return st.WithReservation(reservationID, factor)
	})
}

func (s *Service) SubmitQuantity(ctx context.Context, stationID string, quantity int) (wizard.State, error) {
	return s.advance(ctx, stationID, func(st wizard.State) (wizard.State, error) {
		return st.WithQuantity(quantity)
	})
}

func (s *Service) SubmitMeasuredMass(ctx context.Context, stationID string, kg float64) (wizard.State, error) {
	return s.advance(ctx, stationID, func(st wizard.State) (wizard.State, error) {
		return st.WithMeasuredMass(kg)
	})
}

func (s *Service) SubmitWidth(ctx context.Context, stationID string, mm int) (wizard.State, error) {
	return s.advance(ctx, stationID, func(st wizard.State) (wizard.State, error) {
		return st.WithWidth(mm)
	})
}

func (s *Service) SubmitLength(ctx context.Context, stationID string, mm int) (wizard.State, error) {
	return s.advance(ctx, stationID, func(st wizard.State) (wizard.State, error) {
		return st.WithLength(mm)
	})
}

func (s *Service) advance(ctx context.Context, stationID string, step func(wizard.State) (wizard.State, error)) (wizard.State, error) {
	stationID = strings.TrimSpace(stationID)
	unlock := s.stations.lock(stationID)
	defer unlock()

	current, err := s.load(ctx, stationID)
	if err != nil {
		return wizard.State{}, err
	}
	next, err := step(current)
	if err != nil {
		return wizard.State{}, err
	}
	if err := s.sessions.Save(ctx, next); err != nil {
		return wizard.State{}, sessionError(err)
	}
	return next, nil
}

// Preview computes the cut and mass figures for the current entry. lengthMM
// previews a length that has not been submitted yet.
func (s *Service) Preview(ctx context.Context, stationID string, lengthMM *int) (Preview, error) {
	state, err := s.load(ctx, strings.TrimSpace(stationID))
	if err != nil {
		return Preview{}, err
	}
	if !state.Reached(wizard.StepLength) {
		return Preview{}, pkgerrors.New(pkgerrors.CodeStateConflict, "preview needs the width to be entered").
			WithDetails(map[string]any{"step": state.Step})
	}

	var result yield.Result
	switch {
	case lengthMM != nil:
		if *lengthMM < 0 {
			return Preview{}, pkgerrors.New(pkgerrors.CodeValidation, "length must not be negative")
		}
		result = state.ComputeWithLength(s.rule, *lengthMM)
	default:
		result = state.Compute(s.rule)
	}

	out := Preview{State: state, Result: result}
	out.Formatted.TheoreticalMass = export.FormatMass(result.TheoreticalMass)
	out.Formatted.Scrap = export.FormatMass(result.Scrap)
	return out, nil
}

// Save allocates a lot id and stores the entry. The session is kept when the
// save fails so the operator can retry without retyping.
func (s *Service) Save(ctx context.Context, stationID string) (records.Record, error) {
	stationID = strings.TrimSpace(stationID)
	unlock := s.stations.lock(stationID)
	defer unlock()

	s.resetMu.RLock()
	defer s.resetMu.RUnlock()

	state, err := s.load(ctx, stationID)
	if err != nil {
		return records.Record{}, err
	}
	if err := state.CheckReady(); err != nil {
		return records.Record{}, err
	}

	rec := s.draft(state)
	lctx := s.logg.WithProductCode(s.logg.WithStationID(ctx, stationID), rec.ProductCode)

	start := s.now()
	err = s.saver.Save(ctx, &rec)
	s.metrics.ObserveStore("save", s.now().Sub(start))
	if err != nil {
		stage := failedStage(err)
		s.metrics.IncSaveFailure(stage)
		s.logg.Error(s.logg.WithField(lctx, "stage", stage), "save failed, session kept", err)
		return records.Record{}, err
	}

	lotsBackend, recordsBackend := s.saver.Backends()
	s.metrics.IncLotAllocated(lotsBackend)
	s.metrics.IncRecordSaved(recordsBackend)

	lctx = s.logg.WithLotID(lctx, rec.LotID)
	if err := s.sessions.Delete(ctx, stationID); err != nil {
		s.logg.Error(lctx, "record saved but session could not be cleared", err)
	}
	s.logg.Info(lctx, "record saved")
	return rec, nil
}

func (s *Service) draft(state wizard.State) records.Record {
	result := state.Compute(s.rule)
	return records.Record{
		CreatedAt:       s.now().UTC(),
		ReservationID:   state.ReservationID,
		Status:          enums.RecordStatusPending,
		ProductCode:     state.Product.Code,
		Description:     state.Product.Description,
		Quantity:        state.Quantity,
		MeasuredMass:    state.MeasuredMass,
		RealWidth:       state.RealWidth,
		CutWidth:        result.CutWidth,
		RealLength:      state.RealLength,
		CutLength:       result.CutLength,
		TheoreticalMass: result.TheoreticalMass,
		Scrap:           result.Scrap,
	}
}

func (s *Service) load(ctx context.Context, stationID string) (wizard.State, error) {
	if stationID == "" {
		return wizard.State{}, pkgerrors.New(pkgerrors.CodeValidation, "station id is required")
	}
	state, ok, err := s.sessions.Load(ctx, stationID)
	if err != nil {
		return wizard.State{}, sessionError(err)
	}
	if !ok {
		return wizard.State{}, pkgerrors.New(pkgerrors.CodeNotFound, "no entry in progress for station")
	}
	return state, nil
}

// RecordFilter narrows ListRecords. Zero fields match everything.
type RecordFilter struct {
	Status      enums.RecordStatus
	ProductCode int64
}

func (f RecordFilter) matches(rec records.Record) bool {
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	return f.ProductCode == 0 || rec.ProductCode == f.ProductCode
}

// ListRecords pages through records newest first. Total counts every record
// matching filter, not just the page.
func (s *Service) ListRecords(ctx context.Context, filter RecordFilter, params pagination.Params) (RecordPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return RecordPage{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	all, err := s.listAll(ctx)
	if err != nil {
		return RecordPage{}, err
	}

	matched := all[:0:0]
	for _, rec := range all {
		if filter.matches(rec) {
			matched = append(matched, rec)
		}
	}
	items, next := pagination.Page(matched, cursor, params.Limit, func(rec records.Record) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
	})
	return RecordPage{Items: items, NextCursor: next, Total: len(matched)}, nil
}

func (s *Service) GetRecord(ctx context.Context, id int64) (records.Record, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) (records.Record, error) {
		return s.records.Get(ctx, id)
	})
}

// UpdateStatus confirms or reverts a record and returns it.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status enums.RecordStatus) (records.Record, error) {
	if !status.IsValid() {
		return records.Record{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	defer s.observe("update_status", s.now())
	if err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.records.UpdateStatus(ctx, id, status)
	}); err != nil {
		return records.Record{}, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"record_id": id, "status": string(status)}), "record status updated")
	return s.GetRecord(ctx, id)
}

func (s *Service) Summary(ctx context.Context) (export.Summary, error) {
	all, err := s.listAll(ctx)
	if err != nil {
		return export.Summary{}, err
	}
	return export.Summarize(all), nil
}

func (s *Service) Report(ctx context.Context) ([]export.Row, error) {
	all, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}
	return export.BuildReport(all), nil
}

// ExportWorkbook writes the report as an xlsx document.
func (s *Service) ExportWorkbook(ctx context.Context, w io.Writer) error {
	rows, err := s.Report(ctx)
	if err != nil {
		return err
	}
	if err := export.WriteWorkbook(w, rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write report workbook")
	}
	return nil
}

func (s *Service) CatalogReport(_ context.Context) (catalog.LoadReport, error) {
	return s.catalog.Report()
}

func (s *Service) listAll(ctx context.Context) ([]records.Record, error) {
	defer s.observe("list", s.now())
	return retry.Value(ctx, s.policy, func(ctx context.Context) ([]records.Record, error) {
		return s.records.List(ctx)
	})
}

// DeleteRecord removes one record. Lot counters are left untouched.
func (s *Service) DeleteRecord(ctx context.Context, id int64) error {
	defer s.observe("delete", s.now())
	if err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.records.DeleteByID(ctx, id)
	}); err != nil {
		return err
	}
	s.logg.Warn(s.logg.WithField(ctx, "record_id", id), "record deleted")
	return nil
}

// ClearAll removes every record and then every lot counter. Counters are only
// reset once the records are gone so lot ids are never reissued next to old
// records. A failure after the records were cleared is reported as a partial
// reset.
func (s *Service) ClearAll(ctx context.Context) (ResetResult, error) {
	s.resetMu.Lock()
	defer s.resetMu.Unlock()
	defer s.observe("clear_all", s.now())

	if resetter, ok := s.saver.(Resetter); ok {
		n, err := resetter.ResetAll(ctx)
		if err != nil {
			return ResetResult{}, storageFailure(err, "reset")
		}
		s.logg.Warn(s.logg.WithField(ctx, "records_deleted", n), "records and lot counters cleared")
		return ResetResult{RecordsDeleted: n, CountersReset: true}, nil
	}

	n, err := retry.Value(ctx, s.policy, func(ctx context.Context) (int64, error) {
		return s.records.ClearAll(ctx)
	})
	if err != nil {
		return ResetResult{}, err
	}
	result := ResetResult{RecordsDeleted: n}

	lotErr := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.lots.Reset(ctx)
	})
	if lotErr != nil {
		s.logg.Error(s.logg.WithField(ctx, "records_deleted", n), "records cleared but lot counters were not", lotErr)
		return result, pkgerrors.Wrap(pkgerrors.CodePartialReset, lotErr, "records cleared but lot counters were not reset").
			WithDetails(map[string]any{"recordsDeleted": n, "recordsCleared": true, "countersReset": false})
	}

	result.CountersReset = true
	s.logg.Warn(s.logg.WithField(ctx, "records_deleted", n), "records and lot counters cleared")
	return result, nil
}

func (s *Service) Counters(ctx context.Context) ([]lots.Counter, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) ([]lots.Counter, error) {
		return s.lots.List(ctx)
	})
}

func (s *Service) Counter(ctx context.Context, code int64) (lots.Counter, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) (lots.Counter, error) {
		return s.lots.Get(ctx, code)
	})
}

func (s *Service) PeekLot(ctx context.Context, code int64) (string, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.lots.Peek(ctx, code)
	})
}

// OverrideLot sets the last issued number for a product. The next save gets lastNumber+1.
func (s *Service) OverrideLot(ctx context.Context, code, lastNumber int64) (lots.Counter, error) {
	s.resetMu.RLock()
	defer s.resetMu.RUnlock()

	if err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.lots.Override(ctx, code, lastNumber)
	}); err != nil {
		return lots.Counter{}, err
	}
	lctx := s.logg.WithField(s.logg.WithProductCode(ctx, code), "last_number", lastNumber)
	s.logg.Warn(lctx, "lot counter overridden")
	return lots.Counter{ProductCode: code, LastNumber: lastNumber}, nil
}

// ReloadCatalog re-reads the product source. The previous catalog stays in use
// when the reload fails.
func (s *Service) ReloadCatalog(ctx context.Context) (catalog.LoadReport, error) {
	report, err := s.catalog.Load(ctx)
	if err != nil {
		return catalog.LoadReport{}, err
	}
	s.metrics.SetCatalogSize(report.Products)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"products": report.Products,
		"skipped":  report.Skipped,
	}), "catalog reloaded")
	return report, nil
}

func (s *Service) observe(op string, start time.Time) {
	s.metrics.ObserveStore(op, s.now().Sub(start))
}

func sessionError(err error) error {
	return storageFailure(err, "wizard session")
}

func storageFailure(err error, what string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, what+" storage failed")
}

// keyedMutex serialises requests per station.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
