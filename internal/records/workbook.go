package records

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brametal/chapas-backend/internal/catalog"
	"github.com/brametal/chapas-backend/pkg/enums"
	"github.com/xuri/excelize/v2"
)

// WorkbookSheet is the sheet holding one row per record.
const WorkbookSheet = "Registros"

// workbookMetaSheet is a hidden sheet whose B1 cell keeps the highest id ever
// issued, so ids of deleted records are never handed out again.
const workbookMetaSheet = "Controle"

// legacyTimeLayouts are accepted when reading sheets filled in by hand.
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05",
}

// WorkbookStore keeps records in a local .xlsx file. Every cell is written as
// text in Fields order and coerced back on read, so the file stays readable by
// people editing it in a spreadsheet tool.
type WorkbookStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewWorkbookStore(path string) *WorkbookStore {
	return &WorkbookStore{path: path, now: time.Now}
}

func (w *WorkbookStore) Append(ctx context.Context, rec *Record) (int64, error) {
	if err := prepare(rec, w.now()); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	sheet, err := w.read(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range sheet.rows {
		if rec.ID != 0 && r.ID == rec.ID {
			return 0, conflict(rec.ID)
		}
	}
	if rec.ID == 0 {
		rec.ID = sheet.lastID + 1
	}
	sheet.rows = append(sheet.rows, *rec)
	sheet.lastID = max(sheet.lastID, rec.ID)
	if err := w.write(sheet); err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func (w *WorkbookStore) List(ctx context.Context) ([]Record, error) {
	w.mu.Lock()
	sheet, err := w.read(ctx)
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(sheet.rows)
	return sheet.rows, nil
}

func (w *WorkbookStore) Get(ctx context.Context, id int64) (Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sheet, err := w.read(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, r := range sheet.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, notFound(id)
}

func (w *WorkbookStore) UpdateStatus(ctx context.Context, id int64, status enums.RecordStatus) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	sheet, err := w.read(ctx)
	if err != nil {
		return err
	}
	for i := range sheet.rows {
		if sheet.rows[i].ID != id {
			continue
		}
		if sheet.rows[i].Status == status {
			return nil
		}
		sheet.rows[i].Status = status
		return w.write(sheet)
	}
	return notFound(id)
}

func (w *WorkbookStore) DeleteByID(ctx context.Context, id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	sheet, err := w.read(ctx)
	if err != nil {
		return err
	}
	for i := range sheet.rows {
		if sheet.rows[i].ID == id {
			sheet.rows = append(sheet.rows[:i], sheet.rows[i+1:]...)
			return w.write(sheet)
		}
	}
	return notFound(id)
}

func (w *WorkbookStore) ClearAll(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sheet, err := w.read(ctx)
	if err != nil {
		return 0, err
	}
	n := int64(len(sheet.rows))
	sheet.rows = nil
	if err := w.write(sheet); err != nil {
		return 0, err
	}
	return n, nil
}

type workbookContents struct {
	rows   []Record
	lastID int64
}

func (w *WorkbookStore) read(ctx context.Context) (workbookContents, error) {
	if err := ctx.Err(); err != nil {
		return workbookContents{}, err
	}
	f, err := excelize.OpenFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return workbookContents{rows: []Record{}}, nil
	}
	if err != nil {
		return workbookContents{}, storageError(err, "open workbook")
	}
	defer f.Close()

	table, err := f.GetRows(WorkbookSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return workbookContents{}, storageError(err, "read workbook")
	}
	out := workbookContents{rows: make([]Record, 0, len(table))}
	for i, cells := range table {
		if i == 0 || isBlankRow(cells) {
			continue
		}
		rec, err := decodeRow(cells)
		if err != nil {
			return workbookContents{}, storageError(fmt.Errorf("row %d: %w", i+1, err), "decode workbook")
		}
		out.rows = append(out.rows, rec)
		out.lastID = max(out.lastID, rec.ID)
	}

	// files created by hand have no control sheet; their rows bound the ids
	if idx, err := f.GetSheetIndex(workbookMetaSheet); err == nil && idx >= 0 {
		raw, err := f.GetCellValue(workbookMetaSheet, "B1", excelize.Options{RawCellValue: true})
		if err != nil {
			return workbookContents{}, storageError(err, "read workbook")
		}
		if strings.TrimSpace(raw) != "" {
			last, err := coerceInt64(raw)
			if err != nil {
				return workbookContents{}, storageError(fmt.Errorf("%s!B1: %w", workbookMetaSheet, err), "decode workbook")
			}
			out.lastID = max(out.lastID, last)
		}
	}
	return out, nil
}

// write replaces the whole file through a temp file in the same directory so
// readers never see a half-written workbook.
func (w *WorkbookStore) write(contents workbookContents) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), WorkbookSheet); err != nil {
		return storageError(err, "write workbook")
	}
	if err := writeTextRow(f, 1, Fields); err != nil {
		return storageError(err, "write workbook")
	}
	for i, rec := range contents.rows {
		if err := writeTextRow(f, i+2, encodeRow(rec)); err != nil {
			return storageError(err, "write workbook")
		}
	}
	if err := writeControlSheet(f, contents.lastID); err != nil {
		return storageError(err, "write workbook")
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageError(err, "write workbook")
	}
	tmp, err := os.CreateTemp(dir, ".registros-*.xlsx")
	if err != nil {
		return storageError(err, "write workbook")
	}
	defer os.Remove(tmp.Name())

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return storageError(err, "write workbook")
	}
	if err := tmp.Close(); err != nil {
		return storageError(err, "write workbook")
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return storageError(err, "write workbook")
	}
	return nil
}

func writeControlSheet(f *excelize.File, lastID int64) error {
	if _, err := f.NewSheet(workbookMetaSheet); err != nil {
		return err
	}
	if err := f.SetCellStr(workbookMetaSheet, "A1", "lastId"); err != nil {
		return err
	}
	if err := f.SetCellStr(workbookMetaSheet, "B1", strconv.FormatInt(lastID, 10)); err != nil {
		return err
	}
	return f.SetSheetVisible(workbookMetaSheet, false)
}

func writeTextRow(f *excelize.File, row int, values []string) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(WorkbookSheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

func encodeRow(r Record) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
		r.LotID,
		r.ReservationID,
		string(r.Status),
		strconv.FormatInt(r.ProductCode, 10),
		r.Description,
		strconv.Itoa(r.Quantity),
		formatFloat(r.MeasuredMass),
		strconv.Itoa(r.RealWidth),
		strconv.Itoa(r.CutWidth),
		strconv.Itoa(r.RealLength),
		strconv.Itoa(r.CutLength),
		formatFloat(r.TheoreticalMass),
		formatFloat(r.Scrap),
	}
}

// decodeRow rejects cells it cannot read instead of defaulting them, so a bad
// hand edit surfaces as an error naming the row.
func decodeRow(cells []string) (Record, error) {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	var (
		rec Record
		err error
	)
	if rec.ID, err = coerceInt64(get(0)); err != nil || rec.ID <= 0 {
		return Record{}, fmt.Errorf("invalid id %q", get(0))
	}
	if rec.CreatedAt, err = coerceTime(get(1)); err != nil {
		return Record{}, err
	}
	rec.LotID = get(2)
	rec.ReservationID = get(3)
	rec.Status = enums.RecordStatusPending
	if raw := get(4); raw != "" {
		if rec.Status, err = enums.ParseRecordStatus(raw); err != nil {
			return Record{}, err
		}
	}
	if rec.ProductCode, err = coerceInt64(get(5)); err != nil {
		return Record{}, fmt.Errorf("%s: %w", Fields[5], err)
	}
	rec.Description = get(6)

	ints := []struct {
		col int
		dst *int
	}{{7, &rec.Quantity}, {9, &rec.RealWidth}, {10, &rec.CutWidth}, {11, &rec.RealLength}, {12, &rec.CutLength}}
	for _, c := range ints {
		v, err := coerceInt64(get(c.col))
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", Fields[c.col], err)
		}
		*c.dst = int(v)
	}

	floats := []struct {
		col int
		dst *float64
	}{{8, &rec.MeasuredMass}, {13, &rec.TheoreticalMass}, {14, &rec.Scrap}}
	for _, c := range floats {
		if *c.dst, err = coerceFloat(get(c.col)); err != nil {
			return Record{}, fmt.Errorf("%s: %w", Fields[c.col], err)
		}
	}
	return rec, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func coerceFloat(raw string) (float64, error) {
	d, err := catalog.ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	v, _ := d.Float64()
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is out of range", raw)
	}
	return v, nil
}

// groupedInt matches whole numbers written with thousands marks, "1.220" or "1,220".
var groupedInt = regexp.MustCompile(`^-?\d{1,3}([.,]\d{3})+$`)

func coerceInt64(raw string) (int64, error) {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	if groupedInt.MatchString(raw) {
		return strconv.ParseInt(strings.NewReplacer(".", "", ",", "").Replace(raw), 10, 64)
	}
	d, err := catalog.ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("%q is not a whole number", raw)
	}
	return d.IntPart(), nil
}

func coerceTime(raw string) (time.Time, error) {
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid createdAt %q", raw)
}
