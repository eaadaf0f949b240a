// Package catalog loads the product table that maps material codes to their
// description and mass factor.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/brametal/chapas-backend/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable is the cause attached to every error raised while no catalog is loaded.
var ErrUnavailable = errors.New("catalog unavailable")

const maxWarnings = 200

// Catalog serves lookups from the latest successfully loaded snapshot.
type Catalog struct {
	source  Source
	logg    *logger.Logger
	now     func() time.Time
	current atomic.Pointer[Snapshot]
	loads   singleflight.Group
}

// New builds a catalog reading from source. Call Load before serving lookups.
func New(source Source, logg *logger.Logger) *Catalog {
	return &Catalog{
		source: source,
		logg:   logg,
		now:    time.Now,
	}
}

// Load reads the source and swaps in a new snapshot. Concurrent calls share one
// read. A failed reload leaves the previous snapshot in place.
func (c *Catalog) Load(ctx context.Context) (LoadReport, error) {
	v, err, _ := c.loads.Do("load", func() (any, error) {
		return c.load(ctx)
	})
	if err != nil {
		return LoadReport{}, err
	}
	return v.(LoadReport), nil
}

func (c *Catalog) load(ctx context.Context) (LoadReport, error) {
	if c.source == nil {
		return LoadReport{}, unavailable(fmt.Errorf("no catalog source configured"))
	}

	rows, err := c.source.Rows(ctx)
	if err != nil {
		c.logError(ctx, "catalog source unreadable", err)
		return LoadReport{}, unavailable(err)
	}

	snap, err := Build(c.source.Name(), rows, c.now().UTC())
	if err != nil {
		c.logError(ctx, "catalog rejected", err)
		return LoadReport{}, err
	}

	c.current.Store(snap)
	report := snap.Report()
	if c.logg != nil {
		fields := map[string]any{
			"source":       report.Source,
			"products":     report.Products,
			"skipped":      report.Skipped,
			"zero_factors": len(report.ZeroFactors),
		}
		c.logg.Info(c.logg.WithFields(ctx, fields), "catalog loaded")
		if len(report.ZeroFactors) > 0 {
			c.logg.Warn(c.logg.WithField(ctx, "codes", report.ZeroFactors), "catalog products with zero mass factor")
		}
	}
	return report, nil
}

func (c *Catalog) logError(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Error(c.logg.WithField(ctx, "source", c.source.Name()), msg, err)
}

// Lookup returns the product for code. It fails with CATALOG_UNAVAILABLE when
// nothing is loaded and NOT_FOUND for unknown codes.
func (c *Catalog) Lookup(code int64) (Product, error) {
	snap := c.current.Load()
	if snap == nil {
		return Product{}, unavailable(nil)
	}
	p, ok := snap.Lookup(code)
	if !ok {
		return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d not found in catalog", code))
	}
	return p, nil
}

// Snapshot returns the active snapshot, or nil before the first successful load.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Available reports whether operator entry can proceed.
func (c *Catalog) Available() bool {
	return c.current.Load() != nil
}

// Report returns the load report of the active snapshot.
func (c *Catalog) Report() (LoadReport, error) {
	snap := c.current.Load()
	if snap == nil {
		return LoadReport{}, unavailable(nil)
	}
	return snap.Report(), nil
}

// Build turns a raw table into a snapshot. The first row holds the headers.
// Duplicate codes keep the first occurrence.
func Build(source string, rows [][]string, loadedAt time.Time) (*Snapshot, error) {
	if len(rows) == 0 {
		return nil, unavailable(fmt.Errorf("catalog %q is empty", source))
	}

	idx, cols, ok := detectColumns(rows[0])
	if !ok {
		return nil, unavailable(fmt.Errorf("catalog %q: product or mass factor column not found", source)).
			WithDetails(map[string]any{"headers": rows[0]})
	}

	report := LoadReport{
		Source:      source,
		LoadedAt:    loadedAt,
		Columns:     cols,
		ZeroFactors: []int64{},
		Warnings:    []RowWarning{},
	}
	products := make(map[int64]Product, len(rows))

	warn := func(row int, format string, args ...any) {
		if len(report.Warnings) < maxWarnings {
			report.Warnings = append(report.Warnings, RowWarning{Row: row, Message: fmt.Sprintf(format, args...)})
		}
	}

	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		report.Rows++

		code, err := ParseCode(cell(row, idx.product))
		if err != nil {
			report.Skipped++
			warn(line, "skipped: %v", err)
			continue
		}
		if _, dup := products[code]; dup {
			report.Skipped++
			warn(line, "duplicate product %d ignored", code)
			continue
		}

		factor, err := ParseFactor(cell(row, idx.factor))
		if err != nil {
			warn(line, "product %d: %v, using 0", code, err)
		}
		if factor == 0 {
			report.ZeroFactors = append(report.ZeroFactors, code)
		}

		products[code] = Product{
			Code:        code,
			Description: cell(row, idx.description),
			MassFactor:  factor,
		}
	}

	sort.Slice(report.ZeroFactors, func(a, b int) bool { return report.ZeroFactors[a] < report.ZeroFactors[b] })
	report.Products = len(products)
	return &Snapshot{products: products, report: report}, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return trimCell(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if trimCell(v) != "" {
			return false
		}
	}
	return true
}

func unavailable(cause error) *pkgerrors.Error {
	if cause == nil {
		cause = ErrUnavailable
	} else {
		cause = fmt.Errorf("%w: %w", ErrUnavailable, cause)
	}
	return pkgerrors.Wrap(pkgerrors.CodeCatalogUnavailable, cause, "product catalog unavailable")
}
