package maintenance

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/brametal/chapas-backend/internal/lots"
	"github.com/brametal/chapas-backend/internal/records"
	"github.com/brametal/chapas-backend/pkg/logger"
)

const LotAuditJobName = "lot_audit"

type recordLister interface {
	List(ctx context.Context) ([]records.Record, error)
}

type counterLister interface {
	List(ctx context.Context) ([]lots.Counter, error)
}

// Drift is a product whose counter sits below a lot number already recorded.
// The next allocation for it would reissue an existing lot id.
type Drift struct {
	ProductCode     int64
	LastNumber      int64
	HighestRecorded int64
}

// AuditLots compares each counter with the highest lot recorded for its product.
func AuditLots(ctx context.Context, recs recordLister, counters counterLister) ([]Drift, error) {
	var (
		rows []records.Record
		cs   []lots.Counter
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = recs.List(gctx)
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cs, err = counters.List(gctx)
		if err != nil {
			return fmt.Errorf("list lot counters: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	highest := map[int64]int64{}
	for _, rec := range rows {
		n, err := lots.ParseID(rec.LotID)
		if err != nil {
			continue
		}
		if n > highest[rec.ProductCode] {
			highest[rec.ProductCode] = n
		}
	}
	last := make(map[int64]int64, len(cs))
	for _, c := range cs {
		last[c.ProductCode] = c.LastNumber
	}

	var drifts []Drift
	for code, max := range highest {
		if last[code] < max {
			drifts = append(drifts, Drift{ProductCode: code, LastNumber: last[code], HighestRecorded: max})
		}
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].ProductCode < drifts[j].ProductCode })
	return drifts, nil
}

// LotAuditJob warns about counters that fell behind the records, typically after
// a super-admin override or a restored workbook. It never repairs them.
type LotAuditJob struct {
	records  recordLister
	counters counterLister
	logg     *logger.Logger
}

func NewLotAuditJob(recs recordLister, counters counterLister, logg *logger.Logger) *LotAuditJob {
	return &LotAuditJob{records: recs, counters: counters, logg: logg}
}

func (j *LotAuditJob) Name() string { return LotAuditJobName }

func (j *LotAuditJob) Run(ctx context.Context) error {
	drifts, err := AuditLots(ctx, j.records, j.counters)
	if err != nil {
		return err
	}
	if j.logg == nil {
		return nil
	}
	for _, d := range drifts {
		driftCtx := j.logg.WithFields(j.logg.WithProductCode(ctx, d.ProductCode), map[string]any{
			"last_number":      d.LastNumber,
			"highest_recorded": d.HighestRecorded,
		})
		j.logg.Warn(driftCtx, "lot counter behind recorded lots, next allocation would repeat an id")
	}
	return nil
}
