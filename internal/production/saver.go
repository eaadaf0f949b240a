package production

import (
	"context"
	"errors"
	"fmt"

	"github.com/brametal/chapas-backend/internal/lots"
	"github.com/brametal/chapas-backend/internal/records"
	"github.com/brametal/chapas-backend/pkg/db"
	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/brametal/chapas-backend/pkg/logger"
	"github.com/brametal/chapas-backend/pkg/retry"
	"gorm.io/gorm"
)

const (
	stageValidate = "validate"
	stageAllocate = "allocate"
	stageAppend   = "append"
)

// Saver allocates a lot id for rec and persists it. On success rec carries the
// assigned ID and LotID.
type Saver interface {
	Save(ctx context.Context, rec *records.Record) error
	// Backends names the lot and record backends for metrics labels.
	Backends() (lotsBackend, recordsBackend string)
}

// Resetter is implemented by savers able to clear records and counters atomically.
type Resetter interface {
	ResetAll(ctx context.Context) (int64, error)
}

// stageError tags a save failure with the step that failed.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func failedStage(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return "unknown"
}

// TxSaver is used when lots and records live in the same SQL database. The
// counter increment and the insert commit together, so a failed insert never
// consumes a lot number.
type TxSaver struct {
	db     *db.Client
	policy retry.Policy
}

func NewTxSaver(client *db.Client, policy retry.Policy) (*TxSaver, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &TxSaver{db: client, policy: policy}, nil
}

func (t *TxSaver) Backends() (string, string) { return "sql", "sql" }

func (t *TxSaver) Save(ctx context.Context, rec *records.Record) error {
	draft := *rec
	err := retry.Do(ctx, t.policy, func(ctx context.Context) error {
		attempt := draft
		err := t.db.WithTx(ctx, func(tx *gorm.DB) error {
			lotID, err := lots.NewSQLSequencer(tx).Allocate(ctx, attempt.ProductCode)
			if err != nil {
				return &stageError{stage: stageAllocate, err: err}
			}
			attempt.LotID = lotID
			if _, err := records.NewGormStore(tx).Append(ctx, &attempt); err != nil {
				return &stageError{stage: stageAppend, err: err}
			}
			return nil
		})
		if err != nil {
			return err
		}
		*rec = attempt
		return nil
	})
	return err
}

// ResetAll deletes records and counters in one transaction.
func (t *TxSaver) ResetAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := t.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := records.NewGormStore(tx).ClearAll(ctx)
		if err != nil {
			return err
		}
		if err := lots.NewSQLSequencer(tx).Reset(ctx); err != nil {
			return err
		}
		deleted = n
		return nil
	})
	return deleted, err
}

// SequentialSaver is used when lots and records live in different backends.
// Allocation is never retried; a failed append after allocation leaves a gap in
// the sequence, which is logged, but never a duplicate id.
type SequentialSaver struct {
	lots           lots.Sequencer
	records        records.Store
	policy         retry.Policy
	logg           *logger.Logger
	lotsBackend    string
	recordsBackend string
}

// SequentialSaverParams wires a SequentialSaver.
type SequentialSaverParams struct {
	Lots           lots.Sequencer
	Records        records.Store
	Retry          retry.Policy
	Logger         *logger.Logger
	LotsBackend    string
	RecordsBackend string
}

func NewSequentialSaver(p SequentialSaverParams) (*SequentialSaver, error) {
	if p.Lots == nil {
		return nil, fmt.Errorf("lot sequencer required")
	}
	if p.Records == nil {
		return nil, fmt.Errorf("record store required")
	}
	return &SequentialSaver{
		lots:           p.Lots,
		records:        p.Records,
		policy:         p.Retry,
		logg:           p.Logger,
		lotsBackend:    p.LotsBackend,
		recordsBackend: p.RecordsBackend,
	}, nil
}

func (s *SequentialSaver) Backends() (string, string) { return s.lotsBackend, s.recordsBackend }

func (s *SequentialSaver) Save(ctx context.Context, rec *records.Record) error {
	// Reject invalid drafts before a lot number is consumed.
	probe := *rec
	probe.LotID = lots.FormatID(1)
	if err := probe.Validate(); err != nil {
		return &stageError{stage: stageValidate, err: err}
	}

	lotID, err := s.lots.Allocate(ctx, rec.ProductCode)
	if err != nil {
		return &stageError{stage: stageAllocate, err: err}
	}

	draft := *rec
	draft.LotID = lotID
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		attempt := draft
		if _, err := s.records.Append(ctx, &attempt); err != nil {
			return err
		}
		*rec = attempt
		return nil
	})
	if err != nil {
		if s.logg != nil {
			lctx := s.logg.WithLotID(s.logg.WithProductCode(ctx, rec.ProductCode), lotID)
			s.logg.Error(lctx, "record append failed after lot allocation, lot number skipped", err)
		}
		return &stageError{stage: stageAppend, err: withLot(err, lotID)}
	}
	return nil
}

func withLot(err error, lotID string) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Details() == nil && pkgerrors.MetadataFor(typed.Code()).DetailsAllowed {
		return pkgerrors.Wrap(typed.Code(), err, typed.Message()).WithDetails(map[string]any{"skippedLotId": lotID})
	}
	return err
}
