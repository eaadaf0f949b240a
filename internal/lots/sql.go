package lots

import (
	"context"
	"time"

	"github.com/brametal/chapas-backend/internal/repo"
	"github.com/brametal/chapas-backend/pkg/db/models"
	"gorm.io/gorm"
)

// allocateSQL relies on the row lock taken by the upsert, so two callers for
// the same code serialise inside the database. Postgres and SQLite (3.35+)
// both accept it.
const allocateSQL = `INSERT INTO lot_counters (product_code, last_number, updated_at)
VALUES (?, 1, ?)
ON CONFLICT (product_code) DO UPDATE
SET last_number = lot_counters.last_number + 1, updated_at = excluded.updated_at
RETURNING last_number`

const overrideSQL = `INSERT INTO lot_counters (product_code, last_number, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (product_code) DO UPDATE
SET last_number = excluded.last_number, updated_at = excluded.updated_at`

// SQLSequencer stores counters in the lot_counters table.
type SQLSequencer struct {
	repo.Base
}

// NewSQLSequencer binds the sequencer to a connection or an open transaction.
func NewSQLSequencer(db *gorm.DB) *SQLSequencer {
	return &SQLSequencer{Base: repo.NewBase(db)}
}

func (s *SQLSequencer) Allocate(ctx context.Context, code int64) (string, error) {
	if err := validateCode(code); err != nil {
		return "", err
	}
	var next int64
	row := s.DB(ctx).Raw(allocateSQL, code, time.Now().UTC()).Row()
	if err := row.Scan(&next); err != nil {
		return "", storageError(err, "allocate")
	}
	return FormatID(next), nil
}

func (s *SQLSequencer) Peek(ctx context.Context, code int64) (string, error) {
	if err := validateCode(code); err != nil {
		return "", err
	}
	counter, err := s.Get(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return FormatID(1), nil
		}
		return "", err
	}
	return counter.Next(), nil
}

func (s *SQLSequencer) Override(ctx context.Context, code int64, lastNumber int64) error {
	if err := validateOverride(code, lastNumber); err != nil {
		return err
	}
	if err := s.DB(ctx).Exec(overrideSQL, code, lastNumber, time.Now().UTC()).Error; err != nil {
		return storageError(err, "override")
	}
	return nil
}

func (s *SQLSequencer) Get(ctx context.Context, code int64) (Counter, error) {
	var row models.LotCounter
	found, err := s.Take(ctx, &row, "product_code = ?", code)
	if err != nil {
		return Counter{}, storageError(err, "read")
	}
	if !found {
		return Counter{}, counterNotFound(code)
	}
	return Counter{ProductCode: row.ProductCode, LastNumber: row.LastNumber}, nil
}

func (s *SQLSequencer) List(ctx context.Context) ([]Counter, error) {
	var rows []models.LotCounter
	if err := s.DB(ctx).Order("product_code ASC").Find(&rows).Error; err != nil {
		return nil, storageError(err, "list")
	}
	out := make([]Counter, 0, len(rows))
	for _, row := range rows {
		out = append(out, Counter{ProductCode: row.ProductCode, LastNumber: row.LastNumber})
	}
	return out, nil
}

func (s *SQLSequencer) Reset(ctx context.Context) error {
	if _, err := s.Clear(ctx, &models.LotCounter{}); err != nil {
		return storageError(err, "reset")
	}
	return nil
}
