package records

import (
	"context"
	"time"

	"github.com/brametal/chapas-backend/internal/repo"
	"github.com/brametal/chapas-backend/pkg/db"
	"github.com/brametal/chapas-backend/pkg/db/models"
	"github.com/brametal/chapas-backend/pkg/enums"
	"gorm.io/gorm"
)

// GormStore persists records in the production_records table.
type GormStore struct {
	repo.Base
	now func() time.Time
}

// NewGormStore binds the store to a connection or an open transaction.
func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{Base: repo.NewBase(conn), now: time.Now}
}

func (s *GormStore) Append(ctx context.Context, rec *Record) (int64, error) {
	if err := prepare(rec, s.now()); err != nil {
		return 0, err
	}
	row := toModel(*rec)
	if err := s.DB(ctx).Create(&row).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return 0, conflict(rec.ID)
		}
		return 0, storageError(err, "append")
	}
	rec.ID = row.ID
	return row.ID, nil
}

func (s *GormStore) List(ctx context.Context) ([]Record, error) {
	var rows []models.ProductionRecord
	if err := s.DB(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, storageError(err, "list")
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func (s *GormStore) Get(ctx context.Context, id int64) (Record, error) {
	var row models.ProductionRecord
	found, err := s.Take(ctx, &row, "id = ?", id)
	if err != nil {
		return Record{}, storageError(err, "read")
	}
	if !found {
		return Record{}, notFound(id)
	}
	return fromModel(row), nil
}

func (s *GormStore) UpdateStatus(ctx context.Context, id int64, status enums.RecordStatus) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	res := s.DB(ctx).Model(&models.ProductionRecord{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return storageError(res.Error, "update")
	}
	if res.RowsAffected == 0 {
		// zero rows also happens on some drivers when the value is unchanged
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) DeleteByID(ctx context.Context, id int64) error {
	res := s.DB(ctx).Where("id = ?", id).Delete(&models.ProductionRecord{})
	if res.Error != nil {
		return storageError(res.Error, "delete")
	}
	if res.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

func (s *GormStore) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.Clear(ctx, &models.ProductionRecord{})
	if err != nil {
		return 0, storageError(err, "clear")
	}
	return n, nil
}

func toModel(r Record) models.ProductionRecord {
	return models.ProductionRecord{
		ID:              r.ID,
		CreatedAt:       r.CreatedAt,
		LotID:           r.LotID,
		ReservationID:   r.ReservationID,
		Status:          r.Status,
		ProductCode:     r.ProductCode,
		Description:     r.Description,
		Quantity:        r.Quantity,
		MeasuredMass:    r.MeasuredMass,
		RealWidth:       r.RealWidth,
		CutWidth:        r.CutWidth,
		RealLength:      r.RealLength,
		CutLength:       r.CutLength,
		TheoreticalMass: r.TheoreticalMass,
		Scrap:           r.Scrap,
	}
}

func fromModel(m models.ProductionRecord) Record {
	return Record{
		ID:              m.ID,
		CreatedAt:       m.CreatedAt.UTC(),
		LotID:           m.LotID,
		ReservationID:   m.ReservationID,
		Status:          m.Status,
		ProductCode:     m.ProductCode,
		Description:     m.Description,
		Quantity:        m.Quantity,
		MeasuredMass:    m.MeasuredMass,
		RealWidth:       m.RealWidth,
		CutWidth:        m.CutWidth,
		RealLength:      m.RealLength,
		CutLength:       m.CutLength,
		TheoreticalMass: m.TheoreticalMass,
		Scrap:           m.Scrap,
	}
}
