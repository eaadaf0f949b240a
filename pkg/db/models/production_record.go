package models

import (
	"time"

	"github.com/brametal/chapas-backend/pkg/enums"
)

// ProductionRecord is one saved wizard entry. Only Status changes after insert.
type ProductionRecord struct {
	ID              int64              `gorm:"column:id;primaryKey;autoIncrement"`
	CreatedAt       time.Time          `gorm:"column:created_at;not null"`
	LotID           string             `gorm:"column:lot_id;not null;index:idx_production_records_lot,priority:2"`
	ReservationID   string             `gorm:"column:reservation_id;not null"`
	Status          enums.RecordStatus `gorm:"column:status;not null;default:pending"`
	ProductCode     int64              `gorm:"column:product_code;not null;index:idx_production_records_lot,priority:1"`
	Description     string             `gorm:"column:description;not null"`
	Quantity        int                `gorm:"column:quantity;not null"`
	MeasuredMass    float64            `gorm:"column:measured_mass;not null"`
	RealWidth       int                `gorm:"column:real_width;not null"`
	CutWidth        int                `gorm:"column:cut_width;not null"`
	RealLength      int                `gorm:"column:real_length;not null"`
	CutLength       int                `gorm:"column:cut_length;not null"`
	TheoreticalMass float64            `gorm:"column:theoretical_mass;not null"`
	Scrap           float64            `gorm:"column:scrap;not null"`
}

func (ProductionRecord) TableName() string { return "production_records" }
