package models

import "time"

// LotCounter stores the last lot number handed out for a product code.
type LotCounter struct {
	ProductCode int64     `gorm:"column:product_code;primaryKey;autoIncrement:false"`
	LastNumber  int64     `gorm:"column:last_number;not null;default:0"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (LotCounter) TableName() string { return "lot_counters" }
