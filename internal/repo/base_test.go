package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   int64 `gorm:"primaryKey"`
	Code int64
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestBaseDBBindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}
	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseTakeReportsMissingRows(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	ctx := context.Background()

	var w widget
	found, err := base.Take(ctx, &w, "code = ?", 12345)
	if err != nil || found {
		t.Fatalf("expected missing row, found=%v err=%v", found, err)
	}

	if err := db.Create(&widget{Code: 12345}).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	found, err = base.Take(ctx, &w, "code = ?", 12345)
	if err != nil || !found || w.Code != 12345 {
		t.Fatalf("expected row, found=%v err=%v row=%+v", found, err, w)
	}
}

func TestBaseClearRemovesEveryRow(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	for _, code := range []int64{1, 2, 3} {
		if err := db.Create(&widget{Code: code}).Error; err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	n, err := base.Clear(context.Background(), &widget{})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}
	var count int64
	db.Model(&widget{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected empty table, got %d", count)
	}
}
