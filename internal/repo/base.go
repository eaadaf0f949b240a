package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base is embedded by the SQL lot sequencer and record store. It may wrap a
// plain connection or an open transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Take loads the first row matching query into dest. found is false, with a
// nil error, when no row matches.
func (b Base) Take(ctx context.Context, dest any, query string, args ...any) (found bool, err error) {
	err = b.DB(ctx).Where(query, args...).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear deletes every row of model's table and reports how many were removed.
func (b Base) Clear(ctx context.Context, model any) (int64, error) {
	res := b.DB(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model)
	return res.RowsAffected, res.Error
}
