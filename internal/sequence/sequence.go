// Package sequence hands out per-key counters for order numbering.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dieworks-backend/internal/model"
)

// Scopes in use.
const (
	ScopeProductionOrder = "production_order"
)

// Key names one counter.
type Key struct {
	Scope string
	Name  string
}

func (k Key) String() string {
	return k.Scope + ":" + k.Name
}

// Source returns the next value of a counter. tx is the caller's open
// transaction; sources that keep state in the database must use it.
type Source interface {
	Next(ctx context.Context, tx *gorm.DB, key Key) (int, error)
}

// GormSource keeps counters in the sequences table.
type GormSource struct {
	now func() time.Time
}

// NewGormSource returns the database-backed source.
func NewGormSource() *GormSource {
	return &GormSource{now: time.Now}
}

// Next increments and returns the counter. The UPDATE takes the row lock, so
// concurrent callers are serialized for the lifetime of tx.
func (s *GormSource) Next(ctx context.Context, tx *gorm.DB, key Key) (int, error) {
	tx = tx.WithContext(ctx)

	// Two rounds: a concurrent first use may win the insert, after which the
	// update succeeds.
	for attempt := 0; attempt < 2; attempt++ {
		now := s.now()
		res := tx.Model(&model.Sequence{}).
			Where("scope = ? AND name = ?", key.Scope, key.Name).
			Updates(map[string]any{"value": gorm.Expr("value + 1"), "updated_at": now})
		if res.Error != nil {
			return 0, fmt.Errorf("increment sequence %s: %w", key, res.Error)
		}
		if res.RowsAffected > 0 {
			value, err := s.Current(ctx, tx, key)
			if err != nil {
				return 0, err
			}
			return int(value), nil
		}

		row := model.Sequence{Scope: key.Scope, Name: key.Name, Value: 1, UpdatedAt: now}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if ins.Error != nil {
			return 0, fmt.Errorf("create sequence %s: %w", key, ins.Error)
		}
		if ins.RowsAffected == 1 {
			return 1, nil
		}
	}
	return 0, fmt.Errorf("sequence %s: contended on first use", key)
}

// Current returns the last value handed out, zero if none.
func (s *GormSource) Current(ctx context.Context, tx *gorm.DB, key Key) (int64, error) {
	var row model.Sequence
	err := tx.WithContext(ctx).
		Where("scope = ? AND name = ?", key.Scope, key.Name).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", key, err)
	}
	return row.Value, nil
}
