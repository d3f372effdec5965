package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dieworks-backend/internal/model"
)

func (s *gormStore) CreateDieType(ctx context.Context, in MasterDataInput) (*model.DieType, error) {
	code, name, active, err := newMasterData(in)
	if err != nil {
		return nil, err
	}
	dt := model.DieType{Code: code, Name: name, IsActive: active}
	if err := createUniqueCode(ctx, s.db, &dt, code, "die type"); err != nil {
		return nil, err
	}
	return &dt, nil
}

func (s *gormStore) ListDieTypes(ctx context.Context, f ListFilter) ([]model.DieType, error) {
	return listMasterData[model.DieType](ctx, s.db, f, "die types")
}

func (s *gormStore) GetDieType(ctx context.Context, id int64) (*model.DieType, error) {
	var dt model.DieType
	if err := s.db.WithContext(ctx).First(&dt, id).Error; err != nil {
		return nil, dbErr(err, "die type %d", id)
	}
	return &dt, nil
}

func (s *gormStore) UpdateDieType(ctx context.Context, id int64, in MasterDataInput) (*model.DieType, error) {
	var dt model.DieType
	if err := s.updateMasterData(ctx, &dt, id, in, "die type"); err != nil {
		return nil, err
	}
	return &dt, nil
}

func (s *gormStore) CreateComponentType(ctx context.Context, in MasterDataInput) (*model.ComponentType, error) {
	code, name, active, err := newMasterData(in)
	if err != nil {
		return nil, err
	}
	ct := model.ComponentType{Code: code, Name: name, IsActive: active}
	if err := createUniqueCode(ctx, s.db, &ct, code, "component type"); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (s *gormStore) ListComponentTypes(ctx context.Context, f ListFilter) ([]model.ComponentType, error) {
	return listMasterData[model.ComponentType](ctx, s.db, f, "component types")
}

func (s *gormStore) GetComponentType(ctx context.Context, id int64) (*model.ComponentType, error) {
	var ct model.ComponentType
	err := s.db.WithContext(ctx).
		Preload("Steps", ordered("sequence_number")).
		Preload("Steps.WorkCenter").
		First(&ct, id).Error
	if err != nil {
		return nil, dbErr(err, "component type %d", id)
	}
	return &ct, nil
}

func (s *gormStore) UpdateComponentType(ctx context.Context, id int64, in MasterDataInput) (*model.ComponentType, error) {
	var ct model.ComponentType
	if err := s.updateMasterData(ctx, &ct, id, in, "component type"); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (s *gormStore) ListComponentTypeSteps(ctx context.Context, componentTypeID int64) ([]model.ComponentTypeStep, error) {
	ct, err := s.GetComponentType(ctx, componentTypeID)
	if err != nil {
		return nil, err
	}
	return ct.Steps, nil
}

// ReplaceComponentTypeSteps swaps the whole BOM route of a component type.
// Existing work orders keep the operations they were created with.
func (s *gormStore) ReplaceComponentTypeSteps(ctx context.Context, componentTypeID int64, steps []StepInput) ([]model.ComponentTypeStep, error) {
	seen := make(map[int]bool, len(steps))
	centers := make(map[int64]bool)
	for _, st := range steps {
		switch {
		case st.SequenceNumber <= 0:
			return nil, invalid("sequence number must be positive, got %d", st.SequenceNumber)
		case seen[st.SequenceNumber]:
			return nil, invalid("duplicate sequence number %d", st.SequenceNumber)
		case strings.TrimSpace(st.Name) == "":
			return nil, invalid("step %d: name is required", st.SequenceNumber)
		case st.EstimatedMinutes < 0:
			return nil, invalid("step %d: estimated minutes must not be negative", st.SequenceNumber)
		}
		seen[st.SequenceNumber] = true
		centers[st.WorkCenterID] = true
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ct model.ComponentType
		if err := tx.First(&ct, componentTypeID).Error; err != nil {
			return dbErr(err, "component type %d", componentTypeID)
		}

		if len(centers) > 0 {
			ids := make([]int64, 0, len(centers))
			for id := range centers {
				ids = append(ids, id)
			}
			var found int64
			if err := tx.Model(&model.WorkCenter{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
				return fmt.Errorf("check work centers: %w", err)
			}
			if found != int64(len(ids)) {
				return invalid("unknown work center in steps")
			}
		}

		if err := tx.Where("component_type_id = ?", componentTypeID).Delete(&model.ComponentTypeStep{}).Error; err != nil {
			return fmt.Errorf("delete steps of component type %d: %w", componentTypeID, err)
		}
		if len(steps) == 0 {
			return nil
		}

		rows := make([]model.ComponentTypeStep, len(steps))
		for i, st := range steps {
			rows[i] = model.ComponentTypeStep{
				ComponentTypeID:  componentTypeID,
				SequenceNumber:   st.SequenceNumber,
				Name:             strings.TrimSpace(st.Name),
				WorkCenterID:     st.WorkCenterID,
				EstimatedMinutes: st.EstimatedMinutes,
			}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return dbErr(err, "create steps of component type %d", componentTypeID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ListComponentTypeSteps(ctx, componentTypeID)
}

func (s *gormStore) CreateWorkCenter(ctx context.Context, in MasterDataInput) (*model.WorkCenter, error) {
	code, name, active, err := newMasterData(in)
	if err != nil {
		return nil, err
	}
	wc := model.WorkCenter{Code: code, Name: name, IsActive: active}
	if err := createUniqueCode(ctx, s.db, &wc, code, "work center"); err != nil {
		return nil, err
	}
	return &wc, nil
}

func (s *gormStore) ListWorkCenters(ctx context.Context, f ListFilter) ([]model.WorkCenter, error) {
	return listMasterData[model.WorkCenter](ctx, s.db, f, "work centers")
}

func (s *gormStore) GetWorkCenter(ctx context.Context, id int64) (*model.WorkCenter, error) {
	var wc model.WorkCenter
	if err := s.db.WithContext(ctx).First(&wc, id).Error; err != nil {
		return nil, dbErr(err, "work center %d", id)
	}
	return &wc, nil
}

func (s *gormStore) UpdateWorkCenter(ctx context.Context, id int64, in MasterDataInput) (*model.WorkCenter, error) {
	var wc model.WorkCenter
	if err := s.updateMasterData(ctx, &wc, id, in, "work center"); err != nil {
		return nil, err
	}
	return &wc, nil
}

// DeleteWorkCenter removes a work center nothing refers to. Referenced work
// centers can only be deactivated.
func (s *gormStore) DeleteWorkCenter(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wc model.WorkCenter
		if err := tx.First(&wc, id).Error; err != nil {
			return dbErr(err, "work center %d", id)
		}

		for _, ref := range []struct {
			model any
			what  string
		}{
			{&model.ComponentTypeStep{}, "BOM steps"},
			{&model.WorkOrderOperation{}, "operations"},
		} {
			var n int64
			if err := tx.Model(ref.model).Where("work_center_id = ?", id).Count(&n).Error; err != nil {
				return fmt.Errorf("count %s of work center %d: %w", ref.what, id, err)
			}
			if n > 0 {
				return fmt.Errorf("work center %d is used by %d %s: %w", id, n, ref.what, ErrConflict)
			}
		}

		if err := tx.Exec("DELETE FROM operator_work_centers WHERE work_center_id = ?", id).Error; err != nil {
			return fmt.Errorf("clear operators of work center %d: %w", id, err)
		}
		if err := tx.Exec("DELETE FROM subscription_work_centers WHERE work_center_id = ?", id).Error; err != nil {
			return fmt.Errorf("clear subscriptions of work center %d: %w", id, err)
		}
		if err := tx.Delete(&wc).Error; err != nil {
			return fmt.Errorf("delete work center %d: %w", id, err)
		}
		return nil
	})
}

func newMasterData(in MasterDataInput) (code, name string, active bool, err error) {
	code = strings.TrimSpace(in.Code)
	name = strings.TrimSpace(in.Name)
	if code == "" {
		return "", "", false, invalid("code is required")
	}
	if name == "" {
		return "", "", false, invalid("name is required")
	}
	active = true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return code, name, active, nil
}

func createUniqueCode(ctx context.Context, db *gorm.DB, row any, code, what string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(row).Where("code = ?", code).Count(&n).Error; err != nil {
			return fmt.Errorf("check %s code: %w", what, err)
		}
		if n > 0 {
			return fmt.Errorf("%s code %q already exists: %w", what, code, ErrConflict)
		}
		if err := tx.Create(row).Error; err != nil {
			return dbErr(err, "create %s", what)
		}
		return nil
	})
}

func listMasterData[T any](ctx context.Context, db *gorm.DB, f ListFilter, what string) ([]T, error) {
	q := db.WithContext(ctx)
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	var rows []T
	if err := q.Order("code").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	return rows, nil
}

// updateMasterData applies in to the row with the given id and reloads it into dest.
func (s *gormStore) updateMasterData(ctx context.Context, dest any, id int64, in MasterDataInput, what string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(dest, id).Error; err != nil {
			return dbErr(err, "%s %d", what, id)
		}

		updates := map[string]any{}
		if code := strings.TrimSpace(in.Code); code != "" {
			var n int64
			if err := tx.Model(dest).Where("code = ? AND id <> ?", code, id).Count(&n).Error; err != nil {
				return fmt.Errorf("check %s code: %w", what, err)
			}
			if n > 0 {
				return fmt.Errorf("%s code %q already exists: %w", what, code, ErrConflict)
			}
			updates["code"] = code
		}
		if name := strings.TrimSpace(in.Name); name != "" {
			updates["name"] = name
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(dest).Updates(updates).Error; err != nil {
			return dbErr(err, "update %s %d", what, id)
		}
		return tx.First(dest, id).Error
	})
}
