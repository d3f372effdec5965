package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dieworks-backend/internal/calc"
	"dieworks-backend/internal/model"
)

func (s *gormStore) CreateDie(ctx context.Context, in DieInput) (*model.Die, error) {
	number := strings.TrimSpace(in.DieNumber)
	switch {
	case number == "":
		return nil, invalid("die number is required")
	case !(in.DieDiameterMm > 0):
		return nil, invalid("die diameter must be positive")
	case in.TotalPackageLengthMm < 0:
		return nil, invalid("total package length must not be negative")
	}

	die := model.Die{
		DieNumber:            number,
		DieTypeID:            in.DieTypeID,
		Customer:             strings.TrimSpace(in.Customer),
		DieDiameterMm:        in.DieDiameterMm,
		TotalPackageLengthMm: in.TotalPackageLengthMm,
		Status:               model.DieStatusDraft,
		Notes:                in.Notes,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dt model.DieType
		if err := tx.First(&dt, in.DieTypeID).Error; err != nil {
			return dbErr(err, "die type %d", in.DieTypeID)
		}
		var n int64
		if err := tx.Model(&model.Die{}).Where("die_number = ?", number).Count(&n).Error; err != nil {
			return fmt.Errorf("check die number: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("die %q already exists: %w", number, ErrConflict)
		}
		if err := tx.Create(&die).Error; err != nil {
			return dbErr(err, "create die %s", number)
		}
		die.DieType = &dt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &die, nil
}

func (s *gormStore) ListDies(ctx context.Context, f DieFilter) ([]model.Die, error) {
	q := s.db.WithContext(ctx).Preload("DieType")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var dies []model.Die
	if err := q.Order("id DESC").Find(&dies).Error; err != nil {
		return nil, fmt.Errorf("list dies: %w", err)
	}
	return dies, nil
}

func (s *gormStore) GetDie(ctx context.Context, id int64) (*model.Die, error) {
	return getDie(s.db.WithContext(ctx), id)
}

func getDie(tx *gorm.DB, id int64) (*model.Die, error) {
	var die model.Die
	err := tx.Preload("DieType").
		Preload("Components", ordered("id")).
		Preload("Components.ComponentType").
		Preload("Components.SteelStockItem").
		Preload("Files", ordered("id")).
		First(&die, id).Error
	if err != nil {
		return nil, dbErr(err, "die %d", id)
	}
	return &die, nil
}

func (s *gormStore) UpdateDie(ctx context.Context, id int64, in DieUpdate) (*model.Die, error) {
	updates := map[string]any{}
	if in.DieTypeID != nil {
		updates["die_type_id"] = *in.DieTypeID
	}
	if in.Customer != nil {
		updates["customer"] = strings.TrimSpace(*in.Customer)
	}
	if in.DieDiameterMm != nil {
		if !(*in.DieDiameterMm > 0) {
			return nil, invalid("die diameter must be positive")
		}
		updates["die_diameter_mm"] = *in.DieDiameterMm
	}
	if in.TotalPackageLengthMm != nil {
		if *in.TotalPackageLengthMm < 0 {
			return nil, invalid("total package length must not be negative")
		}
		updates["total_package_length_mm"] = *in.TotalPackageLengthMm
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}

	var die *model.Die
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur model.Die
		if err := tx.First(&cur, id).Error; err != nil {
			return dbErr(err, "die %d", id)
		}
		if cur.Status == model.DieStatusCompleted {
			return fmt.Errorf("die %s is completed: %w", cur.DieNumber, ErrInvalidTransition)
		}
		if in.DieTypeID != nil {
			var dt model.DieType
			if err := tx.First(&dt, *in.DieTypeID).Error; err != nil {
				return dbErr(err, "die type %d", *in.DieTypeID)
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&cur).Updates(updates).Error; err != nil {
				return fmt.Errorf("update die %d: %w", id, err)
			}
		}
		var err error
		die, err = getDie(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return die, nil
}

// SetDieStatus moves a die forward in its lifecycle. Steps may be skipped,
// going back is rejected.
func (s *gormStore) SetDieStatus(ctx context.Context, id int64, status model.DieStatus) (*model.Die, error) {
	if !status.Valid() {
		return nil, invalid("unknown die status %q", status)
	}

	var die *model.Die
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur model.Die
		if err := tx.First(&cur, id).Error; err != nil {
			return dbErr(err, "die %d", id)
		}
		if status.Rank() <= cur.Status.Rank() {
			return fmt.Errorf("die %s: %s to %s: %w", cur.DieNumber, cur.Status, status, ErrInvalidTransition)
		}
		res := tx.Model(&model.Die{}).
			Where("id = ? AND status = ?", id, cur.Status).
			Update("status", status)
		if res.Error != nil {
			return fmt.Errorf("update die %d status: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("die %s changed concurrently: %w", cur.DieNumber, ErrInvalidTransition)
		}
		var err error
		die, err = getDie(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return die, nil
}

// DeleteDie removes a draft die with its components and file records. The
// returned files still have to be removed from object storage.
func (s *gormStore) DeleteDie(ctx context.Context, id int64) ([]model.DieFile, error) {
	var files []model.DieFile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var die model.Die
		if err := tx.First(&die, id).Error; err != nil {
			return dbErr(err, "die %d", id)
		}
		if die.Status != model.DieStatusDraft {
			return fmt.Errorf("die %s is %s, only drafts can be deleted: %w", die.DieNumber, die.Status, ErrInvalidTransition)
		}
		if err := tx.Where("die_id = ?", id).Find(&files).Error; err != nil {
			return fmt.Errorf("list files of die %d: %w", id, err)
		}
		if err := tx.Where("die_id = ?", id).Delete(&model.DieFile{}).Error; err != nil {
			return fmt.Errorf("delete files of die %d: %w", id, err)
		}
		if err := tx.Where("die_id = ?", id).Delete(&model.DieComponent{}).Error; err != nil {
			return fmt.Errorf("delete components of die %d: %w", id, err)
		}
		if err := tx.Delete(&die).Error; err != nil {
			return fmt.Errorf("delete die %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (s *gormStore) ListComponents(ctx context.Context, dieID int64) ([]model.DieComponent, error) {
	die, err := s.GetDie(ctx, dieID)
	if err != nil {
		return nil, err
	}
	return die.Components, nil
}

// editableDie loads a die whose bill of materials may still change.
func editableDie(tx *gorm.DB, dieID int64) (*model.Die, error) {
	var die model.Die
	if err := tx.First(&die, dieID).Error; err != nil {
		return nil, dbErr(err, "die %d", dieID)
	}
	if die.Status != model.DieStatusDraft && die.Status != model.DieStatusWaiting {
		return nil, fmt.Errorf("die %s is %s, components are frozen: %w", die.DieNumber, die.Status, ErrInvalidTransition)
	}
	return &die, nil
}

func (s *gormStore) AddComponent(ctx context.Context, dieID int64, in ComponentInput) (*model.DieComponent, error) {
	if !(in.PackageLengthMm > 0) {
		return nil, invalid("package length must be positive")
	}

	var comp model.DieComponent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := editableDie(tx, dieID); err != nil {
			return err
		}
		var ct model.ComponentType
		if err := tx.First(&ct, in.ComponentTypeID).Error; err != nil {
			return dbErr(err, "component type %d", in.ComponentTypeID)
		}
		var item model.SteelStockItem
		if err := tx.First(&item, in.SteelStockItemID).Error; err != nil {
			return dbErr(err, "stock item %d", in.SteelStockItemID)
		}

		comp = model.DieComponent{
			DieID:                    dieID,
			ComponentTypeID:          ct.ID,
			SteelStockItemID:         item.ID,
			PackageLengthMm:          in.PackageLengthMm,
			TheoreticalConsumptionKg: calc.CalculateTheoreticalConsumption(in.PackageLengthMm, item.DiameterMm),
		}
		if err := tx.Create(&comp).Error; err != nil {
			return fmt.Errorf("create component of die %d: %w", dieID, err)
		}
		comp.ComponentType = &ct
		comp.SteelStockItem = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

// UpdateComponent changes a component and recomputes its theoretical consumption.
func (s *gormStore) UpdateComponent(ctx context.Context, dieID, componentID int64, in ComponentInput) (*model.DieComponent, error) {
	if in.PackageLengthMm < 0 {
		return nil, invalid("package length must be positive")
	}

	var comp model.DieComponent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := editableDie(tx, dieID); err != nil {
			return err
		}
		if err := tx.Where("die_id = ?", dieID).First(&comp, componentID).Error; err != nil {
			return dbErr(err, "component %d of die %d", componentID, dieID)
		}
		if err := componentUnproduced(tx, componentID); err != nil {
			return err
		}

		if in.ComponentTypeID != 0 {
			comp.ComponentTypeID = in.ComponentTypeID
		}
		if in.SteelStockItemID != 0 {
			comp.SteelStockItemID = in.SteelStockItemID
		}
		if in.PackageLengthMm != 0 {
			comp.PackageLengthMm = in.PackageLengthMm
		}

		var ct model.ComponentType
		if err := tx.First(&ct, comp.ComponentTypeID).Error; err != nil {
			return dbErr(err, "component type %d", comp.ComponentTypeID)
		}
		var item model.SteelStockItem
		if err := tx.First(&item, comp.SteelStockItemID).Error; err != nil {
			return dbErr(err, "stock item %d", comp.SteelStockItemID)
		}
		comp.TheoreticalConsumptionKg = calc.CalculateTheoreticalConsumption(comp.PackageLengthMm, item.DiameterMm)

		if err := tx.Model(&comp).Updates(map[string]any{
			"component_type_id":          comp.ComponentTypeID,
			"steel_stock_item_id":        comp.SteelStockItemID,
			"package_length_mm":          comp.PackageLengthMm,
			"theoretical_consumption_kg": comp.TheoreticalConsumptionKg,
		}).Error; err != nil {
			return fmt.Errorf("update component %d: %w", componentID, err)
		}
		comp.ComponentType = &ct
		comp.SteelStockItem = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

// componentUnproduced rejects changes to a component that work orders were
// already cut from; they carry its stock item and consumption.
func componentUnproduced(tx *gorm.DB, componentID int64) error {
	var n int64
	if err := tx.Model(&model.WorkOrder{}).Where("die_component_id = ?", componentID).Count(&n).Error; err != nil {
		return fmt.Errorf("count work orders of component %d: %w", componentID, err)
	}
	if n > 0 {
		return fmt.Errorf("component %d has %d work orders: %w", componentID, n, ErrConflict)
	}
	return nil
}

func (s *gormStore) DeleteComponent(ctx context.Context, dieID, componentID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := editableDie(tx, dieID); err != nil {
			return err
		}
		var comp model.DieComponent
		if err := tx.Where("die_id = ?", dieID).First(&comp, componentID).Error; err != nil {
			return dbErr(err, "component %d of die %d", componentID, dieID)
		}
		if err := componentUnproduced(tx, componentID); err != nil {
			return err
		}
		if err := tx.Delete(&comp).Error; err != nil {
			return fmt.Errorf("delete component %d: %w", componentID, err)
		}
		return nil
	})
}

func (s *gormStore) AddDieFile(ctx context.Context, f *model.DieFile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var die model.Die
		if err := tx.First(&die, f.DieID).Error; err != nil {
			return dbErr(err, "die %d", f.DieID)
		}
		if err := tx.Create(f).Error; err != nil {
			return dbErr(err, "create file %s", f.FileName)
		}
		return nil
	})
}

func (s *gormStore) ListDieFiles(ctx context.Context, dieID int64) ([]model.DieFile, error) {
	var die model.Die
	if err := s.db.WithContext(ctx).First(&die, dieID).Error; err != nil {
		return nil, dbErr(err, "die %d", dieID)
	}
	var files []model.DieFile
	if err := s.db.WithContext(ctx).Where("die_id = ?", dieID).Order("id").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files of die %d: %w", dieID, err)
	}
	return files, nil
}

func (s *gormStore) DeleteDieFile(ctx context.Context, dieID, fileID int64) (*model.DieFile, error) {
	var f model.DieFile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("die_id = ?", dieID).First(&f, fileID).Error; err != nil {
			return dbErr(err, "file %d of die %d", fileID, dieID)
		}
		if err := tx.Delete(&f).Error; err != nil {
			return fmt.Errorf("delete file %d: %w", fileID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}
