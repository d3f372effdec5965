package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dieworks-backend/internal/model"
)

func (s *gormStore) CreateOperator(ctx context.Context, in OperatorInput) (*model.Operator, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.RFIDCode)
	if name == "" {
		return nil, invalid("name is required")
	}
	if code == "" {
		return nil, invalid("RFID code is required")
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	o := model.Operator{Name: name, RFIDCode: code, IsActive: active}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := uniqueRFID(tx, code, 0); err != nil {
			return err
		}
		if err := tx.Create(&o).Error; err != nil {
			return dbErr(err, "create operator %s", name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func uniqueRFID(tx *gorm.DB, code string, exceptID int64) error {
	var n int64
	if err := tx.Model(&model.Operator{}).
		Where("rfid_code = ? AND id <> ?", code, exceptID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("check RFID code: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("RFID code %q is taken: %w", code, ErrConflict)
	}
	return nil
}

func (s *gormStore) ListOperators(ctx context.Context) ([]model.Operator, error) {
	var ops []model.Operator
	if err := s.db.WithContext(ctx).Preload("WorkCenters", ordered("code")).Order("name").Find(&ops).Error; err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	return ops, nil
}

func (s *gormStore) GetOperator(ctx context.Context, id int64) (*model.Operator, error) {
	var o model.Operator
	if err := s.db.WithContext(ctx).Preload("WorkCenters", ordered("code")).First(&o, id).Error; err != nil {
		return nil, dbErr(err, "operator %d", id)
	}
	return &o, nil
}

func (s *gormStore) GetOperatorByRFID(ctx context.Context, code string) (*model.Operator, error) {
	var o model.Operator
	err := s.db.WithContext(ctx).
		Preload("WorkCenters", ordered("code")).
		Where("rfid_code = ?", strings.TrimSpace(code)).
		First(&o).Error
	if err != nil {
		return nil, dbErr(err, "operator with RFID %q", code)
	}
	return &o, nil
}

func (s *gormStore) UpdateOperator(ctx context.Context, id int64, in OperatorInput) (*model.Operator, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o model.Operator
		if err := tx.First(&o, id).Error; err != nil {
			return dbErr(err, "operator %d", id)
		}
		updates := map[string]any{}
		if name := strings.TrimSpace(in.Name); name != "" {
			updates["name"] = name
		}
		if code := strings.TrimSpace(in.RFIDCode); code != "" {
			if err := uniqueRFID(tx, code, id); err != nil {
				return err
			}
			updates["rfid_code"] = code
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&o).Updates(updates).Error; err != nil {
			return dbErr(err, "update operator %d", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOperator(ctx, id)
}

// DeleteOperator removes an operator who never worked an operation.
// Everyone else can only be deactivated.
func (s *gormStore) DeleteOperator(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o model.Operator
		if err := tx.First(&o, id).Error; err != nil {
			return dbErr(err, "operator %d", id)
		}
		var n int64
		if err := tx.Model(&model.WorkOrderOperation{}).Where("operator_id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("count operations of operator %d: %w", id, err)
		}
		if n > 0 {
			return fmt.Errorf("operator %s worked %d operations: %w", o.Name, n, ErrConflict)
		}
		if err := tx.Model(&o).Association("WorkCenters").Clear(); err != nil {
			return fmt.Errorf("clear work centers of operator %d: %w", id, err)
		}
		if err := tx.Delete(&o).Error; err != nil {
			return fmt.Errorf("delete operator %d: %w", id, err)
		}
		return nil
	})
}

// SetOperatorWorkCenters replaces the work centers an operator is assigned to.
func (s *gormStore) SetOperatorWorkCenters(ctx context.Context, id int64, workCenterIDs []int64) (*model.Operator, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o model.Operator
		if err := tx.First(&o, id).Error; err != nil {
			return dbErr(err, "operator %d", id)
		}
		centers, err := findWorkCenters(tx, workCenterIDs)
		if err != nil {
			return err
		}
		assoc := tx.Model(&o).Association("WorkCenters")
		if len(centers) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(centers)
		}
		if err != nil {
			return fmt.Errorf("assign work centers to operator %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOperator(ctx, id)
}

// findWorkCenters loads the given work centers and fails if any is missing.
func findWorkCenters(tx *gorm.DB, ids []int64) ([]model.WorkCenter, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	unique := make(map[int64]bool, len(ids))
	for _, id := range ids {
		unique[id] = true
	}
	var centers []model.WorkCenter
	if err := tx.Where("id IN ?", ids).Find(&centers).Error; err != nil {
		return nil, fmt.Errorf("load work centers: %w", err)
	}
	if len(centers) != len(unique) {
		return nil, invalid("unknown work center in %v", ids)
	}
	return centers, nil
}

// OperatorQueue lists the open operations at an operator's work centers. An
// operation is startable when it waits and every earlier step is completed.
func (s *gormStore) OperatorQueue(ctx context.Context, operatorID int64) ([]QueueItem, error) {
	o, err := s.GetOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if !o.IsActive {
		return nil, fmt.Errorf("operator %s is inactive: %w", o.Name, ErrNotAssigned)
	}
	if len(o.WorkCenters) == 0 {
		return []QueueItem{}, nil
	}
	centerIDs := make([]int64, len(o.WorkCenters))
	for i, wc := range o.WorkCenters {
		centerIDs[i] = wc.ID
	}

	db := s.db.WithContext(ctx)
	var ops []model.WorkOrderOperation
	err = db.Preload("WorkOrder").
		Preload("WorkCenter").
		Preload("Operator").
		Joins("JOIN work_orders wo ON wo.id = work_order_operations.work_order_id").
		Where("work_order_operations.work_center_id IN ?", centerIDs).
		Where("work_order_operations.status IN ?", model.OpenOperationStatuses).
		Where("wo.status IN ?", openOrderStatuses).
		Order("work_order_operations.work_order_id").
		Order("work_order_operations.sequence_number").
		Find(&ops).Error
	if err != nil {
		return nil, fmt.Errorf("load queue of operator %d: %w", operatorID, err)
	}

	items := make([]QueueItem, len(ops))
	if len(ops) == 0 {
		return items, nil
	}

	woIDs := make([]int64, 0, len(ops))
	for _, op := range ops {
		woIDs = append(woIDs, op.WorkOrderID)
	}
	var firstOpen []struct {
		WorkOrderID int64
		Seq         int
	}
	if err := db.Model(&model.WorkOrderOperation{}).
		Select("work_order_id, MIN(sequence_number) AS seq").
		Where("work_order_id IN ? AND status <> ?", woIDs, model.OperationStatusCompleted).
		Group("work_order_id").
		Scan(&firstOpen).Error; err != nil {
		return nil, fmt.Errorf("find current steps: %w", err)
	}
	current := make(map[int64]int, len(firstOpen))
	for _, f := range firstOpen {
		current[f.WorkOrderID] = f.Seq
	}

	for i, op := range ops {
		items[i] = QueueItem{
			WorkOrderOperation: op,
			Startable:          op.Status == model.OperationStatusWaiting && current[op.WorkOrderID] == op.SequenceNumber,
		}
	}
	return items, nil
}
