package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dieworks-backend/internal/model"
)

func (s *gormStore) GetOperation(ctx context.Context, id int64) (*model.WorkOrderOperation, error) {
	var op model.WorkOrderOperation
	err := s.db.WithContext(ctx).
		Preload("WorkOrder").
		Preload("WorkCenter").
		Preload("Operator").
		First(&op, id).Error
	if err != nil {
		return nil, dbErr(err, "operation %d", id)
	}
	return &op, nil
}

func loadOperation(tx *gorm.DB, id int64) (*model.WorkOrderOperation, error) {
	var op model.WorkOrderOperation
	if err := tx.Preload("WorkOrder").First(&op, id).Error; err != nil {
		return nil, dbErr(err, "operation %d", id)
	}
	if op.WorkOrder == nil {
		return nil, fmt.Errorf("work order %d of operation %d: %w", op.WorkOrderID, id, ErrNotFound)
	}
	return &op, nil
}

// checkOperator verifies the operator may act at the given work center.
func checkOperator(tx *gorm.DB, operatorID, workCenterID int64) error {
	var o model.Operator
	if err := tx.Preload("WorkCenters").First(&o, operatorID).Error; err != nil {
		return dbErr(err, "operator %d", operatorID)
	}
	if !o.IsActive {
		return fmt.Errorf("operator %s is inactive: %w", o.Name, ErrNotAssigned)
	}
	if !o.AssignedTo(workCenterID) {
		return fmt.Errorf("operator %s, work center %d: %w", o.Name, workCenterID, ErrNotAssigned)
	}
	return nil
}

// moveOperation applies updates if the operation is still in the status it
// was read with, and next is a legal successor of it.
func moveOperation(tx *gorm.DB, op *model.WorkOrderOperation, next model.OperationStatus, updates map[string]any) error {
	if !op.Status.CanTransitionTo(next) {
		return fmt.Errorf("operation %d: %s to %s: %w", op.ID, op.Status, next, ErrInvalidTransition)
	}
	updates["status"] = next
	res := tx.Model(&model.WorkOrderOperation{}).
		Where("id = ? AND status = ?", op.ID, op.Status).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update operation %d: %w", op.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("operation %d changed concurrently: %w", op.ID, ErrInvalidTransition)
	}
	return nil
}

// workedSeconds adds the running interval, if any, to the booked time.
func workedSeconds(op *model.WorkOrderOperation, now time.Time) int64 {
	if op.RunningSince == nil {
		return op.WorkedSeconds
	}
	elapsed := int64(now.Sub(*op.RunningSince) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return op.WorkedSeconds + elapsed
}

// StartOperation begins a waiting operation. Every earlier step of the work
// order must be completed.
func (s *gormStore) StartOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		op, err := loadOperation(tx, id)
		if err != nil {
			return err
		}
		if op.Status != model.OperationStatusWaiting {
			return fmt.Errorf("operation %d is %s: %w", id, op.Status, ErrInvalidTransition)
		}
		if !op.WorkOrder.Status.Open() {
			return fmt.Errorf("work order %s is %s: %w", op.WorkOrder.WorkOrderNumber, op.WorkOrder.Status, ErrInvalidTransition)
		}

		var pending int64
		if err := tx.Model(&model.WorkOrderOperation{}).
			Where("work_order_id = ? AND sequence_number < ? AND status <> ?",
				op.WorkOrderID, op.SequenceNumber, model.OperationStatusCompleted).
			Count(&pending).Error; err != nil {
			return fmt.Errorf("check earlier operations of %d: %w", id, err)
		}
		if pending > 0 {
			return fmt.Errorf("operation %d has %d open earlier steps: %w", id, pending, ErrStepNotReady)
		}

		if err := checkOperator(tx, operatorID, op.WorkCenterID); err != nil {
			return err
		}

		now := s.now()
		if err := moveOperation(tx, op, model.OperationStatusInProgress, map[string]any{
			"operator_id":   operatorID,
			"started_at":    now,
			"running_since": now,
		}); err != nil {
			return err
		}
		return startOrders(tx, op.WorkOrder, now)
	})
	if err != nil {
		return nil, err
	}
	return s.GetOperation(ctx, id)
}

func (s *gormStore) PauseOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		op, err := loadOperation(tx, id)
		if err != nil {
			return err
		}
		if err := checkOperator(tx, operatorID, op.WorkCenterID); err != nil {
			return err
		}
		return moveOperation(tx, op, model.OperationStatusPaused, map[string]any{
			"worked_seconds": workedSeconds(op, s.now()),
			"running_since":  nil,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetOperation(ctx, id)
}

func (s *gormStore) ResumeOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		op, err := loadOperation(tx, id)
		if err != nil {
			return err
		}
		if op.Status != model.OperationStatusPaused {
			return fmt.Errorf("operation %d is %s: %w", id, op.Status, ErrInvalidTransition)
		}
		if err := checkOperator(tx, operatorID, op.WorkCenterID); err != nil {
			return err
		}
		return moveOperation(tx, op, model.OperationStatusInProgress, map[string]any{
			"operator_id":   operatorID,
			"running_since": s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetOperation(ctx, id)
}

// CompleteOperation finishes a running operation, closes the orders above it
// when they are done, and returns the next waiting step of the work order.
func (s *gormStore) CompleteOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, *model.WorkOrderOperation, error) {
	var nextID int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		op, err := loadOperation(tx, id)
		if err != nil {
			return err
		}
		if err := checkOperator(tx, operatorID, op.WorkCenterID); err != nil {
			return err
		}

		now := s.now()
		if err := moveOperation(tx, op, model.OperationStatusCompleted, map[string]any{
			"completed_at":   now,
			"worked_seconds": workedSeconds(op, now),
			"running_since":  nil,
		}); err != nil {
			return err
		}
		if err := rollUp(tx, op.WorkOrderID, now); err != nil {
			return err
		}

		var next model.WorkOrderOperation
		err = tx.Where("work_order_id = ? AND sequence_number > ? AND status = ?",
			op.WorkOrderID, op.SequenceNumber, model.OperationStatusWaiting).
			Order("sequence_number").
			First(&next).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return fmt.Errorf("find operation after %d: %w", id, err)
		default:
			nextID = next.ID
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	op, err := s.GetOperation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if nextID == 0 {
		return op, nil, nil
	}
	next, err := s.GetOperation(ctx, nextID)
	if err != nil {
		return nil, nil, err
	}
	return op, next, nil
}

// CancelOperation cancels an open operation together with every later open
// step of its work order.
func (s *gormStore) CancelOperation(ctx context.Context, id int64) (*model.WorkOrderOperation, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		op, err := loadOperation(tx, id)
		if err != nil {
			return err
		}

		now := s.now()
		if err := moveOperation(tx, op, model.OperationStatusCancelled, map[string]any{
			"worked_seconds": workedSeconds(op, now),
			"running_since":  nil,
		}); err != nil {
			return err
		}
		if err := tx.Model(&model.WorkOrderOperation{}).
			Where("work_order_id = ? AND sequence_number > ? AND status IN ?",
				op.WorkOrderID, op.SequenceNumber, model.OpenOperationStatuses).
			Updates(map[string]any{"status": model.OperationStatusCancelled, "running_since": nil}).Error; err != nil {
			return fmt.Errorf("cancel operations after %d: %w", id, err)
		}
		return rollUp(tx, op.WorkOrderID, now)
	})
	if err != nil {
		return nil, err
	}
	return s.GetOperation(ctx, id)
}
