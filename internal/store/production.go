package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"dieworks-backend/internal/calc"
	"dieworks-backend/internal/model"
	"dieworks-backend/internal/sequence"
)

var openOrderStatuses = []model.OrderStatus{model.OrderStatusWaiting, model.OrderStatusInProgress}

// CreateProductionOrder fans a die out into a production order with one work
// order per component and one operation per BOM step. Everything is written
// in one transaction.
func (s *gormStore) CreateProductionOrder(ctx context.Context, in ProductionOrderInput) (*model.ProductionOrder, error) {
	if in.PlannedStart != nil && in.PlannedEnd != nil && in.PlannedEnd.Before(*in.PlannedStart) {
		return nil, invalid("planned end is before planned start")
	}

	var orderID int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var die model.Die
		err := tx.Preload("Components", ordered("id")).
			Preload("Components.ComponentType.Steps", ordered("sequence_number")).
			First(&die, in.DieID).Error
		if err != nil {
			return dbErr(err, "die %d", in.DieID)
		}
		if die.Status == model.DieStatusCompleted {
			return fmt.Errorf("die %s is completed: %w", die.DieNumber, ErrInvalidTransition)
		}
		if len(die.Components) == 0 {
			return invalid("die %s has no components", die.DieNumber)
		}
		for _, comp := range die.Components {
			if comp.ComponentType == nil || len(comp.ComponentType.Steps) == 0 {
				return invalid("component %d of die %s has no BOM steps", comp.ID, die.DieNumber)
			}
		}

		seq, err := s.seq.Next(ctx, tx, sequence.Key{
			Scope: sequence.ScopeProductionOrder,
			Name:  strconv.FormatInt(die.ID, 10),
		})
		if err != nil {
			return fmt.Errorf("next production sequence of die %s: %w", die.DieNumber, err)
		}

		order := model.ProductionOrder{
			OrderNumber:  calc.GenerateProductionOrderNumber(die.DieNumber, seq),
			DieID:        die.ID,
			Sequence:     seq,
			Status:       model.OrderStatusWaiting,
			PlannedStart: in.PlannedStart,
			PlannedEnd:   in.PlannedEnd,
			Notes:        in.Notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			return dbErr(err, "create production order %s", order.OrderNumber)
		}

		for k, comp := range die.Components {
			wo := model.WorkOrder{
				WorkOrderNumber:          calc.GenerateWorkOrderNumber(die.DieNumber, seq, k+1),
				ProductionOrderID:        order.ID,
				DieComponentID:           comp.ID,
				ComponentSequence:        k + 1,
				Status:                   model.OrderStatusWaiting,
				TheoreticalConsumptionKg: comp.TheoreticalConsumptionKg,
			}
			if err := tx.Create(&wo).Error; err != nil {
				return dbErr(err, "create work order %s", wo.WorkOrderNumber)
			}

			ops := make([]model.WorkOrderOperation, len(comp.ComponentType.Steps))
			for i, step := range comp.ComponentType.Steps {
				ops[i] = model.WorkOrderOperation{
					WorkOrderID:      wo.ID,
					SequenceNumber:   step.SequenceNumber,
					Name:             step.Name,
					WorkCenterID:     step.WorkCenterID,
					EstimatedMinutes: step.EstimatedMinutes,
					Status:           model.OperationStatusWaiting,
				}
			}
			if err := tx.Create(&ops).Error; err != nil {
				return fmt.Errorf("create operations of %s: %w", wo.WorkOrderNumber, err)
			}
		}

		if err := advanceDie(tx, die.ID, model.DieStatusWaiting); err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetProductionOrder(ctx, orderID)
}

func (s *gormStore) ListProductionOrders(ctx context.Context, f OrderFilter) ([]model.ProductionOrder, error) {
	q := s.db.WithContext(ctx).Preload("Die")
	if f.DieID != 0 {
		q = q.Where("die_id = ?", f.DieID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var orders []model.ProductionOrder
	if err := q.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list production orders: %w", err)
	}
	return orders, nil
}

func preloadOrder(q *gorm.DB) *gorm.DB {
	return q.Preload("Die").
		Preload("WorkOrders", ordered("component_sequence")).
		Preload("WorkOrders.DieComponent.ComponentType").
		Preload("WorkOrders.DieComponent.SteelStockItem").
		Preload("WorkOrders.Lot").
		Preload("WorkOrders.Operations", ordered("sequence_number")).
		Preload("WorkOrders.Operations.WorkCenter").
		Preload("WorkOrders.Operations.Operator")
}

func (s *gormStore) GetProductionOrder(ctx context.Context, id int64) (*model.ProductionOrder, error) {
	var order model.ProductionOrder
	if err := preloadOrder(s.db.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, dbErr(err, "production order %d", id)
	}
	return &order, nil
}

func (s *gormStore) FindProductionOrderByNumber(ctx context.Context, number string) (*model.ProductionOrder, error) {
	var order model.ProductionOrder
	err := preloadOrder(s.db.WithContext(ctx)).
		Where("UPPER(order_number) = ?", strings.ToUpper(number)).
		First(&order).Error
	if err != nil {
		return nil, dbErr(err, "production order %s", number)
	}
	return &order, nil
}

// CancelProductionOrder cancels an open order and every work order and
// operation under it that has not completed yet.
func (s *gormStore) CancelProductionOrder(ctx context.Context, id int64) (*model.ProductionOrder, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.ProductionOrder
		if err := tx.First(&order, id).Error; err != nil {
			return dbErr(err, "production order %d", id)
		}
		res := tx.Model(&model.ProductionOrder{}).
			Where("id = ? AND status IN ?", id, openOrderStatuses).
			Update("status", model.OrderStatusCancelled)
		if res.Error != nil {
			return fmt.Errorf("cancel production order %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("production order %s is %s: %w", order.OrderNumber, order.Status, ErrInvalidTransition)
		}

		workOrders := tx.Model(&model.WorkOrder{}).Select("id").Where("production_order_id = ?", id)
		if err := tx.Model(&model.WorkOrderOperation{}).
			Where("work_order_id IN (?) AND status IN ?", workOrders, model.OpenOperationStatuses).
			Updates(map[string]any{"status": model.OperationStatusCancelled, "running_since": nil}).Error; err != nil {
			return fmt.Errorf("cancel operations of %s: %w", order.OrderNumber, err)
		}
		if err := tx.Model(&model.WorkOrder{}).
			Where("production_order_id = ? AND status IN ?", id, openOrderStatuses).
			Update("status", model.OrderStatusCancelled).Error; err != nil {
			return fmt.Errorf("cancel work orders of %s: %w", order.OrderNumber, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetProductionOrder(ctx, id)
}

func preloadWorkOrder(q *gorm.DB) *gorm.DB {
	return q.Preload("DieComponent.ComponentType").
		Preload("DieComponent.SteelStockItem").
		Preload("Lot").
		Preload("Operations", ordered("sequence_number")).
		Preload("Operations.WorkCenter").
		Preload("Operations.Operator")
}

func (s *gormStore) GetWorkOrder(ctx context.Context, id int64) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	if err := preloadWorkOrder(s.db.WithContext(ctx)).First(&wo, id).Error; err != nil {
		return nil, dbErr(err, "work order %d", id)
	}
	return &wo, nil
}

func (s *gormStore) FindWorkOrderByNumber(ctx context.Context, number string) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	err := preloadWorkOrder(s.db.WithContext(ctx)).
		Where("UPPER(work_order_number) = ?", strings.ToUpper(number)).
		First(&wo).Error
	if err != nil {
		return nil, dbErr(err, "work order %s", number)
	}
	return &wo, nil
}

// openWorkOrder loads a work order that still accepts changes.
func openWorkOrder(tx *gorm.DB, id int64) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	if err := tx.Preload("DieComponent").First(&wo, id).Error; err != nil {
		return nil, dbErr(err, "work order %d", id)
	}
	if !wo.Status.Open() {
		return nil, fmt.Errorf("work order %s is %s: %w", wo.WorkOrderNumber, wo.Status, ErrInvalidTransition)
	}
	return &wo, nil
}

// AssignLot binds the lot a work order will be cut from. Once every work
// order of the production order has a lot, the die is ready.
func (s *gormStore) AssignLot(ctx context.Context, workOrderID, lotID int64) (*model.WorkOrder, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := openWorkOrder(tx, workOrderID)
		if err != nil {
			return err
		}
		if wo.ActualConsumptionKg > 0 {
			return fmt.Errorf("work order %s already consumed stock: %w", wo.WorkOrderNumber, ErrConflict)
		}

		var lot model.Lot
		if err := tx.First(&lot, lotID).Error; err != nil {
			return dbErr(err, "lot %d", lotID)
		}
		if wo.DieComponent == nil || lot.SteelStockItemID != wo.DieComponent.SteelStockItemID {
			return invalid("lot %s is not of the component's stock item", lot.LotNumber)
		}
		if !(lot.RemainingKg > 0) {
			return fmt.Errorf("lot %s is empty: %w", lot.LotNumber, ErrInsufficientStock)
		}

		if err := tx.Model(&model.WorkOrder{}).Where("id = ?", wo.ID).Update("lot_id", lot.ID).Error; err != nil {
			return fmt.Errorf("assign lot to %s: %w", wo.WorkOrderNumber, err)
		}

		var missing int64
		if err := tx.Model(&model.WorkOrder{}).
			Where("production_order_id = ? AND lot_id IS NULL AND status <> ?", wo.ProductionOrderID, model.OrderStatusCancelled).
			Count(&missing).Error; err != nil {
			return fmt.Errorf("count work orders without lot: %w", err)
		}
		if missing == 0 {
			var order model.ProductionOrder
			if err := tx.First(&order, wo.ProductionOrderID).Error; err != nil {
				return dbErr(err, "production order %d", wo.ProductionOrderID)
			}
			return advanceDie(tx, order.DieID, model.DieStatusReady)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetWorkOrder(ctx, workOrderID)
}

// RecordConsumption books steel taken from the work order's lot. Repeated
// calls add up.
func (s *gormStore) RecordConsumption(ctx context.Context, workOrderID int64, quantityKg float64) (*model.WorkOrder, error) {
	qty := kg(quantityKg)
	if !qty.IsPositive() {
		return nil, invalid("consumed quantity must be positive")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := openWorkOrder(tx, workOrderID)
		if err != nil {
			return err
		}
		if wo.LotID == nil {
			return invalid("work order %s has no lot assigned", wo.WorkOrderNumber)
		}

		var lot model.Lot
		if err := tx.First(&lot, *wo.LotID).Error; err != nil {
			return dbErr(err, "lot %d", *wo.LotID)
		}
		remaining := kg(lot.RemainingKg)
		if qty.GreaterThan(remaining) {
			return fmt.Errorf("lot %s has %s kg left, %s kg requested: %w",
				lot.LotNumber, remaining.StringFixed(weightPlaces), qty.StringFixed(weightPlaces), ErrInsufficientStock)
		}
		after := remaining.Sub(qty)

		res := tx.Model(&model.Lot{}).
			Where("id = ? AND remaining_kg = ?", lot.ID, lot.RemainingKg).
			Update("remaining_kg", after.InexactFloat64())
		if res.Error != nil {
			return fmt.Errorf("update lot %s: %w", lot.LotNumber, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("lot %s changed concurrently: %w", lot.LotNumber, ErrConflict)
		}

		move := model.LotMovement{
			LotID:            lot.ID,
			Type:             model.MovementConsumption,
			QuantityKg:       qty.Neg().InexactFloat64(),
			RemainingAfterKg: after.InexactFloat64(),
			WorkOrderID:      &wo.ID,
			Reference:        wo.WorkOrderNumber,
		}
		if err := tx.Create(&move).Error; err != nil {
			return fmt.Errorf("record consumption of lot %s: %w", lot.LotNumber, err)
		}

		actual := kg(wo.ActualConsumptionKg).Add(qty)
		if err := tx.Model(&model.WorkOrder{}).Where("id = ?", wo.ID).
			Update("actual_consumption_kg", actual.InexactFloat64()).Error; err != nil {
			return fmt.Errorf("update consumption of %s: %w", wo.WorkOrderNumber, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetWorkOrder(ctx, workOrderID)
}

// settle decides the final status of a parent once none of its children is
// open. Any cancelled child cancels the parent.
func settle(open, cancelled int) (model.OrderStatus, bool) {
	if open > 0 {
		return "", false
	}
	if cancelled > 0 {
		return model.OrderStatusCancelled, true
	}
	return model.OrderStatusCompleted, true
}

// rollUp closes the work order and production order above an operation
// that just finished or was cancelled.
func rollUp(tx *gorm.DB, workOrderID int64, now time.Time) error {
	var wo model.WorkOrder
	if err := tx.First(&wo, workOrderID).Error; err != nil {
		return dbErr(err, "work order %d", workOrderID)
	}

	var opStatuses []model.OperationStatus
	if err := tx.Model(&model.WorkOrderOperation{}).
		Where("work_order_id = ?", wo.ID).
		Pluck("status", &opStatuses).Error; err != nil {
		return fmt.Errorf("read operations of %s: %w", wo.WorkOrderNumber, err)
	}
	open, cancelled := 0, 0
	for _, st := range opStatuses {
		switch st {
		case model.OperationStatusCompleted:
		case model.OperationStatusCancelled:
			cancelled++
		default:
			open++
		}
	}
	status, done := settle(open, cancelled)
	if !done {
		return nil
	}
	if err := closeOrder(tx, &model.WorkOrder{}, wo.ID, status, now); err != nil {
		return fmt.Errorf("close %s: %w", wo.WorkOrderNumber, err)
	}

	var woStatuses []model.OrderStatus
	if err := tx.Model(&model.WorkOrder{}).
		Where("production_order_id = ?", wo.ProductionOrderID).
		Pluck("status", &woStatuses).Error; err != nil {
		return fmt.Errorf("read work orders of production order %d: %w", wo.ProductionOrderID, err)
	}
	open, cancelled = 0, 0
	for _, st := range woStatuses {
		switch {
		case st.Open():
			open++
		case st == model.OrderStatusCancelled:
			cancelled++
		}
	}
	status, done = settle(open, cancelled)
	if !done {
		return nil
	}
	if err := closeOrder(tx, &model.ProductionOrder{}, wo.ProductionOrderID, status, now); err != nil {
		return fmt.Errorf("close production order %d: %w", wo.ProductionOrderID, err)
	}
	if status != model.OrderStatusCompleted {
		return nil
	}

	var order model.ProductionOrder
	if err := tx.First(&order, wo.ProductionOrderID).Error; err != nil {
		return dbErr(err, "production order %d", wo.ProductionOrderID)
	}
	return advanceDie(tx, order.DieID, model.DieStatusCompleted)
}

func closeOrder(tx *gorm.DB, table any, id int64, status model.OrderStatus, now time.Time) error {
	updates := map[string]any{"status": status}
	if status == model.OrderStatusCompleted {
		updates["completed_at"] = now
	}
	return tx.Model(table).
		Where("id = ? AND status IN ?", id, openOrderStatuses).
		Updates(updates).Error
}

// startOrders moves the work order and production order of a started
// operation to InProgress and the die to InProduction.
func startOrders(tx *gorm.DB, wo *model.WorkOrder, now time.Time) error {
	start := map[string]any{"status": model.OrderStatusInProgress, "started_at": now}
	if err := tx.Model(&model.WorkOrder{}).
		Where("id = ? AND status = ?", wo.ID, model.OrderStatusWaiting).
		Updates(start).Error; err != nil {
		return fmt.Errorf("start %s: %w", wo.WorkOrderNumber, err)
	}

	var order model.ProductionOrder
	if err := tx.First(&order, wo.ProductionOrderID).Error; err != nil {
		return dbErr(err, "production order %d", wo.ProductionOrderID)
	}
	if err := tx.Model(&model.ProductionOrder{}).
		Where("id = ? AND status = ?", order.ID, model.OrderStatusWaiting).
		Updates(start).Error; err != nil {
		return fmt.Errorf("start %s: %w", order.OrderNumber, err)
	}
	return advanceDie(tx, order.DieID, model.DieStatusInProduction)
}
