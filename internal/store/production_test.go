package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dieworks-backend/internal/model"
)

func TestCreateProductionOrder_FanOut(t *testing.T) {
	f := newFixture(t)

	po := f.order()
	assert.Equal(t, "UE-1100-001", po.OrderNumber)
	assert.Equal(t, 1, po.Sequence)
	assert.Equal(t, model.OrderStatusWaiting, po.Status)
	require.Len(t, po.WorkOrders, 2)

	mandrel := po.WorkOrders[0]
	assert.Equal(t, "IE-1100-001-01", mandrel.WorkOrderNumber)
	assert.Equal(t, f.mandrelComp.ID, mandrel.DieComponentID)
	assert.Equal(t, 161.84, mandrel.TheoreticalConsumptionKg)
	assert.Zero(t, mandrel.ActualConsumptionKg)
	require.Len(t, mandrel.Operations, 2)
	assert.Equal(t, 10, mandrel.Operations[0].SequenceNumber)
	assert.Equal(t, "Saw", mandrel.Operations[0].Name)
	assert.Equal(t, f.lathe.ID, mandrel.Operations[1].WorkCenterID)
	assert.Equal(t, 90, mandrel.Operations[1].EstimatedMinutes)
	for _, op := range mandrel.Operations {
		assert.Equal(t, model.OperationStatusWaiting, op.Status)
	}

	plate := po.WorkOrders[1]
	assert.Equal(t, "IE-1100-001-02", plate.WorkOrderNumber)
	assert.Equal(t, 13.42, plate.TheoreticalConsumptionKg)
	assert.Len(t, plate.Operations, 1)

	assert.Equal(t, model.DieStatusWaiting, f.dieStatus())

	second := f.order()
	assert.Equal(t, "UE-1100-002", second.OrderNumber)
	assert.Equal(t, "IE-1100-002-01", second.WorkOrders[0].WorkOrderNumber)
}

func TestCreateProductionOrder_RollsBack(t *testing.T) {
	f := newFixture(t)

	// Occupy the second work order number so the fan-out fails halfway.
	planted := model.WorkOrder{
		WorkOrderNumber:   "IE-1100-001-02",
		ProductionOrderID: 999,
		DieComponentID:    999,
		ComponentSequence: 2,
		Status:            model.OrderStatusWaiting,
	}
	require.NoError(t, f.db.Create(&planted).Error)

	_, err := f.s.CreateProductionOrder(f.ctx, ProductionOrderInput{DieID: f.die.ID})
	require.ErrorIs(t, err, ErrConflict)

	var orders, workOrders, ops int64
	require.NoError(t, f.db.Model(&model.ProductionOrder{}).Count(&orders).Error)
	require.NoError(t, f.db.Model(&model.WorkOrder{}).Count(&workOrders).Error)
	require.NoError(t, f.db.Model(&model.WorkOrderOperation{}).Count(&ops).Error)
	assert.Zero(t, orders)
	assert.Equal(t, int64(1), workOrders, "only the planted row remains")
	assert.Zero(t, ops)
	assert.Equal(t, model.DieStatusDraft, f.dieStatus())

	require.NoError(t, f.db.Delete(&planted).Error)
	po := f.order()
	assert.Equal(t, "UE-1100-001", po.OrderNumber, "the failed attempt did not use up a sequence number")
}

func TestCreateProductionOrder_Rejects(t *testing.T) {
	f := newFixture(t)

	bare, err := f.s.CreateDie(f.ctx, DieInput{DieNumber: "1200", DieTypeID: f.dieType.ID, DieDiameterMm: 200})
	require.NoError(t, err)
	_, err = f.s.CreateProductionOrder(f.ctx, ProductionOrderInput{DieID: bare.ID})
	assert.ErrorIs(t, err, ErrValidation, "no components")

	routeless, err := f.s.CreateComponentType(f.ctx, MasterDataInput{Code: "BOL", Name: "Bolster"})
	require.NoError(t, err)
	_, err = f.s.AddComponent(f.ctx, bare.ID, ComponentInput{
		ComponentTypeID: routeless.ID, SteelStockItemID: f.bar250.ID, PackageLengthMm: 100,
	})
	require.NoError(t, err)
	_, err = f.s.CreateProductionOrder(f.ctx, ProductionOrderInput{DieID: bare.ID})
	assert.ErrorIs(t, err, ErrValidation, "component type without route")

	_, err = f.s.CreateProductionOrder(f.ctx, ProductionOrderInput{DieID: 999})
	assert.ErrorIs(t, err, ErrNotFound)

	start := f.clock
	end := start.Add(-time.Hour)
	_, err = f.s.CreateProductionOrder(f.ctx, ProductionOrderInput{DieID: f.die.ID, PlannedStart: &start, PlannedEnd: &end})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.s.SetDieStatus(f.ctx, f.die.ID, model.DieStatusCompleted)
	require.NoError(t, err)
	_, err = f.s.CreateProductionOrder(f.ctx, ProductionOrderInput{DieID: f.die.ID})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFindByNumber(t *testing.T) {
	f := newFixture(t)
	po := f.order()

	found, err := f.s.FindProductionOrderByNumber(f.ctx, "ue-1100-001")
	require.NoError(t, err)
	assert.Equal(t, po.ID, found.ID)

	wo, err := f.s.FindWorkOrderByNumber(f.ctx, "IE-1100-001-02")
	require.NoError(t, err)
	assert.Equal(t, po.WorkOrders[1].ID, wo.ID)
	require.NotNil(t, wo.DieComponent)
	require.NotNil(t, wo.DieComponent.ComponentType)
	assert.Equal(t, "PLT", wo.DieComponent.ComponentType.Code)

	_, err = f.s.FindWorkOrderByNumber(f.ctx, "IE-1100-009-01")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProductionOrders(t *testing.T) {
	f := newFixture(t)
	first := f.order()
	second := f.order()
	_, err := f.s.CancelProductionOrder(f.ctx, first.ID)
	require.NoError(t, err)

	orders, err := f.s.ListProductionOrders(f.ctx, OrderFilter{DieID: f.die.ID})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID, "newest first")

	waiting, err := f.s.ListProductionOrders(f.ctx, OrderFilter{Status: model.OrderStatusWaiting})
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, second.ID, waiting[0].ID)
}

func TestAssignLot(t *testing.T) {
	f := newFixture(t)
	po := f.order()
	mandrel, plate := po.WorkOrders[0], po.WorkOrders[1]

	wrongBar := f.lot(f.bar160, 100)
	_, err := f.s.AssignLot(f.ctx, mandrel.ID, wrongBar.ID)
	assert.ErrorIs(t, err, ErrValidation)

	empty := f.lot(f.bar250, 5)
	require.NoError(t, f.db.Model(empty).Update("remaining_kg", 0).Error)
	_, err = f.s.AssignLot(f.ctx, mandrel.ID, empty.ID)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	bar250 := f.lot(f.bar250, 400)
	wo, err := f.s.AssignLot(f.ctx, mandrel.ID, bar250.ID)
	require.NoError(t, err)
	require.NotNil(t, wo.LotID)
	assert.Equal(t, bar250.ID, *wo.LotID)
	assert.Equal(t, model.DieStatusWaiting, f.dieStatus(), "one work order still has no lot")

	_, err = f.s.AssignLot(f.ctx, plate.ID, wrongBar.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DieStatusReady, f.dieStatus())

	_, err = f.s.RecordConsumption(f.ctx, plate.ID, 10)
	require.NoError(t, err)
	other := f.lot(f.bar160, 100)
	_, err = f.s.AssignLot(f.ctx, plate.ID, other.ID)
	assert.ErrorIs(t, err, ErrConflict, "lot is fixed once steel was consumed")
}

func TestRecordConsumption(t *testing.T) {
	f := newFixture(t)
	po := f.order()
	mandrel := po.WorkOrders[0]

	_, err := f.s.RecordConsumption(f.ctx, mandrel.ID, 10)
	assert.ErrorIs(t, err, ErrValidation, "no lot assigned")

	lot := f.lot(f.bar250, 200)
	_, err = f.s.AssignLot(f.ctx, mandrel.ID, lot.ID)
	require.NoError(t, err)

	_, err = f.s.RecordConsumption(f.ctx, mandrel.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.s.RecordConsumption(f.ctx, mandrel.ID, -3)
	assert.ErrorIs(t, err, ErrValidation)

	wo, err := f.s.RecordConsumption(f.ctx, mandrel.ID, 150.5)
	require.NoError(t, err)
	assert.Equal(t, 150.5, wo.ActualConsumptionKg)

	wo, err = f.s.RecordConsumption(f.ctx, mandrel.ID, 11.339)
	require.NoError(t, err)
	assert.Equal(t, 161.839, wo.ActualConsumptionKg)
	require.NotNil(t, wo.Lot)
	assert.Equal(t, 38.161, wo.Lot.RemainingKg)

	_, err = f.s.RecordConsumption(f.ctx, mandrel.ID, 50)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err := f.s.GetLot(f.ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 38.161, got.RemainingKg, "a rejected consumption leaves the lot alone")
	assert.Equal(t, 200.0, got.GrossWeightKg)

	moves, err := f.s.ListLotMovements(f.ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, moves, 3)
	assert.Equal(t, model.MovementConsumption, moves[1].Type)
	assert.Equal(t, -150.5, moves[1].QuantityKg)
	assert.Equal(t, 49.5, moves[1].RemainingAfterKg)
	assert.Equal(t, "IE-1100-001-01", moves[2].Reference)
	require.NotNil(t, moves[2].WorkOrderID)
	assert.Equal(t, mandrel.ID, *moves[2].WorkOrderID)
}

func TestCancelProductionOrder(t *testing.T) {
	f := newFixture(t)
	po := f.order()
	plateSaw := po.WorkOrders[1].Operations[0]

	_, err := f.s.StartOperation(f.ctx, plateSaw.ID, f.operator.ID)
	require.NoError(t, err)
	_, _, err = f.s.CompleteOperation(f.ctx, plateSaw.ID, f.operator.ID)
	require.NoError(t, err)

	mandrelSaw := po.WorkOrders[0].Operations[0]
	_, err = f.s.StartOperation(f.ctx, mandrelSaw.ID, f.operator.ID)
	require.NoError(t, err)

	cancelled, err := f.s.CancelProductionOrder(f.ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)

	mandrel, plate := cancelled.WorkOrders[0], cancelled.WorkOrders[1]
	assert.Equal(t, model.OrderStatusCancelled, mandrel.Status)
	for _, op := range mandrel.Operations {
		assert.Equal(t, model.OperationStatusCancelled, op.Status)
		assert.Nil(t, op.RunningSince)
	}
	assert.Equal(t, model.OrderStatusCompleted, plate.Status, "finished work stays finished")
	assert.Equal(t, model.OperationStatusCompleted, plate.Operations[0].Status)

	assert.Equal(t, model.DieStatusInProduction, f.dieStatus(), "die status never moves back")

	_, err = f.s.CancelProductionOrder(f.ctx, po.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
