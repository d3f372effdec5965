package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dieworks-backend/internal/model"
	"dieworks-backend/internal/sequence"
)

// Store defines the interface for all database operations.
type Store interface {
	Ping(ctx context.Context) error

	// Master data
	CreateDieType(ctx context.Context, in MasterDataInput) (*model.DieType, error)
	ListDieTypes(ctx context.Context, f ListFilter) ([]model.DieType, error)
	GetDieType(ctx context.Context, id int64) (*model.DieType, error)
	UpdateDieType(ctx context.Context, id int64, in MasterDataInput) (*model.DieType, error)

	CreateComponentType(ctx context.Context, in MasterDataInput) (*model.ComponentType, error)
	ListComponentTypes(ctx context.Context, f ListFilter) ([]model.ComponentType, error)
	GetComponentType(ctx context.Context, id int64) (*model.ComponentType, error)
	UpdateComponentType(ctx context.Context, id int64, in MasterDataInput) (*model.ComponentType, error)
	ListComponentTypeSteps(ctx context.Context, componentTypeID int64) ([]model.ComponentTypeStep, error)
	ReplaceComponentTypeSteps(ctx context.Context, componentTypeID int64, steps []StepInput) ([]model.ComponentTypeStep, error)

	CreateWorkCenter(ctx context.Context, in MasterDataInput) (*model.WorkCenter, error)
	ListWorkCenters(ctx context.Context, f ListFilter) ([]model.WorkCenter, error)
	GetWorkCenter(ctx context.Context, id int64) (*model.WorkCenter, error)
	UpdateWorkCenter(ctx context.Context, id int64, in MasterDataInput) (*model.WorkCenter, error)
	DeleteWorkCenter(ctx context.Context, id int64) error

	// Steel stock
	CreateStockItem(ctx context.Context, in StockItemInput) (*model.SteelStockItem, error)
	ListStockItems(ctx context.Context) ([]model.SteelStockItem, error)
	GetStockItem(ctx context.Context, id int64) (*model.SteelStockItem, error)
	CreateLot(ctx context.Context, in LotInput) (*model.Lot, error)
	ListLots(ctx context.Context, f LotFilter) ([]model.Lot, error)
	GetLot(ctx context.Context, id int64) (*model.Lot, error)
	ListLotMovements(ctx context.Context, lotID int64) ([]model.LotMovement, error)

	// Dies
	CreateDie(ctx context.Context, in DieInput) (*model.Die, error)
	ListDies(ctx context.Context, f DieFilter) ([]model.Die, error)
	GetDie(ctx context.Context, id int64) (*model.Die, error)
	UpdateDie(ctx context.Context, id int64, in DieUpdate) (*model.Die, error)
	SetDieStatus(ctx context.Context, id int64, status model.DieStatus) (*model.Die, error)
	DeleteDie(ctx context.Context, id int64) ([]model.DieFile, error)

	ListComponents(ctx context.Context, dieID int64) ([]model.DieComponent, error)
	AddComponent(ctx context.Context, dieID int64, in ComponentInput) (*model.DieComponent, error)
	UpdateComponent(ctx context.Context, dieID, componentID int64, in ComponentInput) (*model.DieComponent, error)
	DeleteComponent(ctx context.Context, dieID, componentID int64) error

	AddDieFile(ctx context.Context, f *model.DieFile) error
	ListDieFiles(ctx context.Context, dieID int64) ([]model.DieFile, error)
	DeleteDieFile(ctx context.Context, dieID, fileID int64) (*model.DieFile, error)

	// Production
	CreateProductionOrder(ctx context.Context, in ProductionOrderInput) (*model.ProductionOrder, error)
	ListProductionOrders(ctx context.Context, f OrderFilter) ([]model.ProductionOrder, error)
	GetProductionOrder(ctx context.Context, id int64) (*model.ProductionOrder, error)
	FindProductionOrderByNumber(ctx context.Context, number string) (*model.ProductionOrder, error)
	CancelProductionOrder(ctx context.Context, id int64) (*model.ProductionOrder, error)

	GetWorkOrder(ctx context.Context, id int64) (*model.WorkOrder, error)
	FindWorkOrderByNumber(ctx context.Context, number string) (*model.WorkOrder, error)
	AssignLot(ctx context.Context, workOrderID, lotID int64) (*model.WorkOrder, error)
	RecordConsumption(ctx context.Context, workOrderID int64, quantityKg float64) (*model.WorkOrder, error)

	// Shop floor
	GetOperation(ctx context.Context, id int64) (*model.WorkOrderOperation, error)
	StartOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error)
	PauseOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error)
	ResumeOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error)
	CompleteOperation(ctx context.Context, id, operatorID int64) (op, next *model.WorkOrderOperation, err error)
	CancelOperation(ctx context.Context, id int64) (*model.WorkOrderOperation, error)

	// Operators
	CreateOperator(ctx context.Context, in OperatorInput) (*model.Operator, error)
	ListOperators(ctx context.Context) ([]model.Operator, error)
	GetOperator(ctx context.Context, id int64) (*model.Operator, error)
	GetOperatorByRFID(ctx context.Context, code string) (*model.Operator, error)
	UpdateOperator(ctx context.Context, id int64, in OperatorInput) (*model.Operator, error)
	DeleteOperator(ctx context.Context, id int64) error
	SetOperatorWorkCenters(ctx context.Context, id int64, workCenterIDs []int64) (*model.Operator, error)
	OperatorQueue(ctx context.Context, operatorID int64) ([]QueueItem, error)

	// Push subscriptions
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription, workCenterIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForWorkCenter(ctx context.Context, workCenterID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	seq sequence.Source
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store. A nil seq keeps production
// sequences in the database.
func NewGormStore(db *gorm.DB, seq sequence.Source) Store {
	if seq == nil {
		seq = sequence.NewGormSource()
	}
	return &gormStore{db: db, seq: seq, now: time.Now}
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func ordered(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(column)
	}
}

// advanceDie moves a die to target unless it is already there or beyond.
func advanceDie(tx *gorm.DB, dieID int64, target model.DieStatus) error {
	err := tx.Model(&model.Die{}).
		Where("id = ? AND status IN ?", dieID, target.Before()).
		Update("status", target).Error
	if err != nil {
		return fmt.Errorf("advance die %d to %s: %w", dieID, target, err)
	}
	return nil
}
