package model

import "time"

// OrderStatus is shared by production orders and work orders.
type OrderStatus string

const (
	OrderStatusWaiting    OrderStatus = "Waiting"
	OrderStatusInProgress OrderStatus = "InProgress"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// Open reports whether the order can still change.
func (s OrderStatus) Open() bool {
	return s == OrderStatusWaiting || s == OrderStatusInProgress
}

// OperationStatus is the state of one work order operation.
type OperationStatus string

const (
	OperationStatusWaiting    OperationStatus = "Waiting"
	OperationStatusInProgress OperationStatus = "InProgress"
	OperationStatusPaused     OperationStatus = "Paused"
	OperationStatusCompleted  OperationStatus = "Completed"
	OperationStatusCancelled  OperationStatus = "Cancelled"
)

var operationTransitions = map[OperationStatus][]OperationStatus{
	OperationStatusWaiting:    {OperationStatusInProgress, OperationStatusCancelled},
	OperationStatusInProgress: {OperationStatusPaused, OperationStatusCompleted, OperationStatusCancelled},
	OperationStatusPaused:     {OperationStatusInProgress, OperationStatusCancelled},
}

// CanTransitionTo reports whether an operation may move from s to next.
func (s OperationStatus) CanTransitionTo(next OperationStatus) bool {
	for _, allowed := range operationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OpenOperationStatuses are the states an operator can still act on.
var OpenOperationStatuses = []OperationStatus{
	OperationStatusWaiting,
	OperationStatusInProgress,
	OperationStatusPaused,
}

// ProductionOrder is one production run of a die.
type ProductionOrder struct {
	ID           int64       `gorm:"primaryKey" json:"id"`
	OrderNumber  string      `gorm:"uniqueIndex;size:64;not null" json:"order_number"`
	DieID        int64       `gorm:"index;not null;uniqueIndex:idx_production_order_die_seq" json:"die_id"`
	Die          *Die        `json:"die,omitempty"`
	Sequence     int         `gorm:"not null;uniqueIndex:idx_production_order_die_seq" json:"sequence"`
	Status       OrderStatus `gorm:"size:16;not null;index" json:"status"`
	PlannedStart *time.Time  `json:"planned_start"`
	PlannedEnd   *time.Time  `json:"planned_end"`
	StartedAt    *time.Time  `json:"started_at"`
	CompletedAt  *time.Time  `json:"completed_at"`
	Notes        string      `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	WorkOrders []WorkOrder `gorm:"foreignKey:ProductionOrderID" json:"work_orders,omitempty"`
}

// WorkOrder produces one die component within a production order.
type WorkOrder struct {
	ID                       int64         `gorm:"primaryKey" json:"id"`
	WorkOrderNumber          string        `gorm:"uniqueIndex;size:64;not null" json:"work_order_number"`
	ProductionOrderID        int64         `gorm:"index;not null" json:"production_order_id"`
	DieComponentID           int64         `gorm:"index;not null" json:"die_component_id"`
	DieComponent             *DieComponent `json:"die_component,omitempty"`
	ComponentSequence        int           `gorm:"not null" json:"component_sequence"`
	Status                   OrderStatus   `gorm:"size:16;not null;index" json:"status"`
	TheoreticalConsumptionKg float64       `gorm:"not null" json:"theoretical_consumption_kg"`
	ActualConsumptionKg      float64       `gorm:"not null" json:"actual_consumption_kg"`
	LotID                    *int64        `gorm:"index" json:"lot_id"`
	Lot                      *Lot          `json:"lot,omitempty"`
	StartedAt                *time.Time    `json:"started_at"`
	CompletedAt              *time.Time    `json:"completed_at"`
	CreatedAt                time.Time     `json:"created_at"`
	UpdatedAt                time.Time     `json:"updated_at"`

	Operations []WorkOrderOperation `gorm:"foreignKey:WorkOrderID" json:"operations,omitempty"`
}

// WorkOrderOperation is a single sequenced production step of a work order.
type WorkOrderOperation struct {
	ID               int64           `gorm:"primaryKey" json:"id"`
	WorkOrderID      int64           `gorm:"not null;uniqueIndex:idx_work_order_operation_seq" json:"work_order_id"`
	WorkOrder        *WorkOrder      `json:"work_order,omitempty"`
	SequenceNumber   int             `gorm:"not null;uniqueIndex:idx_work_order_operation_seq" json:"sequence_number"`
	Name             string          `gorm:"size:128;not null" json:"name"`
	WorkCenterID     int64           `gorm:"index;not null" json:"work_center_id"`
	WorkCenter       *WorkCenter     `json:"work_center,omitempty"`
	EstimatedMinutes int             `json:"estimated_minutes"`
	Status           OperationStatus `gorm:"size:16;not null;index" json:"status"`
	OperatorID       *int64          `gorm:"index" json:"operator_id"`
	Operator         *Operator       `json:"operator,omitempty"`
	StartedAt        *time.Time      `json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at"`
	RunningSince     *time.Time      `json:"running_since"`
	WorkedSeconds    int64           `gorm:"not null" json:"worked_seconds"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
