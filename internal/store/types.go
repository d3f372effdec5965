package store

import (
	"time"

	"dieworks-backend/internal/model"
)

// MasterDataInput creates or updates a die type, component type or work
// center. On update, empty strings and a nil IsActive leave a field unchanged.
type MasterDataInput struct {
	Code     string
	Name     string
	IsActive *bool
}

// ListFilter narrows master data lists. A nil Active returns everything.
type ListFilter struct {
	Active *bool
}

// StepInput is one BOM route step of a component type.
type StepInput struct {
	SequenceNumber   int
	Name             string
	WorkCenterID     int64
	EstimatedMinutes int
}

type StockItemInput struct {
	Alloy       string
	DiameterMm  float64
	Description string
}

// LotInput receives a lot. LotNumber and ReceivedAt are generated when empty.
type LotInput struct {
	SteelStockItemID int64
	LotNumber        string
	CertificateNo    string
	Supplier         string
	GrossWeightKg    float64
	ReceivedAt       *time.Time
}

// LotFilter narrows lot lists. Available keeps lots with stock left.
type LotFilter struct {
	SteelStockItemID int64
	Available        bool
}

type DieInput struct {
	DieNumber            string
	DieTypeID            int64
	Customer             string
	DieDiameterMm        float64
	TotalPackageLengthMm float64
	Notes                string
}

// DieUpdate changes die header fields. Nil fields are left unchanged.
type DieUpdate struct {
	DieTypeID            *int64
	Customer             *string
	DieDiameterMm        *float64
	TotalPackageLengthMm *float64
	Notes                *string
}

type DieFilter struct {
	Status model.DieStatus
}

// ComponentInput adds or changes a die component. On update, zero values
// leave a field unchanged.
type ComponentInput struct {
	ComponentTypeID  int64
	SteelStockItemID int64
	PackageLengthMm  float64
}

type ProductionOrderInput struct {
	DieID        int64
	PlannedStart *time.Time
	PlannedEnd   *time.Time
	Notes        string
}

type OrderFilter struct {
	DieID  int64
	Status model.OrderStatus
}

// OperatorInput creates or updates an operator. On update, empty strings and
// a nil IsActive leave a field unchanged.
type OperatorInput struct {
	Name     string
	RFIDCode string
	IsActive *bool
}

// QueueItem is an open operation shown on an operator's panel.
type QueueItem struct {
	model.WorkOrderOperation
	Startable bool `json:"startable"`
}
