package model

import "time"

// SteelStockItem is an alloy and bar diameter from the steel catalog.
// Rows are never updated once created.
type SteelStockItem struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Alloy       string    `gorm:"size:64;not null;uniqueIndex:idx_stock_alloy_diameter" json:"alloy"`
	DiameterMm  float64   `gorm:"not null;uniqueIndex:idx_stock_alloy_diameter" json:"diameter_mm"`
	Description string    `gorm:"size:256" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Lot is a certified batch of one stock item.
// Invariant: 0 <= RemainingKg <= GrossWeightKg, RemainingKg never increases.
type Lot struct {
	ID               int64           `gorm:"primaryKey" json:"id"`
	SteelStockItemID int64           `gorm:"index;not null" json:"steel_stock_item_id"`
	SteelStockItem   *SteelStockItem `json:"steel_stock_item,omitempty"`
	LotNumber        string          `gorm:"uniqueIndex;size:64;not null" json:"lot_number"`
	CertificateNo    string          `gorm:"size:64" json:"certificate_no"`
	Supplier         string          `gorm:"size:128" json:"supplier"`
	GrossWeightKg    float64         `gorm:"not null" json:"gross_weight_kg"`
	RemainingKg      float64         `gorm:"not null" json:"remaining_kg"`
	ReceivedAt       time.Time       `gorm:"not null" json:"received_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Lot movement types.
const (
	MovementReceipt     = "receipt"
	MovementConsumption = "consumption"
)

// LotMovement is the ledger row written for every change to a lot's remaining weight.
type LotMovement struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	LotID            int64     `gorm:"index;not null" json:"lot_id"`
	Type             string    `gorm:"size:16;not null" json:"type"`
	QuantityKg       float64   `gorm:"not null" json:"quantity_kg"` // negative for consumption
	RemainingAfterKg float64   `gorm:"not null" json:"remaining_after_kg"`
	WorkOrderID      *int64    `gorm:"index" json:"work_order_id,omitempty"`
	Reference        string    `gorm:"size:64" json:"reference"`
	CreatedAt        time.Time `json:"created_at"`
}
