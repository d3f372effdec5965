package model

import "time"

// DieStatus is the lifecycle of a die. It only ever moves forward.
type DieStatus string

const (
	DieStatusDraft        DieStatus = "Draft"
	DieStatusWaiting      DieStatus = "Waiting"
	DieStatusReady        DieStatus = "Ready"
	DieStatusInProduction DieStatus = "InProduction"
	DieStatusCompleted    DieStatus = "Completed"
)

var dieStatusOrder = []DieStatus{
	DieStatusDraft,
	DieStatusWaiting,
	DieStatusReady,
	DieStatusInProduction,
	DieStatusCompleted,
}

// Rank returns the position of s in the lifecycle, or -1 for unknown values.
func (s DieStatus) Rank() int {
	for i, v := range dieStatusOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s DieStatus) Valid() bool {
	return s.Rank() >= 0
}

// Before returns every status ranked strictly lower than s.
func (s DieStatus) Before() []DieStatus {
	r := s.Rank()
	if r <= 0 {
		return nil
	}
	return append([]DieStatus(nil), dieStatusOrder[:r]...)
}

// Die is the tool being manufactured.
type Die struct {
	ID                   int64     `gorm:"primaryKey" json:"id"`
	DieNumber            string    `gorm:"uniqueIndex;size:64;not null" json:"die_number"`
	DieTypeID            int64     `gorm:"index;not null" json:"die_type_id"`
	DieType              *DieType  `json:"die_type,omitempty"`
	Customer             string    `gorm:"size:128" json:"customer"`
	DieDiameterMm        float64   `gorm:"not null" json:"die_diameter_mm"`
	TotalPackageLengthMm float64   `gorm:"not null" json:"total_package_length_mm"`
	Status               DieStatus `gorm:"size:16;not null;index" json:"status"`
	Notes                string    `gorm:"type:text" json:"notes"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	Components []DieComponent `gorm:"foreignKey:DieID;constraint:OnDelete:CASCADE" json:"components,omitempty"`
	Files      []DieFile      `gorm:"foreignKey:DieID;constraint:OnDelete:CASCADE" json:"files,omitempty"`
}

// DieComponent is one part of a die, cut from one stock item.
type DieComponent struct {
	ID                       int64           `gorm:"primaryKey" json:"id"`
	DieID                    int64           `gorm:"index;not null" json:"die_id"`
	ComponentTypeID          int64           `gorm:"index;not null" json:"component_type_id"`
	ComponentType            *ComponentType  `json:"component_type,omitempty"`
	SteelStockItemID         int64           `gorm:"index;not null" json:"steel_stock_item_id"`
	SteelStockItem           *SteelStockItem `json:"steel_stock_item,omitempty"`
	PackageLengthMm          float64         `gorm:"not null" json:"package_length_mm"`
	TheoreticalConsumptionKg float64         `gorm:"not null" json:"theoretical_consumption_kg"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// Die file kinds.
const (
	FileKindDXF      = "dxf"
	FileKindDocument = "document"
)

// DieFile is a drawing or document stored in the object store.
type DieFile struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	DieID       int64     `gorm:"index;not null" json:"die_id"`
	FileName    string    `gorm:"size:256;not null" json:"file_name"`
	ObjectKey   string    `gorm:"uniqueIndex;size:512;not null" json:"object_key"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Kind        string    `gorm:"size:16;not null" json:"kind"`
	CreatedAt   time.Time `json:"created_at"`

	URL       string `gorm:"-" json:"url,omitempty"`
	ViewerURL string `gorm:"-" json:"viewer_url,omitempty"`
}
