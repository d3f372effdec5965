package model

import "time"

// DieType classifies dies (extrusion, forging, ...). IsActive only hides the
// type from pickers; existing dies keep referencing it.
type DieType struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"uniqueIndex;size:32;not null" json:"code"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComponentType classifies die components (mandrel, plate, bolster, ...) and
// carries the operation route every component of that type goes through.
type ComponentType struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"uniqueIndex;size:32;not null" json:"code"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Steps []ComponentTypeStep `gorm:"foreignKey:ComponentTypeID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
}

// ComponentTypeStep is one BOM route step of a component type.
type ComponentTypeStep struct {
	ID               int64       `gorm:"primaryKey" json:"id"`
	ComponentTypeID  int64       `gorm:"not null;uniqueIndex:idx_component_type_step_seq" json:"component_type_id"`
	SequenceNumber   int         `gorm:"not null;uniqueIndex:idx_component_type_step_seq" json:"sequence_number"`
	Name             string      `gorm:"size:128;not null" json:"name"`
	WorkCenterID     int64       `gorm:"index;not null" json:"work_center_id"`
	WorkCenter       *WorkCenter `json:"work_center,omitempty"`
	EstimatedMinutes int         `json:"estimated_minutes"`
}

// WorkCenter is a machine or station where operations are performed.
type WorkCenter struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"uniqueIndex;size:32;not null" json:"code"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
