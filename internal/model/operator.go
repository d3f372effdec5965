package model

import "time"

// Operator is a shop-floor identity, logged in on the panels by RFID badge.
type Operator struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	RFIDCode  string    `gorm:"column:rfid_code;uniqueIndex;size:64;not null" json:"rfid_code"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkCenters []WorkCenter `gorm:"many2many:operator_work_centers;" json:"work_centers,omitempty"`
}

// AssignedTo reports whether the operator may work at the given work center.
func (o *Operator) AssignedTo(workCenterID int64) bool {
	for _, wc := range o.WorkCenters {
		if wc.ID == workCenterID {
			return true
		}
	}
	return false
}
