package model

import "time"

// Sequence is a named counter, e.g. production runs per die.
type Sequence struct {
	Scope     string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"primaryKey;size:64"`
	Value     int64  `gorm:"not null"`
	UpdatedAt time.Time
}
