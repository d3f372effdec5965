package model

import "time"

// PushSubscription holds the information for a panel browser's push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	WorkCenters []*WorkCenter `gorm:"many2many:subscription_work_centers;"`
}
