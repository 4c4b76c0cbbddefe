package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryPoint is a fixed pickup/handoff location operated by a user.
type DeliveryPoint struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	Name         string     `gorm:"column:name;not null"`
	Address      string     `gorm:"column:address;not null"`
	City         string     `gorm:"column:city;not null"`
	ContactPhone *string    `gorm:"column:contact_phone"`
	Latitude     *float64   `gorm:"column:latitude"`
	Longitude    *float64   `gorm:"column:longitude"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
