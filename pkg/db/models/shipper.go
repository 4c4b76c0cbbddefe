package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/encamino/encamino-backend/pkg/enums"
)

// Shipper is a courier operated by a user. Current coordinates are updated
// by location pings; delivery counters only ever increase.
type Shipper struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID               uuid.UUID                `gorm:"column:user_id;type:uuid;not null"`
	VehicleType          enums.VehicleType        `gorm:"column:vehicle_type;type:vehicle_type;not null"`
	LicensePlate         *string                  `gorm:"column:license_plate"`
	Availability         enums.AvailabilityStatus `gorm:"column:availability;type:availability_status;not null;default:'available'"`
	CurrentLocation      *string                  `gorm:"column:current_location"`
	Latitude             *float64                 `gorm:"column:latitude"`
	Longitude            *float64                 `gorm:"column:longitude"`
	TotalDeliveries      int                      `gorm:"column:total_deliveries;not null;default:0"`
	SuccessfulDeliveries int                      `gorm:"column:successful_deliveries;not null;default:0"`
	Rating               float64                  `gorm:"column:rating;not null;default:0"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
