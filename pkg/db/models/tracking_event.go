package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/encamino/encamino-backend/pkg/enums"
)

// TrackingEvent is one immutable entry in an order's tracking ledger.
// Entries are only ever appended; corrections are new entries whose note
// references the corrected fact. A nil ActorUserID means the system.
type TrackingEvent struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	Type          enums.TrackingEventType `gorm:"column:type;type:tracking_event_type;not null"`
	Position      int                     `gorm:"column:position;not null"`
	OccurredAt    time.Time               `gorm:"column:occurred_at;not null"`
	Latitude      *float64                `gorm:"column:latitude"`
	Longitude     *float64                `gorm:"column:longitude"`
	LocationLabel *string                 `gorm:"column:location_label"`
	Notes         *string                 `gorm:"column:notes"`
	ActorUserID   *uuid.UUID              `gorm:"column:actor_user_id;type:uuid"`
	EstimatedAt   *time.Time              `gorm:"column:estimated_at"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}
