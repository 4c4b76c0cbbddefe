package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryAssignment binds an order to a shipper or a delivery point.
// Exactly one of ShipperID/DeliveryPointID is set per row. All rows for a
// target form its "orders ever touched" set; rows with Active form the
// "currently assigned" set. Reassignment closes the previous active row in
// the same transaction that opens the new one.
type DeliveryAssignment struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ShipperID        *uuid.UUID `gorm:"column:shipper_id;type:uuid;index"`
	DeliveryPointID  *uuid.UUID `gorm:"column:delivery_point_id;type:uuid;index"`
	AssignedByUserID *uuid.UUID `gorm:"column:assigned_by_user_id;type:uuid"`
	AssignedAt       time.Time  `gorm:"column:assigned_at;autoCreateTime"`
	UnassignedAt     *time.Time `gorm:"column:unassigned_at"`
	Active           bool       `gorm:"column:active;not null;default:true"`
}
