package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/encamino/encamino-backend/pkg/enums"
)

// Order is a buyer's purchase from a single store, tracked from creation
// through delivery. Status always mirrors the latest applicable tracking
// event; the two are mutated together, never independently.
type Order struct {
	ID                      uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID                 uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null"`
	StoreID                 uuid.UUID          `gorm:"column:store_id;type:uuid;not null"`
	Status                  enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Currency                enums.Currency     `gorm:"column:currency;type:text;not null;default:'PEN'"`
	TotalPrice              decimal.Decimal    `gorm:"column:total_price;type:numeric(12,2);not null"`
	DeliveryAddress         string             `gorm:"column:delivery_address;not null"`
	DeliveryLatitude        *float64           `gorm:"column:delivery_latitude"`
	DeliveryLongitude       *float64           `gorm:"column:delivery_longitude"`
	DeliveryNotes           *string            `gorm:"column:delivery_notes"`
	TrackingNumber          string             `gorm:"column:tracking_number;not null;unique"`
	PaymentID               *uuid.UUID         `gorm:"column:payment_id;type:uuid"`
	AssignedDeliveryPointID *uuid.UUID         `gorm:"column:assigned_delivery_point_id;type:uuid"`
	AssignedShipperID       *uuid.UUID         `gorm:"column:assigned_shipper_id;type:uuid"`
	EstimatedDeliveryAt     *time.Time         `gorm:"column:estimated_delivery_at"`
	ActualDeliveryAt        *time.Time         `gorm:"column:actual_delivery_at"`
	Items                   []OrderLineItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TrackingHistory         []TrackingEvent    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Assignments             []DeliveryAssignment `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
