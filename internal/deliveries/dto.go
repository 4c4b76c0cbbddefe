package deliveries

import (
	"time"

	"github.com/google/uuid"

	"github.com/encamino/encamino-backend/internal/authz"
	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
)

// RegisterShipperInput enrolls a courier for an operating user.
type RegisterShipperInput struct {
	UserID       uuid.UUID
	VehicleType  enums.VehicleType
	LicensePlate *string
}

// RegisterPointInput enrolls a fixed handoff location.
type RegisterPointInput struct {
	UserID       uuid.UUID
	Name         string
	Address      string
	City         string
	ContactPhone *string
	Latitude     *float64
	Longitude    *float64
}

// AssignInput binds an order to a delivery point and/or a shipper. At least
// one target must be set; assigning a shipper while another is active hands
// the order off cleanly.
type AssignInput struct {
	Actor           authz.Actor
	OrderID         uuid.UUID
	DeliveryPointID *uuid.UUID
	ShipperID       *uuid.UUID
	EstimatedAt     *time.Time
}

// LocationInput is one shipper position report.
type LocationInput struct {
	Actor     authz.Actor
	ShipperID uuid.UUID
	Latitude  float64
	Longitude float64
	Label     *string
}

// ShipperView is the public shape of a courier profile.
type ShipperView struct {
	ID              uuid.UUID                `json:"id"`
	VehicleType     enums.VehicleType        `json:"vehicle_type"`
	LicensePlate    *string                  `json:"license_plate,omitempty"`
	Availability    enums.AvailabilityStatus `json:"availability"`
	CurrentLocation *string                  `json:"current_location,omitempty"`
	Latitude        *float64                 `json:"latitude,omitempty"`
	Longitude       *float64                 `json:"longitude,omitempty"`
	TotalDeliveries int                      `json:"total_deliveries"`
	Rating          float64                  `json:"rating"`
}

// NewShipperView maps a stored shipper onto its public shape.
func NewShipperView(shipper *models.Shipper) ShipperView {
	return ShipperView{
		ID:              shipper.ID,
		VehicleType:     shipper.VehicleType,
		LicensePlate:    shipper.LicensePlate,
		Availability:    shipper.Availability,
		CurrentLocation: shipper.CurrentLocation,
		Latitude:        shipper.Latitude,
		Longitude:       shipper.Longitude,
		TotalDeliveries: shipper.TotalDeliveries,
		Rating:          shipper.Rating,
	}
}

// DeliveryPointView is the public shape of a handoff location.
type DeliveryPointView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	ContactPhone *string   `json:"contact_phone,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
}

// NewDeliveryPointView maps a stored delivery point onto its public shape.
func NewDeliveryPointView(point *models.DeliveryPoint) DeliveryPointView {
	return DeliveryPointView{
		ID:           point.ID,
		Name:         point.Name,
		Address:      point.Address,
		City:         point.City,
		ContactPhone: point.ContactPhone,
		Latitude:     point.Latitude,
		Longitude:    point.Longitude,
	}
}
