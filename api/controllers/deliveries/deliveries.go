package deliveries

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/encamino/encamino-backend/api/middleware"
	"github.com/encamino/encamino-backend/api/responses"
	"github.com/encamino/encamino-backend/api/validators"
	internaldeliveries "github.com/encamino/encamino-backend/internal/deliveries"
	internalorders "github.com/encamino/encamino-backend/internal/orders"
	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/logger"
)

type registerShipperRequest struct {
	VehicleType  string  `json:"vehicle_type" validate:"required"`
	LicensePlate *string `json:"license_plate,omitempty"`
}

// RegisterShipper enrolls the authenticated user as a courier.
func RegisterShipper(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload registerShipperRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicleType, err := enums.ParseVehicleType(strings.TrimSpace(payload.VehicleType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vehicle type"))
			return
		}

		shipper, err := svc.RegisterShipper(r.Context(), internaldeliveries.RegisterShipperInput{
			UserID:       actor.UserID,
			VehicleType:  vehicleType,
			LicensePlate: payload.LicensePlate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internaldeliveries.NewShipperView(shipper))
	}
}

type registerPointRequest struct {
	Name         string   `json:"name" validate:"required"`
	Address      string   `json:"address" validate:"required"`
	City         string   `json:"city" validate:"required"`
	ContactPhone *string  `json:"contact_phone,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
}

// RegisterPoint enrolls a fixed handoff location for the authenticated user.
func RegisterPoint(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload registerPointRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		point, err := svc.RegisterPoint(r.Context(), internaldeliveries.RegisterPointInput{
			UserID:       actor.UserID,
			Name:         validators.SanitizeString(payload.Name, 200),
			Address:      validators.SanitizeString(payload.Address, 500),
			City:         validators.SanitizeString(payload.City, 100),
			ContactPhone: payload.ContactPhone,
			Latitude:     payload.Latitude,
			Longitude:    payload.Longitude,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internaldeliveries.NewDeliveryPointView(point))
	}
}

type assignRequest struct {
	OrderID         uuid.UUID  `json:"order_id" validate:"required"`
	DeliveryPointID *uuid.UUID `json:"delivery_point_id,omitempty"`
	ShipperID       *uuid.UUID `json:"shipper_id,omitempty"`
	EstimatedAt     *time.Time `json:"estimated_at,omitempty"`
}

// Assign binds an order to a delivery point and/or a shipper.
func Assign(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload assignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Assign(r.Context(), internaldeliveries.AssignInput{
			Actor:           actor,
			OrderID:         payload.OrderID,
			DeliveryPointID: payload.DeliveryPointID,
			ShipperID:       payload.ShipperID,
			EstimatedAt:     payload.EstimatedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

type recordLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Label     *string `json:"label,omitempty"`
}

// RecordLocation stores a shipper position report and propagates it to the
// orders the shipper is moving.
func RecordLocation(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		shipperID, err := parseShipperID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordLocationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		touched, err := svc.RecordLocation(r.Context(), internaldeliveries.LocationInput{
			Actor:     actor,
			ShipperID: shipperID,
			Latitude:  payload.Latitude,
			Longitude: payload.Longitude,
			Label:     payload.Label,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"orders_updated": touched})
	}
}

// Orders returns the active orders assigned to a shipper.
func Orders(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		shipperID, err := parseShipperID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ShipperOrders(r.Context(), actor, shipperID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderViews(orders))
	}
}

type availabilityRequest struct {
	Status string `json:"status" validate:"required"`
}

// SetAvailability updates a shipper's availability status.
func SetAvailability(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		shipperID, err := parseShipperID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload availabilityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseAvailabilityStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid availability status"))
			return
		}

		if err := svc.SetAvailability(r.Context(), actor, shipperID, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(status)})
	}
}

func parseShipperID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "shipperId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "shipper id is required")
	}
	shipperID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipper id")
	}
	return shipperID, nil
}
