package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/encamino/encamino-backend/api/middleware"
	"github.com/encamino/encamino-backend/api/responses"
	"github.com/encamino/encamino-backend/api/validators"
	internalorders "github.com/encamino/encamino-backend/internal/orders"
	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/logger"
)

type lineItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

type createOrderRequest struct {
	StoreID           uuid.UUID         `json:"store_id" validate:"required"`
	Currency          string            `json:"currency" validate:"omitempty"`
	Items             []lineItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalPrice        *decimal.Decimal  `json:"total_price,omitempty"`
	DeliveryAddress   string            `json:"delivery_address" validate:"required"`
	DeliveryLatitude  *float64          `json:"delivery_latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	DeliveryLongitude *float64          `json:"delivery_longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	DeliveryNotes     *string           `json:"delivery_notes,omitempty"`
}

// Create opens an order for the authenticated buyer.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency := enums.CurrencyPEN
		if raw := strings.TrimSpace(payload.Currency); raw != "" {
			parsed, err := enums.ParseCurrency(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
			currency = parsed
		}

		input := internalorders.CreateInput{
			Actor:             actor,
			BuyerID:           actor.UserID,
			StoreID:           payload.StoreID,
			Currency:          currency,
			TotalPrice:        payload.TotalPrice,
			DeliveryAddress:   validators.SanitizeString(payload.DeliveryAddress, 500),
			DeliveryLatitude:  payload.DeliveryLatitude,
			DeliveryLongitude: payload.DeliveryLongitude,
			DeliveryNotes:     payload.DeliveryNotes,
		}
		for _, item := range payload.Items {
			input.Items = append(input.Items, internalorders.LineItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.NewOrderView(order))
	}
}

// List returns the authenticated buyer's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orders, err := svc.ListForBuyer(r.Context(), actor, actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderViews(orders))
	}
}

// Detail returns one order with its full tracking history.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

// History returns just the tracking ledger of one order.
func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order).TrackingHistory)
	}
}

// Tracking resolves an order by its tracking number.
func Tracking(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		trackingNumber := strings.TrimSpace(chi.URLParam(r, "trackingNumber"))
		if trackingNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required"))
			return
		}

		order, err := svc.GetByTrackingNumber(r.Context(), actor, trackingNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

type applyEventRequest struct {
	Type          string     `json:"type" validate:"required"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`
	Latitude      *float64   `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude     *float64   `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	LocationLabel *string    `json:"location_label,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	EstimatedAt   *time.Time `json:"estimated_at,omitempty"`
}

// ApplyEvent records one tracking event against an order.
func ApplyEvent(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload applyEventRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventType, err := enums.ParseTrackingEventType(strings.TrimSpace(payload.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event type"))
			return
		}

		input := internalorders.ApplyEventInput{
			OrderID:       orderID,
			Event:         eventType,
			Actor:         actor,
			Latitude:      payload.Latitude,
			Longitude:     payload.Longitude,
			LocationLabel: payload.LocationLabel,
			Notes:         payload.Notes,
			EstimatedAt:   payload.EstimatedAt,
		}
		if payload.OccurredAt != nil {
			input.OccurredAt = *payload.OccurredAt
		}

		order, err := svc.ApplyEvent(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

type updateLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Notes     *string `json:"notes,omitempty"`
}

// UpdateLocation moves the order's delivery destination.
func UpdateLocation(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateLocationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateDeliveryLocation(r.Context(), internalorders.UpdateDeliveryLocationInput{
			OrderID:   orderID,
			Actor:     actor,
			Latitude:  payload.Latitude,
			Longitude: payload.Longitude,
			Notes:     payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
