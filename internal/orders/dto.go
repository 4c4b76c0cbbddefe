package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/encamino/encamino-backend/internal/authz"
	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
)

// LineItemInput snapshots one purchased product at creation time.
type LineItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateInput captures everything needed to open an order.
type CreateInput struct {
	Actor             authz.Actor
	BuyerID           uuid.UUID
	StoreID           uuid.UUID
	Currency          enums.Currency
	Items             []LineItemInput
	TotalPrice        *decimal.Decimal
	DeliveryAddress   string
	DeliveryLatitude  *float64
	DeliveryLongitude *float64
	DeliveryNotes     *string
}

// ApplyEventInput carries one tracking event plus the identity recording it.
// PaymentID accompanies payment_confirmed so the order can reference the
// settled payment in the same transaction.
type ApplyEventInput struct {
	OrderID       uuid.UUID
	Event         enums.TrackingEventType
	Actor         authz.Actor
	OccurredAt    time.Time
	Latitude      *float64
	Longitude     *float64
	LocationLabel *string
	Notes         *string
	EstimatedAt   *time.Time
	PaymentID     *uuid.UUID
}

// UpdateDeliveryLocationInput moves an order's destination pin after
// creation, before the order reaches a terminal state.
type UpdateDeliveryLocationInput struct {
	OrderID   uuid.UUID
	Actor     authz.Actor
	Latitude  float64
	Longitude float64
	Notes     *string
}

// LineItemView is the public shape of one purchased product.
type LineItemView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// TrackingEventView is the public shape of one ledger entry.
type TrackingEventView struct {
	Type          enums.TrackingEventType `json:"type"`
	Position      int                     `json:"position"`
	OccurredAt    time.Time               `json:"occurred_at"`
	Latitude      *float64                `json:"latitude,omitempty"`
	Longitude     *float64                `json:"longitude,omitempty"`
	LocationLabel *string                 `json:"location_label,omitempty"`
	Notes         *string                 `json:"notes,omitempty"`
	EstimatedAt   *time.Time              `json:"estimated_at,omitempty"`
}

// OrderView is the public shape of an order, history included when loaded.
type OrderView struct {
	ID                  uuid.UUID           `json:"id"`
	Status              enums.OrderStatus   `json:"status"`
	Currency            enums.Currency      `json:"currency"`
	TotalPrice          decimal.Decimal     `json:"total_price"`
	TrackingNumber      string              `json:"tracking_number"`
	DeliveryAddress     string              `json:"delivery_address"`
	DeliveryNotes       *string             `json:"delivery_notes,omitempty"`
	PaymentID           *uuid.UUID          `json:"payment_id,omitempty"`
	EstimatedDeliveryAt *time.Time          `json:"estimated_delivery_at,omitempty"`
	ActualDeliveryAt    *time.Time          `json:"actual_delivery_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	Items               []LineItemView      `json:"items,omitempty"`
	TrackingHistory     []TrackingEventView `json:"tracking_history,omitempty"`
}

// NewOrderView maps a stored order onto its public shape.
func NewOrderView(order *models.Order) OrderView {
	view := OrderView{
		ID:                  order.ID,
		Status:              order.Status,
		Currency:            order.Currency,
		TotalPrice:          order.TotalPrice,
		TrackingNumber:      order.TrackingNumber,
		DeliveryAddress:     order.DeliveryAddress,
		DeliveryNotes:       order.DeliveryNotes,
		PaymentID:           order.PaymentID,
		EstimatedDeliveryAt: order.EstimatedDeliveryAt,
		ActualDeliveryAt:    order.ActualDeliveryAt,
		CreatedAt:           order.CreatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, LineItemView{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	for _, event := range order.TrackingHistory {
		view.TrackingHistory = append(view.TrackingHistory, TrackingEventView{
			Type:          event.Type,
			Position:      event.Position,
			OccurredAt:    event.OccurredAt,
			Latitude:      event.Latitude,
			Longitude:     event.Longitude,
			LocationLabel: event.LocationLabel,
			Notes:         event.Notes,
			EstimatedAt:   event.EstimatedAt,
		})
	}
	return view
}

// NewOrderViews maps a list of orders without their histories.
func NewOrderViews(orders []models.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, NewOrderView(&orders[i]))
	}
	return views
}
