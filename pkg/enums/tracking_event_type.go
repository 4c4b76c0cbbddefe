package enums

import "fmt"

// TrackingEventType identifies one kind of entry in an order's tracking ledger.
type TrackingEventType string

const (
	TrackingEventCreated                 TrackingEventType = "created"
	TrackingEventPaymentConfirmed        TrackingEventType = "payment_confirmed"
	TrackingEventAssignedToDeliveryPoint TrackingEventType = "assigned_to_delivery_point"
	TrackingEventAssignedToShipper       TrackingEventType = "assigned_to_shipper"
	TrackingEventArrivedAtDeliveryPoint  TrackingEventType = "arrived_at_delivery_point"
	TrackingEventPickedUp                TrackingEventType = "picked_up"
	TrackingEventInTransit               TrackingEventType = "in_transit"
	TrackingEventOutForDelivery          TrackingEventType = "out_for_delivery"
	TrackingEventDelivered               TrackingEventType = "delivered"
	TrackingEventCancelled               TrackingEventType = "cancelled"
	TrackingEventDeliveryLocationSet     TrackingEventType = "delivery_location_set"
)

var validTrackingEventTypes = []TrackingEventType{
	TrackingEventCreated,
	TrackingEventPaymentConfirmed,
	TrackingEventAssignedToDeliveryPoint,
	TrackingEventAssignedToShipper,
	TrackingEventArrivedAtDeliveryPoint,
	TrackingEventPickedUp,
	TrackingEventInTransit,
	TrackingEventOutForDelivery,
	TrackingEventDelivered,
	TrackingEventCancelled,
	TrackingEventDeliveryLocationSet,
}

// String implements fmt.Stringer.
func (t TrackingEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TrackingEventType.
func (t TrackingEventType) IsValid() bool {
	for _, candidate := range validTrackingEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTrackingEventType converts raw input into a TrackingEventType.
func ParseTrackingEventType(value string) (TrackingEventType, error) {
	for _, candidate := range validTrackingEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tracking event type %q", value)
}
