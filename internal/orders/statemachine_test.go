package orders

import (
	"errors"
	"testing"

	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		name    string
		current enums.OrderStatus
		event   enums.TrackingEventType
		want    enums.OrderStatus
	}{
		{"created opens pending", enums.OrderStatusPending, enums.TrackingEventCreated, enums.OrderStatusPending},
		{"payment confirms from pending", enums.OrderStatusPending, enums.TrackingEventPaymentConfirmed, enums.OrderStatusPaid},
		{"payment confirms from processing", enums.OrderStatusProcessing, enums.TrackingEventPaymentConfirmed, enums.OrderStatusPaid},
		{"picked up ships", enums.OrderStatusPaid, enums.TrackingEventPickedUp, enums.OrderStatusShipped},
		{"in transit keeps shipped", enums.OrderStatusShipped, enums.TrackingEventInTransit, enums.OrderStatusShipped},
		{"out for delivery keeps shipped", enums.OrderStatusShipped, enums.TrackingEventOutForDelivery, enums.OrderStatusShipped},
		{"delivered closes", enums.OrderStatusShipped, enums.TrackingEventDelivered, enums.OrderStatusDelivered},
		{"assignment leaves status alone", enums.OrderStatusPaid, enums.TrackingEventAssignedToShipper, enums.OrderStatusPaid},
		{"arrival leaves status alone", enums.OrderStatusShipped, enums.TrackingEventArrivedAtDeliveryPoint, enums.OrderStatusShipped},
		{"location set leaves status alone", enums.OrderStatusPending, enums.TrackingEventDeliveryLocationSet, enums.OrderStatusPending},
		{"replayed payment does not regress shipped", enums.OrderStatusShipped, enums.TrackingEventPaymentConfirmed, enums.OrderStatusShipped},
		{"cancel from pending", enums.OrderStatusPending, enums.TrackingEventCancelled, enums.OrderStatusCancelled},
		{"cancel from processing", enums.OrderStatusProcessing, enums.TrackingEventCancelled, enums.OrderStatusCancelled},
		{"cancel from paid", enums.OrderStatusPaid, enums.TrackingEventCancelled, enums.OrderStatusCancelled},
		{"cancel from shipped", enums.OrderStatusShipped, enums.TrackingEventCancelled, enums.OrderStatusCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextStatus(tc.current, tc.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestNextStatusTerminalGuard(t *testing.T) {
	for _, current := range []enums.OrderStatus{
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
		enums.OrderStatusRefunded,
	} {
		for _, event := range []enums.TrackingEventType{
			enums.TrackingEventPaymentConfirmed,
			enums.TrackingEventInTransit,
			enums.TrackingEventCancelled,
		} {
			_, err := NextStatus(current, event)
			if err == nil {
				t.Fatalf("expected error applying %s to %s order", event, current)
			}
			if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
				t.Fatalf("expected state conflict, got %v", err)
			}
		}
	}
}

func TestNextStatusInvalidEvent(t *testing.T) {
	_, err := NextStatus(enums.OrderStatusPending, enums.TrackingEventType("teleported"))
	if err == nil {
		t.Fatal("expected error for unknown event")
	}
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
