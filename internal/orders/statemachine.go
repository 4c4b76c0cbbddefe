package orders

import (
	"fmt"

	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
)

// eventStatus maps an event kind to the coarse status it implies. Events
// absent from the table leave the status unchanged but still append to the
// tracking ledger.
var eventStatus = map[enums.TrackingEventType]enums.OrderStatus{
	enums.TrackingEventCreated:          enums.OrderStatusPending,
	enums.TrackingEventPaymentConfirmed: enums.OrderStatusPaid,
	enums.TrackingEventPickedUp:         enums.OrderStatusShipped,
	enums.TrackingEventInTransit:        enums.OrderStatusShipped,
	enums.TrackingEventOutForDelivery:   enums.OrderStatusShipped,
	enums.TrackingEventDelivered:        enums.OrderStatusDelivered,
	enums.TrackingEventCancelled:        enums.OrderStatusCancelled,
}

// statusRank orders the forward progression so a replayed event can never
// move an order backwards.
var statusRank = map[enums.OrderStatus]int{
	enums.OrderStatusPending:    0,
	enums.OrderStatusProcessing: 1,
	enums.OrderStatusPaid:       2,
	enums.OrderStatusShipped:    3,
	enums.OrderStatusDelivered:  4,
}

// NextStatus resolves the status an order lands in after event is recorded.
// It fails when the order is already terminal; otherwise the result is the
// current status for non-transition events, and never regresses for replays.
func NextStatus(current enums.OrderStatus, event enums.TrackingEventType) (enums.OrderStatus, error) {
	if !event.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tracking event type %q", event))
	}
	if current.IsTerminal() {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and accepts no further events", current))
	}

	target, ok := eventStatus[event]
	if !ok {
		return current, nil
	}
	if target == enums.OrderStatusCancelled {
		return target, nil
	}
	if statusRank[target] < statusRank[current] {
		return current, nil
	}
	return target, nil
}
