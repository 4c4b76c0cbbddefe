package authz

import (
	"github.com/google/uuid"

	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
)

// Actor is the authenticated identity every core operation receives. The
// core trusts these claims; verifying them is the auth middleware's job.
type Actor struct {
	UserID    uuid.UUID
	Role      enums.ActorRole
	ShipperID *uuid.UUID
	PointID   *uuid.UUID
}

// System is the actor used for gateway-driven mutations (webhooks, settlement).
func System() Actor {
	return Actor{Role: enums.ActorRoleSystem}
}

func (a Actor) isPrivileged() bool {
	return a.Role == enums.ActorRoleAdmin || a.Role == enums.ActorRoleSystem
}

// shipperEvents are emitted by the courier moving the package.
var shipperEvents = map[enums.TrackingEventType]bool{
	enums.TrackingEventPickedUp:       true,
	enums.TrackingEventInTransit:      true,
	enums.TrackingEventOutForDelivery: true,
	enums.TrackingEventDelivered:      true,
}

// pointEvents are emitted by delivery-point staff handling the package.
var pointEvents = map[enums.TrackingEventType]bool{
	enums.TrackingEventArrivedAtDeliveryPoint: true,
}

// CanApplyEvent decides whether actor may record event against order.
func CanApplyEvent(actor Actor, event enums.TrackingEventType, order *models.Order) error {
	if actor.isPrivileged() {
		return nil
	}

	switch {
	case shipperEvents[event]:
		if actor.Role != enums.ActorRoleShipper {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned shipper may record this event")
		}
		if actor.ShipperID == nil || order.AssignedShipperID == nil || *actor.ShipperID != *order.AssignedShipperID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this shipper")
		}
		return nil

	case pointEvents[event]:
		if actor.Role != enums.ActorRoleDeliveryPoint {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only delivery point staff may record this event")
		}
		if actor.PointID == nil || order.AssignedDeliveryPointID == nil || *actor.PointID != *order.AssignedDeliveryPointID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this delivery point")
		}
		return nil

	case event == enums.TrackingEventCancelled:
		switch actor.Role {
		case enums.ActorRoleBuyer:
			if order.BuyerID != actor.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to this buyer")
			}
			return nil
		case enums.ActorRoleStoreOwner:
			return nil
		default:
			return pkgerrors.New(pkgerrors.CodeForbidden, "role may not cancel orders")
		}

	case event == enums.TrackingEventPaymentConfirmed:
		return pkgerrors.New(pkgerrors.CodeForbidden, "payment confirmation is settlement-driven")

	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role may not record this event")
	}
}

// CanViewOrder decides whether actor may read order details and history.
func CanViewOrder(actor Actor, order *models.Order) error {
	if actor.isPrivileged() {
		return nil
	}
	switch actor.Role {
	case enums.ActorRoleBuyer:
		if order.BuyerID == actor.UserID {
			return nil
		}
	case enums.ActorRoleStoreOwner:
		return nil
	case enums.ActorRoleShipper:
		if actor.ShipperID != nil && order.AssignedShipperID != nil && *actor.ShipperID == *order.AssignedShipperID {
			return nil
		}
	case enums.ActorRoleDeliveryPoint:
		if actor.PointID != nil && order.AssignedDeliveryPointID != nil && *actor.PointID == *order.AssignedDeliveryPointID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this order")
}

// CanCreateOrder limits order creation to buyers acting for themselves.
func CanCreateOrder(actor Actor, buyerID uuid.UUID) error {
	if actor.isPrivileged() {
		return nil
	}
	if actor.Role == enums.ActorRoleBuyer && actor.UserID == buyerID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only buyers may create their own orders")
}

// CanUpdateDeliveryLocation limits destination changes to the order's buyer.
func CanUpdateDeliveryLocation(actor Actor, order *models.Order) error {
	if actor.isPrivileged() {
		return nil
	}
	if actor.Role == enums.ActorRoleBuyer && order.BuyerID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may update the delivery location")
}

// CanAssign limits delivery assignment to operations staff.
func CanAssign(actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem, enums.ActorRoleStoreOwner, enums.ActorRoleDeliveryPoint:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role may not assign deliveries")
	}
}

// CanRecordLocation restricts location pings to the shipper themselves.
func CanRecordLocation(actor Actor, shipperID uuid.UUID) error {
	if actor.isPrivileged() {
		return nil
	}
	if actor.Role == enums.ActorRoleShipper && actor.ShipperID != nil && *actor.ShipperID == shipperID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the shipper may report their location")
}

// CanInitiatePayment limits checkout to the order's buyer.
func CanInitiatePayment(actor Actor, order *models.Order) error {
	if actor.isPrivileged() {
		return nil
	}
	if actor.Role == enums.ActorRoleBuyer && order.BuyerID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may pay for this order")
}

// CanSubmitProof limits manual proof submission to the paying buyer.
func CanSubmitProof(actor Actor, payment *models.Payment) error {
	if actor.isPrivileged() {
		return nil
	}
	if actor.Role == enums.ActorRoleBuyer && payment.UserID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the payer may submit proof of payment")
}

// CanViewPayment limits payment reads to the payer.
func CanViewPayment(actor Actor, payment *models.Payment) error {
	if actor.isPrivileged() {
		return nil
	}
	if actor.Role == enums.ActorRoleBuyer && payment.UserID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this payment")
}

// CanReviewProof limits manual proof review to administrators.
func CanReviewProof(actor Actor) error {
	if actor.isPrivileged() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators may review proof of payment")
}

// CanRefund limits refunds to administrators.
func CanRefund(actor Actor) error {
	if actor.isPrivileged() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators may refund payments")
}
