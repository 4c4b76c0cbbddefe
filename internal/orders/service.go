package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/internal/authz"
	"github.com/encamino/encamino-backend/internal/ledger"
	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderLocker interface {
	WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error
}

// ShipperCounter bumps a shipper's cumulative delivery counters when an
// order they carry reaches its terminal delivered state.
type ShipperCounter interface {
	RecordDelivery(ctx context.Context, tx *gorm.DB, shipperID uuid.UUID, successful bool) error
}

// Service owns order creation and the status transitions driven by tracking
// events. Status and ledger mutate together inside one transaction while the
// per-order lock is held, so history and status can never diverge.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*models.Order, error)
	GetByTrackingNumber(ctx context.Context, actor authz.Actor, trackingNumber string) (*models.Order, error)
	ListForBuyer(ctx context.Context, actor authz.Actor, buyerID uuid.UUID) ([]models.Order, error)
	UpdateDeliveryLocation(ctx context.Context, input UpdateDeliveryLocationInput) (*models.Order, error)
	ApplyEvent(ctx context.Context, input ApplyEventInput) (*models.Order, error)
	ApplyEventInTx(ctx context.Context, tx *gorm.DB, input ApplyEventInput) (*models.Order, error)
	MarkRefundedInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error
}

type service struct {
	repo     Repository
	ledger   ledger.Service
	tx       txRunner
	locker   orderLocker
	counters ShipperCounter
	metrics  *metrics.SettlementMetrics
	now      func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, ledgerSvc ledger.Service, tx txRunner, locker orderLocker, counters ShipperCounter, m *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if locker == nil {
		return nil, fmt.Errorf("order locker required")
	}
	if counters == nil {
		return nil, fmt.Errorf("shipper counter required")
	}
	return &service{
		repo:     repo,
		ledger:   ledgerSvc,
		tx:       tx,
		locker:   locker,
		counters: counters,
		metrics:  m,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item required")
	}
	if err := authz.CanCreateOrder(input.Actor, input.BuyerID); err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyPEN
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", currency))
	}

	items := make([]models.OrderLineItem, 0, len(input.Items))
	computed := decimal.Zero
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item product id required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item unit price must not be negative")
		}
		subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		computed = computed.Add(subtotal)
		items = append(items, models.OrderLineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  subtotal,
		})
	}

	total := computed
	if input.TotalPrice != nil {
		if input.TotalPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "total price must not be negative")
		}
		total = *input.TotalPrice
	}

	order := &models.Order{
		BuyerID:           input.BuyerID,
		StoreID:           input.StoreID,
		Status:            enums.OrderStatusPending,
		Currency:          currency,
		TotalPrice:        total,
		DeliveryAddress:   input.DeliveryAddress,
		DeliveryLatitude:  input.DeliveryLatitude,
		DeliveryLongitude: input.DeliveryLongitude,
		DeliveryNotes:     input.DeliveryNotes,
		TrackingNumber:    s.newTrackingNumber(),
		Items:             items,
	}

	actorID := input.Actor.UserID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}
		_, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			OrderID:     order.ID,
			Type:        enums.TrackingEventCreated,
			ActorUserID: &actorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(enums.TrackingEventCreated.String())
	return order, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByIDWithDetail(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if err := authz.CanViewOrder(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetByTrackingNumber(ctx context.Context, actor authz.Actor, trackingNumber string) (*models.Order, error) {
	if strings.TrimSpace(trackingNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}
	order, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if err := authz.CanViewOrder(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListForBuyer(ctx context.Context, actor authz.Actor, buyerID uuid.UUID) ([]models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if err := authz.CanCreateOrder(actor, buyerID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing buyer orders")
	}
	return list, nil
}

// UpdateDeliveryLocation moves the order's destination coordinates and
// records a delivery_location_set entry, both in one transaction behind the
// order's lock.
func (s *service) UpdateDeliveryLocation(ctx context.Context, input UpdateDeliveryLocationInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var order *models.Order
	err := s.locker.WithOrderLock(ctx, input.OrderID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			var err error
			order, err = repo.FindByID(ctx, input.OrderID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
			}
			if err := authz.CanUpdateDeliveryLocation(input.Actor, order); err != nil {
				return err
			}
			if order.Status.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("order is %s and its delivery location is frozen", order.Status))
			}

			lat, lon := input.Latitude, input.Longitude
			var actorUserID *uuid.UUID
			if input.Actor.Role != enums.ActorRoleSystem {
				id := input.Actor.UserID
				actorUserID = &id
			}
			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				OrderID:     order.ID,
				Type:        enums.TrackingEventDeliveryLocationSet,
				Latitude:    &lat,
				Longitude:   &lon,
				Notes:       input.Notes,
				ActorUserID: actorUserID,
			}); err != nil {
				return err
			}
			if err := repo.Update(ctx, order.ID, map[string]any{
				"delivery_latitude":  lat,
				"delivery_longitude": lon,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating delivery location")
			}
			order.DeliveryLatitude = &lat
			order.DeliveryLongitude = &lon
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(enums.TrackingEventDeliveryLocationSet.String())
	return order, nil
}

// ApplyEvent serializes the mutation behind the order's lock and runs it in
// its own transaction.
func (s *service) ApplyEvent(ctx context.Context, input ApplyEventInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var order *models.Order
	err := s.locker.WithOrderLock(ctx, input.OrderID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			order, err = s.ApplyEventInTx(ctx, tx, input)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ApplyEventInTx records one tracking event and moves the order's status in
// the caller's transaction. Callers must already hold the order's lock.
func (s *service) ApplyEventInTx(ctx context.Context, tx *gorm.DB, input ApplyEventInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	repo := s.repo.WithTx(tx)
	order, err := repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}

	if err := authz.CanApplyEvent(input.Actor, input.Event, order); err != nil {
		return nil, err
	}

	next, err := NextStatus(order.Status, input.Event)
	if err != nil {
		return nil, err
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now().UTC()
	}

	var actorUserID *uuid.UUID
	if input.Actor.Role != enums.ActorRoleSystem {
		id := input.Actor.UserID
		actorUserID = &id
	}

	entry, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
		OrderID:       order.ID,
		Type:          input.Event,
		OccurredAt:    occurredAt,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		LocationLabel: input.LocationLabel,
		Notes:         input.Notes,
		ActorUserID:   actorUserID,
		EstimatedAt:   input.EstimatedAt,
	})
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if next != order.Status {
		updates["status"] = next
	}
	if input.Event == enums.TrackingEventPaymentConfirmed && input.PaymentID != nil {
		updates["payment_id"] = *input.PaymentID
	}
	if input.Event == enums.TrackingEventDelivered && order.ActualDeliveryAt == nil {
		updates["actual_delivery_at"] = entry.OccurredAt
		if order.AssignedShipperID != nil {
			if err := s.counters.RecordDelivery(ctx, tx, *order.AssignedShipperID, true); err != nil {
				return nil, err
			}
		}
	}

	if len(updates) > 0 {
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
	}

	order.Status = next
	if input.Event == enums.TrackingEventPaymentConfirmed && input.PaymentID != nil {
		order.PaymentID = input.PaymentID
	}
	if v, ok := updates["actual_delivery_at"].(time.Time); ok {
		order.ActualDeliveryAt = &v
	}

	s.metrics.IncTransition(input.Event.String())
	return order, nil
}

// MarkRefundedInTx closes an order whose payment was returned to the buyer.
// The refunded status is reachable even after delivery, so the terminal
// guard in the transition table does not apply here; a cancellation entry
// keeps the ledger complete. Callers must already hold the order's lock.
func (s *service) MarkRefundedInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	repo := s.repo.WithTx(tx)
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if order.Status == enums.OrderStatusRefunded {
		return nil
	}

	note := "payment refunded"
	if strings.TrimSpace(reason) != "" {
		note = fmt.Sprintf("payment refunded: %s", reason)
	}
	if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
		OrderID: order.ID,
		Type:    enums.TrackingEventCancelled,
		Notes:   &note,
	}); err != nil {
		return err
	}
	if err := repo.Update(ctx, order.ID, map[string]any{"status": enums.OrderStatusRefunded}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
	}

	s.metrics.IncTransition(enums.TrackingEventCancelled.String())
	return nil
}

func (s *service) newTrackingNumber() string {
	stamp := s.now().UTC().Format("20060102150405")
	suffix := strings.ToUpper(uuid.NewString()[:6])
	return fmt.Sprintf("TRK-%s-%s", stamp, suffix)
}

type shipperCounterImpl struct{}

// NewShipperCounter exposes the default shipper counter implementation.
func NewShipperCounter() ShipperCounter {
	return shipperCounterImpl{}
}

func (shipperCounterImpl) RecordDelivery(ctx context.Context, tx *gorm.DB, shipperID uuid.UUID, successful bool) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for shipper counters")
	}

	success := 0
	if successful {
		success = 1
	}
	res := tx.WithContext(ctx).Exec(`
		UPDATE shippers
		SET total_deliveries = total_deliveries + 1,
			successful_deliveries = successful_deliveries + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, success, shipperID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "recording shipper delivery")
	}
	return nil
}
