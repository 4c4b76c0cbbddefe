package deliveries

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/internal/authz"
	"github.com/encamino/encamino-backend/internal/ledger"
	"github.com/encamino/encamino-backend/internal/orders"
	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderLocker interface {
	WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error
}

// Service manages couriers, delivery points, and the binding of orders to
// both. The assignment row set on each target and the references on the
// order move together inside one transaction, never independently.
type Service interface {
	RegisterShipper(ctx context.Context, input RegisterShipperInput) (*models.Shipper, error)
	RegisterPoint(ctx context.Context, input RegisterPointInput) (*models.DeliveryPoint, error)
	Assign(ctx context.Context, input AssignInput) (*models.Order, error)
	RecordLocation(ctx context.Context, input LocationInput) (int, error)
	ShipperOrders(ctx context.Context, actor authz.Actor, shipperID uuid.UUID) ([]models.Order, error)
	SetAvailability(ctx context.Context, actor authz.Actor, shipperID uuid.UUID, status enums.AvailabilityStatus) error
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	ordersSvc  orders.Service
	ledger     ledger.Service
	tx         txRunner
	locker     orderLocker
	log        *logger.Logger
}

// NewService builds a delivery assignment manager with the required
// dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, ordersSvc orders.Service, ledgerSvc ledger.Service, tx txRunner, locker orderLocker, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
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
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		ordersRepo: ordersRepo,
		ordersSvc:  ordersSvc,
		ledger:     ledgerSvc,
		tx:         tx,
		locker:     locker,
		log:        log,
	}, nil
}

func (s *service) RegisterShipper(ctx context.Context, input RegisterShipperInput) (*models.Shipper, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.VehicleType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid vehicle type %q", input.VehicleType))
	}

	shipper := &models.Shipper{
		UserID:       input.UserID,
		VehicleType:  input.VehicleType,
		LicensePlate: input.LicensePlate,
		Availability: enums.AvailabilityStatusAvailable,
	}
	if _, err := s.repo.CreateShipper(ctx, shipper); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating shipper")
	}
	return shipper, nil
}

func (s *service) RegisterPoint(ctx context.Context, input RegisterPointInput) (*models.DeliveryPoint, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if strings.TrimSpace(input.Address) == "" || strings.TrimSpace(input.City) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address and city required")
	}

	point := &models.DeliveryPoint{
		UserID:       input.UserID,
		Name:         input.Name,
		Address:      input.Address,
		City:         input.City,
		ContactPhone: input.ContactPhone,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
	}
	if _, err := s.repo.CreateDeliveryPoint(ctx, point); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating delivery point")
	}
	return point, nil
}

// Assign binds the order to the given targets. Reassigning a shipper closes
// the previous shipper's active assignment in the same transaction, so the
// order is never in two assigned sets at once.
func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.DeliveryPointID == nil && input.ShipperID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a delivery point or shipper is required")
	}
	if err := authz.CanAssign(input.Actor); err != nil {
		return nil, err
	}

	if input.ShipperID != nil {
		if _, err := s.repo.FindShipperByID(ctx, *input.ShipperID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipper not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shipper")
		}
	}
	if input.DeliveryPointID != nil {
		if _, err := s.repo.FindDeliveryPointByID(ctx, *input.DeliveryPointID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery point not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading delivery point")
		}
	}

	var actorID *uuid.UUID
	if input.Actor.Role != enums.ActorRoleSystem {
		id := input.Actor.UserID
		actorID = &id
	}

	var order *models.Order
	err := s.locker.WithOrderLock(ctx, input.OrderID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			ordersRepo := s.ordersRepo.WithTx(tx)

			var err error
			order, err = ordersRepo.FindByID(ctx, input.OrderID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
			}
			if order.Status.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("order is %s and cannot be assigned", order.Status))
			}

			updates := map[string]any{}

			if input.DeliveryPointID != nil {
				if err := repo.CloseActivePointAssignment(ctx, order.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "closing point assignment")
				}
				if _, err := repo.CreateAssignment(ctx, &models.DeliveryAssignment{
					OrderID:          order.ID,
					DeliveryPointID:  input.DeliveryPointID,
					AssignedByUserID: actorID,
					Active:           true,
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating point assignment")
				}
				if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
					OrderID:     order.ID,
					Type:        enums.TrackingEventAssignedToDeliveryPoint,
					ActorUserID: actorID,
				}); err != nil {
					return err
				}
				updates["assigned_delivery_point_id"] = *input.DeliveryPointID
				order.AssignedDeliveryPointID = input.DeliveryPointID
			}

			if input.ShipperID != nil {
				if err := repo.CloseActiveShipperAssignment(ctx, order.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "closing shipper assignment")
				}
				if _, err := repo.CreateAssignment(ctx, &models.DeliveryAssignment{
					OrderID:          order.ID,
					ShipperID:        input.ShipperID,
					AssignedByUserID: actorID,
					Active:           true,
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating shipper assignment")
				}
				if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
					OrderID:     order.ID,
					Type:        enums.TrackingEventAssignedToShipper,
					ActorUserID: actorID,
					EstimatedAt: input.EstimatedAt,
				}); err != nil {
					return err
				}
				updates["assigned_shipper_id"] = *input.ShipperID
				order.AssignedShipperID = input.ShipperID
				if input.EstimatedAt != nil {
					updates["estimated_delivery_at"] = *input.EstimatedAt
					order.EstimatedDeliveryAt = input.EstimatedAt
				}
			}

			if err := ordersRepo.Update(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order assignment")
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RecordLocation stores the shipper's position and fans an in_transit entry
// out to every order the shipper is currently moving. Orders outside the
// shipped family are left alone. Returns the number of orders touched.
func (s *service) RecordLocation(ctx context.Context, input LocationInput) (int, error) {
	if input.ShipperID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "shipper id required")
	}
	if err := authz.CanRecordLocation(input.Actor, input.ShipperID); err != nil {
		return 0, err
	}

	if _, err := s.repo.FindShipperByID(ctx, input.ShipperID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "shipper not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shipper")
	}

	updates := map[string]any{
		"latitude":  input.Latitude,
		"longitude": input.Longitude,
	}
	if input.Label != nil {
		updates["current_location"] = *input.Label
	}
	if err := s.repo.UpdateShipper(ctx, input.ShipperID, updates); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating shipper location")
	}

	moving, err := s.ordersRepo.ListByShipperAndStatus(ctx, input.ShipperID, []enums.OrderStatus{enums.OrderStatusShipped})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing shipper orders")
	}

	lat, lon := input.Latitude, input.Longitude
	touched := 0
	for _, order := range moving {
		_, err := s.ordersSvc.ApplyEvent(ctx, orders.ApplyEventInput{
			OrderID:       order.ID,
			Event:         enums.TrackingEventInTransit,
			Actor:         input.Actor,
			Latitude:      &lat,
			Longitude:     &lon,
			LocationLabel: input.Label,
		})
		if err != nil {
			s.log.Error(s.log.WithOrderID(ctx, order.ID.String()), "recording transit position", err)
			continue
		}
		touched++
	}
	return touched, nil
}

func (s *service) ShipperOrders(ctx context.Context, actor authz.Actor, shipperID uuid.UUID) ([]models.Order, error) {
	if shipperID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipper id required")
	}
	if err := authz.CanRecordLocation(actor, shipperID); err != nil {
		return nil, err
	}

	list, err := s.ordersRepo.ListByShipperAndStatus(ctx, shipperID, []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusProcessing,
		enums.OrderStatusPaid,
		enums.OrderStatusShipped,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing shipper orders")
	}
	return list, nil
}

func (s *service) SetAvailability(ctx context.Context, actor authz.Actor, shipperID uuid.UUID, status enums.AvailabilityStatus) error {
	if shipperID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipper id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid availability status %q", status))
	}
	if err := authz.CanRecordLocation(actor, shipperID); err != nil {
		return err
	}

	if _, err := s.repo.FindShipperByID(ctx, shipperID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shipper not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shipper")
	}
	if err := s.repo.UpdateShipper(ctx, shipperID, map[string]any{
		"availability": status,
		"updated_at":   time.Now().UTC(),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating availability")
	}
	return nil
}
