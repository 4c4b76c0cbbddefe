package deliveries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a deliveries repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateShipper(ctx context.Context, shipper *models.Shipper) (*models.Shipper, error) {
	if err := r.db.WithContext(ctx).Create(shipper).Error; err != nil {
		return nil, err
	}
	return shipper, nil
}

func (r *repository) FindShipperByID(ctx context.Context, id uuid.UUID) (*models.Shipper, error) {
	var shipper models.Shipper
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&shipper).Error
	if err != nil {
		return nil, err
	}
	return &shipper, nil
}

func (r *repository) UpdateShipper(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Shipper{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateDeliveryPoint(ctx context.Context, point *models.DeliveryPoint) (*models.DeliveryPoint, error) {
	if err := r.db.WithContext(ctx).Create(point).Error; err != nil {
		return nil, err
	}
	return point, nil
}

func (r *repository) FindDeliveryPointByID(ctx context.Context, id uuid.UUID) (*models.DeliveryPoint, error) {
	var point models.DeliveryPoint
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&point).Error
	if err != nil {
		return nil, err
	}
	return &point, nil
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.DeliveryAssignment) (*models.DeliveryAssignment, error) {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (r *repository) CloseActiveShipperAssignment(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.DeliveryAssignment{}).
		Where("order_id = ? AND shipper_id IS NOT NULL AND active", orderID).
		Updates(map[string]any{
			"active":        false,
			"unassigned_at": time.Now().UTC(),
		}).Error
}

func (r *repository) CloseActivePointAssignment(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.DeliveryAssignment{}).
		Where("order_id = ? AND delivery_point_id IS NOT NULL AND active", orderID).
		Updates(map[string]any{
			"active":        false,
			"unassigned_at": time.Now().UTC(),
		}).Error
}

func (r *repository) ListAssignmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DeliveryAssignment, error) {
	var assignments []models.DeliveryAssignment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("assigned_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}
