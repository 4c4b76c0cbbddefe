package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/pkg/db/models"
)

// Repository manages persistence for tracking events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.TrackingEvent) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error)
	LastByOrderID(ctx context.Context, orderID uuid.UUID) (*models.TrackingEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a tracking-event repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.TrackingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error) {
	var events []models.TrackingEvent
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) LastByOrderID(ctx context.Context, orderID uuid.UUID) (*models.TrackingEvent, error) {
	var event models.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position DESC").
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}
