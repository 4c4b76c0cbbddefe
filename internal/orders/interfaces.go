package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDWithDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListByShipperAndStatus(ctx context.Context, shipperID uuid.UUID, statuses []enums.OrderStatus) ([]models.Order, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
