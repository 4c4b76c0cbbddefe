package deliveries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/pkg/db/models"
)

// Repository defines persistence operations for shippers, delivery points
// and the assignment rows binding them to orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateShipper(ctx context.Context, shipper *models.Shipper) (*models.Shipper, error)
	FindShipperByID(ctx context.Context, id uuid.UUID) (*models.Shipper, error)
	UpdateShipper(ctx context.Context, id uuid.UUID, updates map[string]any) error

	CreateDeliveryPoint(ctx context.Context, point *models.DeliveryPoint) (*models.DeliveryPoint, error)
	FindDeliveryPointByID(ctx context.Context, id uuid.UUID) (*models.DeliveryPoint, error)

	CreateAssignment(ctx context.Context, assignment *models.DeliveryAssignment) (*models.DeliveryAssignment, error)
	CloseActiveShipperAssignment(ctx context.Context, orderID uuid.UUID) error
	CloseActivePointAssignment(ctx context.Context, orderID uuid.UUID) error
	ListAssignmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DeliveryAssignment, error)
}
