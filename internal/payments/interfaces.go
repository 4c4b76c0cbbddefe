package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/pkg/db/models"
)

// Repository defines persistence operations for payment attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByChargeID(ctx context.Context, chargeID string) (*models.Payment, error)
	FindSettlingByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
