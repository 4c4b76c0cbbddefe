package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/encamino/encamino-backend/pkg/enums"
)

// Payment is one settlement attempt for an order. The amount is pinned to
// the order total at charge time. Failed and refunded payments are frozen;
// a retry requires a brand-new record.
type Payment struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	UserID       uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Method       enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status       enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Amount       decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency     enums.Currency      `gorm:"column:currency;type:text;not null;default:'PEN'"`
	ChargeID     *string             `gorm:"column:charge_id;unique"`
	TokenID      *string             `gorm:"column:token_id"`
	ProofURL     *string             `gorm:"column:proof_url"`
	ErrorMessage *string             `gorm:"column:error_message"`
	RefundReason *string             `gorm:"column:refund_reason"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
