package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/encamino/encamino-backend/internal/authz"
	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
)

// InitiateInput opens a settlement attempt for an order. Card payments carry
// a pre-tokenized source in TokenID; wallet payments carry the OTP exchange
// inputs instead and tokenize during the call.
type InitiateInput struct {
	Actor       authz.Actor
	OrderID     uuid.UUID
	Method      enums.PaymentMethod
	Email       string
	TokenID     *string
	PhoneNumber string
	OTP         string
	Description string
}

// ProofInput attaches an off-platform transfer receipt to a wallet payment.
type ProofInput struct {
	Actor     authz.Actor
	PaymentID uuid.UUID
	ProofURL  string
}

// ReviewInput resolves a payment waiting on manual proof review.
type ReviewInput struct {
	Actor     authz.Actor
	PaymentID uuid.UUID
	Approve   bool
	Notes     *string
}

// RefundInput returns a settled payment to the buyer.
type RefundInput struct {
	Actor     authz.Actor
	PaymentID uuid.UUID
	Reason    string
}

// PaymentView is the public shape of a settlement attempt. Gateway
// identifiers stay server-side.
type PaymentView struct {
	ID           uuid.UUID           `json:"id"`
	OrderID      uuid.UUID           `json:"order_id"`
	Method       enums.PaymentMethod `json:"method"`
	Status       enums.PaymentStatus `json:"status"`
	Amount       decimal.Decimal     `json:"amount"`
	Currency     enums.Currency      `json:"currency"`
	ProofURL     *string             `json:"proof_url,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	RefundReason *string             `json:"refund_reason,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewPaymentView maps a stored payment onto its public shape.
func NewPaymentView(payment *models.Payment) PaymentView {
	return PaymentView{
		ID:           payment.ID,
		OrderID:      payment.OrderID,
		Method:       payment.Method,
		Status:       payment.Status,
		Amount:       payment.Amount,
		Currency:     payment.Currency,
		ProofURL:     payment.ProofURL,
		ErrorMessage: payment.ErrorMessage,
		RefundReason: payment.RefundReason,
		CreatedAt:    payment.CreatedAt,
	}
}
