package payments

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/encamino/encamino-backend/api/middleware"
	"github.com/encamino/encamino-backend/api/responses"
	"github.com/encamino/encamino-backend/api/validators"
	internalpayments "github.com/encamino/encamino-backend/internal/payments"
	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	Method      string    `json:"method" validate:"required"`
	Email       string    `json:"email" validate:"required,email"`
	TokenID     *string   `json:"token_id,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	OTP         string    `json:"otp,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Initiate opens a settlement attempt for an order.
func Initiate(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.Method))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		payment, err := svc.Initiate(r.Context(), internalpayments.InitiateInput{
			Actor:       actor,
			OrderID:     payload.OrderID,
			Method:      method,
			Email:       strings.TrimSpace(payload.Email),
			TokenID:     payload.TokenID,
			PhoneNumber: strings.TrimSpace(payload.PhoneNumber),
			OTP:         strings.TrimSpace(payload.OTP),
			Description: validators.SanitizeString(payload.Description, 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalpayments.NewPaymentView(payment))
	}
}

// Detail returns one payment record.
func Detail(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Get(r.Context(), actor, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalpayments.NewPaymentView(payment))
	}
}

type submitProofRequest struct {
	ProofURL string `json:"proof_url" validate:"required,url"`
}

// SubmitProof attaches an off-platform transfer receipt to a payment.
func SubmitProof(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitProofRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.SubmitManualProof(r.Context(), internalpayments.ProofInput{
			Actor:     actor,
			PaymentID: paymentID,
			ProofURL:  strings.TrimSpace(payload.ProofURL),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalpayments.NewPaymentView(payment))
	}
}

type reviewProofRequest struct {
	Approve bool    `json:"approve"`
	Notes   *string `json:"notes,omitempty"`
}

// ReviewProof resolves a payment waiting on manual proof review.
func ReviewProof(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewProofRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.ReviewManualProof(r.Context(), internalpayments.ReviewInput{
			Actor:     actor,
			PaymentID: paymentID,
			Approve:   payload.Approve,
			Notes:     payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalpayments.NewPaymentView(payment))
	}
}

type refundRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Refund returns a settled payment to the buyer and closes the order.
func Refund(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Refund(r.Context(), internalpayments.RefundInput{
			Actor:     actor,
			PaymentID: paymentID,
			Reason:    validators.SanitizeString(payload.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalpayments.NewPaymentView(payment))
	}
}

func parsePaymentID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "paymentId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	paymentID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id")
	}
	return paymentID, nil
}
