package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/internal/authz"
	"github.com/encamino/encamino-backend/internal/orders"
	"github.com/encamino/encamino-backend/pkg/culqi"
	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/logger"
	"github.com/encamino/encamino-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderLocker interface {
	WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error
}

type gateway interface {
	CreateToken(ctx context.Context, req culqi.TokenRequest) (string, error)
	CreateCharge(ctx context.Context, req culqi.ChargeRequest) (*culqi.Charge, error)
	CreateRefund(ctx context.Context, req culqi.RefundRequest) error
}

// Service coordinates payment settlement against the external gateway.
// Settlement outcomes arrive through two racing channels, the synchronous
// charge return and the asynchronous webhook; both funnel into the same
// idempotent transition keyed by the payment record, so whichever lands
// second is a no-op.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*models.Payment, error)
	Reconcile(ctx context.Context, chargeID, action string) error
	SubmitManualProof(ctx context.Context, input ProofInput) (*models.Payment, error)
	ReviewManualProof(ctx context.Context, input ReviewInput) (*models.Payment, error)
	Refund(ctx context.Context, input RefundInput) (*models.Payment, error)
	Get(ctx context.Context, actor authz.Actor, paymentID uuid.UUID) (*models.Payment, error)
}

type service struct {
	repo    Repository
	orders  orders.Service
	tx      txRunner
	locker  orderLocker
	gateway gateway
	log     *logger.Logger
	metrics *metrics.SettlementMetrics
	now     func() time.Time
}

// NewService builds a settlement coordinator with the required dependencies.
func NewService(repo Repository, orderSvc orders.Service, tx txRunner, locker orderLocker, gw gateway, log *logger.Logger, m *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if locker == nil {
		return nil, fmt.Errorf("order locker required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		orders:  orderSvc,
		tx:      tx,
		locker:  locker,
		gateway: gw,
		log:     log,
		metrics: m,
		now:     time.Now,
	}, nil
}

// minorUnits converts a currency-precise amount to the gateway's integer
// representation (centimos for PEN, cents for USD).
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing email required")
	}
	switch input.Method {
	case enums.PaymentMethodCard:
		if input.TokenID == nil || strings.TrimSpace(*input.TokenID) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "card payments require a source token")
		}
	case enums.PaymentMethodWallet:
		if strings.TrimSpace(input.PhoneNumber) == "" || strings.TrimSpace(input.OTP) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet payments require phone number and otp")
		}
	}

	order, err := s.orders.Get(ctx, input.Actor, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanInitiatePayment(input.Actor, order); err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and cannot be paid", order.Status))
	}
	if !order.TotalPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	if _, err := s.repo.FindSettlingByOrder(ctx, order.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has an active payment")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking existing payments")
	}

	payment := &models.Payment{
		OrderID:  order.ID,
		UserID:   input.Actor.UserID,
		Method:   input.Method,
		Status:   enums.PaymentStatusPending,
		Amount:   order.TotalPrice,
		Currency: order.Currency,
		TokenID:  input.TokenID,
	}
	if _, err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment")
	}
	ctx = s.log.WithPaymentID(ctx, payment.ID.String())

	amount := minorUnits(payment.Amount)
	var sourceID string
	switch input.Method {
	case enums.PaymentMethodCard:
		sourceID = *input.TokenID
	case enums.PaymentMethodWallet:
		started := s.now()
		tokenID, err := s.gateway.CreateToken(ctx, culqi.TokenRequest{
			PhoneNumber: input.PhoneNumber,
			OTP:         input.OTP,
			Amount:      amount,
		})
		s.metrics.ObserveGatewayCall("create_token", time.Since(started))
		if err != nil {
			return nil, s.failPayment(ctx, payment, input.Method, err)
		}
		sourceID = tokenID
		if err := s.repo.Update(ctx, payment.ID, map[string]any{"token_id": tokenID}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing wallet token")
		}
		payment.TokenID = &tokenID
	}

	started := s.now()
	charge, err := s.gateway.CreateCharge(ctx, culqi.ChargeRequest{
		Amount:      amount,
		Currency:    payment.Currency.String(),
		Email:       input.Email,
		SourceID:    sourceID,
		Capture:     true,
		Description: input.Description,
		Metadata:    map[string]any{"order_id": order.ID.String(), "payment_id": payment.ID.String()},
	})
	s.metrics.ObserveGatewayCall("create_charge", time.Since(started))
	if err != nil {
		return nil, s.failPayment(ctx, payment, input.Method, err)
	}

	if charge.AmountStatus == "pending" {
		if err := s.repo.Update(ctx, payment.ID, map[string]any{
			"status":    enums.PaymentStatusProcessing,
			"charge_id": charge.ID,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking payment processing")
		}
		payment.Status = enums.PaymentStatusProcessing
		payment.ChargeID = &charge.ID
		s.metrics.IncCharge(input.Method.String(), enums.PaymentStatusProcessing.String())
		s.log.Info(ctx, "charge accepted, settlement pending")
		return payment, nil
	}

	if err := s.settle(ctx, order.ID, payment.ID, charge.ID); err != nil {
		return nil, err
	}
	payment.Status = enums.PaymentStatusSucceeded
	payment.ChargeID = &charge.ID
	s.metrics.IncCharge(input.Method.String(), enums.PaymentStatusSucceeded.String())
	return payment, nil
}

// failPayment records a gateway failure verbatim on the payment and reports
// it upward. The order is not touched; a new attempt needs a new record.
func (s *service) failPayment(ctx context.Context, payment *models.Payment, method enums.PaymentMethod, cause error) error {
	detail := cause.Error()
	if err := s.repo.Update(ctx, payment.ID, map[string]any{
		"status":        enums.PaymentStatusFailed,
		"error_message": detail,
	}); err != nil {
		s.log.Error(ctx, "recording gateway failure", err)
	}
	payment.Status = enums.PaymentStatusFailed
	payment.ErrorMessage = &detail
	s.metrics.IncCharge(method.String(), enums.PaymentStatusFailed.String())
	s.log.Error(ctx, "gateway rejected payment", cause)
	return cause
}

// settle moves a payment to succeeded and confirms its order, exactly once.
// A payment already succeeded short-circuits so duplicate webhooks and the
// sync-return/webhook race cannot double-append tracking events.
func (s *service) settle(ctx context.Context, orderID, paymentID uuid.UUID, chargeID string) error {
	return s.locker.WithOrderLock(ctx, orderID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			payment, err := repo.FindByID(ctx, paymentID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment")
			}
			if payment.Status == enums.PaymentStatusSucceeded {
				return nil
			}
			if payment.Status.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("payment is %s and cannot succeed", payment.Status))
			}

			updates := map[string]any{"status": enums.PaymentStatusSucceeded}
			if chargeID != "" {
				updates["charge_id"] = chargeID
			}
			if err := repo.Update(ctx, payment.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking payment succeeded")
			}

			_, err = s.orders.ApplyEventInTx(ctx, tx, orders.ApplyEventInput{
				OrderID:   orderID,
				Event:     enums.TrackingEventPaymentConfirmed,
				Actor:     authz.System(),
				PaymentID: &payment.ID,
			})
			return err
		})
	})
}

// reject freezes a payment after the gateway declines its charge and cancels
// the order. A payment that already holds funds is left alone.
func (s *service) reject(ctx context.Context, orderID, paymentID uuid.UUID) error {
	return s.locker.WithOrderLock(ctx, orderID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			payment, err := repo.FindByID(ctx, paymentID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment")
			}
			if payment.Status == enums.PaymentStatusFailed {
				return nil
			}
			if payment.Status.Settled() {
				s.log.Warn(ctx, "rejection webhook for settled payment ignored")
				return nil
			}

			if err := repo.Update(ctx, payment.ID, map[string]any{
				"status":        enums.PaymentStatusFailed,
				"error_message": "charge rejected by gateway",
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking payment failed")
			}

			_, err = s.orders.ApplyEventInTx(ctx, tx, orders.ApplyEventInput{
				OrderID: orderID,
				Event:   enums.TrackingEventCancelled,
				Actor:   authz.System(),
			})
			if err != nil && pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
				// order already reached a terminal state through another path
				s.log.Warn(ctx, "order already terminal, skipping cancellation")
				return nil
			}
			return err
		})
	})
}

// Reconcile applies a webhook outcome to the payment owning the charge.
// Unknown charges are logged and swallowed so provider replays and
// out-of-order deliveries never trigger retry storms.
func (s *service) Reconcile(ctx context.Context, chargeID, action string) error {
	if strings.TrimSpace(chargeID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge id required")
	}
	ctx = s.log.WithChargeID(ctx, chargeID)

	payment, err := s.repo.FindByChargeID(ctx, chargeID)
	if err == gorm.ErrRecordNotFound {
		s.log.Warn(ctx, "webhook charge has no matching payment")
		s.metrics.IncWebhook(action, "unmatched")
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment by charge")
	}

	switch action {
	case culqi.ActionChargeSucceeded:
		err = s.settle(ctx, payment.OrderID, payment.ID, chargeID)
	case culqi.ActionChargeRejected:
		err = s.reject(ctx, payment.OrderID, payment.ID)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown webhook action %q", action))
	}
	if err != nil {
		s.metrics.IncWebhook(action, "error")
		return err
	}
	s.metrics.IncWebhook(action, "processed")
	return nil
}

func (s *service) SubmitManualProof(ctx context.Context, input ProofInput) (*models.Payment, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if strings.TrimSpace(input.ProofURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof reference required")
	}

	payment, err := s.findPayment(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanSubmitProof(input.Actor, payment); err != nil {
		return nil, err
	}
	if !payment.Method.RequiresManualReview() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s payments do not take manual proof", payment.Method))
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment is %s, proof requires a pending payment", payment.Status))
	}

	if err := s.repo.Update(ctx, payment.ID, map[string]any{
		"status":    enums.PaymentStatusPendingReview,
		"proof_url": input.ProofURL,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing proof of payment")
	}
	payment.Status = enums.PaymentStatusPendingReview
	payment.ProofURL = &input.ProofURL
	return payment, nil
}

func (s *service) ReviewManualProof(ctx context.Context, input ReviewInput) (*models.Payment, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if err := authz.CanReviewProof(input.Actor); err != nil {
		return nil, err
	}

	payment, err := s.findPayment(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusPendingReview {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment is %s, review requires pending_review", payment.Status))
	}

	if input.Approve {
		if err := s.settle(ctx, payment.OrderID, payment.ID, ""); err != nil {
			return nil, err
		}
		payment.Status = enums.PaymentStatusSucceeded
		return payment, nil
	}

	detail := "proof of payment rejected"
	if input.Notes != nil && strings.TrimSpace(*input.Notes) != "" {
		detail = *input.Notes
	}
	if err := s.repo.Update(ctx, payment.ID, map[string]any{
		"status":        enums.PaymentStatusFailed,
		"error_message": detail,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rejecting proof of payment")
	}
	payment.Status = enums.PaymentStatusFailed
	payment.ErrorMessage = &detail
	return payment, nil
}

func (s *service) Refund(ctx context.Context, input RefundInput) (*models.Payment, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if err := authz.CanRefund(input.Actor); err != nil {
		return nil, err
	}

	payment, err := s.findPayment(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment is %s, refunds require succeeded", payment.Status))
	}

	if payment.ChargeID != nil {
		started := s.now()
		err := s.gateway.CreateRefund(ctx, culqi.RefundRequest{
			ChargeID: *payment.ChargeID,
			Amount:   minorUnits(payment.Amount),
			Reason:   input.Reason,
		})
		s.metrics.ObserveGatewayCall("create_refund", time.Since(started))
		if err != nil {
			s.log.Error(ctx, "gateway refund failed", err)
			return nil, err
		}
	}

	err = s.locker.WithOrderLock(ctx, payment.OrderID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Update(ctx, payment.ID, map[string]any{
				"status":        enums.PaymentStatusRefunded,
				"refund_reason": input.Reason,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking payment refunded")
			}
			return s.orders.MarkRefundedInTx(ctx, tx, payment.OrderID, input.Reason)
		})
	})
	if err != nil {
		return nil, err
	}
	payment.Status = enums.PaymentStatusRefunded
	payment.RefundReason = &input.Reason
	return payment, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, paymentID uuid.UUID) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanViewPayment(actor, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) findPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment")
	}
	return payment, nil
}
