package culqiwebhook

import (
	"context"
	"fmt"

	"github.com/encamino/encamino-backend/pkg/culqi"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/logger"
)

type settlementReconciler interface {
	Reconcile(ctx context.Context, chargeID, action string) error
}

// ServiceParams collects the dependencies of the webhook service.
type ServiceParams struct {
	Payments settlementReconciler
	Guard    *IdempotencyGuard
	Logger   *logger.Logger
}

// Service turns verified gateway callbacks into settlement reconciliation.
// Signature verification happens at the HTTP boundary on the raw body; this
// service assumes the payload is authentic.
type Service struct {
	payments settlementReconciler
	guard    *IdempotencyGuard
	log      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments: params.Payments,
		guard:    params.Guard,
		log:      params.Logger,
	}, nil
}

// HandleEvent parses one webhook body and reconciles the charge it names.
// Duplicate deliveries are dropped by the guard; a failed reconciliation
// unmarks the event so the provider's retry can reprocess it.
func (s *Service) HandleEvent(ctx context.Context, body []byte) error {
	event, err := culqi.ParseWebhook(body)
	if err != nil {
		return err
	}

	ctx = s.log.WithChargeID(ctx, event.ChargeID)
	eventID := fmt.Sprintf("%s:%s", event.ChargeID, event.Action)

	seen, err := s.guard.CheckAndMark(ctx, eventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking webhook idempotency")
	}
	if seen {
		s.log.Info(ctx, "duplicate webhook delivery dropped")
		return nil
	}

	if err := s.payments.Reconcile(ctx, event.ChargeID, event.Action); err != nil {
		if delErr := s.guard.Delete(ctx, eventID); delErr != nil {
			s.log.Error(ctx, "releasing webhook idempotency mark", delErr)
		}
		return err
	}
	return nil
}
