package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/encamino/encamino-backend/api/responses"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/logger"
)

const culqiSignatureHeader = "X-Culqi-Signature"

// CulqiWebhookService consumes one verified webhook body.
type CulqiWebhookService interface {
	HandleEvent(ctx context.Context, body []byte) error
}

type culqiVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

// CulqiWebhook receives charge notifications from the payment gateway.
// Unverifiable payloads are rejected before any state is touched.
func CulqiWebhook(svc CulqiWebhookService, verifier culqiVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway client unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(culqiSignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing"))
			return
		}
		if !verifier.VerifySignature(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature mismatch"))
			return
		}

		if err := svc.HandleEvent(ctx, payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
