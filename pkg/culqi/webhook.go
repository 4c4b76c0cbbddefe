package culqi

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
)

// Webhook actions Culqi emits for charges.
const (
	ActionChargeSucceeded = "charge.succeeded"
	ActionChargeRejected  = "charge.rejected"

	objectCharge = "Charge"
)

// WebhookEvent is the decoded charge notification.
type WebhookEvent struct {
	ChargeID string
	Action   string
}

// ParseWebhook decodes a charge webhook body. Non-charge objects and unknown
// actions are rejected so callers only ever see the two charge outcomes.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var payload struct {
		Object string `json:"object"`
		Data   struct {
			Object struct {
				ID     string `json:"id"`
				Action string `json:"action"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding webhook payload")
	}
	if payload.Object != objectCharge {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported webhook object type")
	}
	chargeID := strings.TrimSpace(payload.Data.Object.ID)
	if chargeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook charge id is required")
	}
	action := payload.Data.Object.Action
	if action != ActionChargeSucceeded && action != ActionChargeRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported webhook action")
	}
	return &WebhookEvent{ChargeID: chargeID, Action: action}, nil
}
