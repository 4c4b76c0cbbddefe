package enums

import "fmt"

// PaymentStatus tracks the settlement lifecycle of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusProcessing    PaymentStatus = "processing"
	PaymentStatusSucceeded     PaymentStatus = "succeeded"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusPendingReview PaymentStatus = "pending_review"
	PaymentStatusRefunded      PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusSucceeded,
	PaymentStatusFailed,
	PaymentStatusPendingReview,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the payment accepts no further gateway-driven
// transitions. A refunded or failed payment is never resurrected; a new
// attempt requires a new payment record.
func (p PaymentStatus) IsTerminal() bool {
	switch p {
	case PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// Settled reports whether the payment holds or held captured funds.
func (p PaymentStatus) Settled() bool {
	return p == PaymentStatusSucceeded || p == PaymentStatusRefunded
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
