package enums

import "fmt"

// PaymentMethod identifies how a buyer settles an order.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "mobile_wallet"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodWallet,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// RequiresManualReview reports whether the method settles through an
// operator-reviewed proof of payment instead of an automatic capture.
func (m PaymentMethod) RequiresManualReview() bool {
	return m == PaymentMethodWallet
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
