package enums

import "fmt"

// Currency is the ISO 4217 code orders and payments settle in.
type Currency string

const (
	CurrencyPEN Currency = "PEN"
	CurrencyUSD Currency = "USD"
)

var validCurrencies = []Currency{
	CurrencyPEN,
	CurrencyUSD,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Currency.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
