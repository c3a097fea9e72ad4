package models

// Currency is an ISO-4217 alphabetic code from the supported set.
type Currency string

const (
	UAH Currency = "UAH"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// Supported reports whether the currency belongs to the supported set.
func (c Currency) Supported() bool {
	switch c {
	case UAH, USD, EUR:
		return true
	}
	return false
}

// SupportedCurrencies returns the full supported set.
func SupportedCurrencies() []Currency {
	return []Currency{UAH, USD, EUR}
}
