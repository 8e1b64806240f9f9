package core

import "github.com/shopspring/decimal"

// Convert returns amount expressed in the trip's home currency.
//
// Amounts already in the home currency are returned unchanged. Every other
// currency code is treated as the trip's local currency, whatever its actual
// code, and converted with the local-to-home rate rounded half up to an integer.
func Convert(amount decimal.Decimal, sourceCurrency string, settings TripSettings) decimal.Decimal {
	if sourceCurrency == settings.HomeCurrencyCode {
		return amount
	}
	return roundHalfUp(amount.Mul(settings.ExchangeRateLocalToHome))
}
