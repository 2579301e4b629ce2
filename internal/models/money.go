package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyCode is an ISO 4217 currency code
type CurrencyCode string

// Supported currency codes
const (
	CurrencyRSD CurrencyCode = "RSD"
	CurrencyEUR CurrencyCode = "EUR"
	CurrencyUSD CurrencyCode = "USD"
	CurrencyCHF CurrencyCode = "CHF"
	CurrencyJPY CurrencyCode = "JPY"
	CurrencyAUD CurrencyCode = "AUD"
	CurrencyCAD CurrencyCode = "CAD"
	CurrencyGBP CurrencyCode = "GBP"
)

var knownCurrencies = map[CurrencyCode]bool{
	CurrencyRSD: true,
	CurrencyEUR: true,
	CurrencyUSD: true,
	CurrencyCHF: true,
	CurrencyJPY: true,
	CurrencyAUD: true,
	CurrencyCAD: true,
	CurrencyGBP: true,
}

// ErrCurrencyMismatch is returned when arithmetic mixes two currencies
var ErrCurrencyMismatch = errors.New("currency mismatch")

// ParseCurrencyCode validates and normalizes a currency code
func ParseCurrencyCode(s string) (CurrencyCode, error) {
	code := CurrencyCode(strings.ToUpper(strings.TrimSpace(s)))
	if !knownCurrencies[code] {
		return "", fmt.Errorf("unsupported currency: %q", s)
	}
	return code, nil
}

// MinorUnits returns the number of decimal places used by the currency
func (c CurrencyCode) MinorUnits() int32 {
	if c == CurrencyJPY {
		return 0
	}
	return 2
}

// MonetaryAmount is a decimal amount tagged with its currency
type MonetaryAmount struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency CurrencyCode    `json:"currency"`
}

// NewMonetaryAmount builds a MonetaryAmount
func NewMonetaryAmount(amount decimal.Decimal, currency CurrencyCode) MonetaryAmount {
	return MonetaryAmount{Amount: amount, Currency: currency}
}

// Zero returns a zero amount in the given currency
func Zero(currency CurrencyCode) MonetaryAmount {
	return MonetaryAmount{Amount: decimal.Zero, Currency: currency}
}

// Add sums two amounts of the same currency
func (m MonetaryAmount) Add(other MonetaryAmount) (MonetaryAmount, error) {
	if m.Currency != other.Currency {
		return MonetaryAmount{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return MonetaryAmount{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub subtracts an amount of the same currency
func (m MonetaryAmount) Sub(other MonetaryAmount) (MonetaryAmount, error) {
	if m.Currency != other.Currency {
		return MonetaryAmount{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return MonetaryAmount{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Mul scales the amount by a dimensionless factor
func (m MonetaryAmount) Mul(factor decimal.Decimal) MonetaryAmount {
	return MonetaryAmount{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Round rounds half-up to the currency's minor unit
func (m MonetaryAmount) Round() MonetaryAmount {
	return MonetaryAmount{Amount: RoundHalfUp(m.Amount, m.Currency.MinorUnits()), Currency: m.Currency}
}

// IsZero reports whether the amount is zero
func (m MonetaryAmount) IsZero() bool {
	return m.Amount.IsZero()
}

func (m MonetaryAmount) String() string {
	return m.Amount.StringFixed(m.Currency.MinorUnits()) + " " + string(m.Currency)
}

// RoundHalfUp rounds away from zero at the midpoint.
// decimal.Round is already half-away-from-zero; the helper names the policy.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}
