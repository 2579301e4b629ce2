package pricing

import (
	"math"
	"time"

	"github.com/trogers1052/portfolio-service/internal/models"
	"gonum.org/v1/gonum/stat/distuv"
)

// secondsPerYear uses the Julian year so leap days average out
const secondsPerYear = 365.25 * 24 * 60 * 60

// BlackScholes returns the European option price for spot S, strike K,
// time to expiry T in years, risk-free rate r and volatility sigma.
// Expired contracts (T <= 0) are worth 0.
func BlackScholes(S, K, T, r, sigma float64, optionType string) float64 {
	if T <= 0 {
		return 0
	}
	discountedStrike := K * math.Exp(-r*T)

	// Zero volatility or degenerate prices collapse to the discounted intrinsic value.
	if sigma <= 0 || S <= 0 || K <= 0 {
		if optionType == models.OptionTypeCall {
			return math.Max(S-discountedStrike, 0)
		}
		return math.Max(discountedStrike-S, 0)
	}

	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+sigma*sigma/2)*T) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	if optionType == models.OptionTypeCall {
		return S*distuv.UnitNormal.CDF(d1) - discountedStrike*distuv.UnitNormal.CDF(d2)
	}
	return discountedStrike*distuv.UnitNormal.CDF(-d2) - S*distuv.UnitNormal.CDF(-d1)
}

// YearsUntil returns the fractional number of years from now until t
func YearsUntil(now, t time.Time) float64 {
	return t.Sub(now).Seconds() / secondsPerYear
}

// OptionPrice prices an option given the current price of its underlying
func OptionPrice(option *models.Option, underlyingPrice float64, riskFreeRate float64, now time.Time) float64 {
	T := YearsUntil(now, option.SettlementDate)
	if T <= 0 {
		return 0
	}
	K := option.StrikePrice.Amount.InexactFloat64()
	return BlackScholes(underlyingPrice, K, T, riskFreeRate, option.ImpliedVolatility, option.OptionType)
}
